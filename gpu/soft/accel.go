package soft

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/raytrace/gpu"
)

const (
	positionSize        = 12
	indexSize           = 4
	structureHeaderSize = 128
)

// AccelerationStructureInfo describes a structure built by the software device
type AccelerationStructureInfo struct {
	Type    gpu.AccelerationStructureType
	Address gpu.Address

	// Synchronized is true once a UAV barrier has been recorded on the structure after its build
	Synchronized bool

	VertexCount   int
	TriangleCount int
	// Bounds is the min and max corner of every referenced vertex, for bottom-level structures
	Bounds [2][3]float32

	// Instances are the decoded descriptors, for top-level structures
	Instances []gpu.InstanceDesc
}

func countGeometry(geometries []gpu.TriangleGeometry) (vertices int, triangles int) {
	for _, geometry := range geometries {
		vertices += geometry.VertexCount
		if geometry.IndexCount > 0 {
			triangles += geometry.IndexCount / 3
		} else {
			triangles += geometry.VertexCount / 3
		}
	}

	return vertices, triangles
}

func (d *Device) AccelerationStructurePrebuildInfo(inputs gpu.BuildInputs) gpu.PrebuildInfo {
	var info gpu.PrebuildInfo

	switch inputs.Type {
	case gpu.AccelerationStructureBottomLevel:
		vertices, triangles := countGeometry(inputs.Geometries)
		info.ResultSize = uint64(structureHeaderSize + 64*triangles + positionSize*vertices)
		info.ScratchSize = uint64(64 + 32*triangles)
	case gpu.AccelerationStructureTopLevel:
		info.ResultSize = uint64(structureHeaderSize + 64*inputs.InstanceCount)
		info.ScratchSize = uint64(64 + 16*inputs.InstanceCount)
	}

	if inputs.Flags&gpu.BuildFlagAllowUpdate != 0 {
		info.UpdateScratchSize = info.ScratchSize
	}

	return info
}

func (d *Device) buildTarget(address gpu.Address, size uint64, state gpu.ResourceState, purpose string) error {
	r, ok := d.resources.Get(address)
	if !ok {
		return errors.Newf("%s address %s is not the start of a placed resource", purpose, address)
	}

	if uint64(r.Size()) < size {
		return errors.Newf("%s resource at %s has size %d, but the build requires %d", purpose, address, r.Size(), size)
	}

	if r.state != state {
		return errors.Newf("%s resource at %s is in state %s, but must be in state %s", purpose, address, r.state, state)
	}

	return nil
}

func (c buildCommand) execute(d *Device, state *executionState) error {
	inputs := c.desc.Inputs
	prebuild := d.AccelerationStructurePrebuildInfo(inputs)

	if !gpuAligned(c.desc.Dest) {
		return errors.Newf("destination %s is not aligned to %d", c.desc.Dest, gpu.AccelerationStructureAlignment)
	}

	err := d.buildTarget(c.desc.Dest, prebuild.ResultSize, gpu.ResourceStateAccelerationStructure, "destination")
	if err != nil {
		return err
	}

	err = d.buildTarget(c.desc.Scratch, prebuild.ScratchSize, gpu.ResourceStateUnorderedAccess, "scratch")
	if err != nil {
		return err
	}

	info := &AccelerationStructureInfo{
		Type:    inputs.Type,
		Address: c.desc.Dest,
	}

	switch inputs.Type {
	case gpu.AccelerationStructureBottomLevel:
		err = d.buildBottomLevel(inputs, info)
	case gpu.AccelerationStructureTopLevel:
		err = d.buildTopLevel(inputs, info)
	default:
		err = errors.Newf("unknown acceleration structure type %s", inputs.Type)
	}
	if err != nil {
		return err
	}

	d.structures.Put(c.desc.Dest, info)
	return nil
}

func gpuAligned(address gpu.Address) bool {
	return uint64(address)%gpu.AccelerationStructureAlignment == 0
}

func (d *Device) buildBottomLevel(inputs gpu.BuildInputs, info *AccelerationStructureInfo) error {
	if len(inputs.Geometries) == 0 {
		return errors.New("bottom-level build has no geometry")
	}

	for i := 0; i < 3; i++ {
		info.Bounds[0][i] = math.MaxFloat32
		info.Bounds[1][i] = -math.MaxFloat32
	}

	for geometryIndex, geometry := range inputs.Geometries {
		if geometry.VertexStride < positionSize {
			return errors.Newf("geometry %d has vertex stride %d, smaller than a float3 position", geometryIndex, geometry.VertexStride)
		}

		vertices, err := d.memory(geometry.VertexBuffer, geometry.VertexCount*geometry.VertexStride)
		if err != nil {
			return errors.Wrapf(err, "geometry %d vertex buffer", geometryIndex)
		}

		for vertex := 0; vertex < geometry.VertexCount; vertex++ {
			for axis := 0; axis < 3; axis++ {
				value := math.Float32frombits(binary.LittleEndian.Uint32(vertices[vertex*geometry.VertexStride+axis*4:]))
				info.Bounds[0][axis] = min(info.Bounds[0][axis], value)
				info.Bounds[1][axis] = max(info.Bounds[1][axis], value)
			}
		}

		triangles := geometry.VertexCount / 3
		if geometry.IndexCount > 0 {
			if geometry.IndexCount%3 != 0 {
				return errors.Newf("geometry %d has %d indices, which is not a whole number of triangles", geometryIndex, geometry.IndexCount)
			}

			indices, err := d.memory(geometry.IndexBuffer, geometry.IndexCount*indexSize)
			if err != nil {
				return errors.Wrapf(err, "geometry %d index buffer", geometryIndex)
			}

			for i := 0; i < geometry.IndexCount; i++ {
				index := binary.LittleEndian.Uint32(indices[i*indexSize:])
				if int(index) >= geometry.VertexCount {
					return errors.Newf("geometry %d index %d references vertex %d, but there are only %d vertices", geometryIndex, i, index, geometry.VertexCount)
				}
			}
			triangles = geometry.IndexCount / 3
		}

		info.VertexCount += geometry.VertexCount
		info.TriangleCount += triangles
	}

	return nil
}

func (d *Device) buildTopLevel(inputs gpu.BuildInputs, info *AccelerationStructureInfo) error {
	if inputs.InstanceCount <= 0 {
		return errors.New("top-level build has no instances")
	}

	data, err := d.memory(inputs.Instances, inputs.InstanceCount*gpu.InstanceDescSize)
	if err != nil {
		return errors.Wrap(err, "instance buffer")
	}

	info.Instances = make([]gpu.InstanceDesc, 0, inputs.InstanceCount)
	for i := 0; i < inputs.InstanceCount; i++ {
		desc, err := gpu.DecodeInstanceDesc(data[i*gpu.InstanceDescSize:])
		if err != nil {
			return err
		}

		bottom, ok := d.structures.Get(desc.AccelerationStructure)
		if !ok || bottom.Type != gpu.AccelerationStructureBottomLevel {
			return errors.Newf("instance %d references %s, which is not a built bottom-level structure", i, desc.AccelerationStructure)
		}

		if !bottom.Synchronized {
			return errors.Newf("instance %d references the bottom-level structure at %s before a barrier was recorded on it", i, desc.AccelerationStructure)
		}

		info.Instances = append(info.Instances, desc)
	}

	return nil
}
