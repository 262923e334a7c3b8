package accel

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_buffer_device_address"
	"github.com/vkngwrapper/raytrace/gpu"
	"github.com/vkngwrapper/raytrace/heap"
	"github.com/vkngwrapper/raytrace/memutils"
	"golang.org/x/exp/slog"
)

const addressableUsage = core1_0.BufferUsageStorageBuffer | khr_buffer_device_address.BufferUsageShaderDeviceAddress

// BuildContext carries the collaborators an acceleration structure build records against. Builds
// are recorded into Recorder and only take effect once the recorder is submitted.
type BuildContext struct {
	Logger   *slog.Logger
	Device   gpu.Device
	Heaps    *heap.Manager
	Recorder gpu.CommandRecorder
}

func (c BuildContext) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}

	return c.Logger
}

// BottomLevel is a built bottom-level acceleration structure. It lives in the bottom-level storage
// heap, which is never reset.
type BottomLevel struct {
	result *heap.PlacedResource

	vertexCount int
	indexCount  int
}

// Address returns the GPU virtual address of the structure
func (b *BottomLevel) Address() gpu.Address { return b.result.Address() }

// Resource returns the placed resource holding the structure
func (b *BottomLevel) Resource() *heap.PlacedResource { return b.result }

func (b *BottomLevel) VertexCount() int { return b.vertexCount }
func (b *BottomLevel) IndexCount() int  { return b.indexCount }

// structureSize rounds a prebuild size up to the acceleration structure byte alignment
func structureSize(size uint64) int {
	return int(memutils.AlignUp64(size, gpu.AccelerationStructureAlignment))
}

func uploadBuffer(ctx BuildContext, data []byte, purpose string) (*heap.PlacedResource, error) {
	buffer, _, err := ctx.Heaps.AllocateBuffer(heap.UsageHostScratch, len(data), addressableUsage, gpu.ResourceStateGenericRead)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to allocate the %s upload buffer", purpose)
	}

	err = buffer.Write(0, data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to write the %s upload buffer", purpose)
	}

	return buffer, nil
}

// buildStructure allocates scratch for the provided inputs, then records the build and the barrier
// that makes the result visible to later commands in the same stream. The result is written over
// previous when it is large enough, and placed in storage otherwise.
func buildStructure(ctx BuildContext, inputs gpu.BuildInputs, storage heap.UsageClass, previous *heap.PlacedResource) (*heap.PlacedResource, error) {
	prebuild := ctx.Device.AccelerationStructurePrebuildInfo(inputs)
	if prebuild.ResultSize == 0 {
		return nil, errors.Mark(errors.Newf("device reported an empty %s structure", inputs.Type), memutils.BuildError)
	}

	scratch, _, err := ctx.Heaps.AllocateBuffer(heap.UsageDeviceScratch, structureSize(max(prebuild.ScratchSize, 1)), addressableUsage, gpu.ResourceStateUnorderedAccess)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to allocate %s scratch", inputs.Type)
	}

	resultSize := structureSize(prebuild.ResultSize)
	result := previous
	if result == nil || result.Size() < resultSize {
		result, _, err = ctx.Heaps.AllocateBuffer(storage, resultSize, addressableUsage, gpu.ResourceStateAccelerationStructure)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to allocate %s storage", inputs.Type)
		}
	}

	ctx.Recorder.BuildAccelerationStructure(gpu.BuildDesc{
		Inputs:  inputs,
		Dest:    result.Address(),
		Scratch: scratch.Address(),
	})
	ctx.Recorder.UAVBarrier(result.Resource())

	ctx.logger().Debug("accel::buildStructure",
		slog.String("Type", inputs.Type.String()),
		slog.Uint64("ResultSize", prebuild.ResultSize),
		slog.Uint64("ScratchSize", prebuild.ScratchSize),
		slog.String("Address", result.Address().String()),
		slog.Bool("InPlace", result == previous))

	return result, nil
}

// BuildBottomLevel uploads a mesh and records the build of its bottom-level structure. The vertex
// and index data go to the host scratch heap, so the recorder must be submitted before the scratch
// heaps are next reset.
func BuildBottomLevel(ctx BuildContext, mesh MeshRecord) (*BottomLevel, error) {
	return buildBottomLevel(ctx, mesh, nil)
}

// Rebuild records a new build of the structure from mesh. The structure keeps its address unless
// the new mesh needs more storage than the current placement holds.
func (b *BottomLevel) Rebuild(ctx BuildContext, mesh MeshRecord) error {
	rebuilt, err := buildBottomLevel(ctx, mesh, b.result)
	if err != nil {
		return err
	}

	*b = *rebuilt
	return nil
}

func buildBottomLevel(ctx BuildContext, mesh MeshRecord, previous *heap.PlacedResource) (*BottomLevel, error) {
	err := mesh.validate()
	if err != nil {
		return nil, err
	}

	vertices, err := uploadBuffer(ctx, mesh.vertexBytes(), "vertex")
	if err != nil {
		return nil, err
	}

	geometry := gpu.TriangleGeometry{
		VertexBuffer: vertices.Address(),
		VertexCount:  len(mesh.Positions),
		VertexStride: mesh.vertexStride(),
		Flags:        gpu.GeometryFlagOpaque,
	}

	if len(mesh.Indices) > 0 {
		indices, err := uploadBuffer(ctx, mesh.indexBytes(), "index")
		if err != nil {
			return nil, err
		}

		geometry.IndexBuffer = indices.Address()
		geometry.IndexCount = len(mesh.Indices)
	}

	result, err := buildStructure(ctx, gpu.BuildInputs{
		Type:       gpu.AccelerationStructureBottomLevel,
		Flags:      gpu.BuildFlagPreferFastTrace,
		Geometries: []gpu.TriangleGeometry{geometry},
	}, heap.UsageBottomLevelStorage, previous)
	if err != nil {
		return nil, err
	}

	return &BottomLevel{
		result:      result,
		vertexCount: len(mesh.Positions),
		indexCount:  len(mesh.Indices),
	}, nil
}
