package accel

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/raytrace/gpu"
	"github.com/vkngwrapper/raytrace/heap"
	"github.com/vkngwrapper/raytrace/memutils"
)

// ErrMeshNotBuilt is returned when an instance references a mesh that has no bottom-level structure
var ErrMeshNotBuilt = errors.Mark(errors.New("mesh has no bottom-level structure"), memutils.MisuseError)

// Resolver maps a mesh to the address of its bottom-level structure
type Resolver func(id MeshID) (gpu.Address, bool)

// TopLevel is a built top-level acceleration structure
type TopLevel struct {
	result    *heap.PlacedResource
	instances *heap.PlacedResource
	count     int
}

// Address returns the GPU virtual address of the structure
func (t *TopLevel) Address() gpu.Address { return t.result.Address() }

// Resource returns the placed resource holding the structure
func (t *TopLevel) Resource() *heap.PlacedResource { return t.result }

// InstanceBuffer returns the host scratch buffer the instance descriptors were written to. It is
// invalidated when the scratch heaps are reset.
func (t *TopLevel) InstanceBuffer() *heap.PlacedResource { return t.instances }

// InstanceCount returns the number of instances the structure was built from
func (t *TopLevel) InstanceCount() int { return t.count }

// BuildTopLevel writes one descriptor per instance, in order, and records the build of a top-level
// structure over them. Every referenced bottom-level structure must have been recorded earlier in
// the same command stream.
func BuildTopLevel(ctx BuildContext, instances []InstanceRecord, resolve Resolver) (*TopLevel, error) {
	return buildTopLevel(ctx, instances, resolve, nil)
}

// Rebuild records a new build of the structure over instances. The structure keeps its address
// unless the new instance list needs more storage than the current placement holds.
func (t *TopLevel) Rebuild(ctx BuildContext, instances []InstanceRecord, resolve Resolver) error {
	rebuilt, err := buildTopLevel(ctx, instances, resolve, t.result)
	if err != nil {
		return err
	}

	*t = *rebuilt
	return nil
}

func buildTopLevel(ctx BuildContext, instances []InstanceRecord, resolve Resolver, previous *heap.PlacedResource) (*TopLevel, error) {
	if len(instances) == 0 {
		return nil, errors.Mark(errors.New("a top-level structure requires at least one instance"), memutils.MisuseError)
	}

	data := make([]byte, len(instances)*gpu.InstanceDescSize)
	for i := range instances {
		address, ok := resolve(instances[i].Mesh)
		if !ok {
			return nil, errors.Wrapf(ErrMeshNotBuilt, "instance %d references mesh %s", i, instances[i].Mesh)
		}

		desc, err := instances[i].Descriptor(address)
		if err != nil {
			return nil, errors.Wrapf(err, "instance %d", i)
		}

		err = desc.Encode(data[i*gpu.InstanceDescSize:])
		if err != nil {
			return nil, errors.Wrapf(err, "instance %d", i)
		}
	}

	instanceBuffer, _, err := ctx.Heaps.AllocateBuffer(heap.UsageHostScratch, len(data), addressableUsage, gpu.ResourceStateGenericRead)
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate the instance buffer")
	}

	err = instanceBuffer.Write(0, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to write the instance buffer")
	}

	result, err := buildStructure(ctx, gpu.BuildInputs{
		Type:          gpu.AccelerationStructureTopLevel,
		Flags:         gpu.BuildFlagPreferFastTrace,
		InstanceCount: len(instances),
		Instances:     instanceBuffer.Address(),
	}, heap.UsageTopLevelStorage, previous)
	if err != nil {
		return nil, err
	}

	return &TopLevel{
		result:    result,
		instances: instanceBuffer,
		count:     len(instances),
	}, nil
}
