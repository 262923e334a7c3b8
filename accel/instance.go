package accel

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/raytrace/gpu"
	"github.com/vkngwrapper/raytrace/memutils"
)

// InstanceID is the user value reported to shaders for hits on an instance
type InstanceID uint32

// HitGroupIndex selects an instance's hit group record in the shader record table
type HitGroupIndex uint32

// InstanceRecord places one mesh in the scene
type InstanceRecord struct {
	Mesh      MeshID
	Transform Transform
	ID        InstanceID
	HitGroup  HitGroupIndex
}

// Descriptor produces the hardware instance descriptor for this record, referencing the provided
// bottom-level structure. Every instance is visible to every ray and carries no flags.
func (r *InstanceRecord) Descriptor(bottomLevel gpu.Address) (gpu.InstanceDesc, error) {
	if r.ID > gpu.MaxInstanceID {
		return gpu.InstanceDesc{}, errors.Mark(errors.Newf("instance id %d does not fit in 24 bits", r.ID), memutils.MisuseError)
	}
	if r.HitGroup > gpu.MaxInstanceID {
		return gpu.InstanceDesc{}, errors.Mark(errors.Newf("hit group index %d does not fit in 24 bits", r.HitGroup), memutils.MisuseError)
	}

	return gpu.InstanceDesc{
		Transform:             r.Transform.rowMajor3x4(),
		InstanceID:            uint32(r.ID),
		Mask:                  gpu.InstanceMaskAll,
		HitGroupContribution:  uint32(r.HitGroup),
		Flags:                 gpu.InstanceFlagNone,
		AccelerationStructure: bottomLevel,
	}, nil
}
