package soft

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/raytrace/gpu"
)

type descriptorHeap struct {
	start gpu.Address
	views []gpu.Address
}

var _ gpu.DescriptorHeap = &descriptorHeap{}

func (h *descriptorHeap) Count() int {
	return len(h.views)
}

func (h *descriptorHeap) Increment() int {
	return descriptorIncrement
}

func (h *descriptorHeap) GPUStart() gpu.Address {
	return h.start
}

func (h *descriptorHeap) GPUHandle(index int) gpu.Address {
	return h.start.Offset(index * descriptorIncrement)
}

func (h *descriptorHeap) WriteAccelerationStructureView(index int, structure gpu.Address) error {
	if index < 0 || index >= len(h.views) {
		return errors.Newf("descriptor index %d is out of range for a heap of %d descriptors", index, len(h.views))
	}

	if structure == 0 {
		return errors.New("cannot create a view of a null acceleration structure")
	}

	h.views[index] = structure
	return nil
}

// View returns the acceleration structure address last written at index
func View(descriptors gpu.DescriptorHeap, index int) gpu.Address {
	h, ok := descriptors.(*descriptorHeap)
	if !ok || index < 0 || index >= len(h.views) {
		return 0
	}

	return h.views[index]
}
