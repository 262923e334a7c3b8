package soft

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/raytrace/gpu"
)

type heap struct {
	base       gpu.Address
	properties core1_0.MemoryPropertyFlags
	memory     []byte
}

var _ gpu.Heap = &heap{}

func (h *heap) Size() int {
	return len(h.memory)
}

func (h *heap) Properties() core1_0.MemoryPropertyFlags {
	return h.properties
}

func (h *heap) hostVisible() bool {
	return h.properties&core1_0.MemoryPropertyHostVisible != 0
}

func (h *heap) contains(address gpu.Address, size int) bool {
	return address >= h.base && uint64(address-h.base)+uint64(size) <= uint64(len(h.memory))
}

type resource struct {
	heap   *heap
	offset int
	desc   gpu.ResourceDesc
	state  gpu.ResourceState
}

var _ gpu.Resource = &resource{}

func (r *resource) Address() gpu.Address {
	return r.heap.base.Offset(r.offset)
}

func (r *resource) Size() int {
	return r.desc.Size
}

func (r *resource) Heap() gpu.Heap {
	return r.heap
}

func (r *resource) Offset() int {
	return r.offset
}

func (r *resource) Map() ([]byte, error) {
	if !r.heap.hostVisible() {
		return nil, errors.Newf("resource at %s is in a heap that is not host visible", r.Address())
	}

	return r.heap.memory[r.offset : r.offset+r.desc.Size : r.offset+r.desc.Size], nil
}
