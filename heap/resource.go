package heap

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/raytrace/gpu"
	"github.com/vkngwrapper/raytrace/memutils"
)

// PlacedResource is a resource carved out of a Heap at a fixed offset. It is owned by whichever
// component allocated it and stays valid until its heap is reset.
type PlacedResource struct {
	heap       *Heap
	resource   gpu.Resource
	generation int

	offset    int
	footprint int
}

// Resource returns the underlying device resource, for recording barriers
func (r *PlacedResource) Resource() gpu.Resource { return r.resource }

// Address returns the GPU virtual address of the start of the resource
func (r *PlacedResource) Address() gpu.Address { return r.resource.Address() }

// Size returns the size in bytes the resource was requested with
func (r *PlacedResource) Size() int { return r.resource.Size() }

// Offset returns the byte offset of the resource within its heap
func (r *PlacedResource) Offset() int { return r.offset }

// Footprint returns the number of heap bytes the placement consumed
func (r *PlacedResource) Footprint() int { return r.footprint }

// Class returns the usage class of the heap the resource was placed in
func (r *PlacedResource) Class() UsageClass { return r.heap.class }

// Valid returns false once the owning heap has been reset
func (r *PlacedResource) Valid() bool {
	return r.heap.Generation() == r.generation
}

// Map returns the resource's bytes for host writes. Only resources in host-writable classes
// can be mapped.
func (r *PlacedResource) Map() ([]byte, error) {
	if !r.Valid() {
		return nil, errors.Mark(errors.Newf("resource at offset %d of the %s heap was invalidated by a reset", r.offset, r.heap.class), memutils.MisuseError)
	}

	if !r.heap.class.HostWritable() {
		return nil, errors.Mark(errors.Newf("resources in the %s heap cannot be mapped", r.heap.class), memutils.MisuseError)
	}

	return r.resource.Map()
}

// Write copies data into the resource starting at offset
func (r *PlacedResource) Write(offset int, data []byte) error {
	mapped, err := r.Map()
	if err != nil {
		return err
	}

	if offset < 0 || offset+len(data) > len(mapped) {
		return errors.Mark(errors.Newf("write of %d bytes at offset %d overruns a resource of %d bytes", len(data), offset, len(mapped)), memutils.MisuseError)
	}

	copy(mapped[offset:], data)
	return nil
}
