package metadata

// AllocationRequest is a type returned from BlockMetadata.CreateAllocationRequest which indicates where the
// metadata intends to place new memory. The placement can be applied to the actual memory system consuming
// memutils, and then committed to the metadata with BlockMetadata.Alloc
type AllocationRequest struct {
	// BlockAllocationHandle is a numeric handle used to identify individual allocations within the metadata
	BlockAllocationHandle BlockAllocationHandle
	// Offset is the offset in bytes that the allocation will be placed at
	Offset int
	// Size the total size of the allocation, maybe larger than what was originally requested
	Size int
	// AllocType is the value passed into CreateAllocationRequest by the consumer to generate
	// this request
	AllocType uint32
}
