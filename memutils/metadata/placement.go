package metadata

import "math"

// BlockAllocationHandle identifies a single placement within a block
type BlockAllocationHandle uint64

// NoAllocation is the handle reported for free regions
const NoAllocation BlockAllocationHandle = math.MaxUint64

// placement is one bump-allocated region. Placements are kept sorted by offset.
type placement struct {
	Offset   int
	Size     int
	UserData any
	Type     uint32
}
