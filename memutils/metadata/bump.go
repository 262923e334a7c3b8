package metadata

import (
	"fmt"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/raytrace/memutils"
)

// BumpBlockMetadata is a BlockMetadata implementation that represents a simple
// arena. Every allocation is placed at the cursor, which only ever moves forward
// until Clear returns it to zero. There is no way to free a single allocation.
//
// Allocation handles are the allocation offset plus one, so NoAllocation and the zero
// value never collide with a live placement.
type BumpBlockMetadata struct {
	BlockMetadataBase

	cursor     int
	peak       int
	resets     int
	placements []placement
}

var _ BlockMetadata = &BumpBlockMetadata{}

// NewBumpBlockMetadata creates a new, uninitialized BumpBlockMetadata. Init must be called
// before it is used.
func NewBumpBlockMetadata() *BumpBlockMetadata {
	return &BumpBlockMetadata{
		placements: []placement{},
	}
}

// Init prepares this structure for allocations and sizes the block in bytes based on the parameter size.
func (m *BumpBlockMetadata) Init(size int) {
	m.BlockMetadataBase.Init(size)
	m.cursor = 0
	m.peak = 0
	m.placements = m.placements[:0]
}

// Cursor returns the offset at which the next allocation will be considered
func (m *BumpBlockMetadata) Cursor() int {
	return m.cursor
}

// PeakUsage returns the furthest the cursor has advanced since Init
func (m *BumpBlockMetadata) PeakUsage() int {
	return m.peak
}

// ResetCount returns the number of times Clear has been called since Init
func (m *BumpBlockMetadata) ResetCount() int {
	return m.resets
}

// SumFreeSize returns the number of bytes between the cursor and the end of the block
func (m *BumpBlockMetadata) SumFreeSize() int {
	return m.Size() - m.cursor
}

// AllocationCount returns the number of allocations committed since the last Clear
func (m *BumpBlockMetadata) AllocationCount() int {
	return len(m.placements)
}

// IsEmpty will return true if this block has no live placements
func (m *BumpBlockMetadata) IsEmpty() bool {
	return len(m.placements) == 0
}

// Validate performs internal consistency checks on the metadata
func (m *BumpBlockMetadata) Validate() error {
	if m.cursor > m.Size() {
		return errors.Errorf("the cursor %d is past the end of the block, which is size %d", m.cursor, m.Size())
	}

	if m.peak < m.cursor {
		return errors.Errorf("the peak usage %d is lower than the cursor %d", m.peak, m.cursor)
	}

	var end int
	for i, placed := range m.placements {
		if placed.Offset < end {
			return errors.Errorf("placement %d at offset %d overlaps the previous placement, which ends at %d", i, placed.Offset, end)
		}
		if placed.Size <= 0 {
			return errors.Errorf("placement %d at offset %d has invalid size %d", i, placed.Offset, placed.Size)
		}

		end = placed.Offset + placed.Size
	}

	if end > m.cursor {
		return errors.Errorf("the last placement ends at %d, past the cursor %d", end, m.cursor)
	}

	return nil
}

func (m *BumpBlockMetadata) findPlacement(allocHandle BlockAllocationHandle) (int, error) {
	if allocHandle == NoAllocation || allocHandle == 0 {
		return -1, errors.New("attempted to look up an invalid allocation handle")
	}

	offset := int(allocHandle) - 1
	low, high := 0, len(m.placements)-1
	for low <= high {
		mid := (low + high) / 2
		midOffset := m.placements[mid].Offset

		switch {
		case midOffset == offset:
			return mid, nil
		case midOffset < offset:
			low = mid + 1
		default:
			high = mid - 1
		}
	}

	return -1, errors.Errorf("no live allocation at offset %d", offset)
}

// AllocationOffset returns the offset in bytes of the live allocation identified by allocHandle
func (m *BumpBlockMetadata) AllocationOffset(allocHandle BlockAllocationHandle) (int, error) {
	index, err := m.findPlacement(allocHandle)
	if err != nil {
		return -1, err
	}

	return m.placements[index].Offset, nil
}

// AllocationUserData returns the userdata value provided by the consumer for that allocation.
func (m *BumpBlockMetadata) AllocationUserData(allocHandle BlockAllocationHandle) (any, error) {
	index, err := m.findPlacement(allocHandle)
	if err != nil {
		return nil, err
	}

	return m.placements[index].UserData, nil
}

// VisitAllRegions will call the provided callback once for each allocation and free region in
// the block, in offset order. Alignment padding between placements is reported as a free region.
func (m *BumpBlockMetadata) VisitAllRegions(handleBlock func(handle BlockAllocationHandle, offset int, size int, userData any, free bool) error) error {
	var end int
	for _, placed := range m.placements {
		if placed.Offset > end {
			err := handleBlock(NoAllocation, end, placed.Offset-end, nil, true)
			if err != nil {
				return err
			}
		}

		err := handleBlock(BlockAllocationHandle(placed.Offset+1), placed.Offset, placed.Size, placed.UserData, false)
		if err != nil {
			return err
		}
		end = placed.Offset + placed.Size
	}

	if end < m.Size() {
		return handleBlock(NoAllocation, end, m.Size()-end, nil, true)
	}

	return nil
}

// AddDetailedStatistics sums this block's allocation statistics into the statistics currently present
// in the provided memutils.DetailedStatistics object.
func (m *BumpBlockMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.HeapCount++
	stats.HeapBytes += m.Size()
	stats.PeakBytes += m.peak
	stats.ResetCount += m.resets

	for _, placed := range m.placements {
		stats.AddAllocation(placed.Size)
	}
}

// AddStatistics sums this block's allocation statistics into the statistics currently present in the
// provided memutils.Statistics object.
func (m *BumpBlockMetadata) AddStatistics(stats *memutils.Statistics) {
	stats.HeapCount++
	stats.HeapBytes += m.Size()
	stats.AllocationCount += len(m.placements)
	stats.AllocationBytes += m.cursor
}

// Clear moves the cursor back to zero and forgets every allocation
func (m *BumpBlockMetadata) Clear() {
	m.cursor = 0
	m.resets++
	m.placements = m.placements[:0]
}

// BlockJsonData populates a json object with information about this block
func (m *BumpBlockMetadata) BlockJsonData(json *jwriter.ObjectState) {
	m.WriteBlockJson(json, m.SumFreeSize(), m.AllocationCount(), m.peak)
	json.Name("Cursor").Int(m.cursor)
	json.Name("Resets").Int(m.resets)
}

// CreateAllocationRequest retrieves an AllocationRequest object indicating where the block would
// place the requested memory: at the cursor, aligned up to allocAlignment. The size recorded
// in the request is allocSize rounded up to allocAlignment so the cursor always stays aligned.
//
// The boolean return value is false when the rounded size does not fit between the cursor and
// the end of the block.
func (m *BumpBlockMetadata) CreateAllocationRequest(allocSize int, allocAlignment uint, allocType uint32) (bool, AllocationRequest, error) {
	if allocSize < 1 {
		return false, AllocationRequest{}, errors.Errorf("allocation size must be positive, but was %d", allocSize)
	}

	err := memutils.CheckPow2(allocAlignment, "allocAlignment")
	if err != nil {
		return false, AllocationRequest{}, err
	}

	offset := memutils.AlignUp(m.cursor, allocAlignment)
	size := memutils.AlignUp(allocSize, allocAlignment)

	if offset+size > m.Size() {
		return false, AllocationRequest{}, nil
	}

	return true, AllocationRequest{
		BlockAllocationHandle: BlockAllocationHandle(offset + 1),
		Offset:                offset,
		Size:                  size,
		AllocType:             allocType,
	}, nil
}

// Alloc commits an AllocationRequest object. The request must have been created against the
// current cursor.
func (m *BumpBlockMetadata) Alloc(request AllocationRequest, allocType uint32, userData any) error {
	if request.Offset < m.cursor {
		return errors.Errorf("allocation request at offset %d is stale: the cursor has already advanced to %d", request.Offset, m.cursor)
	}

	if request.Offset+request.Size > m.Size() {
		return errors.Errorf("allocation request at offset %d with size %d does not fit in a block of size %d", request.Offset, request.Size, m.Size())
	}

	if request.BlockAllocationHandle != BlockAllocationHandle(request.Offset+1) {
		panic(fmt.Sprintf("allocation request handle %d does not match offset %d", request.BlockAllocationHandle, request.Offset))
	}

	m.placements = append(m.placements, placement{
		Offset:   request.Offset,
		Size:     request.Size,
		UserData: userData,
		Type:     allocType,
	})

	m.cursor = request.Offset + request.Size
	if m.cursor > m.peak {
		m.peak = m.cursor
	}

	return nil
}
