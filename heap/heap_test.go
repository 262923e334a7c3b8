package heap_test

import (
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/raytrace/gpu"
	"github.com/vkngwrapper/raytrace/gpu/soft"
	"github.com/vkngwrapper/raytrace/heap"
	"github.com/vkngwrapper/raytrace/memutils"
	"golang.org/x/exp/slog"
)

const placement = 64 * 1024

func newManager(t *testing.T, options heap.CreateOptions) (*soft.Device, *heap.Manager) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	device, err := soft.New(logger, soft.Options{})
	require.NoError(t, err)

	manager, res, err := heap.NewManager(logger, device, options)
	require.NoError(t, err)
	require.Equal(t, core1_0.VKSuccess, res)

	return device, manager
}

func TestNewManagerDefaults(t *testing.T) {
	_, manager := newManager(t, heap.CreateOptions{
		Sizes: map[heap.UsageClass]int{heap.UsageHostScratch: 1000},
	})

	for _, class := range heap.UsageClasses() {
		h := manager.Heap(class)
		require.Equal(t, class, h.Class())
		require.Equal(t, 0, h.Cursor())

		if class == heap.UsageHostScratch {
			require.Equal(t, placement, h.Capacity())
		} else {
			require.Equal(t, heap.DefaultHeapSize, h.Capacity())
		}
	}
}

func TestNewManagerRejectedSize(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	device, err := soft.New(logger, soft.Options{MaxHeapBytes: 1024 * 1024})
	require.NoError(t, err)

	_, res, err := heap.NewManager(logger, device, heap.CreateOptions{})
	require.Error(t, err)
	require.Equal(t, core1_0.VKErrorOutOfDeviceMemory, res)
}

func TestUsageClassProperties(t *testing.T) {
	require.Equal(t, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent, heap.UsageHostScratch.MemoryProperties())
	require.Equal(t, core1_0.MemoryPropertyDeviceLocal, heap.UsageBottomLevelStorage.MemoryProperties())
	require.True(t, heap.UsageDeviceScratch.IsScratch())
	require.False(t, heap.UsageTopLevelStorage.IsScratch())
	require.Equal(t, "TopLevelStorage", heap.UsageTopLevelStorage.String())
	require.Len(t, heap.UsageClasses(), 6)
}

func TestAllocateAdvancesCursor(t *testing.T) {
	capacity := 13 * placement
	_, manager := newManager(t, heap.CreateOptions{
		Sizes: map[heap.UsageClass]int{heap.UsageDeviceScratch: capacity},
	})
	h := manager.Heap(heap.UsageDeviceScratch)

	sizes := []int{1, placement, placement + 1, 300, 3*placement - 7, 12, placement * 2, 4096, 99999, 5}

	var sum int
	var exhausted bool
	for _, size := range sizes {
		before := h.Cursor()

		resource, res, err := h.AllocateBuffer(size, core1_0.BufferUsageStorageBuffer, gpu.ResourceStateUnorderedAccess)
		if errors.Is(err, memutils.HeapExhaustedError) {
			require.Equal(t, core1_0.VKErrorOutOfDeviceMemory, res)
			require.Equal(t, before, h.Cursor())
			exhausted = true
			break
		}
		require.NoError(t, err)

		require.Equal(t, before, resource.Offset())
		require.Equal(t, size, resource.Size())
		require.Equal(t, memutils.AlignUp(size, placement), resource.Footprint())
		require.True(t, memutils.IsAligned(resource.Offset(), placement))
		require.True(t, resource.Valid())

		sum += resource.Footprint()
		require.Equal(t, sum, h.Cursor())
		require.LessOrEqual(t, sum, capacity)
	}

	require.True(t, exhausted)

	var stats memutils.Statistics
	h.Statistics(&stats)
	require.Equal(t, sum, stats.AllocationBytes)
	require.Equal(t, capacity, stats.HeapBytes)
}

func TestAllocateExhausted(t *testing.T) {
	_, manager := newManager(t, heap.CreateOptions{
		Sizes: map[heap.UsageClass]int{heap.UsageTopLevelStorage: 2 * placement},
	})

	_, _, err := manager.AllocateBuffer(heap.UsageTopLevelStorage, placement+1, core1_0.BufferUsageStorageBuffer, gpu.ResourceStateAccelerationStructure)
	require.NoError(t, err)

	_, res, err := manager.AllocateBuffer(heap.UsageTopLevelStorage, 1, core1_0.BufferUsageStorageBuffer, gpu.ResourceStateAccelerationStructure)
	require.Error(t, err)
	require.True(t, errors.Is(err, memutils.HeapExhaustedError))
	require.Equal(t, core1_0.VKErrorOutOfDeviceMemory, res)
	require.Equal(t, 2*placement, manager.Heap(heap.UsageTopLevelStorage).Cursor())
}

func TestAllocateRejectsEmptyResource(t *testing.T) {
	_, manager := newManager(t, heap.CreateOptions{})

	_, _, err := manager.Allocate(heap.UsageHostScratch, gpu.ResourceDesc{}, gpu.ResourceStateGenericRead)
	require.True(t, errors.Is(err, memutils.MisuseError))
}

func TestResetReturnsToZero(t *testing.T) {
	_, manager := newManager(t, heap.CreateOptions{})
	h := manager.Heap(heap.UsageHostScratch)

	first, _, err := h.AllocateBuffer(100, core1_0.BufferUsageStorageBuffer, gpu.ResourceStateGenericRead)
	require.NoError(t, err)
	_, _, err = h.AllocateBuffer(100, core1_0.BufferUsageStorageBuffer, gpu.ResourceStateGenericRead)
	require.NoError(t, err)

	require.NoError(t, manager.Reset(heap.UsageHostScratch))
	require.False(t, first.Valid())
	require.Equal(t, 1, h.Generation())

	_, err = first.Map()
	require.True(t, errors.Is(err, memutils.MisuseError))

	again, _, err := h.AllocateBuffer(100, core1_0.BufferUsageStorageBuffer, gpu.ResourceStateGenericRead)
	require.NoError(t, err)
	require.Equal(t, 0, again.Offset())
	require.True(t, again.Valid())
}

func TestResetScratchOnly(t *testing.T) {
	_, manager := newManager(t, heap.CreateOptions{})

	for _, class := range heap.UsageClasses() {
		_, _, err := manager.AllocateBuffer(class, 10, core1_0.BufferUsageStorageBuffer, gpu.ResourceStateCommon)
		require.NoError(t, err)
	}

	manager.ResetScratch()

	for _, class := range heap.UsageClasses() {
		if class.IsScratch() {
			require.Equal(t, 0, manager.Heap(class).Cursor(), class.String())
		} else {
			require.Equal(t, placement, manager.Heap(class).Cursor(), class.String())
		}
	}

	err := manager.Reset(heap.UsageBottomLevelStorage)
	require.True(t, errors.Is(err, memutils.MisuseError))
	require.Equal(t, placement, manager.Heap(heap.UsageBottomLevelStorage).Cursor())
}

func TestMapAndWrite(t *testing.T) {
	device, manager := newManager(t, heap.CreateOptions{})

	upload, _, err := manager.AllocateBuffer(heap.UsageHostPersistent, 8, core1_0.BufferUsageStorageBuffer, gpu.ResourceStateGenericRead)
	require.NoError(t, err)
	require.NoError(t, upload.Write(2, []byte{1, 2, 3}))
	require.Error(t, upload.Write(6, []byte{1, 2, 3}))

	read, err := device.ReadMemory(upload.Address(), 8)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 1, 2, 3, 0, 0, 0}, read)

	local, _, err := manager.AllocateBuffer(heap.UsageDevicePersistent, 8, core1_0.BufferUsageStorageBuffer, gpu.ResourceStateCommon)
	require.NoError(t, err)
	_, err = local.Map()
	require.True(t, errors.Is(err, memutils.MisuseError))
}

func TestConcurrentAllocate(t *testing.T) {
	_, manager := newManager(t, heap.CreateOptions{})

	var wg sync.WaitGroup
	offsets := make([]int, 32)
	for i := range offsets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resource, _, err := manager.AllocateBuffer(heap.UsageDeviceScratch, 10, core1_0.BufferUsageStorageBuffer, gpu.ResourceStateUnorderedAccess)
			require.NoError(t, err)
			offsets[i] = resource.Offset()
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for _, offset := range offsets {
		require.False(t, seen[offset])
		seen[offset] = true
	}
	require.Equal(t, 32*placement, manager.Heap(heap.UsageDeviceScratch).Cursor())
}

func TestBuildStatsString(t *testing.T) {
	_, manager := newManager(t, heap.CreateOptions{Flags: heap.CreateExternallySynchronized})

	_, _, err := manager.AllocateBuffer(heap.UsageHostScratch, 10, core1_0.BufferUsageStorageBuffer, gpu.ResourceStateGenericRead)
	require.NoError(t, err)
	_, _, err = manager.AllocateBuffer(heap.UsageHostScratch, placement+10, core1_0.BufferUsageStorageBuffer, gpu.ResourceStateGenericRead)
	require.NoError(t, err)
	manager.ResetScratch()
	_, _, err = manager.AllocateBuffer(heap.UsageHostScratch, 10, core1_0.BufferUsageStorageBuffer, gpu.ResourceStateGenericRead)
	require.NoError(t, err)

	var doc struct {
		Total struct {
			HeapCount       int
			HeapBytes       int
			AllocationCount int
		}
		Heaps map[string]struct {
			HostWritable bool
			Stats        struct {
				AllocationBytes int
				PeakBytes       int
				ResetCount      int
			}
			DetailedMap struct {
				Cursor     int
				Placements []struct {
					Offset int
					Size   int
					Type   string
				}
			}
		}
	}

	require.NoError(t, json.Unmarshal([]byte(manager.BuildStatsString(true)), &doc))
	require.Equal(t, 6, doc.Total.HeapCount)
	require.Equal(t, 6*heap.DefaultHeapSize, doc.Total.HeapBytes)
	require.Equal(t, 1, doc.Total.AllocationCount)

	scratch := doc.Heaps["HostScratch"]
	require.True(t, scratch.HostWritable)
	require.Equal(t, placement, scratch.Stats.AllocationBytes)
	require.Equal(t, 3*placement, scratch.Stats.PeakBytes)
	require.Equal(t, 1, scratch.Stats.ResetCount)
	require.Equal(t, placement, scratch.DetailedMap.Cursor)
	require.Len(t, scratch.DetailedMap.Placements, 2)
	require.Equal(t, "Placed", scratch.DetailedMap.Placements[0].Type)
	require.Equal(t, "Free", scratch.DetailedMap.Placements[1].Type)
	require.Equal(t, heap.DefaultHeapSize-placement, scratch.DetailedMap.Placements[1].Size)

	require.NoError(t, json.Unmarshal([]byte(manager.BuildStatsString(false)), &doc))
}
