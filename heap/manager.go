package heap

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/raytrace/gpu"
	"github.com/vkngwrapper/raytrace/internal/utils"
	"github.com/vkngwrapper/raytrace/memutils"
	"golang.org/x/exp/slog"
)

// Manager owns one Heap per UsageClass
type Manager struct {
	logger *slog.Logger
	device gpu.Device
	mutex  *utils.OptionalRWMutex

	heaps [usageClassCount]*Heap
}

// NewManager creates every usage class's heap on the provided device. The device rejecting any heap
// size is fatal: the error is returned and no manager is created.
//
// options - Optional parameters: it is valid to leave all the fields blank
func NewManager(logger *slog.Logger, device gpu.Device, options CreateOptions) (*Manager, common.VkResult, error) {
	manager := &Manager{
		logger: logger,
		device: device,
		mutex:  utils.NewOptionalRWMutex(options.Flags&CreateExternallySynchronized != 0),
	}

	for _, class := range UsageClasses() {
		size := options.Sizes[class]
		if size == 0 {
			size = DefaultHeapSize
		}

		if size < 0 {
			return nil, core1_0.VKErrorUnknown, errors.Mark(errors.Newf("heap size for %s must not be negative, but was %d", class, size), memutils.MisuseError)
		}

		heap, res, err := newHeap(logger, device, manager.mutex, class, size)
		if err != nil {
			logger.Error("failed to create heap", slog.String("Class", class.String()), slog.Int("Size", size), slog.Any("error", err))
			return nil, res, err
		}

		manager.heaps[class] = heap
	}

	logger.Debug("heap::NewManager", slog.String("Flags", options.Flags.String()))

	return manager, core1_0.VKSuccess, nil
}

// Heap returns the heap serving a usage class
func (m *Manager) Heap(class UsageClass) *Heap {
	if class < 0 || class >= usageClassCount {
		panic(errors.Newf("invalid usage class %d", int(class)))
	}

	return m.heaps[class]
}

// Allocate places a resource in the heap of the provided class
func (m *Manager) Allocate(class UsageClass, desc gpu.ResourceDesc, initialState gpu.ResourceState) (*PlacedResource, common.VkResult, error) {
	return m.Heap(class).Allocate(desc, initialState)
}

// AllocateBuffer places a one-dimensional buffer in the heap of the provided class
func (m *Manager) AllocateBuffer(class UsageClass, size int, usage core1_0.BufferUsageFlags, initialState gpu.ResourceState) (*PlacedResource, common.VkResult, error) {
	return m.Heap(class).AllocateBuffer(size, usage, initialState)
}

// ResetScratch resets the host and device scratch heaps. It must only be called once the command
// stream that used the scratch resources has completed.
func (m *Manager) ResetScratch() {
	for _, heap := range m.heaps {
		if heap.class.IsScratch() {
			heap.Reset()
		}
	}
}

// Reset resets a single scratch heap. Persistent and acceleration structure storage heaps live for
// the whole session, and attempting to reset them is an error.
func (m *Manager) Reset(class UsageClass) error {
	if !class.IsScratch() {
		return errors.Mark(errors.Newf("the %s heap is persistent and cannot be reset", class), memutils.MisuseError)
	}

	m.Heap(class).Reset()
	return nil
}

// CalculateStatistics sums the placements of every heap into total and returns per-class statistics
func (m *Manager) CalculateStatistics(total *memutils.DetailedStatistics) map[UsageClass]memutils.DetailedStatistics {
	total.Clear()
	perClass := make(map[UsageClass]memutils.DetailedStatistics, usageClassCount)

	for _, heap := range m.heaps {
		var stats memutils.DetailedStatistics
		stats.Clear()
		heap.DetailedStatistics(&stats)

		total.AddDetailedStatistics(&stats)
		perClass[heap.class] = stats
	}

	return perClass
}

func writeStatistics(json *jwriter.ObjectState, stats *memutils.DetailedStatistics) {
	json.Name("HeapCount").Int(stats.HeapCount)
	json.Name("HeapBytes").Int(stats.HeapBytes)
	json.Name("AllocationCount").Int(stats.AllocationCount)
	json.Name("AllocationBytes").Int(stats.AllocationBytes)
	json.Name("UnusedBytes").Int(stats.UnusedBytes())
	json.Name("PeakBytes").Int(stats.PeakBytes)
	json.Name("ResetCount").Int(stats.ResetCount)

	if stats.AllocationCount > 0 {
		json.Name("AllocationSizeMin").Int(stats.AllocationSizeMin)
		json.Name("AllocationSizeMax").Int(stats.AllocationSizeMax)
	}
}

// BuildStatsString produces a json document describing the heaps' usage. When detailed is true,
// every placement and unused region in every heap is listed as well.
func (m *Manager) BuildStatsString(detailed bool) string {
	writer := jwriter.NewWriter()

	var total memutils.DetailedStatistics
	perClass := m.CalculateStatistics(&total)

	root := writer.Object()

	totalObj := root.Name("Total").Object()
	writeStatistics(&totalObj, &total)
	totalObj.End()

	heapsObj := root.Name("Heaps").Object()
	for _, heap := range m.heaps {
		heapObj := heapsObj.Name(heap.class.String()).Object()

		stats := perClass[heap.class]
		heapObj.Name("HostWritable").Bool(heap.class.HostWritable())
		heapObj.Name("Scratch").Bool(heap.class.IsScratch())
		statsObj := heapObj.Name("Stats").Object()
		writeStatistics(&statsObj, &stats)
		statsObj.End()

		if detailed {
			detailObj := heapObj.Name("DetailedMap").Object()
			heap.printDetailedMap(&detailObj)
			detailObj.End()
		}

		heapObj.End()
	}
	heapsObj.End()

	root.End()

	return string(writer.Bytes())
}
