package heap

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/raytrace/gpu"
	"github.com/vkngwrapper/raytrace/internal/utils"
	"github.com/vkngwrapper/raytrace/memutils"
	"github.com/vkngwrapper/raytrace/memutils/metadata"
	"golang.org/x/exp/slog"
)

// Heap is a fixed-capacity placement heap of one usage class. Resources are placed at a cursor that
// only moves forward; the whole heap is reclaimed at once by Reset. Resources are never freed individually.
type Heap struct {
	logger *slog.Logger
	device gpu.Device
	mutex  *utils.OptionalRWMutex

	class      UsageClass
	heap       gpu.Heap
	metadata   *metadata.BumpBlockMetadata
	generation int
}

func newHeap(logger *slog.Logger, device gpu.Device, mutex *utils.OptionalRWMutex, class UsageClass, size int) (*Heap, common.VkResult, error) {
	size = memutils.AlignUp(size, device.PlacementAlignment())

	deviceHeap, res, err := device.CreateHeap(size, class.MemoryProperties())
	if err != nil {
		return nil, res, errors.Wrapf(err, "failed to create the %s heap with size %d", class, size)
	}

	md := metadata.NewBumpBlockMetadata()
	md.Init(size)

	return &Heap{
		logger:   logger,
		device:   device,
		mutex:    mutex,
		class:    class,
		heap:     deviceHeap,
		metadata: md,
	}, core1_0.VKSuccess, nil
}

// Class returns the usage class this heap serves
func (h *Heap) Class() UsageClass { return h.class }

// Capacity returns the size of the heap in bytes
func (h *Heap) Capacity() int { return h.metadata.Size() }

// Cursor returns the offset the next placement will be considered at
func (h *Heap) Cursor() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return h.metadata.Cursor()
}

// Generation is incremented every time the heap is reset
func (h *Heap) Generation() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return h.generation
}

// AllocateBuffer places a one-dimensional buffer of the provided size
func (h *Heap) AllocateBuffer(size int, usage core1_0.BufferUsageFlags, initialState gpu.ResourceState) (*PlacedResource, common.VkResult, error) {
	return h.Allocate(gpu.ResourceDesc{Size: size, Usage: usage}, initialState)
}

// Allocate places a resource at the cursor. The resource's footprint is rounded up to the larger
// of its own alignment and the device placement alignment before the cursor advances. If the
// rounded footprint does not fit in the remaining capacity, the call fails with an error marked
// memutils.HeapExhaustedError and the cursor does not move.
func (h *Heap) Allocate(desc gpu.ResourceDesc, initialState gpu.ResourceState) (*PlacedResource, common.VkResult, error) {
	h.logger.Debug("Heap::Allocate", slog.String("Class", h.class.String()), slog.Int("Size", desc.Size))

	if desc.Size <= 0 {
		return nil, core1_0.VKErrorUnknown, errors.Mark(errors.Newf("resource size must be positive, but was %d", desc.Size), memutils.MisuseError)
	}

	footprint := h.device.ResourceFootprint(desc)
	alignment := max(uint(footprint.Alignment), h.device.PlacementAlignment())
	memutils.DebugCheckPow2(alignment, "alignment")

	h.mutex.Lock()
	defer h.mutex.Unlock()

	success, request, err := h.metadata.CreateAllocationRequest(footprint.Size, alignment, uint32(h.class))
	if err != nil {
		return nil, core1_0.VKErrorUnknown, err
	}

	if !success {
		h.logger.Error("heap capacity exhausted",
			slog.String("Class", h.class.String()),
			slog.Int("Requested", footprint.Size),
			slog.Int("Cursor", h.metadata.Cursor()),
			slog.Int("Capacity", h.metadata.Size()))

		return nil, core1_0.VKErrorOutOfDeviceMemory, errors.Mark(
			errors.Newf("%s heap cannot place %d bytes: %d of %d bytes remain", h.class, footprint.Size, h.metadata.SumFreeSize(), h.metadata.Size()),
			memutils.HeapExhaustedError)
	}

	resource, res, err := h.device.CreatePlacedResource(h.heap, request.Offset, desc, initialState)
	if err != nil {
		return nil, res, errors.Wrapf(err, "failed to place a resource in the %s heap at offset %d", h.class, request.Offset)
	}

	placed := &PlacedResource{
		heap:       h,
		resource:   resource,
		generation: h.generation,
		offset:     request.Offset,
		footprint:  request.Size,
	}

	err = h.metadata.Alloc(request, uint32(h.class), placed)
	if err != nil {
		panic(errors.Wrap(err, "heap metadata rejected a request it created"))
	}
	memutils.DebugValidate(h.metadata)

	return placed, core1_0.VKSuccess, nil
}

// Reset returns the cursor to zero. Every resource placed before the reset is invalidated.
func (h *Heap) Reset() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.logger.Debug("Heap::Reset", slog.String("Class", h.class.String()), slog.Int("Cursor", h.metadata.Cursor()))

	h.metadata.Clear()
	h.generation++
}

// Statistics sums this heap's placements into stats
func (h *Heap) Statistics(stats *memutils.Statistics) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	h.metadata.AddStatistics(stats)
}

// DetailedStatistics sums this heap's placements, size extremes and high-water mark into stats
func (h *Heap) DetailedStatistics(stats *memutils.DetailedStatistics) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	h.metadata.AddDetailedStatistics(stats)
}

func (h *Heap) printDetailedMap(json *jwriter.ObjectState) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	json.Name("Generation").Int(h.generation)
	h.metadata.BlockJsonData(json)

	arrayState := json.Name("Placements").Array()
	defer arrayState.End()

	_ = h.metadata.VisitAllRegions(
		func(handle metadata.BlockAllocationHandle, offset int, size int, userData any, free bool) error {
			obj := arrayState.Object()
			defer obj.End()

			obj.Name("Offset").Int(offset)
			obj.Name("Size").Int(size)
			if free {
				obj.Name("Type").String("Free")
				return nil
			}

			obj.Name("Type").String("Placed")
			placed, isPlaced := userData.(*PlacedResource)
			if isPlaced && placed != nil {
				obj.Name("RequestedSize").Int(placed.Size())
				obj.Name("Address").String(placed.Address().String())
			}

			return nil
		})
}
