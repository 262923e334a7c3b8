// Package soft is a software implementation of the gpu interfaces. It simulates heaps, placed
// resources and GPU virtual addresses with host memory, executes recorded command streams at
// submission, and validates acceleration structure builds, barriers, pipeline creation and
// dispatches the way a strict debug layer would.
package soft

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_buffer_device_address"
	"github.com/vkngwrapper/raytrace/gpu"
	"github.com/vkngwrapper/raytrace/internal/utils"
	"github.com/vkngwrapper/raytrace/memutils"
	"golang.org/x/exp/slog"
)

const (
	defaultPlacementAlignment = 64 * 1024
	defaultMaxHeapBytes       = 1024 * 1024 * 1024
	descriptorIncrement       = 32
	addressSpaceStart         = gpu.Address(0x1_0000_0000)
)

// Options configure a software device. The zero value is a device that supports ray tracing.
type Options struct {
	// Capabilities replaces DefaultCapabilities when OverrideCapabilities is set
	Capabilities         gpu.Capabilities
	OverrideCapabilities bool

	// PlacementAlignment defaults to 64KiB
	PlacementAlignment uint
	// MaxHeapBytes is the largest heap CreateHeap will accept. It defaults to 1GiB.
	MaxHeapBytes int
}

// DefaultCapabilities is the capability report of a device created with zero-value Options
func DefaultCapabilities() gpu.Capabilities {
	return gpu.Capabilities{
		RaytracingTier: gpu.RaytracingTier1_1,
		APIVersion:     common.Vulkan1_2,
		Extensions:     []string{khr_buffer_device_address.ExtensionName},
	}
}

// Device is a software gpu.Device
type Device struct {
	logger *slog.Logger
	mutex  utils.OptionalRWMutex

	capabilities       gpu.Capabilities
	placementAlignment uint
	maxHeapBytes       int

	nextAddress gpu.Address
	heaps       []*heap
	resources   *swiss.Map[gpu.Address, *resource]
	structures  *swiss.Map[gpu.Address, *AccelerationStructureInfo]

	queue *queue

	dispatchCount int
}

var _ gpu.Device = &Device{}

// New creates a software device
func New(logger *slog.Logger, options Options) (*Device, error) {
	device := &Device{
		logger:             logger,
		mutex:              utils.OptionalRWMutex{UseMutex: true},
		capabilities:       DefaultCapabilities(),
		placementAlignment: options.PlacementAlignment,
		maxHeapBytes:       options.MaxHeapBytes,
		nextAddress:        addressSpaceStart,
		resources:          swiss.NewMap[gpu.Address, *resource](64),
		structures:         swiss.NewMap[gpu.Address, *AccelerationStructureInfo](16),
	}

	if options.OverrideCapabilities {
		device.capabilities = options.Capabilities
	}

	if device.placementAlignment == 0 {
		device.placementAlignment = defaultPlacementAlignment
	}

	err := memutils.CheckPow2(device.placementAlignment, "PlacementAlignment")
	if err != nil {
		return nil, err
	}

	if device.maxHeapBytes == 0 {
		device.maxHeapBytes = defaultMaxHeapBytes
	}

	device.queue = &queue{device: device}

	return device, nil
}

func (d *Device) Capabilities() gpu.Capabilities {
	return d.capabilities
}

func (d *Device) PlacementAlignment() uint {
	return d.placementAlignment
}

// ResourceFootprint reports buffer footprints the way discrete hardware does: every buffer is
// aligned to, and padded out to, the placement alignment.
func (d *Device) ResourceFootprint(desc gpu.ResourceDesc) core1_0.MemoryRequirements {
	return core1_0.MemoryRequirements{
		Size:           memutils.AlignUp(desc.Size, d.placementAlignment),
		Alignment:      int(d.placementAlignment),
		MemoryTypeBits: 0xffffffff,
	}
}

// reserve carves a range out of the simulated virtual address space. Consecutive ranges are
// separated by an unmapped guard region so out-of-bounds reads never land in a neighbor.
func (d *Device) reserve(size int) gpu.Address {
	base := d.nextAddress
	d.nextAddress = d.nextAddress.Offset(memutils.AlignUp(size, d.placementAlignment) + int(d.placementAlignment))
	return base
}

func (d *Device) CreateHeap(size int, properties core1_0.MemoryPropertyFlags) (gpu.Heap, common.VkResult, error) {
	if size <= 0 || !memutils.IsAligned(size, d.placementAlignment) {
		return nil, core1_0.VKErrorUnknown, errors.Newf("heap size %d is not a positive multiple of the placement alignment %d", size, d.placementAlignment)
	}

	if size > d.maxHeapBytes {
		return nil, core1_0.VKErrorOutOfDeviceMemory, core1_0.VKErrorOutOfDeviceMemory.ToError()
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	h := &heap{
		base:       d.reserve(size),
		properties: properties,
		memory:     make([]byte, size),
	}
	d.heaps = append(d.heaps, h)

	d.logger.Debug("soft::CreateHeap", slog.Int("Size", size), slog.String("Base", h.base.String()))

	return h, core1_0.VKSuccess, nil
}

func (d *Device) CreatePlacedResource(targetHeap gpu.Heap, offset int, desc gpu.ResourceDesc, initialState gpu.ResourceState) (gpu.Resource, common.VkResult, error) {
	h, ok := targetHeap.(*heap)
	if !ok {
		return nil, core1_0.VKErrorUnknown, errors.New("heap was not created by this device")
	}

	if desc.Size <= 0 {
		return nil, core1_0.VKErrorUnknown, errors.Newf("resource size must be positive, but was %d", desc.Size)
	}

	if !memutils.IsAligned(offset, d.placementAlignment) {
		return nil, core1_0.VKErrorUnknown, errors.Newf("offset %d is not aligned to the placement alignment %d", offset, d.placementAlignment)
	}

	footprint := d.ResourceFootprint(desc)
	if offset < 0 || offset+footprint.Size > h.Size() {
		return nil, core1_0.VKErrorOutOfDeviceMemory, errors.Newf("resource with footprint %d at offset %d does not fit in a heap of size %d", footprint.Size, offset, h.Size())
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	r := &resource{
		heap:   h,
		offset: offset,
		desc:   desc,
		state:  initialState,
	}

	// Anything previously placed over this range is gone
	start := r.Address()
	end := start.Offset(footprint.Size)
	var stale []gpu.Address
	d.resources.Iter(func(address gpu.Address, _ *resource) bool {
		if address >= start && address < end {
			stale = append(stale, address)
		}
		return false
	})
	for _, address := range stale {
		d.resources.Delete(address)
		d.structures.Delete(address)
	}

	d.resources.Put(start, r)

	return r, core1_0.VKSuccess, nil
}

func (d *Device) CreateDescriptorHeap(count int) (gpu.DescriptorHeap, common.VkResult, error) {
	if count <= 0 {
		return nil, core1_0.VKErrorUnknown, errors.Newf("descriptor heap must have at least one descriptor, but %d were requested", count)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	return &descriptorHeap{
		start: d.reserve(count * descriptorIncrement),
		views: make([]gpu.Address, count),
	}, core1_0.VKSuccess, nil
}

func (d *Device) CreateCommandRecorder() gpu.CommandRecorder {
	return &CommandList{device: d}
}

func (d *Device) Queue() gpu.Queue {
	return d.queue
}

// AccelerationStructureInfo returns what was built at an address, or nil if nothing was
func (d *Device) AccelerationStructureInfo(address gpu.Address) *AccelerationStructureInfo {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	info, _ := d.structures.Get(address)
	return info
}

// DispatchCount is the number of ray dispatches that have executed on this device
func (d *Device) DispatchCount() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return d.dispatchCount
}

// ReadMemory copies size bytes starting at address out of simulated device memory
func (d *Device) ReadMemory(address gpu.Address, size int) ([]byte, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	memory, err := d.memory(address, size)
	if err != nil {
		return nil, err
	}

	out := make([]byte, size)
	copy(out, memory)
	return out, nil
}

func (d *Device) memory(address gpu.Address, size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Newf("invalid read size %d", size)
	}

	for _, h := range d.heaps {
		if h.contains(address, size) {
			offset := int(address - h.base)
			return h.memory[offset : offset+size], nil
		}
	}

	return nil, errors.Newf("range of %d bytes at %s is not backed by any heap", size, address)
}
