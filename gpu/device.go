package gpu

import (
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// Device is the narrow driver surface the ray tracing core consumes. Everything the core needs
// from the platform, from heaps to pipeline state objects, is created through it.
type Device interface {
	// Capabilities reports ray tracing support. It must be checked before anything else is created.
	Capabilities() Capabilities
	// PlacementAlignment is the alignment every placed resource offset must honor
	PlacementAlignment() uint
	// ResourceFootprint reports the number of bytes and the alignment a resource needs in a heap
	ResourceFootprint(desc ResourceDesc) core1_0.MemoryRequirements

	CreateHeap(size int, properties core1_0.MemoryPropertyFlags) (Heap, common.VkResult, error)
	CreatePlacedResource(heap Heap, offset int, desc ResourceDesc, initialState ResourceState) (Resource, common.VkResult, error)
	CreateDescriptorHeap(count int) (DescriptorHeap, common.VkResult, error)
	CreateRootSignature(desc RootSignatureDesc) (RootSignature, error)
	CreatePipeline(subobjects []Subobject) (Pipeline, common.VkResult, error)

	// AccelerationStructurePrebuildInfo reports the result and scratch sizes a build with these inputs needs
	AccelerationStructurePrebuildInfo(inputs BuildInputs) PrebuildInfo

	CreateCommandRecorder() CommandRecorder
	Queue() Queue
}

// Heap is a fixed region of device memory that resources are placed into
type Heap interface {
	Size() int
	Properties() core1_0.MemoryPropertyFlags
}

// Resource is a buffer placed at a fixed offset within a Heap
type Resource interface {
	Address() Address
	Size() int
	Heap() Heap
	Offset() int
	// Map returns the resource's bytes for host writes. It fails for resources in heaps that are not host visible.
	Map() ([]byte, error)
}

// DescriptorHeap is a shader-visible table of views
type DescriptorHeap interface {
	Count() int
	Increment() int
	GPUStart() Address
	// GPUHandle returns GPUStart() + index * Increment()
	GPUHandle(index int) Address
	WriteAccelerationStructureView(index int, structure Address) error
}

// RootSignature is a created root signature object
type RootSignature interface {
	Desc() RootSignatureDesc
}
