package gpu

//go:generate mockgen -source ./execution.go -destination ./mocks/execution.go -package mock_gpu

import (
	"context"

	"github.com/vkngwrapper/core/v2/common"
)

// CommandRecorder records work into a single command stream. Nothing recorded executes until the
// recorder is submitted to a Queue. Recording never fails: invalid commands are reported at submission.
type CommandRecorder interface {
	BuildAccelerationStructure(desc BuildDesc)
	// UAVBarrier orders all prior writes to resource before any later reads of it
	UAVBarrier(resource Resource)
	TransitionBarrier(resource Resource, before ResourceState, after ResourceState)
	SetPipeline(pipeline Pipeline)
	DispatchRays(desc DispatchRaysDesc)

	// PendingCount is the number of commands recorded since the last submission
	PendingCount() int
}

// Queue executes recorded command streams
type Queue interface {
	// SubmitAndWait executes everything in commands and blocks until the device is idle. The recorder
	// is empty afterward and can be reused.
	SubmitAndWait(ctx context.Context, commands CommandRecorder) (common.VkResult, error)
}

// Binding names a subobject associated with an export in a built pipeline
type Binding struct {
	Type SubobjectType
	// Index is the position of the subobject in the list the pipeline was created from
	Index int
}

// Pipeline is a created ray tracing pipeline state object
type Pipeline interface {
	// ShaderIdentifier returns the ShaderIdentifierSize-byte identifier of a shader or hit group export
	ShaderIdentifier(export string) ([]byte, error)
	// Bindings returns every subobject explicitly associated with an export
	Bindings(export string) []Binding
	MaxRecursionDepth() int
}

// ShaderTableRange is a region of a shader table consumed by a dispatch
type ShaderTableRange struct {
	Start  Address
	Size   int
	Stride int
}

// DispatchRaysDesc describes one ray dispatch over a width x height x depth grid
type DispatchRaysDesc struct {
	RayGeneration ShaderTableRange
	Miss          ShaderTableRange
	HitGroup      ShaderTableRange

	Width  int
	Height int
	Depth  int
}
