// Package renderer ties the raytracing builders to a device: it checks the device can run them, owns
// the heaps and the command stream they record into, and resets scratch memory between frames.
package renderer

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_buffer_device_address"
	"github.com/vkngwrapper/raytrace/accel"
	"github.com/vkngwrapper/raytrace/gpu"
	"github.com/vkngwrapper/raytrace/heap"
	"github.com/vkngwrapper/raytrace/memutils"
	"github.com/vkngwrapper/raytrace/sbt"
	"golang.org/x/exp/slog"
)

const defaultDescriptorCount = 16

// SceneViewIndex is the descriptor slot PublishScene writes the top-level structure view to
const SceneViewIndex = 0

// Options configures a Renderer. It is valid to leave every field blank.
type Options struct {
	Heaps heap.CreateOptions

	// DescriptorCount is the size of the shader-visible descriptor heap. It defaults to 16.
	DescriptorCount int

	// MinimumTier defaults to gpu.RaytracingTier1_0
	MinimumTier gpu.RaytracingTier
	// MinimumAPIVersion defaults to common.Vulkan1_2
	MinimumAPIVersion common.APIVersion
}

// CheckCapabilities returns an error marked memutils.CapabilityError if the device cannot run the
// raytracing core
func CheckCapabilities(capabilities gpu.Capabilities, options Options) error {
	minimumTier := options.MinimumTier
	if minimumTier == gpu.RaytracingTierNotSupported {
		minimumTier = gpu.RaytracingTier1_0
	}

	minimumVersion := options.MinimumAPIVersion
	if minimumVersion == 0 {
		minimumVersion = common.Vulkan1_2
	}

	if capabilities.RaytracingTier < minimumTier {
		return errors.Mark(errors.Newf("raytracing tier %s is required, but the device reports %s", minimumTier, capabilities.RaytracingTier), memutils.CapabilityError)
	}

	if capabilities.APIVersion < minimumVersion {
		return errors.Mark(errors.Newf("API version %v is required, but the device reports %v", minimumVersion, capabilities.APIVersion), memutils.CapabilityError)
	}

	if !capabilities.HasExtension(khr_buffer_device_address.ExtensionName) {
		return errors.Mark(errors.Newf("the device does not support %s", khr_buffer_device_address.ExtensionName), memutils.CapabilityError)
	}

	return nil
}

// Renderer owns the device-facing state shared by every builder: the heaps, the shader-visible
// descriptor heap and the single command stream all builds are recorded into.
type Renderer struct {
	logger *slog.Logger
	device gpu.Device

	heaps       *heap.Manager
	descriptors gpu.DescriptorHeap
	recorder    gpu.CommandRecorder
	queue       gpu.Queue

	frame int
}

// New checks the device's capabilities, then creates the heaps and descriptor heap. Nothing is
// created on a device that fails the capability check.
func New(logger *slog.Logger, device gpu.Device, options Options) (*Renderer, common.VkResult, error) {
	err := CheckCapabilities(device.Capabilities(), options)
	if err != nil {
		logger.Error("device does not support raytracing", slog.Any("error", err))
		return nil, core1_0.VKErrorExtensionNotPresent, err
	}

	heaps, res, err := heap.NewManager(logger, device, options.Heaps)
	if err != nil {
		return nil, res, err
	}

	descriptorCount := options.DescriptorCount
	if descriptorCount == 0 {
		descriptorCount = defaultDescriptorCount
	}

	descriptors, res, err := device.CreateDescriptorHeap(descriptorCount)
	if err != nil {
		return nil, res, errors.Wrap(err, "failed to create the descriptor heap")
	}

	logger.Debug("renderer::New", slog.Int("Descriptors", descriptorCount))

	return &Renderer{
		logger:      logger,
		device:      device,
		heaps:       heaps,
		descriptors: descriptors,
		recorder:    device.CreateCommandRecorder(),
		queue:       device.Queue(),
	}, core1_0.VKSuccess, nil
}

func (r *Renderer) Device() gpu.Device              { return r.device }
func (r *Renderer) Heaps() *heap.Manager            { return r.heaps }
func (r *Renderer) Descriptors() gpu.DescriptorHeap { return r.descriptors }
func (r *Renderer) Frame() int                      { return r.frame }

// Recorder returns the command stream every build is recorded into
func (r *Renderer) Recorder() gpu.CommandRecorder { return r.recorder }

// BuildContext returns the context acceleration structure builds record against
func (r *Renderer) BuildContext() accel.BuildContext {
	return accel.BuildContext{
		Logger:   r.logger,
		Device:   r.device,
		Heaps:    r.heaps,
		Recorder: r.recorder,
	}
}

// TableContext returns the context shader record table builds record against
func (r *Renderer) TableContext() sbt.BuildContext {
	return sbt.BuildContext{
		Logger:   r.logger,
		Heaps:    r.heaps,
		Recorder: r.recorder,
	}
}

// SubmitAndWait executes every recorded command and blocks until the device has finished with them.
// The context is only checked before submission. A failed submission is marked memutils.BuildError.
func (r *Renderer) SubmitAndWait(ctx context.Context) error {
	pending := r.recorder.PendingCount()

	res, err := r.queue.SubmitAndWait(ctx, r.recorder)
	if err != nil {
		r.logger.Error("command submission failed", slog.Int("Commands", pending), slog.Any("Result", res), slog.Any("error", err))
		return errors.Mark(errors.Wrap(err, "command submission failed"), memutils.BuildError)
	}

	r.logger.Debug("Renderer::SubmitAndWait", slog.Int("Commands", pending))
	return nil
}

// BeginFrame resets the scratch heaps for a new frame. It refuses while any recorded command has not
// been submitted.
func (r *Renderer) BeginFrame() error {
	pending := r.recorder.PendingCount()
	if pending > 0 {
		return errors.Mark(errors.Newf("cannot begin a frame with %d unsubmitted commands", pending), memutils.MisuseError)
	}

	r.heaps.ResetScratch()
	r.frame++

	return nil
}

// PublishScene writes a view of the scene's top-level structure to SceneViewIndex and returns the
// GPU handle of the descriptor table holding it, for use as a shader record argument
func (r *Renderer) PublishScene(scene *accel.Scene) (gpu.Address, error) {
	address := scene.Address()
	if address == 0 {
		return 0, errors.Mark(errors.New("the scene has not been built"), memutils.MisuseError)
	}

	err := r.descriptors.WriteAccelerationStructureView(SceneViewIndex, address)
	if err != nil {
		return 0, errors.Wrap(err, "failed to publish the scene")
	}

	return r.descriptors.GPUHandle(SceneViewIndex), nil
}
