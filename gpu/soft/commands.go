package soft

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/raytrace/gpu"
	"golang.org/x/exp/slog"
)

type command interface {
	execute(d *Device, state *executionState) error
}

type executionState struct {
	pipeline *pipeline
}

type buildCommand struct {
	desc gpu.BuildDesc
}

type uavBarrierCommand struct {
	resource gpu.Resource
}

type transitionCommand struct {
	resource gpu.Resource
	before   gpu.ResourceState
	after    gpu.ResourceState
}

type setPipelineCommand struct {
	pipeline gpu.Pipeline
}

type dispatchCommand struct {
	desc gpu.DispatchRaysDesc
}

// CommandList is the software gpu.CommandRecorder. Commands are kept in recording order and
// executed by the device queue.
type CommandList struct {
	device   *Device
	commands []command
}

var _ gpu.CommandRecorder = &CommandList{}

func (l *CommandList) BuildAccelerationStructure(desc gpu.BuildDesc) {
	l.commands = append(l.commands, buildCommand{desc: desc})
}

func (l *CommandList) UAVBarrier(resource gpu.Resource) {
	l.commands = append(l.commands, uavBarrierCommand{resource: resource})
}

func (l *CommandList) TransitionBarrier(resource gpu.Resource, before gpu.ResourceState, after gpu.ResourceState) {
	l.commands = append(l.commands, transitionCommand{resource: resource, before: before, after: after})
}

func (l *CommandList) SetPipeline(pipeline gpu.Pipeline) {
	l.commands = append(l.commands, setPipelineCommand{pipeline: pipeline})
}

func (l *CommandList) DispatchRays(desc gpu.DispatchRaysDesc) {
	l.commands = append(l.commands, dispatchCommand{desc: desc})
}

func (l *CommandList) PendingCount() int {
	return len(l.commands)
}

type queue struct {
	device *Device
}

func (q *queue) SubmitAndWait(ctx context.Context, commands gpu.CommandRecorder) (common.VkResult, error) {
	if err := ctx.Err(); err != nil {
		return core1_0.VKErrorUnknown, errors.Wrap(err, "submission cancelled")
	}

	list, ok := commands.(*CommandList)
	if !ok || list.device != q.device {
		return core1_0.VKErrorUnknown, errors.New("command recorder was not created by this device")
	}

	q.device.mutex.Lock()
	defer q.device.mutex.Unlock()

	pending := list.commands
	list.commands = nil

	q.device.logger.Debug("soft::SubmitAndWait", slog.Int("Commands", len(pending)))

	var state executionState
	for index, cmd := range pending {
		err := cmd.execute(q.device, &state)
		if err != nil {
			return core1_0.VKErrorUnknown, errors.Wrapf(err, "command %d", index)
		}
	}

	return core1_0.VKSuccess, nil
}

func (c uavBarrierCommand) execute(d *Device, state *executionState) error {
	if c.resource == nil {
		return errors.New("uav barrier on nil resource")
	}

	info, ok := d.structures.Get(c.resource.Address())
	if ok {
		info.Synchronized = true
	}

	return nil
}

func (c transitionCommand) execute(d *Device, state *executionState) error {
	r, err := d.lookupResource(c.resource)
	if err != nil {
		return err
	}

	if r.state != c.before {
		return errors.Newf("transition of resource at %s expected state %s, but it is in state %s", r.Address(), c.before, r.state)
	}

	r.state = c.after
	return nil
}

func (c setPipelineCommand) execute(d *Device, state *executionState) error {
	p, ok := c.pipeline.(*pipeline)
	if !ok {
		return errors.New("pipeline was not created by this device")
	}

	state.pipeline = p
	return nil
}

func (d *Device) lookupResource(target gpu.Resource) (*resource, error) {
	if target == nil {
		return nil, errors.New("nil resource")
	}

	r, ok := d.resources.Get(target.Address())
	if !ok || r != target {
		return nil, errors.Newf("resource at %s is no longer placed", target.Address())
	}

	return r, nil
}
