package sbt

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_buffer_device_address"
	"github.com/vkngwrapper/raytrace/gpu"
	"github.com/vkngwrapper/raytrace/heap"
	"github.com/vkngwrapper/raytrace/memutils"
	"golang.org/x/exp/slog"
)

// Stage is one of the three sections of a shader record table
type Stage int

const (
	StageRayGeneration Stage = iota
	StageMiss
	StageHitGroup

	stageCount
)

var stageMapping = map[Stage]string{
	StageRayGeneration: "RayGeneration",
	StageMiss:          "Miss",
	StageHitGroup:      "HitGroup",
}

func (s Stage) String() string {
	str, ok := stageMapping[s]
	if !ok {
		return "unknown Stage"
	}

	return str
}

// Record is one shader record: the export whose identifier starts the record, followed by its root
// arguments. Each argument is one 8-byte word, such as a GPU address or descriptor handle.
type Record struct {
	Export string
	Args   []uint64
}

// Layout lists the records of each stage in the order they are written
type Layout struct {
	RayGen   []Record
	Miss     []Record
	HitGroup []Record
}

func (l Layout) stage(stage Stage) []Record {
	switch stage {
	case StageRayGeneration:
		return l.RayGen
	case StageMiss:
		return l.Miss
	default:
		return l.HitGroup
	}
}

// BuildContext carries the collaborators a table build uses
type BuildContext struct {
	Logger   *slog.Logger
	Heaps    *heap.Manager
	Recorder gpu.CommandRecorder
}

func (c BuildContext) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}

	return c.Logger
}

// Table is a shader record table placed in the host persistent heap
type Table struct {
	resource *heap.PlacedResource
	stride   int

	offsets [stageCount]int
	counts  [stageCount]int
}

// Stride returns the size in bytes of every record in the table
func (t *Table) Stride() int { return t.stride }

// Resource returns the placed resource holding the table
func (t *Table) Resource() *heap.PlacedResource { return t.resource }

// Address returns the GPU virtual address of the first record
func (t *Table) Address() gpu.Address { return t.resource.Address() }

// Size returns the number of bytes every record in the table occupies
func (t *Table) Size() int {
	var size int
	for _, count := range t.counts {
		size += count * t.stride
	}

	return size
}

// RecordCount returns the number of records written for a stage
func (t *Table) RecordCount(stage Stage) int { return t.counts[stage] }

// StageRange returns the address range of a stage's records
func (t *Table) StageRange(stage Stage) gpu.ShaderTableRange {
	if t.counts[stage] == 0 {
		return gpu.ShaderTableRange{}
	}

	return gpu.ShaderTableRange{
		Start:  t.Address().Offset(t.offsets[stage]),
		Size:   t.counts[stage] * t.stride,
		Stride: t.stride,
	}
}

// DispatchDesc describes a dispatch of width x height x depth rays launched by the first ray
// generation record
func (t *Table) DispatchDesc(width, height, depth int) gpu.DispatchRaysDesc {
	rayGen := t.StageRange(StageRayGeneration)
	rayGen.Size = t.stride

	return gpu.DispatchRaysDesc{
		RayGeneration: rayGen,
		Miss:          t.StageRange(StageMiss),
		HitGroup:      t.StageRange(StageHitGroup),
		Width:         width,
		Height:        height,
		Depth:         depth,
	}
}

// RecordStride returns the record stride needed for records carrying up to maxArgs root arguments
func RecordStride(maxArgs int) int {
	return memutils.AlignUp(gpu.ShaderIdentifierSize+gpu.RootArgumentSize*maxArgs, gpu.ShaderRecordAlignment)
}

// Build writes every record of layout into a new table and records the transition that makes it
// readable by shaders. All stages share one stride, sized by the record with the most arguments.
// Unused argument words are zero. A record naming an export the pipeline does not know fails the
// build before anything is allocated.
func Build(ctx BuildContext, pipeline gpu.Pipeline, layout Layout) (*Table, error) {
	if len(layout.RayGen) == 0 {
		return nil, errors.Mark(errors.New("a shader record table needs a ray generation record"), memutils.MisuseError)
	}

	table := &Table{}

	var maxArgs, total int
	identifiers := make(map[string][]byte)
	for stage := Stage(0); stage < stageCount; stage++ {
		records := layout.stage(stage)
		table.offsets[stage] = total
		table.counts[stage] = len(records)
		total += len(records)

		for index, record := range records {
			maxArgs = max(maxArgs, len(record.Args))

			if _, ok := identifiers[record.Export]; ok {
				continue
			}

			identifier, err := pipeline.ShaderIdentifier(record.Export)
			if err != nil {
				return nil, errors.Mark(errors.Wrapf(err, "%s record %d", stage, index), memutils.MisuseError)
			}
			if len(identifier) != gpu.ShaderIdentifierSize {
				return nil, errors.Mark(errors.Newf("%s record %d: identifier for %q is %d bytes", stage, index, record.Export, len(identifier)), memutils.BuildError)
			}
			identifiers[record.Export] = identifier
		}
	}

	table.stride = RecordStride(maxArgs)
	for stage := range table.offsets {
		table.offsets[stage] *= table.stride
	}

	data := make([]byte, total*table.stride)
	for stage := Stage(0); stage < stageCount; stage++ {
		for index, record := range layout.stage(stage) {
			offset := table.offsets[stage] + index*table.stride
			copy(data[offset:], identifiers[record.Export])

			for arg, value := range record.Args {
				binary.LittleEndian.PutUint64(data[offset+gpu.ShaderIdentifierSize+arg*gpu.RootArgumentSize:], value)
			}
		}
	}

	resource, _, err := ctx.Heaps.AllocateBuffer(heap.UsageHostPersistent, len(data),
		core1_0.BufferUsageStorageBuffer|khr_buffer_device_address.BufferUsageShaderDeviceAddress,
		gpu.ResourceStateGenericRead)
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate the shader record table")
	}

	err = resource.Write(0, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to write the shader record table")
	}
	table.resource = resource

	ctx.Recorder.TransitionBarrier(resource.Resource(), gpu.ResourceStateGenericRead, gpu.ResourceStateNonPixelShaderResource)

	ctx.logger().Debug("sbt::Build",
		slog.Int("Stride", table.stride),
		slog.Int("RayGen", table.counts[StageRayGeneration]),
		slog.Int("Miss", table.counts[StageMiss]),
		slog.Int("HitGroup", table.counts[StageHitGroup]),
		slog.String("Address", resource.Address().String()))

	return table, nil
}
