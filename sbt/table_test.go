package sbt_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/raytrace/gpu"
	mock_gpu "github.com/vkngwrapper/raytrace/gpu/mocks"
	"github.com/vkngwrapper/raytrace/gpu/soft"
	"github.com/vkngwrapper/raytrace/heap"
	"github.com/vkngwrapper/raytrace/memutils"
	"github.com/vkngwrapper/raytrace/pipeline"
	"github.com/vkngwrapper/raytrace/sbt"
	"go.uber.org/mock/gomock"
	"golang.org/x/exp/slog"
)

func newContext(t *testing.T) (sbt.BuildContext, *soft.Device) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	device, err := soft.New(logger, soft.Options{})
	require.NoError(t, err)

	sizes := map[heap.UsageClass]int{}
	for _, class := range heap.UsageClasses() {
		sizes[class] = 256 * 1024
	}

	heaps, res, err := heap.NewManager(logger, device, heap.CreateOptions{Sizes: sizes})
	require.NoError(t, err)
	require.Equal(t, core1_0.VKSuccess, res)

	return sbt.BuildContext{
		Logger:   logger,
		Heaps:    heaps,
		Recorder: device.CreateCommandRecorder(),
	}, device
}

func buildPipeline(t *testing.T, logger *slog.Logger, device gpu.Device) gpu.Pipeline {
	builder := pipeline.NewBuilder(logger)

	_, err := builder.AddShaderLibrary([]byte{1}, []string{"RayGen", "Miss", "ShadowMiss", "ClosestHit"})
	require.NoError(t, err)
	_, err = builder.AddHitGroup("HitGroup", gpu.HitGroupTriangles, "", "ClosestHit", "")
	require.NoError(t, err)
	_, err = builder.AddShaderConfig(16, 8)
	require.NoError(t, err)
	_, err = builder.AddPipelineConfig(1)
	require.NoError(t, err)

	built, err := builder.Build(device)
	require.NoError(t, err)
	return built
}

func TestRecordStride(t *testing.T) {
	require.Equal(t, 64, sbt.RecordStride(0))
	require.Equal(t, 64, sbt.RecordStride(1))
	require.Equal(t, 64, sbt.RecordStride(4))
	require.Equal(t, 128, sbt.RecordStride(5))
}

func TestMinimalTable(t *testing.T) {
	buildContext, device := newContext(t)
	p := buildPipeline(t, buildContext.Logger, device)

	table, err := sbt.Build(buildContext, p, sbt.Layout{
		RayGen:   []sbt.Record{{Export: "RayGen"}},
		Miss:     []sbt.Record{{Export: "Miss"}},
		HitGroup: []sbt.Record{{Export: "HitGroup"}},
	})
	require.NoError(t, err)
	require.Equal(t, 64, table.Stride())
	require.Equal(t, 3*64, table.Size())
	require.Equal(t, heap.UsageHostPersistent, table.Resource().Class())
}

func TestTableContents(t *testing.T) {
	buildContext, device := newContext(t)
	p := buildPipeline(t, buildContext.Logger, device)

	const viewTable = uint64(0xABCD0000)
	table, err := sbt.Build(buildContext, p, sbt.Layout{
		RayGen:   []sbt.Record{{Export: "RayGen", Args: []uint64{viewTable, 1, 2, 3, 4}}},
		Miss:     []sbt.Record{{Export: "Miss"}, {Export: "ShadowMiss"}},
		HitGroup: []sbt.Record{{Export: "HitGroup", Args: []uint64{viewTable}}},
	})
	require.NoError(t, err)
	require.Equal(t, 128, table.Stride())
	require.Equal(t, 4*128, table.Size())
	require.Equal(t, 1, table.RecordCount(sbt.StageRayGeneration))
	require.Equal(t, 2, table.RecordCount(sbt.StageMiss))
	require.Equal(t, 1, table.RecordCount(sbt.StageHitGroup))

	data, err := device.ReadMemory(table.Address(), table.Size())
	require.NoError(t, err)

	expectIdentifier := func(offset int, export string) {
		identifier, err := p.ShaderIdentifier(export)
		require.NoError(t, err)
		require.Equal(t, identifier, data[offset:offset+gpu.ShaderIdentifierSize])
	}

	expectIdentifier(0, "RayGen")
	for arg, value := range []uint64{viewTable, 1, 2, 3, 4} {
		require.Equal(t, value, binary.LittleEndian.Uint64(data[gpu.ShaderIdentifierSize+arg*8:]))
	}

	expectIdentifier(128, "Miss")
	require.True(t, bytes.Equal(make([]byte, 128-gpu.ShaderIdentifierSize), data[128+gpu.ShaderIdentifierSize:256]))
	expectIdentifier(256, "ShadowMiss")

	expectIdentifier(384, "HitGroup")
	require.Equal(t, viewTable, binary.LittleEndian.Uint64(data[384+gpu.ShaderIdentifierSize:]))
	require.Equal(t, uint64(0), binary.LittleEndian.Uint64(data[384+gpu.ShaderIdentifierSize+8:]))

	desc := table.DispatchDesc(640, 480, 1)
	require.Equal(t, gpu.ShaderTableRange{Start: table.Address(), Size: 128, Stride: 128}, desc.RayGeneration)
	require.Equal(t, gpu.ShaderTableRange{Start: table.Address().Offset(128), Size: 256, Stride: 128}, desc.Miss)
	require.Equal(t, gpu.ShaderTableRange{Start: table.Address().Offset(384), Size: 128, Stride: 128}, desc.HitGroup)
	require.Equal(t, 640, desc.Width)
	require.Equal(t, 480, desc.Height)
	require.Equal(t, 1, desc.Depth)
}

func TestDispatchTable(t *testing.T) {
	buildContext, device := newContext(t)
	p := buildPipeline(t, buildContext.Logger, device)

	table, err := sbt.Build(buildContext, p, sbt.Layout{
		RayGen:   []sbt.Record{{Export: "RayGen"}},
		Miss:     []sbt.Record{{Export: "Miss"}},
		HitGroup: []sbt.Record{{Export: "HitGroup"}},
	})
	require.NoError(t, err)

	buildContext.Recorder.SetPipeline(p)
	buildContext.Recorder.DispatchRays(table.DispatchDesc(8, 8, 1))

	res, err := device.Queue().SubmitAndWait(context.Background(), buildContext.Recorder)
	require.NoError(t, err)
	require.Equal(t, core1_0.VKSuccess, res)
	require.Equal(t, 1, device.DispatchCount())
}

func TestUnknownExport(t *testing.T) {
	buildContext, device := newContext(t)
	p := buildPipeline(t, buildContext.Logger, device)

	_, err := sbt.Build(buildContext, p, sbt.Layout{
		RayGen: []sbt.Record{{Export: "RayGen"}},
		Miss:   []sbt.Record{{Export: "Nope"}},
	})
	require.True(t, errors.Is(err, memutils.MisuseError))
	require.Equal(t, 0, buildContext.Heaps.Heap(heap.UsageHostPersistent).Cursor())
	require.Equal(t, 0, buildContext.Recorder.PendingCount())

	_, err = sbt.Build(buildContext, p, sbt.Layout{
		Miss: []sbt.Record{{Export: "Miss"}},
	})
	require.True(t, errors.Is(err, memutils.MisuseError))
}

func TestBuildRecordsTransition(t *testing.T) {
	ctrl := gomock.NewController(t)
	recorder := mock_gpu.NewMockCommandRecorder(ctrl)
	mockPipeline := mock_gpu.NewMockPipeline(ctrl)

	buildContext, _ := newContext(t)
	buildContext.Recorder = recorder

	identifier := bytes.Repeat([]byte{0x5A}, gpu.ShaderIdentifierSize)
	mockPipeline.EXPECT().ShaderIdentifier("RayGen").Return(identifier, nil)

	var transitioned gpu.Resource
	recorder.EXPECT().TransitionBarrier(gomock.Any(), gpu.ResourceStateGenericRead, gpu.ResourceStateNonPixelShaderResource).
		Do(func(resource gpu.Resource, before, after gpu.ResourceState) {
			transitioned = resource
		})

	table, err := sbt.Build(buildContext, mockPipeline, sbt.Layout{
		RayGen: []sbt.Record{{Export: "RayGen"}},
	})
	require.NoError(t, err)
	require.Equal(t, table.Address(), transitioned.Address())
	require.Equal(t, gpu.ShaderTableRange{}, table.DispatchDesc(1, 1, 1).Miss)
}

func TestBuildWithoutLogger(t *testing.T) {
	buildContext, device := newContext(t)
	p := buildPipeline(t, buildContext.Logger, device)
	buildContext.Logger = nil

	table, err := sbt.Build(buildContext, p, sbt.Layout{
		RayGen: []sbt.Record{{Export: "RayGen"}},
	})
	require.NoError(t, err)
	require.Equal(t, 64, table.Size())
	require.Equal(t, 1, buildContext.Recorder.PendingCount())
}
