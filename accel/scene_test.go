package accel_test

import (
	"context"
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/raytrace/accel"
	"github.com/vkngwrapper/raytrace/gpu"
	"github.com/vkngwrapper/raytrace/gpu/soft"
	"github.com/vkngwrapper/raytrace/heap"
	"github.com/vkngwrapper/raytrace/memutils"
	"golang.org/x/exp/slog"
)

const heapSize = 1024 * 1024

func newBuildContext(t *testing.T) (accel.BuildContext, *soft.Device) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	device, err := soft.New(logger, soft.Options{})
	require.NoError(t, err)

	sizes := map[heap.UsageClass]int{}
	for _, class := range heap.UsageClasses() {
		sizes[class] = heapSize
	}

	heaps, res, err := heap.NewManager(logger, device, heap.CreateOptions{Sizes: sizes})
	require.NoError(t, err)
	require.Equal(t, core1_0.VKSuccess, res)

	return accel.BuildContext{
		Logger:   logger,
		Device:   device,
		Heaps:    heaps,
		Recorder: device.CreateCommandRecorder(),
	}, device
}

func submit(t *testing.T, buildContext accel.BuildContext, device *soft.Device) {
	res, err := device.Queue().SubmitAndWait(context.Background(), buildContext.Recorder)
	require.NoError(t, err)
	require.Equal(t, core1_0.VKSuccess, res)
}

func newScene(t *testing.T) (*accel.Scene, accel.BuildContext, *soft.Device) {
	buildContext, device := newBuildContext(t)
	scene := accel.NewScene(buildContext.Logger, buildContext)
	return scene, buildContext, device
}

func TestCubeScene(t *testing.T) {
	scene, buildContext, device := newScene(t)

	cube := accel.CubeMesh()
	require.Len(t, cube.Positions, 8)
	require.Len(t, cube.Indices, 36)

	require.NoError(t, scene.AddMesh(accel.MeshCube, cube))
	require.Equal(t, gpu.Address(0), scene.Address())

	for i := 0; i < 4; i++ {
		err := scene.AddInstance(accel.MeshCube, accel.Translation(float32(i)*2, 0, 0), accel.InstanceID(i), 0)
		require.NoError(t, err)
	}
	require.NoError(t, scene.Build())
	submit(t, buildContext, device)

	require.NotEqual(t, gpu.Address(0), scene.Address())
	require.Equal(t, 4, scene.InstanceCount())
	require.Equal(t, 4, scene.TopLevel().InstanceCount())

	bottomLevel, ok := scene.Mesh(accel.MeshCube)
	require.True(t, ok)
	bottomInfo := device.AccelerationStructureInfo(bottomLevel.Address())
	require.NotNil(t, bottomInfo)
	require.Equal(t, gpu.AccelerationStructureBottomLevel, bottomInfo.Type)
	require.Equal(t, 8, bottomInfo.VertexCount)
	require.Equal(t, 12, bottomInfo.TriangleCount)
	require.Equal(t, [2][3]float32{{-0.5, -0.5, -0.5}, {0.5, 0.5, 0.5}}, bottomInfo.Bounds)
	require.True(t, bottomInfo.Synchronized)

	topInfo := device.AccelerationStructureInfo(scene.Address())
	require.NotNil(t, topInfo)
	require.Equal(t, gpu.AccelerationStructureTopLevel, topInfo.Type)
	require.Len(t, topInfo.Instances, 4)
	for i, instance := range topInfo.Instances {
		require.Equal(t, uint32(i), instance.InstanceID)
		require.Equal(t, float32(i)*2, instance.Transform[0][3])
		require.Equal(t, bottomLevel.Address(), instance.AccelerationStructure)
	}
}

func TestIdentityInstanceRoundTrip(t *testing.T) {
	scene, buildContext, device := newScene(t)

	require.NoError(t, scene.AddMesh(accel.MeshCube, accel.CubeMesh()))
	require.NoError(t, scene.AddInstance(accel.MeshCube, accel.Identity(), 0, 0))
	require.NoError(t, scene.Build())
	submit(t, buildContext, device)

	topInfo := device.AccelerationStructureInfo(scene.Address())
	require.NotNil(t, topInfo)
	require.Len(t, topInfo.Instances, 1)

	instance := topInfo.Instances[0]
	require.Equal(t, accel.Identity(), accel.TransformFromRowMajor3x4(instance.Transform))
	require.Equal(t, gpu.InstanceMaskAll, instance.Mask)
	require.Equal(t, gpu.InstanceFlagNone, instance.Flags)
}

func TestInstanceBufferLayout(t *testing.T) {
	buildContext, device := newBuildContext(t)

	bottomLevel, err := accel.BuildBottomLevel(buildContext, accel.CubeMesh())
	require.NoError(t, err)

	const count = 5
	instances := make([]accel.InstanceRecord, 0, count)
	for i := 0; i < count; i++ {
		instances = append(instances, accel.InstanceRecord{
			Mesh:      accel.MeshCube,
			Transform: accel.Translation(0, float32(i), 0),
			ID:        accel.InstanceID(100 + i),
			HitGroup:  accel.HitGroupIndex(i % 2),
		})
	}

	resolve := func(id accel.MeshID) (gpu.Address, bool) {
		return bottomLevel.Address(), id == accel.MeshCube
	}

	topLevel, err := accel.BuildTopLevel(buildContext, instances, resolve)
	require.NoError(t, err)
	require.GreaterOrEqual(t, topLevel.InstanceBuffer().Size(), count*gpu.InstanceDescSize)
	require.Equal(t, heap.UsageHostScratch, topLevel.InstanceBuffer().Class())
	require.Equal(t, heap.UsageTopLevelStorage, topLevel.Resource().Class())
	require.True(t, memutils.IsAligned(int(topLevel.Address()), gpu.AccelerationStructureAlignment))

	data, err := device.ReadMemory(topLevel.InstanceBuffer().Address(), count*gpu.InstanceDescSize)
	require.NoError(t, err)

	for i := 0; i < count; i++ {
		desc, err := gpu.DecodeInstanceDesc(data[i*gpu.InstanceDescSize:])
		require.NoError(t, err)
		require.Equal(t, uint32(100+i), desc.InstanceID)
		require.Equal(t, uint32(i%2), desc.HitGroupContribution)
		require.Equal(t, bottomLevel.Address(), desc.AccelerationStructure)
		require.Equal(t, float32(i), desc.Transform[1][3])
	}

	submit(t, buildContext, device)
}

func TestAddInstanceUnknownMesh(t *testing.T) {
	scene, _, _ := newScene(t)

	err := scene.AddInstance(accel.MeshCube, accel.Identity(), 0, 0)
	require.Error(t, err)
	require.True(t, errors.Is(err, accel.ErrMeshNotBuilt))
	require.True(t, errors.Is(err, memutils.MisuseError))
	require.Equal(t, 0, scene.InstanceCount())
}

func TestBuildEmptyScene(t *testing.T) {
	scene, buildContext, _ := newScene(t)

	err := scene.Build()
	require.True(t, errors.Is(err, memutils.MisuseError))
	require.Nil(t, scene.TopLevel())
	require.Equal(t, 0, buildContext.Recorder.PendingCount())
}

func TestAddMeshIsIdempotent(t *testing.T) {
	scene, buildContext, _ := newScene(t)

	require.NoError(t, scene.AddMesh(accel.MeshCube, accel.CubeMesh()))
	pending := buildContext.Recorder.PendingCount()
	cursor := buildContext.Heaps.Heap(heap.UsageBottomLevelStorage).Cursor()
	first, _ := scene.Mesh(accel.MeshCube)
	address := first.Address()

	require.NoError(t, scene.AddMesh(accel.MeshCube, accel.CubeMesh()))
	require.Equal(t, pending, buildContext.Recorder.PendingCount())
	require.Equal(t, cursor, buildContext.Heaps.Heap(heap.UsageBottomLevelStorage).Cursor())
	require.Equal(t, 1, scene.MeshCount())

	require.NoError(t, scene.RebuildMesh(accel.MeshCube, accel.CubeMesh()))
	require.Equal(t, pending+2, buildContext.Recorder.PendingCount())
	require.Equal(t, cursor, buildContext.Heaps.Heap(heap.UsageBottomLevelStorage).Cursor())

	rebuilt, _ := scene.Mesh(accel.MeshCube)
	require.Equal(t, address, rebuilt.Address())
}

func TestSceneRebuildsInPlace(t *testing.T) {
	scene, buildContext, device := newScene(t)

	require.NoError(t, scene.AddMesh(accel.MeshCube, accel.CubeMesh()))
	submit(t, buildContext, device)

	var address gpu.Address
	for frame := 0; frame < 3; frame++ {
		buildContext.Heaps.ResetScratch()
		scene.Reset()
		require.Equal(t, 0, scene.InstanceCount())

		for i := 0; i < 4; i++ {
			transform := accel.RotationY(float32(frame)).Mul(accel.Translation(float32(i), 0, 0))
			require.NoError(t, scene.AddInstance(accel.MeshCube, transform, accel.InstanceID(i), 0))
		}
		require.NoError(t, scene.Build())
		submit(t, buildContext, device)

		if frame == 0 {
			address = scene.Address()
		}
		require.Equal(t, address, scene.Address())
		require.Len(t, device.AccelerationStructureInfo(address).Instances, 4)
	}

	// one structure in top-level storage, no matter how many frames were built
	var stats memutils.Statistics
	buildContext.Heaps.Heap(heap.UsageTopLevelStorage).Statistics(&stats)
	require.Equal(t, 1, stats.AllocationCount)
}

func TestBuildMeshValidation(t *testing.T) {
	buildContext, _ := newBuildContext(t)

	_, err := accel.BuildBottomLevel(buildContext, accel.MeshRecord{})
	require.True(t, errors.Is(err, memutils.MisuseError))

	_, err = accel.BuildBottomLevel(buildContext, accel.MeshRecord{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Indices:   []uint32{0, 1, 3},
	})
	require.True(t, errors.Is(err, memutils.MisuseError))

	_, err = accel.BuildBottomLevel(buildContext, accel.MeshRecord{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Indices:   []uint32{0, 1},
	})
	require.True(t, errors.Is(err, memutils.MisuseError))

	_, err = accel.BuildBottomLevel(buildContext, accel.MeshRecord{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Stride:    8,
	})
	require.True(t, errors.Is(err, memutils.MisuseError))

	require.Equal(t, 0, buildContext.Recorder.PendingCount())
}

func TestBuildWithPaddedStride(t *testing.T) {
	buildContext, device := newBuildContext(t)

	bottomLevel, err := accel.BuildBottomLevel(buildContext, accel.MeshRecord{
		Positions: [][3]float32{{0, 0, 0}, {2, 0, 0}, {0, 3, 1}},
		Stride:    32,
	})
	require.NoError(t, err)
	submit(t, buildContext, device)

	info := device.AccelerationStructureInfo(bottomLevel.Address())
	require.NotNil(t, info)
	require.Equal(t, 1, info.TriangleCount)
	require.Equal(t, [2][3]float32{{0, 0, 0}, {2, 3, 1}}, info.Bounds)
}

func TestScratchExhaustion(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	device, err := soft.New(logger, soft.Options{})
	require.NoError(t, err)

	heaps, _, err := heap.NewManager(logger, device, heap.CreateOptions{
		Sizes: map[heap.UsageClass]int{
			heap.UsageHostScratch:        64 * 1024,
			heap.UsageHostPersistent:     64 * 1024,
			heap.UsageDevicePersistent:   64 * 1024,
			heap.UsageDeviceScratch:      64 * 1024,
			heap.UsageBottomLevelStorage: 64 * 1024,
			heap.UsageTopLevelStorage:    64 * 1024,
		},
	})
	require.NoError(t, err)

	buildContext := accel.BuildContext{Logger: logger, Device: device, Heaps: heaps, Recorder: device.CreateCommandRecorder()}

	// vertex and index uploads each take a whole placement
	_, err = accel.BuildBottomLevel(buildContext, accel.CubeMesh())
	require.True(t, errors.Is(err, memutils.HeapExhaustedError))
}
