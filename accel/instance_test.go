package accel_test

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/raytrace/accel"
	"github.com/vkngwrapper/raytrace/gpu"
	mock_gpu "github.com/vkngwrapper/raytrace/gpu/mocks"
	"github.com/vkngwrapper/raytrace/memutils"
	"go.uber.org/mock/gomock"
)

func TestTransformHelpers(t *testing.T) {
	require.Equal(t, [3]float32{1, 2, 3}, accel.Identity().Apply([3]float32{1, 2, 3}))
	require.Equal(t, [3]float32{2, 3, 4}, accel.Translation(1, 1, 1).Apply([3]float32{1, 2, 3}))

	scaleThenMove := accel.Translation(1, 2, 3).Mul(accel.Scaling(2, 2, 2))
	require.Equal(t, [3]float32{3, 4, 5}, scaleThenMove.Apply([3]float32{1, 1, 1}))

	rotated := accel.RotationY(math32.Pi / 2).Apply([3]float32{1, 0, 0})
	require.InDelta(t, 0, rotated[0], 1e-6)
	require.InDelta(t, 0, rotated[1], 1e-6)
	require.InDelta(t, -1, rotated[2], 1e-6)

	fullTurn := accel.RotationY(math32.Pi).Mul(accel.RotationY(math32.Pi))
	require.True(t, fullTurn.ApproxEqual(accel.Identity(), 1e-6))
	require.False(t, accel.Translation(1, 0, 0).ApproxEqual(accel.Identity(), 1e-6))
}

func TestInstanceDescriptor(t *testing.T) {
	record := accel.InstanceRecord{
		Mesh:      accel.MeshCube,
		Transform: accel.Translation(1, 2, 3),
		ID:        7,
		HitGroup:  2,
	}

	desc, err := record.Descriptor(0x10000)
	require.NoError(t, err)
	require.Equal(t, [3][4]float32{
		{1, 0, 0, 1},
		{0, 1, 0, 2},
		{0, 0, 1, 3},
	}, desc.Transform)
	require.Equal(t, uint32(7), desc.InstanceID)
	require.Equal(t, uint32(2), desc.HitGroupContribution)
	require.Equal(t, uint8(0xFF), desc.Mask)
	require.Equal(t, gpu.InstanceFlagNone, desc.Flags)
	require.Equal(t, gpu.Address(0x10000), desc.AccelerationStructure)

	require.Equal(t, record.Transform, accel.TransformFromRowMajor3x4(desc.Transform))

	record.ID = 1 << 24
	_, err = record.Descriptor(0x10000)
	require.True(t, errors.Is(err, memutils.MisuseError))

	record.ID = 0
	record.HitGroup = 1 << 24
	_, err = record.Descriptor(0x10000)
	require.True(t, errors.Is(err, memutils.MisuseError))
}

func TestMeshIDString(t *testing.T) {
	require.Equal(t, "Cube", accel.MeshCube.String())
	require.Equal(t, "unknown MeshID", accel.MeshID(99).String())
}

func TestBuildRecordingOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	recorder := mock_gpu.NewMockCommandRecorder(ctrl)

	buildContext, _ := newBuildContext(t)
	buildContext.Recorder = recorder

	var bottomDest gpu.Address
	gomock.InOrder(
		recorder.EXPECT().BuildAccelerationStructure(gomock.Any()).Do(func(desc gpu.BuildDesc) {
			require.Equal(t, gpu.AccelerationStructureBottomLevel, desc.Inputs.Type)
			require.Equal(t, gpu.BuildFlagPreferFastTrace, desc.Inputs.Flags)
			require.Len(t, desc.Inputs.Geometries, 1)
			require.Equal(t, gpu.GeometryFlagOpaque, desc.Inputs.Geometries[0].Flags)
			require.Equal(t, 36, desc.Inputs.Geometries[0].IndexCount)
			bottomDest = desc.Dest
		}),
		recorder.EXPECT().UAVBarrier(gomock.Any()).Do(func(resource gpu.Resource) {
			require.Equal(t, bottomDest, resource.Address())
		}),
		recorder.EXPECT().BuildAccelerationStructure(gomock.Any()).Do(func(desc gpu.BuildDesc) {
			require.Equal(t, gpu.AccelerationStructureTopLevel, desc.Inputs.Type)
			require.Equal(t, 2, desc.Inputs.InstanceCount)
			require.NotEqual(t, bottomDest, desc.Dest)
		}),
		recorder.EXPECT().UAVBarrier(gomock.Any()),
	)

	scene := accel.NewScene(buildContext.Logger, buildContext)
	require.NoError(t, scene.AddMesh(accel.MeshCube, accel.CubeMesh()))
	require.NoError(t, scene.AddInstance(accel.MeshCube, accel.Identity(), 0, 0))
	require.NoError(t, scene.AddInstance(accel.MeshCube, accel.Translation(0, 1, 0), 1, 0))
	require.NoError(t, scene.Build())
}
