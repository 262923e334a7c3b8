package main

import (
	"context"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli"
	"github.com/vkngwrapper/raytrace/accel"
	"github.com/vkngwrapper/raytrace/gpu"
	"github.com/vkngwrapper/raytrace/gpu/soft"
	"github.com/vkngwrapper/raytrace/pipeline"
	"github.com/vkngwrapper/raytrace/renderer"
	"github.com/vkngwrapper/raytrace/sbt"
	"github.com/vkngwrapper/raytrace/shader"
	"golang.org/x/exp/slog"
)

const builtinLibrary = `
@compute @workgroup_size(1)
fn raygen() {
}

@compute @workgroup_size(1)
fn miss() {
}

@compute @workgroup_size(1)
fn closest_hit() {
}
`

const (
	rayGenExport     = "raygen"
	missExport       = "miss"
	closestHitExport = "closest_hit"
	hitGroupExport   = "HitGroup"

	instanceSpacing = 2
)

func loadLibrary(ctx *cli.Context, compiler *shader.Compiler) (*shader.Library, error) {
	path := ctx.String("shader")
	if path == "" {
		return compiler.CompileLibrary("builtin", builtinLibrary)
	}

	return compiler.CompileLibraryFile(path)
}

func buildPipeline(logger *slog.Logger, device gpu.Device, library *shader.Library) (gpu.Pipeline, error) {
	signature := pipeline.NewRootSignatureBuilder(true)
	_, err := signature.AddDescriptorTable(
		gpu.DescriptorRange{Type: gpu.DescriptorRangeUAV, Count: 1},
		gpu.DescriptorRange{Type: gpu.DescriptorRangeSRV, Count: 1},
	)
	if err != nil {
		return nil, err
	}

	rayGenSignature, err := signature.Build(device)
	if err != nil {
		return nil, err
	}

	builder := pipeline.NewBuilder(logger)
	_, err = builder.AddShaderLibrary(library.Bytecode, library.Exports)
	if err != nil {
		return nil, err
	}

	_, err = builder.AddHitGroup(hitGroupExport, gpu.HitGroupTriangles, "", closestHitExport, "")
	if err != nil {
		return nil, err
	}

	local, err := builder.AddLocalRootSignature(rayGenSignature)
	if err != nil {
		return nil, err
	}

	_, err = builder.AddExportAssociation([]string{rayGenExport}, local)
	if err != nil {
		return nil, err
	}

	_, err = builder.AddShaderConfig(16, 8)
	if err != nil {
		return nil, err
	}

	_, err = builder.AddPipelineConfig(1)
	if err != nil {
		return nil, err
	}

	return builder.Build(device)
}

func addInstances(scene *accel.Scene, count int, frame int) error {
	spin := accel.RotationY(float32(frame) * math32.Pi / 32)

	for i := 0; i < count; i++ {
		transform := accel.Translation(0, 0, float32(i*instanceSpacing)).Mul(spin)
		err := scene.AddInstance(accel.MeshCube, transform, accel.InstanceID(i), 0)
		if err != nil {
			return err
		}
	}

	return nil
}

// BuildScene builds the cube scene on a software device and dispatches rays against it
func BuildScene(ctx *cli.Context) error {
	logger := setupLogging(ctx)
	background := context.Background()

	instanceCount := ctx.Int("instances")
	frames := ctx.Int("frames")
	if instanceCount <= 0 || frames <= 0 {
		return errors.New("instances and frames must be positive")
	}

	device, err := soft.New(logger, soft.Options{})
	if err != nil {
		return err
	}

	r, res, err := renderer.New(logger, device, renderer.Options{})
	if err != nil {
		logger.Error("failed to create renderer", slog.Any("Result", res))
		return err
	}

	library, err := loadLibrary(ctx, shader.NewCompiler(logger, shader.Options{}))
	if err != nil {
		return err
	}

	rtPipeline, err := buildPipeline(logger, device, library)
	if err != nil {
		return err
	}

	scene := accel.NewScene(logger, r.BuildContext())
	err = scene.AddMesh(accel.MeshCube, accel.CubeMesh())
	if err != nil {
		return err
	}

	sceneTable := uint64(r.Descriptors().GPUHandle(renderer.SceneViewIndex))
	table, err := sbt.Build(r.TableContext(), rtPipeline, sbt.Layout{
		RayGen:   []sbt.Record{{Export: rayGenExport, Args: []uint64{sceneTable}}},
		Miss:     []sbt.Record{{Export: missExport}},
		HitGroup: []sbt.Record{{Export: hitGroupExport}},
	})
	if err != nil {
		return err
	}

	err = r.SubmitAndWait(background)
	if err != nil {
		return err
	}

	for frame := 0; frame < frames; frame++ {
		err = r.BeginFrame()
		if err != nil {
			return err
		}

		scene.Reset()
		err = addInstances(scene, instanceCount, frame)
		if err != nil {
			return err
		}

		err = scene.Build()
		if err != nil {
			return err
		}

		_, err = r.PublishScene(scene)
		if err != nil {
			return err
		}

		r.Recorder().SetPipeline(rtPipeline)
		r.Recorder().DispatchRays(table.DispatchDesc(ctx.Int("width"), ctx.Int("height"), 1))

		err = r.SubmitAndWait(background)
		if err != nil {
			return err
		}

		logger.Info("frame complete",
			slog.Int("Frame", r.Frame()),
			slog.Int("Instances", scene.InstanceCount()),
			slog.String("Scene", scene.Address().String()))
	}

	fmt.Println(r.Heaps().BuildStatsString(ctx.Bool("detailed")))
	return nil
}
