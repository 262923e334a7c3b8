package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "rtdemo"
	app.Usage = "build raytracing scenes on the software device"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable debug logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "scene",
			Usage: "build the cube scene and dispatch rays against it",
			Description: `
Build a bottom-level structure for the unit cube, instance it along the z axis and
build the top-level structure over the instances once per frame. A pipeline is
assembled from the shader library, a shader table is written and a dispatch is
submitted for every frame. Heap statistics are printed once all frames have run.`,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "instances",
					Value: 3,
					Usage: "number of cube instances",
				},
				cli.IntFlag{
					Name:  "frames",
					Value: 1,
					Usage: "number of frames to build and dispatch",
				},
				cli.IntFlag{
					Name:  "width",
					Value: 640,
					Usage: "dispatch width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 480,
					Usage: "dispatch height",
				},
				cli.StringFlag{
					Name:  "shader, s",
					Usage: "WGSL library exporting raygen, miss and closest_hit. A built-in library is used if blank.",
				},
				cli.BoolFlag{
					Name:  "detailed",
					Usage: "print every placement in the heap statistics",
				},
			},
			Action: BuildScene,
		},
		{
			Name:      "compile",
			Usage:     "compile WGSL shader sources to SPIR-V",
			ArgsUsage: "shader1.wgsl shader2.wgsl ...",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "debug",
					Usage: "emit debug names into the bytecode",
				},
			},
			Action: CompileShaders,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}
