package main

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli"
	"github.com/vkngwrapper/raytrace/shader"
	"golang.org/x/exp/slog"
)

// CompileShaders compiles every .wgsl argument to a .spv file next to it
func CompileShaders(ctx *cli.Context) error {
	logger := setupLogging(ctx)

	if ctx.NArg() == 0 {
		return errors.New("no shader files given")
	}

	compiler := shader.NewCompiler(logger, shader.Options{Debug: ctx.Bool("debug")})

	for idx := 0; idx < ctx.NArg(); idx++ {
		source := ctx.Args().Get(idx)
		if !strings.HasSuffix(source, ".wgsl") {
			logger.Warn("skipping unsupported file", slog.String("Path", source))
			continue
		}

		library, err := compiler.CompileLibraryFile(source)
		if err != nil {
			return err
		}

		target := strings.TrimSuffix(source, ".wgsl") + ".spv"
		err = os.WriteFile(target, library.Bytecode, 0o644)
		if err != nil {
			return errors.Wrapf(err, "failed to write %s", target)
		}

		logger.Info("compiled shader",
			slog.String("Path", target),
			slog.Int("Size", len(library.Bytecode)),
			slog.Any("Exports", library.Exports))
	}

	return nil
}
