package main

import (
	"os"

	"github.com/urfave/cli"
	"golang.org/x/exp/slog"
)

func setupLogging(ctx *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if ctx.GlobalBool("v") {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
