// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the dsh command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/matt-FFFFFF/dsh"
	"github.com/matt-FFFFFF/dsh/cmd/dsh/builtins"
	"github.com/matt-FFFFFF/dsh/cmd/dsh/cmdstate"
	"github.com/matt-FFFFFF/dsh/cmd/dsh/run"
	"github.com/matt-FFFFFF/dsh/internal/color"
	"github.com/matt-FFFFFF/dsh/internal/config"
	"github.com/matt-FFFFFF/dsh/internal/ctxlog"
	"github.com/matt-FFFFFF/dsh/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

const (
	configFlag  = "config"
	noColorFlag = "no-color"
	// interruptedStatus is the shell status of a process stopped by SIGINT.
	interruptedStatus = 128 + int(syscall.SIGINT)
)

// rootCmd is the root command for the CLI.
var rootCmd = &cli.Command{
	Commands: []*cli.Command{
		run.RunCmd,
		builtins.BuiltinsCmd,
		versionCmd,
	},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:      configFlag,
			Usage:     "Load settings from this YAML file",
			TakesFile: true,
			Sources:   cli.EnvVars("DSH_CONFIG"),
		},
		&cli.BoolFlag{
			Name:  noColorFlag,
			Usage: "Disable coloured output",
		},
	},
	Before:    before,
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "dsh",
	Description: `dsh runs shell pipelines of external programs and builtins.
It connects their streams, waits for them, and turns failures into errors that name
the command and, when tracing is enabled, the system call that failed.`,
	Usage:     "dsh run 'ls -l | sort'",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
}

var versionCmd = &cli.Command{
	Name:  "version",
	Usage: "Print the version and commit",
	Action: func(_ context.Context, cmd *cli.Command) error {
		_, err := fmt.Fprintf(cmd.Root().Writer, "dsh %s (commit: %s)\n", dsh.Version, dsh.Commit)
		return err //nolint:wrapcheck
	},
}

// before loads the configuration file and applies its logging settings.
func before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool(noColorFlag) {
		color.SetEnabled(false)
	}

	cfg, err := config.Load(cmd.String(configFlag))
	if err != nil {
		return ctx, cli.Exit(err.Error(), 1)
	}

	if cfg.LogLevelSet && os.Getenv(ctxlog.LevelEnvVar) == "" {
		ctxlog.LevelVar.Set(cfg.LogLevel)
	}

	if cfg.LogFormat != "pretty" {
		logger, err := ctxlog.NewLogger(cfg.LogFormat, cmd.Root().ErrWriter)
		if err != nil {
			return ctx, cli.Exit(err.Error(), 1)
		}

		ctx = ctxlog.New(ctx, logger)
	}

	return cmdstate.WithConfig(ctx, cfg), nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel()

	sigCh := signalbroker.New(ctx)
	defer signalbroker.Stop(sigCh)

	go signalbroker.Watch(ctx, sigCh, cancel, func(sig os.Signal) {
		ctxlog.Logger(ctx).Error("forced exit", "signal", sig.String())
		os.Exit(interruptedStatus)
	})

	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", dsh.Version, dsh.Commit)

	err := rootCmd.Run(ctx, os.Args) // Exit codes are handled by the cli framework

	if ctx.Err() != nil {
		ctxlog.Logger(ctx).Info("command terminated due to cancellation", "error", ctx.Err())
		os.Exit(interruptedStatus)
	}

	if err != nil {
		ctxlog.Logger(ctx).Error("command execution failed", "error", err)
		os.Exit(1)
	}

	ctxlog.Logger(ctx).Info("command completed successfully")
}
