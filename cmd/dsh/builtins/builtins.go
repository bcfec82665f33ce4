// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package builtins implements the command that documents the shell builtins.
package builtins

import (
	"context"

	"github.com/matt-FFFFFF/dsh/internal/pipeline"
	"github.com/matt-FFFFFF/dsh/internal/session"
	"github.com/matt-FFFFFF/dsh/internal/unit"
	"github.com/urfave/cli/v3"
)

const shortFlag = "short"

// BuiltinsCmd lists the builtins, or describes the ones matching the given patterns.
var BuiltinsCmd = &cli.Command{
	Name:      "builtins",
	Usage:     "Describe the shell builtins",
	ArgsUsage: "[PATTERN...]",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    shortFlag,
			Aliases: []string{"s"},
			Usage:   "Only show the usage line of each matching builtin",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		s, err := session.New()
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		var args []string
		if cmd.Bool(shortFlag) {
			args = append(args, "-s")
		}

		args = append(args, cmd.Args().Slice()...)

		status, err := help(ctx, s, args...)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		if status != 0 {
			return cli.Exit("", status)
		}

		return nil
	},
}

// help runs the help builtin in s and returns its exit status.
func help(ctx context.Context, s *session.Session, args ...string) (int, error) {
	orch := pipeline.NewOrchestrator(s)

	u, err := orch.Builtin("help", args...)
	if err != nil {
		return -1, err //nolint:wrapcheck
	}

	return orch.Status(ctx, []unit.Unit{u}) //nolint:wrapcheck
}
