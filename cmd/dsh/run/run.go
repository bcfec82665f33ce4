// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/matt-FFFFFF/dsh/cmd/dsh/cmdstate"
	"github.com/matt-FFFFFF/dsh/internal/behavior"
	"github.com/matt-FFFFFF/dsh/internal/color"
	"github.com/matt-FFFFFF/dsh/internal/config"
	"github.com/matt-FFFFFF/dsh/internal/ctxlog"
	"github.com/matt-FFFFFF/dsh/internal/metrics"
	"github.com/matt-FFFFFF/dsh/internal/pipeline"
	"github.com/matt-FFFFFF/dsh/internal/resolve"
	"github.com/matt-FFFFFF/dsh/internal/session"
	"github.com/matt-FFFFFF/dsh/internal/unit"
	"github.com/urfave/cli/v3"
)

const (
	timeoutFlag     = "timeout"
	backgroundFlag  = "background"
	captureFlag     = "capture"
	noThrowFlag     = "no-throw"
	traceFlag       = "trace"
	metricsFileFlag = "metrics-file"
	cliExitStr      = ""
	// failureStatus is used when a pipeline fails without a non-zero exit status of its own.
	failureStatus = 1
)

// ErrSession is returned when the shell session cannot be created.
var ErrSession = errors.New("failed to create session")

// RunCmd runs one pipeline.
var RunCmd = &cli.Command{
	Name:      "run",
	Usage:     "Run a pipeline",
	ArgsUsage: "'PIPELINE'",
	Description: `Run a pipeline such as 'ls -l | sort -k5 > sizes.txt'.
Quote the pipeline so that its options are not taken as flags of this command.
Pipes and redirect operators (<, >, >>, 2>, 2>>, 2>&1, &>, &>>) must be separate words.

The exit status of the last command becomes the exit status of dsh.
A failed command is reported on standard error unless --no-throw is given.`,
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:    timeoutFlag,
			Aliases: []string{"t"},
			Usage:   "Kill the pipeline after this duration. Overrides the configuration file.",
		},
		&cli.BoolFlag{
			Name:    backgroundFlag,
			Aliases: []string{"b"},
			Usage:   "Start the pipeline in the background and wait on its handle",
		},
		&cli.BoolFlag{
			Name:    captureFlag,
			Aliases: []string{"c"},
			Usage:   "Capture standard output as command substitution does, then print it",
		},
		&cli.BoolFlag{
			Name:  noThrowFlag,
			Usage: "Exit with the pipeline status without reporting failures",
		},
		&cli.BoolFlag{
			Name:  traceFlag,
			Usage: "Trace the system calls of external commands to explain failures",
		},
		&cli.StringFlag{
			Name:      metricsFileFlag,
			Usage:     "Write Prometheus metrics for the run to this file",
			TakesFile: true,
		},
	},
	Action: actionFunc,
}

// options is the parsed command line of the run command.
type options struct {
	line        string
	timeout     time.Duration
	background  bool
	capture     bool
	noThrow     bool
	metricsFile string
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	cfg := cmdstate.Config(ctx)

	opts := options{
		line:        strings.Join(cmd.Args().Slice(), " "),
		timeout:     cfg.Timeout,
		background:  cmd.Bool(backgroundFlag),
		capture:     cmd.Bool(captureFlag),
		noThrow:     cmd.Bool(noThrowFlag),
		metricsFile: cfg.MetricsFile,
	}

	if d := cmd.Duration(timeoutFlag); d > 0 {
		opts.timeout = d
	}

	if f := cmd.String(metricsFileFlag); f != "" {
		opts.metricsFile = f
	}

	tc := cfg.Trace
	if cmd.Bool(traceFlag) {
		tc.Enabled = true
		if tc.Program == "" {
			tc.Program = config.DefaultTraceProgram
		}
	}

	s, err := session.New(session.WithTrace(tc))
	if err != nil {
		logger.Error(fmt.Sprintf("%s: %s", ErrSession, err))
		return cli.Exit(cliExitStr, failureStatus)
	}

	var m *metrics.Metrics
	if opts.metricsFile != "" {
		m = metrics.New()
	}

	status, err := execute(ctx, s, m, opts, cmd.Root().Writer)

	if m != nil {
		if werr := m.WriteToTextfile(opts.metricsFile); werr != nil {
			logger.Warn(fmt.Sprintf("Failed to write metrics to %s: %s", opts.metricsFile, werr))
		}
	}

	if err != nil {
		report(cmd.Root().ErrWriter, err)

		if status <= 0 {
			status = failureStatus
		}
	}

	if status != 0 {
		return cli.Exit(cliExitStr, status)
	}

	return nil
}

// execute runs the pipeline described by o and returns the status dsh should exit
// with. Output captured with o.capture is written to out.
func execute(ctx context.Context, s *session.Session, m *metrics.Metrics, o options, out io.Writer) (int, error) {
	orch := pipeline.NewOrchestrator(s, pipeline.WithOrchestratorMetrics(m))

	units, err := build(ctx, orch, o.line)
	if err != nil {
		return failureStatus, err
	}

	var bopts []behavior.Option
	if o.timeout > 0 {
		bopts = append(bopts, behavior.WithTimeout(o.timeout))
	}

	switch {
	case o.capture:
		str, err := orch.String(ctx, units, bopts...)
		if str != "" {
			fmt.Fprintln(out, str) //nolint:errcheck
		}

		if err != nil {
			return failureStatus, err //nolint:wrapcheck
		}

		return 0, nil
	case o.noThrow:
		return orch.Status(ctx, units, bopts...) //nolint:wrapcheck
	}

	t, err := orch.Handle(ctx, o.background, units, bopts...)
	if err != nil {
		if t == nil {
			return failureStatus, err //nolint:wrapcheck
		}

		// Start failures are stored as the task's result.
		_ = t.Join(ctx)

		return failureStatus, err //nolint:wrapcheck
	}

	if o.background {
		ctxlog.Info(ctx, "run", "detail", "pipeline started in background", "pipeline", t.Description())
	}

	return t.ExitStatus(ctx) //nolint:wrapcheck
}

// build turns a command line into units. Names that cannot be resolved become
// processes that fail to start.
func build(ctx context.Context, orch *pipeline.Orchestrator, line string) ([]unit.Unit, error) {
	stages, err := parse(line)
	if err != nil {
		return nil, err
	}

	r := resolve.New(orch.Registry(), orch.Session())
	units := make([]unit.Unit, 0, len(stages))

	for _, st := range stages {
		res, err := r.Lookup(st.words[0], false)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		ctxlog.Debug(ctx, "run", "detail", "resolved command", "name", res.Name, "path", res.Path, "stage", st.String())

		u, err := orch.Command(res, st.words[1:]...)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		for _, d := range st.redirects {
			if err := u.ApplyRedirect(d); err != nil {
				return nil, err //nolint:wrapcheck
			}
		}

		units = append(units, u)
	}

	return units, nil
}

// report writes err to w as an uncaught shell error.
func report(w io.Writer, err error) {
	if w == nil {
		return
	}

	if errors.Is(err, pipeline.ErrInterrupted) {
		fmt.Fprintln(w, color.Colorize("dsh: interrupted", color.Bold, color.FgYellow)) //nolint:errcheck
		return
	}

	fmt.Fprintln(w, color.Colorize("dsh: "+err.Error(), color.Bold, color.FgRed)) //nolint:errcheck
}
