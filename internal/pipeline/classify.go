// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/matt-FFFFFF/dsh/internal/behavior"
	"github.com/matt-FFFFFF/dsh/internal/ctxlog"
	"github.com/matt-FFFFFF/dsh/internal/session"
	"github.com/matt-FFFFFF/dsh/internal/shellerr"
	"github.com/matt-FFFFFF/dsh/internal/streampump"
	"github.com/matt-FFFFFF/dsh/internal/trace"
	"github.com/matt-FFFFFF/dsh/internal/unit"
)

// classify returns the per-unit outcomes of the terminated units and the task error
// built from them. Trace logs are removed whatever the outcome.
//
// Aggregation: no failed unit gives nil, exactly one gives that unit's error, more
// than one gives a *shellerr.MultipleError with a nil slot for every unit that
// succeeded.
func classify(
	ctx context.Context,
	s *session.Session,
	b behavior.Behavior,
	units []unit.Unit,
	stderr *streampump.FanIn,
	timedOut bool,
) ([]error, error) {
	defer removeTraceLogs(ctx, s, units)

	if !b.Has(behavior.Throwable) || timedOut {
		return nil, nil
	}

	outcomes := make([]error, len(units))

	var (
		failed int
		last   error
	)

	for i, u := range units {
		var perUnit string
		if stderr != nil {
			perUnit = stderr.Source(i).String()
		}

		if u.WasTraced() {
			outcomes[i] = classifyTraced(ctx, s, u, perUnit)
		} else {
			outcomes[i] = classifyStatus(u, perUnit)
		}

		if outcomes[i] != nil {
			failed++
			last = outcomes[i]

			ctxlog.Debug(ctx, "unit failed", "unit", u.Name(), "exitStatus", u.ExitStatus(), "error", outcomes[i])
		}
	}

	switch failed {
	case 0:
		return outcomes, nil
	case 1:
		return outcomes, last
	default:
		return outcomes, &shellerr.MultipleError{Outcomes: outcomes}
	}
}

func classifyStatus(u unit.Unit, stderr string) error {
	status := u.ExitStatus()
	if status == 0 {
		return nil
	}

	return &shellerr.CommandError{
		Command:    u.Name(),
		ExitStatus: status,
		Stderr:     stderr,
	}
}

// classifyTraced infers the failing system call from the unit's trace log. The trace
// takes precedence over the exit status: a log that ends in a normal exit without a
// relevant failed call means no error. Unreadable or inconclusive logs fall back to
// the exit status.
func classifyTraced(ctx context.Context, s *session.Session, u unit.Unit, stderr string) error {
	log, err := readTraceLog(s, u.TraceLog())
	if err != nil {
		ctxlog.Warn(ctx, "trace log unusable, classifying by exit status", "unit", u.Name(), "error", err)
		return classifyStatus(u, stderr)
	}

	call, ok := log.FailingCall()
	if !ok {
		if !log.Conclusive() {
			ctxlog.Debug(ctx, "trace log inconclusive, classifying by exit status", "unit", u.Name(), "signal", log.Signal)
			return classifyStatus(u, stderr)
		}

		return nil
	}

	return shellerr.NewSystemCallError(u.Name(), call.Name, call.Args, call.Errno)
}

func readTraceLog(s *session.Session, path string) (*trace.Log, error) {
	f, err := s.Fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace log: %w", err)
	}

	defer f.Close() //nolint:errcheck

	return trace.Parse(f) //nolint:wrapcheck
}

func removeTraceLogs(ctx context.Context, s *session.Session, units []unit.Unit) {
	for _, u := range units {
		if !u.WasTraced() {
			continue
		}

		if err := s.Fs.Remove(u.TraceLog()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			ctxlog.Warn(ctx, "could not remove trace log", "path", u.TraceLog(), "error", err)
		}
	}
}

func (t *Task) removeTraceLogs(ctx context.Context) {
	removeTraceLogs(ctx, t.session, t.units)
}
