// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/dsh/internal/behavior"
	"github.com/matt-FFFFFF/dsh/internal/capture"
	"github.com/matt-FFFFFF/dsh/internal/ctxlog"
	"github.com/matt-FFFFFF/dsh/internal/metrics"
	"github.com/matt-FFFFFF/dsh/internal/session"
	"github.com/matt-FFFFFF/dsh/internal/streampump"
	"github.com/matt-FFFFFF/dsh/internal/unit"
)

var (
	// ErrEmpty is returned when a task is built without units.
	ErrEmpty = errors.New("pipeline has no units")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("pipeline already started")
	// ErrNotStarted is returned by Join on a task that was never started.
	ErrNotStarted = errors.New("pipeline not started")
	// ErrInterrupted is returned by Join when the context was cancelled while waiting.
	// The units are killed; deciding whether to abort the host is up to the caller.
	ErrInterrupted = errors.New("pipeline interrupted")
	// ErrUnknownBuiltin is returned when a builtin name is not registered.
	ErrUnknownBuiltin = errors.New("unknown builtin")
)

// State is the lifecycle position of a Task.
type State int32

const (
	// StateUnstarted is a task that has not been started.
	StateUnstarted State = iota
	// StateRunning is a started task that has not been joined.
	StateRunning
	// StateTerminated is a joined task. Its results no longer change.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Task is one pipeline invocation.
type Task struct {
	units    []unit.Unit
	behavior behavior.Behavior
	session  *session.Session
	metrics  *metrics.Metrics

	state     atomic.Int32
	startedAt time.Time

	links      []*streampump.Pump
	stdoutPump *streampump.Pump
	stdout     *capture.Buffer
	stderr     *streampump.FanIn

	watchDone   chan struct{}
	timedOut    atomic.Bool
	interrupted atomic.Bool

	joinOnce sync.Once
	result   result
}

type result struct {
	output       string
	errorMessage string
	statuses     []int
	err          error
}

// TaskOption configures a Task.
type TaskOption func(t *Task)

// WithMetrics records task activity on m.
func WithMetrics(m *metrics.Metrics) TaskOption {
	return func(t *Task) {
		t.metrics = m
	}
}

// NewTask builds a task over units and decides where each unit's streams go.
func NewTask(s *session.Session, b behavior.Behavior, units []unit.Unit, opts ...TaskOption) (*Task, error) {
	if len(units) == 0 {
		return nil, ErrEmpty
	}

	t := &Task{
		units:     units,
		behavior:  b,
		session:   s,
		stdout:    capture.New(),
		watchDone: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(t)
	}

	last := len(units) - 1

	for i, u := range units {
		stdin := unit.TargetPipe
		if i == 0 {
			stdin = unit.TargetInherit
		}

		stdout := unit.TargetPipe

		if i == last && !b.NeedsStdoutPump() {
			stdout = unit.TargetDiscard
			if b.Has(behavior.Printable) {
				stdout = unit.TargetInherit
			}
		}

		stderr := unit.TargetInherit
		if b.NeedsStderrPump() {
			stderr = unit.TargetPipe
		}

		if err := u.SetTargets(stdin, stdout, stderr); err != nil {
			return nil, fmt.Errorf("%s: %w", u.Name(), err)
		}
	}

	return t, nil
}

// Units returns the task's units in pipeline order.
func (t *Task) Units() []unit.Unit { return t.units }

// Behavior returns the behaviour the task runs with.
func (t *Task) Behavior() behavior.Behavior { return t.behavior }

// State returns the lifecycle state.
func (t *Task) State() State { return State(t.state.Load()) }

// Description renders the pipeline as "cmd args | cmd args".
func (t *Task) Description() string {
	parts := make([]string, len(t.units))
	for i, u := range t.units {
		parts[i] = u.String()
	}

	return strings.Join(parts, " | ")
}

// Start launches every unit and the pumps between them. In the foreground it then
// waits for termination or timeout; in the background it returns at once and a
// watcher goroutine does the waiting.
//
// If a unit cannot be started the units already running are killed and the start
// errors are returned. Join then returns the same error.
func (t *Task) Start(ctx context.Context) error {
	if !t.state.CompareAndSwap(int32(StateUnstarted), int32(StateRunning)) {
		return ErrAlreadyStarted
	}

	logger := ctxlog.Logger(ctx).With("pipeline", t.Description())
	logger.Debug("starting pipeline", "behavior", t.behavior.String())

	t.startedAt = time.Now()
	t.metrics.PipelineStarted(t.behavior.Shape().String())

	var startErrs *multierror.Error

	for _, u := range t.units {
		if err := u.Start(ctx); err != nil {
			logger.Debug("unit failed to start", "unit", u.Name(), "error", err)
			t.metrics.StartFailed()
			startErrs = multierror.Append(startErrs, err)

			continue
		}

		t.metrics.UnitStarted(u.Kind().String())
	}

	if err := startErrs.ErrorOrNil(); err != nil {
		if len(startErrs.Errors) == 1 {
			err = startErrs.Errors[0]
		}

		t.abandon(ctx, err)

		return err
	}

	if err := t.connect(); err != nil {
		t.abandon(ctx, err)

		return err
	}

	if t.behavior.IsBackground() {
		go t.watch(ctx)

		logger.Debug("pipeline running in background")

		return nil
	}

	t.watch(ctx)

	return nil
}

// connect starts the pumps between units, the stdout capture and the stderr fan-in.
func (t *Task) connect() error {
	last := len(t.units) - 1

	for i := range last {
		p := streampump.New(t.units[i].Stdout(),
			streampump.WithSink(t.units[i+1].Stdin(), true),
			streampump.WithCloseSource(),
		)
		t.links = append(t.links, p)

		if err := p.Start(); err != nil {
			return err //nolint:wrapcheck
		}
	}

	if t.behavior.NeedsStdoutPump() {
		opts := []streampump.Option{
			streampump.WithSink(t.stdout, false),
			streampump.WithCloseSource(),
		}

		if w := t.behavior.Capture(); w != nil {
			opts = append(opts, streampump.WithSink(w, false))
		} else if t.behavior.Has(behavior.Printable) {
			opts = append(opts, streampump.WithSink(t.session.Stdout, false))
		}

		t.stdoutPump = streampump.New(t.units[last].Stdout(), opts...)
		if err := t.stdoutPump.Start(); err != nil {
			return err //nolint:wrapcheck
		}
	}

	if t.behavior.NeedsStderrPump() {
		t.stderr = streampump.NewFanIn(len(t.units), t.session.Stderr)

		for i, u := range t.units {
			if err := t.stderr.Attach(i, u.Stderr()); err != nil {
				return err //nolint:wrapcheck
			}
		}
	}

	return nil
}

// abandon cleans up after a failed start and stores err as the task's result.
func (t *Task) abandon(ctx context.Context, err error) {
	t.killAll()

	for _, u := range t.units {
		_ = u.Stdin().Close()
		_ = u.Stdout().Close()
		_ = u.Stderr().Close()
	}

	t.abortPumps()

	for _, u := range t.units {
		u.WaitTermination()
	}

	close(t.watchDone)

	t.joinOnce.Do(func() {
		t.result = result{err: err, statuses: t.statuses()}
		t.removeTraceLogs(ctx)
		t.metrics.PipelineFinished(t.behavior.Shape().String(), "error", time.Since(t.startedAt))
		t.state.Store(int32(StateTerminated))
	})
}

// watch blocks until every unit terminated, the timeout expired or ctx is done.
func (t *Task) watch(ctx context.Context) {
	defer close(t.watchDone)

	var timeout <-chan time.Time

	if t.behavior.IsTimed() {
		timer := time.NewTimer(t.behavior.Timeout())
		defer timer.Stop()

		timeout = timer.C
	}

	for _, u := range t.units {
		select {
		case <-u.Done():
		case <-timeout:
			t.onTimeout(ctx)
			return
		case <-ctx.Done():
			ctxlog.Warn(ctx, "pipeline interrupted, killing units", "pipeline", t.Description(), "error", ctx.Err())
			t.interrupted.Store(true)
			t.killAll()
			t.abortPumps()

			return
		}
	}
}

func (t *Task) onTimeout(ctx context.Context) {
	t.timedOut.Store(true)
	t.killAll()
	t.abortPumps()
	t.metrics.TimedOut()

	desc := t.Description()
	fmt.Fprintf(t.session.Stderr, "Timeout Task: %s\n", desc) //nolint:errcheck
	ctxlog.Warn(ctx, "pipeline timed out", "pipeline", desc, "timeout", t.behavior.Timeout())
}

// Kill terminates every unit of the task.
func (t *Task) Kill() {
	t.killAll()
}

func (t *Task) killAll() {
	for _, u := range t.units {
		u.Kill()
	}
}

func (t *Task) abortPumps() {
	for _, p := range t.links {
		p.Abort()
	}

	if t.stdoutPump != nil {
		t.stdoutPump.Abort()
	}

	if t.stderr != nil {
		t.stderr.Abort()
	}
}

// Running reports whether the task was started and some unit is still running.
func (t *Task) Running() bool {
	if t.State() == StateUnstarted {
		return false
	}

	for _, u := range t.units {
		if !u.CheckTermination() {
			return true
		}
	}

	return false
}

// TimedOut reports whether the timeout expired. It is stable once Join returned.
func (t *Task) TimedOut() bool { return t.timedOut.Load() }

// Join waits for the task and classifies its outcome. Only the first call does any
// work. The error is the classified failure when the behaviour is Throwable,
// ErrInterrupted after cancellation, or the start error.
func (t *Task) Join(ctx context.Context) error {
	if t.State() == StateUnstarted {
		return ErrNotStarted
	}

	t.joinOnce.Do(func() { t.join(ctx) })

	return t.result.err
}

func (t *Task) join(ctx context.Context) {
	logger := ctxlog.Logger(ctx).With("pipeline", t.Description())

	<-t.watchDone

	for _, u := range t.units {
		u.WaitTermination()
	}

	for i, p := range t.links {
		if err := p.Join(); err != nil {
			logger.Debug("pipe between units ended early", "from", t.units[i].Name(), "error", err)
		}
	}

	if t.stdoutPump != nil {
		if err := t.stdoutPump.Join(); err != nil {
			logger.Debug("stdout capture ended early", "error", err)
		}
	}

	if t.stderr != nil {
		if err := t.stderr.Join(); err != nil {
			logger.Debug("stderr capture ended early", "error", err)
		}
	}

	res := result{
		output:   t.stdout.String(),
		statuses: t.statuses(),
	}

	if t.stderr != nil {
		res.errorMessage = t.stderr.Combined()
	}

	outcome := "ok"

	switch {
	case t.interrupted.Load():
		res.err = ErrInterrupted
		outcome = "interrupted"

		t.removeTraceLogs(ctx)
	default:
		var outcomes []error

		outcomes, res.err = classify(ctx, t.session, t.behavior, t.units, t.stderr, t.TimedOut())
		if res.err != nil {
			outcome = "error"
		}

		t.countFailures(outcomes)

		if t.TimedOut() {
			outcome = "timeout"
		}
	}

	logger.Debug("pipeline joined", "exitStatuses", res.statuses, "timedOut", t.TimedOut(), "error", res.err)

	t.result = res
	t.metrics.PipelineFinished(t.behavior.Shape().String(), outcome, time.Since(t.startedAt))
	t.state.Store(int32(StateTerminated))
}

func (t *Task) countFailures(outcomes []error) {
	for i, e := range outcomes {
		if e != nil {
			t.metrics.UnitFailed(t.units[i].Kind().String())
		}
	}
}

func (t *Task) statuses() []int {
	s := make([]int, len(t.units))
	for i, u := range t.units {
		s[i] = u.ExitStatus()
	}

	return s
}

// Output returns the captured standard output of the last unit.
func (t *Task) Output(ctx context.Context) (string, error) {
	err := t.Join(ctx)

	return t.result.output, err
}

// ErrorMessage returns the combined standard error of every unit.
func (t *Task) ErrorMessage(ctx context.Context) (string, error) {
	err := t.Join(ctx)

	return t.result.errorMessage, err
}

// ExitStatus returns the exit status of the last unit.
func (t *Task) ExitStatus(ctx context.Context) (int, error) {
	err := t.Join(ctx)
	if len(t.result.statuses) == 0 {
		return -1, err
	}

	return t.result.statuses[len(t.result.statuses)-1], err
}

// ExitStatuses returns every unit's exit status in pipeline order.
func (t *Task) ExitStatuses(ctx context.Context) ([]int, error) {
	err := t.Join(ctx)

	return append([]int(nil), t.result.statuses...), err
}
