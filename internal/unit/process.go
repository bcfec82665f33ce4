// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package unit

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/matt-FFFFFF/dsh/internal/ctxlog"
	"github.com/matt-FFFFFF/dsh/internal/redirect"
	"github.com/matt-FFFFFF/dsh/internal/session"
	"github.com/matt-FFFFFF/dsh/internal/shellerr"
	"github.com/matt-FFFFFF/dsh/internal/trace"
)

var _ Unit = (*ProcessUnit)(nil)

// ProcessUnit runs an executable as a child process.
type ProcessUnit struct {
	base

	proc     atomic.Pointer[os.Process]
	logger   *slog.Logger
	traceLog string
}

// NewProcess creates a unit for the executable at path with the given arguments.
func NewProcess(path string, s *session.Session, args ...string) *ProcessUnit {
	return &ProcessUnit{base: newBase(path, s, args)}
}

// Kind implements Unit.
func (p *ProcessUnit) Kind() Kind { return KindProcess }

// WasTraced reports whether the process ran under the system call tracer.
func (p *ProcessUnit) WasTraced() bool { return p.traceLog != "" }

// TraceLog returns the tracer log path, empty when not traced.
func (p *ProcessUnit) TraceLog() string { return p.traceLog }

// Pid returns the process id, or 0 before a successful start.
func (p *ProcessUnit) Pid() int {
	if ps := p.proc.Load(); ps != nil {
		return ps.Pid
	}

	return 0
}

// Start forks the process. Failures are returned as *shellerr.StartError.
func (p *ProcessUnit) Start(ctx context.Context) error {
	args, plan, targets, err := p.begin()
	if err != nil {
		return err
	}

	logger := ctxlog.Logger(ctx).With("unit", p.name)

	w := &fileWiring{cwd: p.session.Cwd()}

	files, err := w.wire(p.session, plan, targets)
	if err != nil {
		w.abandon()
		p.finish(-1)

		return &shellerr.StartError{Command: p.name, Err: err}
	}

	path, argv := p.name, args
	if p.session.TraceEnabled() {
		p.traceLog = p.session.NewTraceLogPath()
		path = p.session.Trace.Program
		argv = trace.Wrap(path, p.traceLog, args)
	}

	logger.Debug("starting process", "argv", argv, "cwd", w.cwd, "traced", p.traceLog != "")

	ps, err := os.StartProcess(path, argv, &os.ProcAttr{
		Dir:   w.cwd,
		Env:   p.session.Environ(),
		Files: files,
	})

	w.closeChildEnds()

	if err != nil {
		w.closeParentEnds()
		p.traceLog = ""
		p.finish(-1)

		return &shellerr.StartError{Command: p.name, Err: err}
	}

	w.exportTo(&p.base)
	p.logger = logger
	p.proc.Store(ps)

	logger.Debug("process started", "pid", ps.Pid)

	go p.reap(ctx, ps)

	return nil
}

func (p *ProcessUnit) reap(ctx context.Context, ps *os.Process) {
	state, err := ps.Wait()
	if err != nil {
		ctxlog.Error(ctx, "process wait failed", "unit", p.name, "pid", ps.Pid, "error", err)
		p.finish(-1)

		return
	}

	status, signaled := exitStatus(state)
	if signaled {
		p.killed.Store(true)
	}

	ctxlog.Debug(ctx, "process finished", "unit", p.name, "pid", ps.Pid, "exitStatus", status, "signaled", signaled)
	p.finish(status)
}

// Kill forcibly terminates the process. It does nothing once the process has exited.
func (p *ProcessUnit) Kill() {
	ps := p.proc.Load()
	if ps == nil || p.CheckTermination() {
		return
	}

	if err := ps.Kill(); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return
		}

		p.logger.Error("process kill error", "pid", ps.Pid, "error", err)

		return
	}

	p.killed.Store(true)
	p.logger.Info("process killed", "pid", ps.Pid)
}

// fileWiring builds the child's stdio from a redirect plan and stream targets.
type fileWiring struct {
	cwd        string
	childEnds  []*os.File
	parentEnds []*os.File

	parentStdin  *os.File
	parentStdout *os.File
	parentStderr *os.File
}

func (w *fileWiring) wire(s *session.Session, plan redirect.Plan, targets [3]Target) ([]*os.File, error) {
	files := make([]*os.File, 3)

	var err error

	switch {
	case plan.Stdin != nil:
		files[0], err = w.open(*plan.Stdin)
	default:
		files[0], w.parentStdin, err = w.target(targets[0], s.Stdin, true)
	}

	if err != nil {
		return nil, err
	}

	switch {
	case plan.Stdout != nil:
		files[1], err = w.open(*plan.Stdout)
	default:
		files[1], w.parentStdout, err = w.target(targets[1], s.Stdout, false)
	}

	if err != nil {
		return nil, err
	}

	switch {
	case plan.StderrToStdout:
		files[2] = files[1]
	case plan.Stderr != nil:
		files[2], err = w.open(*plan.Stderr)
	default:
		files[2], w.parentStderr, err = w.target(targets[2], s.Stderr, false)
	}

	if err != nil {
		return nil, err
	}

	return files, nil
}

func (w *fileWiring) open(d redirect.Directive) (*os.File, error) {
	f, err := d.Open(w.cwd)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	w.childEnds = append(w.childEnds, f)

	return f, nil
}

// target returns the child end and, for pipes, the parent end of one stream.
func (w *fileWiring) target(t Target, console *os.File, input bool) (*os.File, *os.File, error) {
	switch t {
	case TargetInherit:
		return console, nil, nil
	case TargetDiscard:
		flag := os.O_WRONLY
		if input {
			flag = os.O_RDONLY
		}

		f, err := os.OpenFile(os.DevNull, flag, 0)
		if err != nil {
			return nil, nil, err //nolint:wrapcheck
		}

		w.childEnds = append(w.childEnds, f)

		return f, nil, nil
	default:
		r, wr, err := os.Pipe()
		if err != nil {
			return nil, nil, err //nolint:wrapcheck
		}

		child, parent := wr, r
		if input {
			child, parent = r, wr
		}

		w.childEnds = append(w.childEnds, child)
		w.parentEnds = append(w.parentEnds, parent)

		return child, parent, nil
	}
}

// exportTo publishes the parent pipe ends through the unit's stream accessors.
func (w *fileWiring) exportTo(b *base) {
	if w.parentStdin != nil {
		b.stdin = w.parentStdin
	}

	if w.parentStdout != nil {
		b.stdout = w.parentStdout
	}

	if w.parentStderr != nil {
		b.stderr = w.parentStderr
	}
}

func (w *fileWiring) closeChildEnds() {
	for _, f := range w.childEnds {
		_ = f.Close()
	}
}

func (w *fileWiring) closeParentEnds() {
	for _, f := range w.parentEnds {
		_ = f.Close()
	}
}

func (w *fileWiring) abandon() {
	w.closeChildEnds()
	w.closeParentEnds()
}
