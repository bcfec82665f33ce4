// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package unit

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/matt-FFFFFF/dsh/internal/builtin"
	"github.com/matt-FFFFFF/dsh/internal/ctxlog"
	"github.com/matt-FFFFFF/dsh/internal/redirect"
	"github.com/matt-FFFFFF/dsh/internal/session"
	"github.com/matt-FFFFFF/dsh/internal/shellerr"
)

var _ Unit = (*BuiltinUnit)(nil)

// PanicError is written to the builtin's stderr when its function panics.
type PanicError struct {
	Builtin string
	Value   any
}

func (e *PanicError) Error() string {
	switch x := e.Value.(type) {
	case error:
		return fmt.Sprintf("%s: builtin panic: %s", e.Builtin, x.Error())
	default:
		return fmt.Sprintf("%s: builtin panic: %v", e.Builtin, x)
	}
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)

	return err
}

// BuiltinUnit runs a builtin on its own goroutine against in-process streams.
type BuiltinUnit struct {
	base

	builtin  *builtin.Builtin
	registry *builtin.Registry
}

// NewBuiltin creates a unit for b with the given arguments. The registry is handed to
// builtins such as help.
func NewBuiltin(b *builtin.Builtin, reg *builtin.Registry, s *session.Session, args ...string) *BuiltinUnit {
	return &BuiltinUnit{
		base:     newBase(b.Name, s, args),
		builtin:  b,
		registry: reg,
	}
}

// Kind implements Unit.
func (b *BuiltinUnit) Kind() Kind { return KindBuiltin }

// WasTraced is always false, builtins never fork.
func (b *BuiltinUnit) WasTraced() bool { return false }

// TraceLog is always empty.
func (b *BuiltinUnit) TraceLog() string { return "" }

// Kill does nothing. Builtins run to completion.
func (b *BuiltinUnit) Kill() {}

// Start launches the builtin goroutine.
func (b *BuiltinUnit) Start(ctx context.Context) error {
	args, plan, targets, err := b.begin()
	if err != nil {
		return err
	}

	w := &streamWiring{cwd: b.session.Cwd()}

	if err := w.wire(b.session, plan, targets); err != nil {
		w.closeAll()
		b.finish(-1)

		return &shellerr.StartError{Command: b.name, Err: err}
	}

	b.stdin, b.stdout, b.stderr = w.parentStdin, w.parentStdout, w.parentStderr

	c := &builtin.Context{
		Ctx:      ctx,
		Args:     args,
		Stdin:    w.stdin,
		Stdout:   w.stdout,
		Stderr:   w.stderr,
		Session:  b.session,
		Registry: b.registry,
	}

	ctxlog.Debug(ctx, "starting builtin", "unit", b.name, "args", args)

	go func() {
		status := b.invoke(c)

		w.closeAll()
		ctxlog.Debug(ctx, "builtin finished", "unit", b.name, "exitStatus", status)
		b.finish(status)
	}()

	return nil
}

func (b *BuiltinUnit) invoke(c *builtin.Context) (status int) {
	defer func() {
		if r := recover(); r != nil {
			err := &PanicError{Builtin: b.name, Value: r}
			ctxlog.Error(c.Ctx, "builtin panicked", "unit", b.name, "panic", r)
			fmt.Fprintln(c.Stderr, err.Error()) //nolint:errcheck

			status = 1
		}
	}()

	return b.builtin.Run(c)
}

// streamWiring is the in-process counterpart of fileWiring.
type streamWiring struct {
	cwd string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	parentStdin  io.WriteCloser
	parentStdout io.ReadCloser
	parentStderr io.ReadCloser

	stdinPipe *io.PipeReader
	closers   []io.Closer
}

func (w *streamWiring) wire(s *session.Session, plan redirect.Plan, targets [3]Target) error {
	switch {
	case plan.Stdin != nil:
		f, err := w.open(*plan.Stdin)
		if err != nil {
			return err
		}

		w.stdin = f
	case targets[0] == TargetInherit:
		w.stdin = s.Stdin
	case targets[0] == TargetDiscard:
		w.stdin = eofReader{}
	default:
		r, pw := io.Pipe()
		w.stdin, w.stdinPipe, w.parentStdin = r, r, pw
	}

	var err error

	if plan.Stdout != nil {
		w.stdout, err = w.open(*plan.Stdout)
		if err != nil {
			return err
		}
	} else {
		w.stdout, w.parentStdout = w.output(targets[1], s.Stdout)
	}

	switch {
	case plan.StderrToStdout:
		w.stderr = w.stdout
	case plan.Stderr != nil:
		w.stderr, err = w.open(*plan.Stderr)
		if err != nil {
			return err
		}
	default:
		w.stderr, w.parentStderr = w.output(targets[2], s.Stderr)
	}

	return nil
}

func (w *streamWiring) open(d redirect.Directive) (*os.File, error) {
	f, err := d.Open(w.cwd)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	w.closers = append(w.closers, f)

	return f, nil
}

func (w *streamWiring) output(t Target, console io.Writer) (io.Writer, io.ReadCloser) {
	switch t {
	case TargetInherit:
		return console, nil
	case TargetDiscard:
		return io.Discard, nil
	default:
		r, pw := io.Pipe()
		w.closers = append(w.closers, pw)

		return pw, r
	}
}

// closeAll closes the builtin's ends. An unread stdin pipe is closed with an error so
// a pump feeding it stops instead of blocking.
func (w *streamWiring) closeAll() {
	for _, c := range w.closers {
		_ = c.Close()
	}

	if w.stdinPipe != nil {
		_ = w.stdinPipe.CloseWithError(io.ErrClosedPipe)
	}
}
