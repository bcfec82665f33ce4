// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package unit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/matt-FFFFFF/dsh/internal/redirect"
	"github.com/matt-FFFFFF/dsh/internal/session"
)

// ErrStarted is returned when a unit is modified or started after Start.
var ErrStarted = errors.New("unit already started")

// Kind tags the variant behind a Unit.
type Kind int

const (
	// KindProcess is an operating system process.
	KindProcess Kind = iota
	// KindBuiltin runs inside the shell process.
	KindBuiltin
)

func (k Kind) String() string {
	switch k {
	case KindProcess:
		return "process"
	case KindBuiltin:
		return "builtin"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Target says where a stream without a redirect is connected.
type Target int

const (
	// TargetPipe exposes the stream through the Stdin, Stdout or Stderr accessor.
	TargetPipe Target = iota
	// TargetInherit connects the stream to the session console.
	TargetInherit
	// TargetDiscard connects the stream to the null device.
	TargetDiscard
)

func (t Target) String() string {
	switch t {
	case TargetPipe:
		return "pipe"
	case TargetInherit:
		return "inherit"
	case TargetDiscard:
		return "discard"
	default:
		return fmt.Sprintf("target(%d)", int(t))
	}
}

// Unit is one step of a pipeline.
type Unit interface {
	// Name is the resolved command identifier, an absolute path or a builtin name.
	Name() string
	Kind() Kind
	// Args returns a copy of the argument list. Args()[0] is Name().
	Args() []string
	String() string

	AddArgument(arg string) error
	ApplyRedirect(d redirect.Directive) error
	// SetTargets chooses where streams without a redirect go. The default is
	// TargetPipe for all three.
	SetTargets(stdin, stdout, stderr Target) error

	// Start launches the unit. It must be called at most once.
	Start(ctx context.Context) error

	// Stream accessors hand out each stream once. Later calls, and calls for a
	// stream that is not piped, return a reader at end of stream or a writer that
	// discards.
	Stdin() io.WriteCloser
	Stdout() io.ReadCloser
	Stderr() io.ReadCloser

	// Done is closed once the unit has terminated.
	Done() <-chan struct{}
	WaitTermination() int
	CheckTermination() bool
	// ExitStatus is valid after termination and -1 before.
	ExitStatus() int
	Kill()
	Killed() bool

	WasTraced() bool
	TraceLog() string
}

type base struct {
	name       string
	session    *session.Session
	started    atomic.Bool
	mu         sync.Mutex
	args       []string
	directives []redirect.Directive
	targets    [3]Target

	stdin      io.WriteCloser
	stdout     io.ReadCloser
	stderr     io.ReadCloser
	stdinUsed  atomic.Bool
	stdoutUsed atomic.Bool
	stderrUsed atomic.Bool

	done   chan struct{}
	once   sync.Once
	status int
	killed atomic.Bool
}

func newBase(name string, s *session.Session, args []string) base {
	return base{
		name:    name,
		session: s,
		args:    append([]string{name}, args...),
		done:    make(chan struct{}),
		status:  -1,
	}
}

func (b *base) Name() string { return b.name }

func (b *base) Args() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.args)
}

func (b *base) String() string {
	args := b.Args()

	b.mu.Lock()
	for _, d := range b.directives {
		args = append(args, d.String())
	}
	b.mu.Unlock()

	return strings.Join(args, " ")
}

func (b *base) AddArgument(arg string) error {
	if b.started.Load() {
		return ErrStarted
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.args = append(b.args, arg)

	return nil
}

func (b *base) ApplyRedirect(d redirect.Directive) error {
	if b.started.Load() {
		return ErrStarted
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.directives = append(b.directives, d)

	return nil
}

func (b *base) SetTargets(stdin, stdout, stderr Target) error {
	if b.started.Load() {
		return ErrStarted
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.targets = [3]Target{stdin, stdout, stderr}

	return nil
}

// begin marks the unit started and snapshots its configuration.
func (b *base) begin() ([]string, redirect.Plan, [3]Target, error) {
	if !b.started.CompareAndSwap(false, true) {
		return nil, redirect.Plan{}, [3]Target{}, ErrStarted
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.args), redirect.Resolve(b.directives), b.targets, nil
}

func (b *base) Stdin() io.WriteCloser {
	if b.stdin != nil && b.stdinUsed.CompareAndSwap(false, true) {
		return b.stdin
	}

	return discardCloser{}
}

func (b *base) Stdout() io.ReadCloser {
	if b.stdout != nil && b.stdoutUsed.CompareAndSwap(false, true) {
		return b.stdout
	}

	return eofReader{}
}

func (b *base) Stderr() io.ReadCloser {
	if b.stderr != nil && b.stderrUsed.CompareAndSwap(false, true) {
		return b.stderr
	}

	return eofReader{}
}

func (b *base) Done() <-chan struct{} { return b.done }

func (b *base) WaitTermination() int {
	<-b.done

	return b.status
}

func (b *base) CheckTermination() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

func (b *base) ExitStatus() int {
	if !b.CheckTermination() {
		return -1
	}

	return b.status
}

func (b *base) Killed() bool { return b.killed.Load() }

// finish records the exit status and releases waiters. Only the first call counts.
func (b *base) finish(status int) {
	b.once.Do(func() {
		b.status = status
		close(b.done)
	})
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
func (eofReader) Close() error             { return nil }

type discardCloser struct{}

func (discardCloser) Write(p []byte) (int, error) { return len(p), nil }
func (discardCloser) Close() error                { return nil }
