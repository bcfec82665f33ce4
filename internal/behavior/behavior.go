// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package behavior describes what a pipeline invocation has to return and how it
// behaves while running: capture, throw on failure, run in the background, time out.
// A Behavior is built once per invocation and never changes after the pipeline starts.
package behavior

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrInvalidTimeout is returned when the Timeout flag is set with a non-positive duration.
var ErrInvalidTimeout = errors.New("timeout must be positive when the timeout flag is set")

// ReturnShape is the value the call site expects back.
type ReturnShape int

const (
	// ShapeVoid returns nothing.
	ShapeVoid ReturnShape = iota
	// ShapeInteger returns the exit status of the last unit.
	ShapeInteger
	// ShapeHandle returns a live handle to the pipeline.
	ShapeHandle
)

func (s ReturnShape) String() string {
	switch s {
	case ShapeVoid:
		return "void"
	case ShapeInteger:
		return "integer"
	case ShapeHandle:
		return "handle"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// Flag is a set of behaviour flags.
type Flag uint8

const (
	// Returnable means the invocation produces a value for the caller.
	Returnable Flag = 1 << iota
	// Printable echoes standard output to the console.
	Printable
	// Throwable turns failures into errors returned to the caller.
	Throwable
	// Background returns to the caller as soon as all units are started.
	Background
	// Timeout kills the pipeline once the configured duration has elapsed.
	Timeout
)

var flagNames = []struct {
	f    Flag
	name string
}{
	{Returnable, "returnable"},
	{Printable, "printable"},
	{Throwable, "throwable"},
	{Background, "background"},
	{Timeout, "timeout"},
}

// Has reports whether every flag in other is set.
func (f Flag) Has(other Flag) bool {
	return f&other == other
}

func (f Flag) String() string {
	var names []string

	for _, fn := range flagNames {
		if f.Has(fn.f) {
			names = append(names, fn.name)
		}
	}

	if len(names) == 0 {
		return "none"
	}

	return strings.Join(names, "|")
}

// Behavior is the execution descriptor of one pipeline invocation.
type Behavior struct {
	shape   ReturnShape
	flags   Flag
	timeout time.Duration
	capture io.Writer
}

// Option configures a Behavior.
type Option func(b *Behavior)

// WithTimeout sets the Timeout flag and its duration.
func WithTimeout(d time.Duration) Option {
	return func(b *Behavior) {
		b.flags |= Timeout
		b.timeout = d
	}
}

// WithCapture sets the buffer that receives the captured standard output.
func WithCapture(w io.Writer) Option {
	return func(b *Behavior) {
		b.capture = w
	}
}

// WithFlags adds flags.
func WithFlags(f Flag) Option {
	return func(b *Behavior) {
		b.flags |= f
	}
}

// New builds a Behavior and validates it.
func New(shape ReturnShape, flags Flag, opts ...Option) (Behavior, error) {
	b := Behavior{
		shape: shape,
		flags: flags,
	}

	for _, opt := range opts {
		opt(&b)
	}

	if b.flags.Has(Timeout) && b.timeout <= 0 {
		return Behavior{}, fmt.Errorf("%w: %s", ErrInvalidTimeout, b.timeout)
	}

	if !b.flags.Has(Timeout) {
		b.timeout = 0
	}

	return b, nil
}

// Shape returns the expected return shape.
func (b Behavior) Shape() ReturnShape { return b.shape }

// Flags returns the flag set.
func (b Behavior) Flags() Flag { return b.flags }

// Timeout returns the timeout duration, zero unless IsTimed.
func (b Behavior) Timeout() time.Duration { return b.timeout }

// Capture returns the capture buffer, or nil.
func (b Behavior) Capture() io.Writer { return b.capture }

// Has reports whether the flags are set.
func (b Behavior) Has(f Flag) bool { return b.flags.Has(f) }

// NeedsStdoutPump reports whether the last unit's stdout must be pumped.
func (b Behavior) NeedsStdoutPump() bool {
	return b.Has(Returnable) && (b.shape == ShapeHandle || b.capture != nil)
}

// NeedsStderrPump reports whether unit stderr must be captured.
func (b Behavior) NeedsStderrPump() bool {
	return b.Has(Throwable) || b.shape == ShapeHandle
}

// IsBackground reports whether the pipeline returns before its units finish.
func (b Behavior) IsBackground() bool {
	return b.Has(Background)
}

// IsTimed reports whether the pipeline is killed after Timeout.
func (b Behavior) IsTimed() bool {
	return b.Has(Timeout)
}

func (b Behavior) String() string {
	s := fmt.Sprintf("shape=%s flags=%s", b.shape, b.flags)
	if b.IsTimed() {
		s += " timeout=" + b.timeout.String()
	}

	return s
}
