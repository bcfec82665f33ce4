// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package redirect models the redirect directives that can be attached to a unit
// before it starts, and maps the shell's redirect tokens onto them.
package redirect

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrUnknownToken is returned when a token is not a redirect operator.
	ErrUnknownToken = errors.New("unknown redirect token")
	// ErrMissingTarget is returned when a mode that needs a file has none.
	ErrMissingTarget = errors.New("redirect target required")
)

// Mode is the kind of redirect.
type Mode int

const (
	// ReadFromFile feeds a file to standard input.
	ReadFromFile Mode = iota
	// WriteStdout truncates a file and writes standard output to it.
	WriteStdout
	// WriteStdoutAppend appends standard output to a file.
	WriteStdoutAppend
	// WriteStderr truncates a file and writes standard error to it.
	WriteStderr
	// WriteStderrAppend appends standard error to a file.
	WriteStderrAppend
	// MergeStderrIntoStdout sends standard error wherever standard output goes.
	MergeStderrIntoStdout
	// MergeThenWrite sends both streams to a truncated file.
	MergeThenWrite
	// MergeThenWriteAppend appends both streams to a file.
	MergeThenWriteAppend
)

var tokens = map[string]Mode{
	"<":    ReadFromFile,
	">":    WriteStdout,
	"1>":   WriteStdout,
	">>":   WriteStdoutAppend,
	"1>>":  WriteStdoutAppend,
	"2>":   WriteStderr,
	"2>>":  WriteStderrAppend,
	"2>&1": MergeStderrIntoStdout,
	">&":   MergeThenWrite,
	"&>":   MergeThenWrite,
	"&>>":  MergeThenWriteAppend,
}

// ParseToken maps a redirect operator to its Mode.
func ParseToken(tok string) (Mode, error) {
	m, ok := tokens[tok]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownToken, tok)
	}

	return m, nil
}

// IsToken reports whether tok is a redirect operator.
func IsToken(tok string) bool {
	_, ok := tokens[tok]
	return ok
}

// NeedsTarget reports whether the mode takes a file argument.
func (m Mode) NeedsTarget() bool {
	return m != MergeStderrIntoStdout
}

// Append reports whether the file is opened for appending.
func (m Mode) Append() bool {
	return m == WriteStdoutAppend || m == WriteStderrAppend || m == MergeThenWriteAppend
}

// AffectsStdout reports whether the mode replaces standard output.
func (m Mode) AffectsStdout() bool {
	switch m {
	case WriteStdout, WriteStdoutAppend, MergeThenWrite, MergeThenWriteAppend:
		return true
	default:
		return false
	}
}

// AffectsStderr reports whether the mode replaces standard error.
func (m Mode) AffectsStderr() bool {
	switch m {
	case WriteStderr, WriteStderrAppend, MergeStderrIntoStdout, MergeThenWrite, MergeThenWriteAppend:
		return true
	default:
		return false
	}
}

func (m Mode) String() string {
	switch m {
	case ReadFromFile:
		return "<"
	case WriteStdout:
		return ">"
	case WriteStdoutAppend:
		return ">>"
	case WriteStderr:
		return "2>"
	case WriteStderrAppend:
		return "2>>"
	case MergeStderrIntoStdout:
		return "2>&1"
	case MergeThenWrite:
		return "&>"
	case MergeThenWriteAppend:
		return "&>>"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Directive is one redirect attached to a unit.
type Directive struct {
	Target string
	Mode   Mode
}

// New builds a directive, checking that modes needing a file have one.
func New(mode Mode, target string) (Directive, error) {
	if mode.NeedsTarget() && target == "" {
		return Directive{}, fmt.Errorf("%w: %s", ErrMissingTarget, mode)
	}

	if !mode.NeedsTarget() {
		target = ""
	}

	return Directive{Target: target, Mode: mode}, nil
}

func (d Directive) String() string {
	if d.Target == "" {
		return d.Mode.String()
	}

	return d.Mode.String() + " " + d.Target
}

// Open opens the directive's target relative to cwd with the flags its mode needs.
func (d Directive) Open(cwd string) (*os.File, error) {
	path := d.Target
	if !filepath.IsAbs(path) && cwd != "" {
		path = filepath.Join(cwd, path)
	}

	if d.Mode == ReadFromFile {
		return os.Open(path) //nolint:gosec
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if d.Mode.Append() {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}

	return os.OpenFile(path, flags, 0o644) //nolint:gosec
}

// Plan is the outcome of applying a list of directives in order; the last directive
// touching a stream wins.
type Plan struct {
	Stdin  *Directive
	Stdout *Directive
	Stderr *Directive
	// StderrToStdout means standard error follows whatever standard output resolves to.
	StderrToStdout bool
}

// Resolve folds directives into a Plan.
func Resolve(directives []Directive) Plan {
	var p Plan

	for i := range directives {
		d := directives[i]

		switch d.Mode {
		case ReadFromFile:
			p.Stdin = &d
		case WriteStdout, WriteStdoutAppend:
			p.Stdout = &d
		case WriteStderr, WriteStderrAppend:
			p.Stderr = &d
			p.StderrToStdout = false
		case MergeStderrIntoStdout:
			p.Stderr = nil
			p.StderrToStdout = true
		case MergeThenWrite, MergeThenWriteAppend:
			p.Stdout = &d
			p.Stderr = nil
			p.StderrToStdout = true
		}
	}

	return p
}
