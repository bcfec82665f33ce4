// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package shellerr

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrCouldNotStartProcess is wrapped by every StartError.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrCommandFailed is matched by every CommandError.
	ErrCommandFailed = errors.New("command failed")
	// ErrCommandNotFound is returned by strict resolution when no executable exists.
	ErrCommandNotFound = errors.New("command not found")
	// ErrNotPermitted is returned by strict resolution when the file is not executable.
	ErrNotPermitted = errors.New("permission denied")
)

// Categories of a failing system call.
var (
	ErrFileNotFound      = errors.New("file not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrNotADirectory     = errors.New("not a directory")
	ErrIsADirectory      = errors.New("is a directory")
	ErrFileExists        = errors.New("file exists")
	ErrConnectionRefused = errors.New("connection refused")
	ErrNoSpace           = errors.New("no space left on device")
	ErrSystemCall        = errors.New("system call failed")
)

const maxStderrInMessage = 120

// StartError wraps the failure to launch a unit.
type StartError struct {
	Command string
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Command, ErrCouldNotStartProcess, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *StartError) Unwrap() []error {
	return []error{ErrCouldNotStartProcess, e.Err}
}

// CommandError is a unit that exited with a non-zero status.
type CommandError struct {
	Command    string
	ExitStatus int
	Stderr     string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.ExitStatus)
	if line := lastLine(e.Stderr); line != "" {
		msg += ": " + line
	}

	return msg
}

// Is implements errors.Is.
func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

// SystemCallError is a traced unit whose failure was attributed to a system call.
type SystemCallError struct {
	Command  string
	Syscall  string
	Args     string
	Errno    syscall.Errno
	Category error
}

// NewSystemCallError builds a SystemCallError and selects its category from errno.
func NewSystemCallError(command, call, args string, errno syscall.Errno) *SystemCallError {
	return &SystemCallError{
		Command:  command,
		Syscall:  call,
		Args:     args,
		Errno:    errno,
		Category: Categorize(errno),
	}
}

func (e *SystemCallError) Error() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s: %s", e.Command, e.Category)

	if e.Syscall != "" {
		fmt.Fprintf(&sb, " (%s", e.Syscall)

		if e.Args != "" {
			fmt.Fprintf(&sb, "(%s)", e.Args)
		}

		fmt.Fprintf(&sb, ": %s)", e.Errno.Error())
	}

	return sb.String()
}

// Unwrap exposes the category and the raw errno, so both errors.Is(err, ErrFileNotFound)
// and errors.Is(err, fs.ErrNotExist) work.
func (e *SystemCallError) Unwrap() []error {
	return []error{e.Category, e.Errno}
}

// Categorize maps an errno onto one of the category sentinels.
func Categorize(errno syscall.Errno) error {
	switch errno {
	case syscall.ENOENT:
		return ErrFileNotFound
	case syscall.EACCES, syscall.EPERM:
		return ErrPermissionDenied
	case syscall.ENOTDIR:
		return ErrNotADirectory
	case syscall.EISDIR:
		return ErrIsADirectory
	case syscall.EEXIST:
		return ErrFileExists
	case syscall.ECONNREFUSED:
		return ErrConnectionRefused
	case syscall.ENOSPC:
		return ErrNoSpace
	default:
		return ErrSystemCall
	}
}

// MultipleError holds one outcome per unit of a pipeline, in pipeline order.
// A nil slot means that unit succeeded.
type MultipleError struct {
	Outcomes []error
}

func (e *MultipleError) Error() string {
	var merr *multierror.Error

	for _, err := range e.Outcomes {
		merr = multierror.Append(merr, err)
	}

	if merr == nil || len(merr.Errors) == 0 {
		return "no error"
	}

	merr.ErrorFormat = multierror.ListFormatFunc

	return strings.TrimSpace(merr.Error())
}

// Unwrap returns the non-nil outcomes.
func (e *MultipleError) Unwrap() []error {
	var errs []error

	for _, err := range e.Outcomes {
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

// ResolveError is returned by strict command resolution.
type ResolveError struct {
	Name string
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\r\n\t ")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}

	s = strings.TrimSpace(s)
	if len(s) > maxStderrInMessage {
		s = s[:maxStderrInMessage-3] + "..."
	}

	return s
}
