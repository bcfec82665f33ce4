// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package shellerr

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartError(t *testing.T) {
	err := &StartError{Command: "/no/such", Err: os.ErrNotExist}

	assert.ErrorIs(t, err, ErrCouldNotStartProcess)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "/no/such")
}

func TestCommandError(t *testing.T) {
	err := &CommandError{Command: "grep", ExitStatus: 2, Stderr: "grep: warning\ngrep: foo: No such file\n"}

	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.Equal(t, "grep: exit status 2: grep: foo: No such file", err.Error())

	quiet := &CommandError{Command: "false", ExitStatus: 1}
	assert.Equal(t, "false: exit status 1", quiet.Error())

	long := &CommandError{Command: "x", ExitStatus: 1, Stderr: strings.Repeat("a", 500)}
	assert.Less(t, len(long.Error()), 200)
}

func TestSystemCallError(t *testing.T) {
	err := NewSystemCallError("cat", "openat", `AT_FDCWD, "/nope", O_RDONLY`, syscall.ENOENT)

	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "openat")
	assert.Contains(t, err.Error(), "file not found")

	var sce *SystemCallError
	require.ErrorAs(t, error(err), &sce)
	assert.Equal(t, syscall.ENOENT, sce.Errno)
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		errno syscall.Errno
		want  error
	}{
		{syscall.ENOENT, ErrFileNotFound},
		{syscall.EACCES, ErrPermissionDenied},
		{syscall.EPERM, ErrPermissionDenied},
		{syscall.ENOTDIR, ErrNotADirectory},
		{syscall.EISDIR, ErrIsADirectory},
		{syscall.EEXIST, ErrFileExists},
		{syscall.ECONNREFUSED, ErrConnectionRefused},
		{syscall.ENOSPC, ErrNoSpace},
		{syscall.EINVAL, ErrSystemCall},
	}

	for _, tt := range tests {
		t.Run(tt.errno.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.errno))
		})
	}
}

func TestMultipleError(t *testing.T) {
	first := &CommandError{Command: "a", ExitStatus: 1}
	third := &CommandError{Command: "c", ExitStatus: 3}

	err := &MultipleError{Outcomes: []error{first, nil, third}}

	require.Len(t, err.Outcomes, 3)
	assert.Nil(t, err.Outcomes[1])
	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.Contains(t, err.Error(), "a: exit status 1")
	assert.Contains(t, err.Error(), "c: exit status 3")
	assert.Len(t, err.Unwrap(), 2)

	var ce *CommandError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "a", ce.Command)
}

func TestResolveError(t *testing.T) {
	err := &ResolveError{Name: "nope", Err: ErrCommandNotFound}
	assert.ErrorIs(t, err, ErrCommandNotFound)
	assert.Equal(t, "nope: command not found", err.Error())
}
