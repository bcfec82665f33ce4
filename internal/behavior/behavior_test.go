// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package behavior

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicates(t *testing.T) {
	buf := &bytes.Buffer{}

	tests := []struct {
		name       string
		shape      ReturnShape
		flags      Flag
		opts       []Option
		stdoutPump bool
		stderrPump bool
		background bool
		timed      bool
	}{
		{
			name:  "void statement",
			shape: ShapeVoid,
			flags: Printable,
		},
		{
			name:       "handle needs both pumps",
			shape:      ShapeHandle,
			flags:      Returnable | Printable | Throwable,
			stdoutPump: true,
			stderrPump: true,
		},
		{
			name:       "handle without returnable has no stdout pump",
			shape:      ShapeHandle,
			flags:      Printable,
			stderrPump: true,
		},
		{
			name:       "capture buffer requires returnable",
			shape:      ShapeVoid,
			flags:      Returnable,
			opts:       []Option{WithCapture(buf)},
			stdoutPump: true,
		},
		{
			name:  "capture buffer without returnable",
			shape: ShapeVoid,
			flags: Printable,
			opts:  []Option{WithCapture(buf)},
		},
		{
			name:       "throwable integer",
			shape:      ShapeInteger,
			flags:      Returnable | Throwable,
			stderrPump: true,
		},
		{
			name:       "background with timeout",
			shape:      ShapeVoid,
			flags:      Background,
			opts:       []Option{WithTimeout(time.Second)},
			background: true,
			timed:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := New(tt.shape, tt.flags, tt.opts...)
			require.NoError(t, err)

			assert.Equal(t, tt.stdoutPump, b.NeedsStdoutPump(), "NeedsStdoutPump")
			assert.Equal(t, tt.stderrPump, b.NeedsStderrPump(), "NeedsStderrPump")
			assert.Equal(t, tt.background, b.IsBackground(), "IsBackground")
			assert.Equal(t, tt.timed, b.IsTimed(), "IsTimed")
		})
	}
}

func TestNew_InvalidTimeout(t *testing.T) {
	_, err := New(ShapeVoid, Timeout)
	require.ErrorIs(t, err, ErrInvalidTimeout)

	_, err = New(ShapeVoid, 0, WithTimeout(-time.Second))
	require.ErrorIs(t, err, ErrInvalidTimeout)
}

func TestNew_TimeoutIgnoredWithoutFlag(t *testing.T) {
	b, err := New(ShapeVoid, Printable)
	require.NoError(t, err)
	assert.Zero(t, b.Timeout())
	assert.False(t, b.IsTimed())
}

func TestCallSites(t *testing.T) {
	buf := &bytes.Buffer{}

	boolean, err := Boolean()
	require.NoError(t, err)
	assert.Equal(t, ShapeInteger, boolean.Shape())
	assert.Equal(t, Returnable|Throwable, boolean.Flags())

	handle, err := Handle(WithFlags(Background))
	require.NoError(t, err)
	assert.Equal(t, ShapeHandle, handle.Shape())
	assert.True(t, handle.Has(Returnable|Throwable|Printable|Background))

	subst, err := Substitution(buf, WithTimeout(time.Minute))
	require.NoError(t, err)
	assert.Same(t, buf, subst.Capture())
	assert.True(t, subst.NeedsStdoutPump())
	assert.Equal(t, time.Minute, subst.Timeout())

	stmt, err := Statement()
	require.NoError(t, err)
	assert.False(t, stmt.NeedsStdoutPump())
	assert.True(t, stmt.NeedsStderrPump())

	status, err := Status()
	require.NoError(t, err)
	assert.False(t, status.Has(Throwable))
}

func TestFlagString(t *testing.T) {
	assert.Equal(t, "none", Flag(0).String())
	assert.Equal(t, "returnable|throwable", (Returnable | Throwable).String())
	assert.Contains(t, Behavior{shape: ShapeHandle, flags: Timeout, timeout: time.Second}.String(), "timeout=1s")
}
