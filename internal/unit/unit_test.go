// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package unit

import (
	"context"
	"io"
	"testing"

	"github.com/matt-FFFFFF/dsh/internal/builtin"
	"github.com/matt-FFFFFF/dsh/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()

	s, err := session.New(
		session.WithCwd(t.TempDir()),
		session.WithExit(func(int) { t.Fatal("exit hook called") }),
	)
	require.NoError(t, err)

	return s
}

func readAll(t *testing.T, r io.ReadCloser) string {
	t.Helper()

	defer r.Close() //nolint:errcheck

	b, err := io.ReadAll(r)
	require.NoError(t, err)

	return string(b)
}

func newBuiltinUnit(t *testing.T, s *session.Session, name string, args ...string) *BuiltinUnit {
	t.Helper()

	reg := builtin.NewDefault()
	b, ok := reg.Lookup(name)
	require.True(t, ok)

	return NewBuiltin(b, reg, s, args...)
}

func TestBuiltinUnit_Stdout(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newSession(t)
	u := newBuiltinUnit(t, s, "log", "hello", "world")

	assert.Equal(t, KindBuiltin, u.Kind())
	assert.Equal(t, []string{"log", "hello", "world"}, u.Args())
	assert.Equal(t, -1, u.ExitStatus())

	require.NoError(t, u.Start(context.Background()))
	assert.ErrorIs(t, u.AddArgument("late"), ErrStarted)
	assert.ErrorIs(t, u.Start(context.Background()), ErrStarted)

	out := u.Stdout()
	assert.Equal(t, "hello world\n", readAll(t, out))
	assert.Equal(t, "", readAll(t, u.Stdout()), "second access is empty")
	assert.Equal(t, "", readAll(t, u.Stderr()))
	assert.Equal(t, 0, u.WaitTermination())
	assert.True(t, u.CheckTermination())
	assert.False(t, u.WasTraced())
}

func TestBuiltinUnit_ExitNonNumeric(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newSession(t)
	u := newBuiltinUnit(t, s, "exit", "abc")
	require.NoError(t, u.SetTargets(TargetDiscard, TargetDiscard, TargetPipe))
	require.NoError(t, u.Start(context.Background()))

	assert.Contains(t, readAll(t, u.Stderr()), "exit: usage: exit [n]")
	assert.Equal(t, 1, u.WaitTermination())

	u.Kill()
	assert.False(t, u.Killed())
}

func TestBuiltinUnit_Panic(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newSession(t)
	b := &builtin.Builtin{Name: "boom", Run: func(*builtin.Context) int { panic("kaboom") }}
	u := NewBuiltin(b, nil, s)
	require.NoError(t, u.SetTargets(TargetDiscard, TargetDiscard, TargetPipe))
	require.NoError(t, u.Start(context.Background()))

	assert.Contains(t, readAll(t, u.Stderr()), "boom: builtin panic: kaboom")
	assert.Equal(t, 1, u.WaitTermination())
}

func TestBuiltinUnit_UnreadStdinIsReleased(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newSession(t)
	u := newBuiltinUnit(t, s, "true")
	require.NoError(t, u.SetTargets(TargetPipe, TargetDiscard, TargetDiscard))
	require.NoError(t, u.Start(context.Background()))

	in := u.Stdin()
	assert.Equal(t, 0, u.WaitTermination())

	_, err := in.Write([]byte("ignored"))
	require.ErrorIs(t, err, io.ErrClosedPipe)
	require.NoError(t, in.Close())

	_, err = u.Stdin().Write([]byte("x"))
	assert.NoError(t, err, "second stdin access discards")
}

func TestConstructorArguments(t *testing.T) {
	s := newSession(t)
	reg := builtin.NewDefault()
	logBuiltin, ok := reg.Lookup("log")
	require.True(t, ok)

	testCases := []struct {
		name string
		unit Unit
		want []string
	}{
		{name: "process without arguments", unit: NewProcess("/bin/true", s), want: []string{"/bin/true"}},
		{name: "process", unit: NewProcess("/bin/cat", s, "-n", "a b"), want: []string{"/bin/cat", "-n", "a b"}},
		{name: "builtin", unit: NewBuiltin(logBuiltin, reg, s, "x"), want: []string{"log", "x"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.unit.Args())

			require.NoError(t, tc.unit.AddArgument("more"))
			assert.Equal(t, append(tc.want, "more"), tc.unit.Args())
		})
	}
}

func TestKindAndTargetString(t *testing.T) {
	assert.Equal(t, "process", KindProcess.String())
	assert.Equal(t, "builtin", KindBuiltin.String())
	assert.Equal(t, "pipe", TargetPipe.String())
	assert.Equal(t, "inherit", TargetInherit.String())
	assert.Equal(t, "discard", TargetDiscard.String())
}
