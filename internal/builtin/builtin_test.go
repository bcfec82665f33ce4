// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package builtin

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matt-FFFFFF/dsh/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	ctx    *Context
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newHarness(t *testing.T, args ...string) *harness {
	t.Helper()

	s, err := session.New(
		session.WithCwd(t.TempDir()),
		session.WithExit(func(int) { t.Fatal("exit hook called") }),
	)
	require.NoError(t, err)

	h := &harness{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	h.ctx = &Context{
		Ctx:      context.Background(),
		Args:     args,
		Stdin:    strings.NewReader(""),
		Stdout:   h.stdout,
		Stderr:   h.stderr,
		Session:  s,
		Registry: NewDefault(),
	}
	return h
}

func run(t *testing.T, h *harness) int {
	t.Helper()

	b, ok := h.ctx.Registry.Lookup(h.ctx.Args[0])
	require.True(t, ok, "builtin %q not registered", h.ctx.Args[0])

	return b.Run(h.ctx)
}

func TestRegistry(t *testing.T) {
	r := NewDefault()
	assert.Equal(t, []string{"cd", "exit", "false", "help", "log", "pwd", "true"}, r.Names())

	_, ok := r.Lookup("ls")
	assert.False(t, ok)

	r.Register(&Builtin{Name: "noop", Run: func(*Context) int { return 0 }})
	_, ok = r.Lookup("noop")
	assert.True(t, ok)
}

func TestTrueFalse(t *testing.T) {
	assert.Equal(t, 0, run(t, newHarness(t, "true")))
	assert.Equal(t, 1, run(t, newHarness(t, "false")))
}

func TestExit(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantStatus int
		wantExit   int
		exits      bool
		stderr     []string
	}{
		{name: "no argument", args: []string{"exit"}, exits: true},
		{name: "numeric", args: []string{"exit", "3"}, wantStatus: 3, wantExit: 3, exits: true},
		{
			name:       "non numeric",
			args:       []string{"exit", "abc"},
			wantStatus: 1,
			stderr:     []string{"exit: abc: numeric argument required", "exit: usage: exit [n]"},
		},
		{
			name:       "too many",
			args:       []string{"exit", "1", "2"},
			wantStatus: 1,
			stderr:     []string{"too many arguments", "exit: usage: exit [n]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *int

			s, err := session.New(session.WithExit(func(c int) { got = &c }))
			require.NoError(t, err)

			stderr := &bytes.Buffer{}
			status := Exit(&Context{
				Ctx:     context.Background(),
				Args:    tt.args,
				Stdout:  &bytes.Buffer{},
				Stderr:  stderr,
				Session: s,
			})

			assert.Equal(t, tt.wantStatus, status)

			if tt.exits {
				require.NotNil(t, got)
				assert.Equal(t, tt.wantExit, *got)
			} else {
				assert.Nil(t, got, "exit hook must not be called")
			}

			for _, s := range tt.stderr {
				assert.Contains(t, stderr.String(), s)
			}
		})
	}
}

func TestCd(t *testing.T) {
	h := newHarness(t, "cd", "sub")
	start := h.ctx.Session.Cwd()
	require.NoError(t, os.Mkdir(filepath.Join(start, "sub"), 0o755))

	assert.Equal(t, 0, run(t, h))
	assert.Equal(t, filepath.Join(start, "sub"), h.ctx.Session.Cwd())

	h.ctx.Args = []string{"cd", "-"}
	assert.Equal(t, 0, run(t, h))
	assert.Equal(t, start, h.ctx.Session.Cwd())
	assert.Equal(t, start+"\n", h.stdout.String())

	h.ctx.Args = []string{"cd", "missing"}
	assert.Equal(t, 1, run(t, h))
	assert.Contains(t, h.stderr.String(), "cd: ")

	h.stderr.Reset()
	h.ctx.Args = []string{"cd", "a", "b"}
	assert.Equal(t, 1, run(t, h))
	assert.Contains(t, h.stderr.String(), "too many arguments")
}

func TestCdNoPrevious(t *testing.T) {
	h := newHarness(t, "cd", "-")
	assert.Equal(t, 1, run(t, h))
	assert.Contains(t, h.stderr.String(), "OLDPWD not set")
}

func TestCdHome(t *testing.T) {
	home := t.TempDir()
	h := newHarness(t, "cd")
	h.ctx.Session.Setenv("HOME", home)

	assert.Equal(t, 0, run(t, h))
	assert.Equal(t, home, h.ctx.Session.Cwd())
}

func TestPwd(t *testing.T) {
	h := newHarness(t, "pwd")
	assert.Equal(t, 0, run(t, h))
	assert.Equal(t, h.ctx.Session.Cwd()+"\n", h.stdout.String())
}

func TestLog(t *testing.T) {
	h := newHarness(t, "log", "hello", "world")
	assert.Equal(t, 0, run(t, h))
	assert.Equal(t, "hello world\n", h.stdout.String())
}

func TestHelp(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		status   int
		contains []string
		excludes []string
		stderr   string
	}{
		{
			name:     "list all",
			args:     []string{"help"},
			contains: []string{"cd [-L|-P] [dir]", "exit [n]", "pwd"},
		},
		{
			name:     "detail",
			args:     []string{"help", "exit"},
			contains: []string{"exit: exit [n]", "Exits the shell"},
			excludes: []string{"cd:"},
		},
		{
			name:     "short",
			args:     []string{"help", "-s", "cd"},
			contains: []string{"cd: cd [-L|-P] [dir]"},
			excludes: []string{"Change the shell"},
		},
		{
			name:     "pattern",
			args:     []string{"help", "-s", "*e"},
			contains: []string{"true:", "false:"},
		},
		{
			name:   "unknown topic",
			args:   []string{"help", "nope"},
			status: 1,
			stderr: "no help topics match `nope'.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.args...)
			assert.Equal(t, tt.status, run(t, h))

			for _, s := range tt.contains {
				assert.Contains(t, h.stdout.String(), s)
			}

			for _, s := range tt.excludes {
				assert.NotContains(t, h.stdout.String(), s)
			}

			if tt.stderr != "" {
				assert.Contains(t, h.stderr.String(), tt.stderr)
			}
		})
	}
}
