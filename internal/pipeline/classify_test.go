// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build linux

package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/matt-FFFFFF/dsh/internal/behavior"
	"github.com/matt-FFFFFF/dsh/internal/session"
	"github.com/matt-FFFFFF/dsh/internal/shellerr"
	"github.com/matt-FFFFFF/dsh/internal/unit"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const missingFileLog = `4242  execve("/usr/bin/cat", ["cat", "/nope"], 0x7ffd /* 20 vars */) = 0
4242  openat(AT_FDCWD, "/etc/ld.so.cache", O_RDONLY|O_CLOEXEC) = 3
4242  openat(AT_FDCWD, "/nope", O_RDONLY) = -1 ENOENT (No such file or directory)
4242  exit_group(1)                     = ?
4242  +++ exited with 1 +++
`

const quietLog = `77 openat(AT_FDCWD, "/missing-config", O_RDONLY) = -1 ENOENT (No such file or directory)
77 exit_group(0) = ?
77 +++ exited with 0 +++
`

// fakeUnit is a terminated unit for classification tests. Methods the classifier
// never calls panic through the nil embedded interface.
type fakeUnit struct {
	unit.Unit

	name     string
	status   int
	traceLog string
}

func (f *fakeUnit) Name() string     { return f.name }
func (f *fakeUnit) ExitStatus() int  { return f.status }
func (f *fakeUnit) WasTraced() bool  { return f.traceLog != "" }
func (f *fakeUnit) TraceLog() string { return f.traceLog }

func units(us ...*fakeUnit) []unit.Unit {
	out := make([]unit.Unit, len(us))
	for i, u := range us {
		out[i] = u
	}

	return out
}

func memSession(t *testing.T, logs map[string]string) *session.Session {
	t.Helper()

	fs := afero.NewMemMapFs()
	for path, content := range logs {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o600))
	}

	s, err := session.New(session.WithFs(fs), session.WithCwd("/"))
	require.NoError(t, err)

	return s
}

func throwable(t *testing.T) behavior.Behavior {
	t.Helper()

	b, err := behavior.Statement()
	require.NoError(t, err)

	return b
}

func TestClassify_NotThrowable(t *testing.T) {
	b, err := behavior.Status()
	require.NoError(t, err)

	s := memSession(t, map[string]string{"/tmp/a.log": missingFileLog})
	outcomes, err := classify(context.Background(), s, b, units(
		&fakeUnit{name: "cat", status: 1, traceLog: "/tmp/a.log"},
	), nil, false)

	require.NoError(t, err)
	assert.Nil(t, outcomes)

	_, statErr := s.Fs.Stat("/tmp/a.log")
	assert.ErrorIs(t, statErr, fs.ErrNotExist, "trace log removed regardless of outcome")
}

func TestClassify_TimedOut(t *testing.T) {
	s := memSession(t, nil)
	_, err := classify(context.Background(), s, throwable(t), units(
		&fakeUnit{name: "sleep", status: 137},
	), nil, true)

	assert.NoError(t, err)
}

func TestClassify_Untraced(t *testing.T) {
	s := memSession(t, nil)

	_, err := classify(context.Background(), s, throwable(t), units(
		&fakeUnit{name: "/bin/true", status: 0},
		&fakeUnit{name: "/bin/grep", status: 2},
	), nil, false)

	var cmdErr *shellerr.CommandError

	require.ErrorAs(t, err, &cmdErr, "a single failure is returned unwrapped")
	assert.Equal(t, "/bin/grep", cmdErr.Command)
	assert.Equal(t, 2, cmdErr.ExitStatus)
	assert.ErrorIs(t, err, shellerr.ErrCommandFailed)
}

func TestClassify_Aggregate(t *testing.T) {
	s := memSession(t, nil)

	outcomes, err := classify(context.Background(), s, throwable(t), units(
		&fakeUnit{name: "a", status: 1},
		&fakeUnit{name: "b", status: 0},
		&fakeUnit{name: "c", status: 3},
	), nil, false)

	var multi *shellerr.MultipleError

	require.ErrorAs(t, err, &multi)
	require.Len(t, multi.Outcomes, 3)
	assert.Error(t, multi.Outcomes[0])
	assert.NoError(t, multi.Outcomes[1])
	assert.Error(t, multi.Outcomes[2])
	assert.Equal(t, outcomes, multi.Outcomes)
}

func TestClassify_Traced(t *testing.T) {
	s := memSession(t, map[string]string{
		"/tmp/cat.log":   missingFileLog,
		"/tmp/quiet.log": quietLog,
	})

	_, err := classify(context.Background(), s, throwable(t), units(
		&fakeUnit{name: "/usr/bin/cat", status: 1, traceLog: "/tmp/cat.log"},
		&fakeUnit{name: "/usr/bin/app", status: 0, traceLog: "/tmp/quiet.log"},
	), nil, false)

	var sysErr *shellerr.SystemCallError

	require.ErrorAs(t, err, &sysErr)
	assert.Equal(t, "openat", sysErr.Syscall)
	assert.ErrorIs(t, err, shellerr.ErrFileNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	for _, p := range []string{"/tmp/cat.log", "/tmp/quiet.log"} {
		_, statErr := s.Fs.Stat(p)
		assert.ErrorIs(t, statErr, fs.ErrNotExist)
	}
}

func TestClassify_TraceTakesPrecedence(t *testing.T) {
	s := memSession(t, map[string]string{"/tmp/quiet.log": quietLog})

	_, err := classify(context.Background(), s, throwable(t), units(
		&fakeUnit{name: "/usr/bin/app", status: 5, traceLog: "/tmp/quiet.log"},
	), nil, false)

	assert.NoError(t, err)
}

const segfaultLog = `88 openat(AT_FDCWD, "/data", O_RDONLY) = 3
88 --- SIGSEGV {si_signo=SIGSEGV, si_code=SEGV_MAPERR, si_addr=NULL} ---
88 +++ killed by SIGSEGV (core dumped) +++
`

func TestClassify_InconclusiveTraceFallsBack(t *testing.T) {
	testCases := []struct {
		name   string
		log    string
		status int
	}{
		{
			name:   "empty log from a tracer that could not run the command",
			log:    "",
			status: 1,
		},
		{
			name:   "command killed by a signal",
			log:    segfaultLog,
			status: 139,
		},
		{
			name:   "log without an exit record",
			log:    "12 read(0, \"\", 4096) = 0\n",
			status: 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := memSession(t, map[string]string{"/tmp/app.log": tc.log})

			_, err := classify(context.Background(), s, throwable(t), units(
				&fakeUnit{name: "/usr/bin/app", status: tc.status, traceLog: "/tmp/app.log"},
			), nil, false)

			var cmdErr *shellerr.CommandError

			require.ErrorAs(t, err, &cmdErr)
			assert.Equal(t, tc.status, cmdErr.ExitStatus)

			_, statErr := s.Fs.Stat("/tmp/app.log")
			assert.ErrorIs(t, statErr, fs.ErrNotExist)
		})
	}
}

func TestClassify_UnreadableTraceFallsBack(t *testing.T) {
	s := memSession(t, nil)

	_, err := classify(context.Background(), s, throwable(t), units(
		&fakeUnit{name: "/usr/bin/app", status: 5, traceLog: "/tmp/gone.log"},
	), nil, false)

	var cmdErr *shellerr.CommandError

	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 5, cmdErr.ExitStatus)
}

func TestClassify_AggregationProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		statuses := rapid.SliceOfN(rapid.IntRange(0, 3), 1, 8).Draw(rt, "statuses")

		fakes := make([]*fakeUnit, len(statuses))
		failed := 0

		for i, st := range statuses {
			fakes[i] = &fakeUnit{name: "u", status: st}
			if st != 0 {
				failed++
			}
		}

		s, err := session.New(session.WithFs(afero.NewMemMapFs()), session.WithCwd("/"))
		if err != nil {
			rt.Fatal(err)
		}

		b, err := behavior.Statement()
		if err != nil {
			rt.Fatal(err)
		}

		_, got := classify(context.Background(), s, b, units(fakes...), nil, false)

		var multi *shellerr.MultipleError

		switch {
		case failed == 0:
			if got != nil {
				rt.Fatalf("expected no error, got %v", got)
			}
		case failed == 1:
			var cmdErr *shellerr.CommandError
			if !errors.As(got, &cmdErr) || errors.As(got, &multi) {
				rt.Fatalf("expected a single CommandError, got %T", got)
			}
		default:
			if !errors.As(got, &multi) || len(multi.Outcomes) != len(statuses) {
				rt.Fatalf("expected MultipleError with %d outcomes, got %v", len(statuses), got)
			}

			for i, st := range statuses {
				if (st == 0) != (multi.Outcomes[i] == nil) {
					rt.Fatalf("slot %d: status %d, outcome %v", i, st, multi.Outcomes[i])
				}
			}
		}
	})
}
