// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package session holds the state a running shell shares with every pipeline it
// starts: console streams, working directory, environment, the exit hook used by the
// exit builtin, and the trace backend. A Session is passed explicitly to units and
// pipelines instead of living in package variables.
package session

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var (
	// ErrNotDirectory is returned by Chdir when the target is not a directory.
	ErrNotDirectory = errors.New("not a directory")
	// ErrNoPreviousDirectory is returned by Back when Chdir was never called.
	ErrNoPreviousDirectory = errors.New("no previous directory")
)

// TraceConfig selects the system call tracing backend.
type TraceConfig struct {
	Enabled bool   // Route external commands through the tracer.
	Program string // Absolute path of the tracer executable (strace).
	Dir     string // Directory for trace logs, defaults to os.TempDir().
}

// Session is the shell state threaded through units and pipelines.
type Session struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
	Fs     afero.Fs // Filesystem used to read and remove trace logs.
	Trace  TraceConfig

	exit func(code int)

	mu     sync.RWMutex
	cwd    string
	oldCwd string
	env    map[string]string
}

// Option configures a Session.
type Option func(s *Session)

// WithStdio replaces the console streams. Nil values keep the defaults.
func WithStdio(stdin, stdout, stderr *os.File) Option {
	return func(s *Session) {
		if stdin != nil {
			s.Stdin = stdin
		}

		if stdout != nil {
			s.Stdout = stdout
		}

		if stderr != nil {
			s.Stderr = stderr
		}
	}
}

// WithCwd sets the initial working directory.
func WithCwd(dir string) Option {
	return func(s *Session) {
		s.cwd = dir
	}
}

// WithExit replaces the function used by the exit builtin, os.Exit by default.
func WithExit(fn func(code int)) Option {
	return func(s *Session) {
		s.exit = fn
	}
}

// WithFs replaces the filesystem used for trace logs.
func WithFs(fs afero.Fs) Option {
	return func(s *Session) {
		s.Fs = fs
	}
}

// WithTrace configures system call tracing.
func WithTrace(tc TraceConfig) Option {
	return func(s *Session) {
		s.Trace = tc
	}
}

// WithEnv adds environment variables on top of the host environment.
func WithEnv(env map[string]string) Option {
	return func(s *Session) {
		maps.Copy(s.env, env)
	}
}

// New creates a Session bound to the host console and working directory.
func New(opts ...Option) (*Session, error) {
	s := &Session{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Fs:     afero.NewOsFs(),
		exit:   os.Exit,
		env:    make(map[string]string),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not determine working directory: %w", err)
		}

		s.cwd = wd
	}

	if s.Trace.Dir == "" {
		s.Trace.Dir = os.TempDir()
	}

	return s, nil
}

// Cwd returns the shell's working directory.
func (s *Session) Cwd() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cwd
}

// Resolve makes path absolute relative to the working directory.
func (s *Session) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(s.Cwd(), path)
}

// Chdir changes the shell's working directory. It does not touch the host process cwd.
func (s *Session) Chdir(dir string) error {
	target := s.Resolve(dir)

	info, err := os.Stat(target)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if !info.IsDir() {
		return fmt.Errorf("%s: %w", dir, ErrNotDirectory)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.oldCwd = s.cwd
	s.cwd = target

	return nil
}

// Back returns to the directory before the last Chdir, and returns it.
func (s *Session) Back() (string, error) {
	s.mu.RLock()
	prev := s.oldCwd
	s.mu.RUnlock()

	if prev == "" {
		return "", ErrNoPreviousDirectory
	}

	if err := s.Chdir(prev); err != nil {
		return "", err
	}

	return prev, nil
}

// Getenv returns a variable from the session overrides or the host environment.
func (s *Session) Getenv(key string) string {
	s.mu.RLock()
	v, ok := s.env[key]
	s.mu.RUnlock()

	if ok {
		return v
	}

	return os.Getenv(key)
}

// Setenv sets a session variable visible to every unit started afterwards.
func (s *Session) Setenv(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.env[key] = value
}

// Environ returns the environment for a child process: the host environment, the
// session overrides, and PWD pointing at the session working directory.
func (s *Session) Environ() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	merged := make(map[string]string)

	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}

	maps.Copy(merged, s.env)
	merged["PWD"] = s.cwd

	env := make([]string, 0, len(merged))
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		env = append(env, k+"="+merged[k])
	}

	return env
}

// Exit terminates the host through the configured exit hook.
func (s *Session) Exit(code int) {
	s.exit(code)
}

// TraceEnabled reports whether external commands should be traced.
// Tracing relies on strace and is only available on Linux.
func (s *Session) TraceEnabled() bool {
	return s.Trace.Enabled && s.Trace.Program != "" && runtime.GOOS == "linux"
}

// NewTraceLogPath returns a fresh, unique trace log path.
func (s *Session) NewTraceLogPath() string {
	return filepath.Join(s.Trace.Dir, "dsh-trace-"+uuid.NewString()+".log")
}
