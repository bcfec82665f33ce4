// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package resolve maps a bare command word to a builtin or to the absolute path of an
// executable found on PATH.
package resolve

import (
	"errors"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/matt-FFFFFF/dsh/internal/builtin"
	"github.com/matt-FFFFFF/dsh/internal/session"
	"github.com/matt-FFFFFF/dsh/internal/shellerr"
	"github.com/spf13/afero"
)

// Kind says what a name resolved to.
type Kind int

const (
	// KindUnresolved is a name that was not found, in non-strict mode. Starting it
	// fails with a start error.
	KindUnresolved Kind = iota
	// KindBuiltin is a registered builtin.
	KindBuiltin
	// KindExecutable is an executable file.
	KindExecutable
)

// Result is the outcome of Lookup.
type Result struct {
	Name    string
	Kind    Kind
	Path    string           // Absolute path for KindExecutable, the name otherwise.
	Builtin *builtin.Builtin // Set for KindBuiltin.
}

// Resolver looks names up against a builtin registry and the session PATH.
type Resolver struct {
	fs       afero.Fs
	registry *builtin.Registry
	session  *session.Session
}

// Option configures a Resolver.
type Option func(r *Resolver)

// WithFs replaces the filesystem used to inspect candidates.
func WithFs(fs afero.Fs) Option {
	return func(r *Resolver) {
		r.fs = fs
	}
}

// New creates a Resolver. A nil registry means no builtins.
func New(reg *builtin.Registry, s *session.Session, opts ...Option) *Resolver {
	r := &Resolver{
		fs:       afero.NewOsFs(),
		registry: reg,
		session:  s,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

var errNotExecutable = errors.New("not executable")

// Lookup resolves name. Builtins win over PATH. A name containing a slash is taken
// relative to the session working directory and PATH is not consulted.
//
// In strict mode a missing command returns a *shellerr.ResolveError wrapping
// shellerr.ErrCommandNotFound, and a file that exists but cannot be executed one
// wrapping shellerr.ErrNotPermitted. Otherwise such names come back as KindUnresolved.
func (r *Resolver) Lookup(name string, strict bool) (Result, error) {
	unresolved := Result{Name: name, Kind: KindUnresolved, Path: name}

	if name == "" {
		return r.fail(unresolved, strict, shellerr.ErrCommandNotFound)
	}

	if !strings.Contains(name, "/") && r.registry != nil {
		if b, ok := r.registry.Lookup(name); ok {
			return Result{Name: name, Kind: KindBuiltin, Path: name, Builtin: b}, nil
		}
	}

	if strings.Contains(name, "/") {
		path := r.session.Resolve(name)

		switch err := r.executable(path); {
		case err == nil:
			return Result{Name: name, Kind: KindExecutable, Path: path}, nil
		case errors.Is(err, errNotExecutable):
			return r.fail(unresolved, strict, shellerr.ErrNotPermitted)
		default:
			return r.fail(unresolved, strict, shellerr.ErrCommandNotFound)
		}
	}

	denied := false

	for _, dir := range filepath.SplitList(r.session.Getenv("PATH")) {
		if dir == "" {
			dir = "."
		}

		path := r.session.Resolve(filepath.Join(dir, name))

		err := r.executable(path)
		if err == nil {
			return Result{Name: name, Kind: KindExecutable, Path: path}, nil
		}

		if errors.Is(err, errNotExecutable) {
			denied = true
		}
	}

	if denied {
		return r.fail(unresolved, strict, shellerr.ErrNotPermitted)
	}

	return r.fail(unresolved, strict, shellerr.ErrCommandNotFound)
}

func (r *Resolver) fail(res Result, strict bool, sentinel error) (Result, error) {
	if !strict {
		return res, nil
	}

	return res, &shellerr.ResolveError{Name: res.Name, Err: sentinel}
}

// executable returns nil for a regular file with an execute bit, errNotExecutable for
// other existing entries, and the stat error otherwise.
func (r *Resolver) executable(path string) error {
	info, err := r.fs.Stat(path)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if info.IsDir() {
		return errNotExecutable
	}

	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return errNotExecutable
	}

	if !info.Mode().IsRegular() && info.Mode()&fs.ModeSymlink == 0 {
		return errNotExecutable
	}

	return nil
}
