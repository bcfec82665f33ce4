// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package builtin

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/matt-FFFFFF/dsh/internal/session"
)

// Context is what a builtin sees while it runs.
type Context struct {
	Ctx      context.Context //nolint:containedctx
	Args     []string        // Args[0] is the builtin name.
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
	Session  *session.Session
	Registry *Registry
}

// Errorf writes a message prefixed with the builtin name to stderr.
func (c *Context) Errorf(format string, args ...any) {
	fmt.Fprintf(c.Stderr, "%s: %s\n", c.Args[0], fmt.Sprintf(format, args...)) //nolint:errcheck
}

// Func is the body of a builtin. It returns the exit status.
type Func func(c *Context) int

// Builtin describes a builtin command.
type Builtin struct {
	Name    string
	Usage   string // Synopsis, e.g. "cd [dir]".
	Summary string
	Detail  string
	Run     Func
}

// Registry maps names to builtins. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	builtins map[string]*Builtin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{builtins: make(map[string]*Builtin)}
}

// NewDefault returns a registry holding the standard builtins.
func NewDefault() *Registry {
	r := NewRegistry()
	for _, b := range standard() {
		r.Register(b)
	}

	return r
}

// Register adds or replaces a builtin.
func (r *Registry) Register(b *Builtin) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.builtins[b.Name] = b
}

// Lookup returns the builtin with the given name.
func (r *Registry) Lookup(name string) (*Builtin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.builtins[name]

	return b, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.builtins))
}

func standard() []*Builtin {
	return []*Builtin{
		{
			Name:    "cd",
			Usage:   "cd [-L|-P] [dir]",
			Summary: "Change the shell working directory.",
			Detail: "Change the current directory to DIR. The default DIR is the value of the\n" +
				"HOME shell variable. If DIR is \"-\" the previous directory is used and printed.\n" +
				"  -L\tkeep symbolic links in the new path (default)\n" +
				"  -P\tresolve symbolic links before changing directory\n" +
				"Exit status is 0 if the directory was changed, non-zero otherwise.",
			Run: Cd,
		},
		{
			Name:    "exit",
			Usage:   "exit [n]",
			Summary: "Exit the shell.",
			Detail: "Exits the shell with a status of N. If N is omitted the exit status is 0.\n" +
				"A non-numeric N prints this usage and sets the status to 1 without exiting.",
			Run: Exit,
		},
		{
			Name:    "help",
			Usage:   "help [-s] [pattern ...]",
			Summary: "Display information about builtin commands.",
			Detail: "Displays brief summaries of builtin commands. If PATTERN is specified,\n" +
				"gives detailed help on all commands matching PATTERN.\n" +
				"  -s\toutput only a short usage synopsis for each topic\n" +
				"Exit status is 0 unless PATTERN is not found.",
			Run: Help,
		},
		{
			Name:    "log",
			Usage:   "log [message ...]",
			Summary: "Write a message to standard output and the diagnostic log.",
			Detail:  "The arguments are joined with spaces and written followed by a newline.",
			Run:     Log,
		},
		{
			Name:    "pwd",
			Usage:   "pwd",
			Summary: "Print the shell working directory.",
			Run:     Pwd,
		},
		{
			Name:    "true",
			Usage:   "true",
			Summary: "Return a successful result.",
			Run:     func(*Context) int { return 0 },
		},
		{
			Name:    "false",
			Usage:   "false",
			Summary: "Return an unsuccessful result.",
			Run:     func(*Context) int { return 1 },
		},
	}
}
