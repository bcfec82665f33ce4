// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/matt-FFFFFF/dsh/internal/behavior"
	"github.com/matt-FFFFFF/dsh/internal/builtin"
	"github.com/matt-FFFFFF/dsh/internal/metrics"
	"github.com/matt-FFFFFF/dsh/internal/resolve"
	"github.com/matt-FFFFFF/dsh/internal/session"
	"github.com/matt-FFFFFF/dsh/internal/unit"
)

// Orchestrator builds units and runs them with the behaviour of a call site.
type Orchestrator struct {
	session  *session.Session
	registry *builtin.Registry
	metrics  *metrics.Metrics
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(o *Orchestrator)

// WithRegistry replaces the default builtin registry.
func WithRegistry(reg *builtin.Registry) OrchestratorOption {
	return func(o *Orchestrator) {
		o.registry = reg
	}
}

// WithOrchestratorMetrics records every task on m.
func WithOrchestratorMetrics(m *metrics.Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// NewOrchestrator creates an Orchestrator bound to s.
func NewOrchestrator(s *session.Session, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		session:  s,
		registry: builtin.NewDefault(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Session returns the session units run in.
func (o *Orchestrator) Session() *session.Session { return o.session }

// Registry returns the builtin registry.
func (o *Orchestrator) Registry() *builtin.Registry { return o.registry }

// Process builds a process unit for an already resolved executable path.
func (o *Orchestrator) Process(path string, args ...string) *unit.ProcessUnit {
	return unit.NewProcess(path, o.session, args...)
}

// Builtin builds a unit for a registered builtin.
func (o *Orchestrator) Builtin(name string, args ...string) (*unit.BuiltinUnit, error) {
	b, ok := o.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBuiltin, name)
	}

	return unit.NewBuiltin(b, o.registry, o.session, args...), nil
}

// Command builds the unit matching a resolution result. Unresolved names become
// process units whose start fails.
func (o *Orchestrator) Command(res resolve.Result, args ...string) (unit.Unit, error) {
	if res.Kind == resolve.KindBuiltin {
		return o.Builtin(res.Name, args...)
	}

	return o.Process(res.Path, args...), nil
}

// Execute starts a task with behaviour b. Foreground tasks have terminated when
// Execute returns; call Join to classify them. Background tasks are still running.
func (o *Orchestrator) Execute(ctx context.Context, b behavior.Behavior, units []unit.Unit) (*Task, error) {
	t, err := NewTask(o.session, b, units, WithMetrics(o.metrics))
	if err != nil {
		return nil, err
	}

	if err := t.Start(ctx); err != nil {
		return t, err
	}

	return t, nil
}

func (o *Orchestrator) run(ctx context.Context, b behavior.Behavior, err error, units []unit.Unit) (*Task, error) {
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	t, err := o.Execute(ctx, b, units)
	if err != nil {
		return t, err
	}

	return t, t.Join(ctx)
}

// Run executes the units as a statement: output goes to the console and failures are
// returned.
func (o *Orchestrator) Run(ctx context.Context, units []unit.Unit, opts ...behavior.Option) error {
	b, err := behavior.Statement(opts...)
	_, err = o.run(ctx, b, err, units)

	return err
}

// Status executes the units and returns the last unit's exit status. Failures are
// not returned as errors.
func (o *Orchestrator) Status(ctx context.Context, units []unit.Unit, opts ...behavior.Option) (int, error) {
	b, err := behavior.Status(opts...)

	t, err := o.run(ctx, b, err, units)
	if t == nil {
		return -1, err
	}

	status, _ := t.ExitStatus(ctx)

	return status, err
}

// Bool executes the units and reports whether the last one exited with status zero.
func (o *Orchestrator) Bool(ctx context.Context, units []unit.Unit, opts ...behavior.Option) (bool, error) {
	b, err := behavior.Boolean(opts...)

	t, err := o.run(ctx, b, err, units)
	if t == nil {
		return false, err
	}

	status, _ := t.ExitStatus(ctx)

	return status == 0, err
}

// String executes the units and returns their captured output with trailing newlines
// removed, as command substitution does.
func (o *Orchestrator) String(ctx context.Context, units []unit.Unit, opts ...behavior.Option) (string, error) {
	buf := &bytes.Buffer{}
	b, err := behavior.Substitution(buf, opts...)

	_, err = o.run(ctx, b, err, units)

	return strings.TrimRight(buf.String(), "\n"), err
}

// Handle executes the units and returns the live task. With background set the task
// is returned while its units still run.
func (o *Orchestrator) Handle(ctx context.Context, background bool, units []unit.Unit, opts ...behavior.Option) (*Task, error) {
	if background {
		opts = append(opts, behavior.WithFlags(behavior.Background))
	}

	b, err := behavior.Handle(opts...)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return o.Execute(ctx, b, units)
}
