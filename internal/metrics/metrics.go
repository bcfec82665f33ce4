// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package metrics counts pipeline activity on a private prometheus registry.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for pipelines and their units.
type Metrics struct {
	pipelinesTotal   *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	unitsTotal       *prometheus.CounterVec
	unitFailures     *prometheus.CounterVec
	startFailures    prometheus.Counter
	timeouts         prometheus.Counter
	running          prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		pipelinesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dsh_pipelines_total",
				Help: "Pipelines started, by return shape",
			},
			[]string{"shape"},
		),

		pipelineDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dsh_pipeline_duration_seconds",
				Help:    "Time from pipeline start to join",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"shape", "outcome"},
		),

		unitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dsh_units_total",
				Help: "Units started, by kind",
			},
			[]string{"kind"},
		),

		unitFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dsh_unit_failures_total",
				Help: "Units classified as failed, by kind",
			},
			[]string{"kind"},
		),

		startFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dsh_start_failures_total",
				Help: "Units that could not be started",
			},
		),

		timeouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dsh_pipeline_timeouts_total",
				Help: "Pipelines killed because their timeout expired",
			},
		),

		running: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dsh_pipelines_running",
				Help: "Pipelines started and not yet joined",
			},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.pipelinesTotal,
		m.pipelineDuration,
		m.unitsTotal,
		m.unitFailures,
		m.startFailures,
		m.timeouts,
		m.running,
	)

	return m
}

// Registry exposes the registry, e.g. for Gather in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}

	return m.registry
}

// PipelineStarted records a pipeline start.
func (m *Metrics) PipelineStarted(shape string) {
	if m == nil {
		return
	}

	m.pipelinesTotal.WithLabelValues(shape).Inc()
	m.running.Inc()
}

// PipelineFinished records the join of a pipeline. outcome is "ok", "error",
// "timeout" or "interrupted".
func (m *Metrics) PipelineFinished(shape, outcome string, d time.Duration) {
	if m == nil {
		return
	}

	m.pipelineDuration.WithLabelValues(shape, outcome).Observe(d.Seconds())
	m.running.Dec()
}

// UnitStarted records a unit start.
func (m *Metrics) UnitStarted(kind string) {
	if m == nil {
		return
	}

	m.unitsTotal.WithLabelValues(kind).Inc()
}

// UnitFailed records a unit whose outcome was an error.
func (m *Metrics) UnitFailed(kind string) {
	if m == nil {
		return
	}

	m.unitFailures.WithLabelValues(kind).Inc()
}

// StartFailed records a unit that could not be started.
func (m *Metrics) StartFailed() {
	if m == nil {
		return
	}

	m.startFailures.Inc()
}

// TimedOut records a pipeline timeout.
func (m *Metrics) TimedOut() {
	if m == nil {
		return
	}

	m.timeouts.Inc()
}

// WriteToTextfile writes every metric in the text exposition format, suitable for the
// node exporter textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}

	return nil
}
