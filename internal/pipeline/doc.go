// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package pipeline connects units into a running task and turns its termination into
// the value a call site asked for.
//
// A Task starts every unit, connects unit i's stdout to unit i+1's stdin with a
// stream pump, optionally captures the last stdout and every stderr, and waits for
// termination either on the caller's goroutine or on a watcher goroutine when the
// behaviour asks for background execution. Join is idempotent: the first call
// gathers output and exit statuses and classifies failures, later calls return the
// stored result.
//
// The Orchestrator is the entry point used by the shell driver. Its call sites (Run,
// Status, Bool, String and Handle) pick the behaviour and shape the result.
package pipeline
