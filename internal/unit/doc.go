// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package unit provides the runnable steps of a pipeline.
//
// A Unit is either an operating system process (ProcessUnit) or a builtin executed
// on a goroutine inside the shell (BuiltinUnit). Both share one contract: collect
// arguments and redirects, start once, hand out each of their three streams at most
// once, and report termination through a channel, a blocking wait or a
// non-blocking check.
package unit
