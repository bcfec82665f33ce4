// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a *slog.Logger in a context.Context.
//
// The default logger writes human-readable lines to standard error so that
// diagnostics never mix with pipeline output on standard output. The level is
// read from DSH_LOG_LEVEL at start-up and can be changed later through LevelVar.
package ctxlog
