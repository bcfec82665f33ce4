// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package color wraps strings in ANSI escape codes for the diagnostic stream.
// Colour is off when NO_COLOR is set, forced on by FORCE_COLOR, and otherwise
// enabled only when standard error is a terminal (checked with golang.org/x/term).
package color
