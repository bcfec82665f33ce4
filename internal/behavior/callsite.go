// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package behavior

import "io"

// Each call site below corresponds to the way compiled code uses a pipeline expression.
// Extra options (timeout, background) are applied on top.

// Statement is a pipeline used as a statement: output goes to the console and
// failures are raised.
func Statement(opts ...Option) (Behavior, error) {
	return New(ShapeVoid, Printable|Throwable, opts...)
}

// Status yields the exit status of the last unit without raising failures.
func Status(opts ...Option) (Behavior, error) {
	return New(ShapeInteger, Returnable|Printable, opts...)
}

// Boolean yields the exit status to be compared to zero; failures are raised.
func Boolean(opts ...Option) (Behavior, error) {
	return New(ShapeInteger, Returnable|Throwable, opts...)
}

// Handle yields a live handle to the pipeline.
func Handle(opts ...Option) (Behavior, error) {
	return New(ShapeHandle, Returnable|Throwable|Printable, opts...)
}

// Substitution captures standard output into w and raises failures.
func Substitution(w io.Writer, opts ...Option) (Behavior, error) {
	return New(ShapeVoid, Returnable|Throwable, append([]Option{WithCapture(w)}, opts...)...)
}
