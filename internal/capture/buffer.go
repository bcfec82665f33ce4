// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package capture

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

var _ io.Writer = (*Buffer)(nil)

// Buffer is an io.Writer that keeps everything written to it.
// Each call to Write is applied atomically, so concurrent writers never interleave
// within a single block. It is safe for concurrent use.
type Buffer struct {
	full     bytes.Buffer
	lastLine string
	partial  strings.Builder // bytes after the last newline
	mu       sync.RWMutex
}

// New creates an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

// Write implements io.Writer. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.full.Write(p)
	b.trackLines(string(p))

	return len(p), nil
}

// trackLines must be called with the write lock held.
func (b *Buffer) trackLines(data string) {
	b.partial.WriteString(data)
	combined := b.partial.String()

	lines := strings.Split(combined, "\n")
	if len(lines) == 1 {
		return
	}

	for i := len(lines) - 2; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			b.lastLine = lines[i]
			break
		}
	}

	b.partial.Reset()

	if data[len(data)-1] != '\n' {
		b.partial.WriteString(lines[len(lines)-1])
	}
}

// String returns everything written so far.
func (b *Buffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.full.String()
}

// Bytes returns a copy of everything written so far.
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return bytes.Clone(b.full.Bytes())
}

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.full.Len()
}

// LastLine returns the last non-empty line written, including a trailing partial line
// if the output did not end in a newline.
// If maxLength > 0 the line is truncated to that length with a "..." suffix.
func (b *Buffer) LastLine(maxLength int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := b.lastLine
	if p := b.partial.String(); strings.TrimSpace(p) != "" {
		result = p
	}

	result = strings.TrimRight(result, "\r")

	if maxLength > 3 && len(result) > maxLength {
		result = result[:maxLength-3] + "..."
	}

	return result
}

// Reset discards all captured data.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.full.Reset()
	b.lastLine = ""
	b.partial.Reset()
}
