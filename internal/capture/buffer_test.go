// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package capture

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_LastLine(t *testing.T) {
	tests := []struct {
		name     string
		writes   []string
		expected string
	}{
		{
			name:     "single line with newline",
			writes:   []string{"hello world\n"},
			expected: "hello world",
		},
		{
			name:     "single line without newline",
			writes:   []string{"hello world"},
			expected: "hello world",
		},
		{
			name:     "trailing blank lines are skipped",
			writes:   []string{"first\nsecond\n\n\n"},
			expected: "second",
		},
		{
			name:     "line split across writes",
			writes:   []string{"par", "tial li", "ne\nnext"},
			expected: "next",
		},
		{
			name:     "carriage return is trimmed",
			writes:   []string{"windows\r\n"},
			expected: "windows",
		},
		{
			name:     "nothing written",
			writes:   nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New()
			for _, w := range tt.writes {
				n, err := b.Write([]byte(w))
				require.NoError(t, err)
				assert.Equal(t, len(w), n)
			}

			assert.Equal(t, tt.expected, b.LastLine(0))
		})
	}
}

func TestBuffer_LastLineTruncation(t *testing.T) {
	b := New()
	_, _ = b.Write([]byte("this is a very long line indeed\n"))

	assert.Equal(t, "this is...", b.LastLine(10))
	assert.Equal(t, "this is a very long line indeed", b.LastLine(100))
}

func TestBuffer_BytesIsACopy(t *testing.T) {
	b := New()
	_, _ = b.Write([]byte("abc"))

	got := b.Bytes()
	got[0] = 'z'

	assert.Equal(t, "abc", b.String())
	assert.Equal(t, 3, b.Len())
}

func TestBuffer_Reset(t *testing.T) {
	b := New()
	_, _ = b.Write([]byte("line one\npartial"))

	b.Reset()

	assert.Empty(t, b.String())
	assert.Empty(t, b.LastLine(0))
}

func TestBuffer_ConcurrentWritesAreAtomic(t *testing.T) {
	b := New()

	const (
		writers = 8
		blocks  = 200
	)

	var wg sync.WaitGroup

	for w := range writers {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			block := []byte(fmt.Sprintf("<%d:%s>\n", id, bytes.Repeat([]byte{'x'}, 32)))
			for range blocks {
				_, _ = b.Write(block)
			}
		}(w)
	}

	wg.Wait()

	lines := bytes.Split(bytes.TrimSuffix(b.Bytes(), []byte("\n")), []byte("\n"))
	require.Len(t, lines, writers*blocks)

	for _, line := range lines {
		assert.True(t, bytes.HasPrefix(line, []byte("<")) && bytes.HasSuffix(line, []byte(">")),
			"interleaved block: %q", line)
	}
}
