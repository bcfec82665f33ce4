// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"testing"

	"github.com/matt-FFFFFF/dsh/internal/redirect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		line      string
		wantWords [][]string
		wantRedir [][]redirect.Directive
		wantErr   error
	}{
		{
			name:      "single command",
			line:      "ls -l",
			wantWords: [][]string{{"ls", "-l"}},
			wantRedir: [][]redirect.Directive{nil},
		},
		{
			name:      "pipeline",
			line:      "ls -l | sort -k5 | head -n 1",
			wantWords: [][]string{{"ls", "-l"}, {"sort", "-k5"}, {"head", "-n", "1"}},
			wantRedir: [][]redirect.Directive{nil, nil, nil},
		},
		{
			name:      "quoted words",
			line:      `printf '%s\n' "a b"`,
			wantWords: [][]string{{"printf", `%s\n`, "a b"}},
			wantRedir: [][]redirect.Directive{nil},
		},
		{
			name:      "redirects",
			line:      "sort < in.txt > out.txt 2>&1",
			wantWords: [][]string{{"sort"}},
			wantRedir: [][]redirect.Directive{{
				{Mode: redirect.ReadFromFile, Target: "in.txt"},
				{Mode: redirect.WriteStdout, Target: "out.txt"},
				{Mode: redirect.MergeStderrIntoStdout},
			}},
		},
		{
			name:      "redirect inside pipeline",
			line:      "cat 2>> err.log | wc -l &> count",
			wantWords: [][]string{{"cat"}, {"wc", "-l"}},
			wantRedir: [][]redirect.Directive{
				{{Mode: redirect.WriteStderrAppend, Target: "err.log"}},
				{{Mode: redirect.MergeThenWrite, Target: "count"}},
			},
		},
		{
			name:    "empty",
			line:    "   ",
			wantErr: ErrEmptyPipeline,
		},
		{
			name:    "leading pipe",
			line:    "| sort",
			wantErr: ErrEmptyStage,
		},
		{
			name:    "trailing pipe",
			line:    "ls |",
			wantErr: ErrEmptyStage,
		},
		{
			name:    "double pipe",
			line:    "ls | | sort",
			wantErr: ErrEmptyStage,
		},
		{
			name:    "redirect only",
			line:    "> out",
			wantErr: ErrEmptyStage,
		},
		{
			name:    "redirect without target",
			line:    "ls >",
			wantErr: redirect.ErrMissingTarget,
		},
		{
			name:    "redirect followed by pipe",
			line:    "ls > | sort",
			wantErr: redirect.ErrMissingTarget,
		},
		{
			name:    "unterminated quote",
			line:    `echo "abc`,
			wantErr: ErrSplit,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			stages, err := parse(tc.line)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, stages)

				return
			}

			require.NoError(t, err)
			require.Len(t, stages, len(tc.wantWords))

			for i, st := range stages {
				assert.Equal(t, tc.wantWords[i], st.words)
				assert.Equal(t, tc.wantRedir[i], st.redirects)
			}
		})
	}
}

func TestStageString(t *testing.T) {
	t.Parallel()

	stages, err := parse("sort -r < in > out")
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, "sort -r < in > out", stages[0].String())
}
