// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anmitsu/go-shlex"
	"github.com/matt-FFFFFF/dsh/internal/redirect"
)

const pipeToken = "|"

var (
	// ErrEmptyPipeline is returned when the command line has no words.
	ErrEmptyPipeline = errors.New("empty pipeline")
	// ErrEmptyStage is returned for a pipe with no command on one side.
	ErrEmptyStage = errors.New("missing command in pipeline")
	// ErrSplit is returned when the command line cannot be split into words.
	ErrSplit = errors.New("failed to split command line")
)

// stage is one command of a pipeline with its redirects.
type stage struct {
	words     []string
	redirects []redirect.Directive
}

func (s stage) String() string {
	parts := append([]string(nil), s.words...)
	for _, d := range s.redirects {
		parts = append(parts, d.String())
	}

	return strings.Join(parts, " ")
}

// parse splits line into pipeline stages. Pipes and redirect operators must be
// separate words: "a | b > out", not "a|b>out".
func parse(line string) ([]stage, error) {
	words, err := shlex.Split(line, true)
	if err != nil {
		return nil, errors.Join(ErrSplit, err)
	}

	if len(words) == 0 {
		return nil, ErrEmptyPipeline
	}

	var (
		stages []stage
		cur    stage
	)

	for i := 0; i < len(words); i++ {
		w := words[i]

		switch {
		case w == pipeToken:
			if len(cur.words) == 0 {
				return nil, fmt.Errorf("%w: before %q", ErrEmptyStage, pipeToken)
			}

			stages = append(stages, cur)
			cur = stage{}
		case redirect.IsToken(w):
			mode, err := redirect.ParseToken(w)
			if err != nil {
				return nil, err //nolint:wrapcheck
			}

			var target string

			if mode.NeedsTarget() && i+1 < len(words) && words[i+1] != pipeToken {
				i++
				target = words[i]
			}

			d, err := redirect.New(mode, target)
			if err != nil {
				return nil, err //nolint:wrapcheck
			}

			cur.redirects = append(cur.redirects, d)
		default:
			cur.words = append(cur.words, w)
		}
	}

	if len(cur.words) == 0 {
		if len(stages) == 0 {
			return nil, ErrEmptyStage
		}

		return nil, fmt.Errorf("%w: after %q", ErrEmptyStage, pipeToken)
	}

	return append(stages, cur), nil
}
