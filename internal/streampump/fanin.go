// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package streampump

import (
	"errors"
	"io"

	"github.com/matt-FFFFFF/dsh/internal/capture"
)

// FanIn collects several streams into one shared buffer, keeping a private buffer per
// source so each stream's output stays attributable to the unit that wrote it.
type FanIn struct {
	shared  *capture.Buffer
	private []*capture.Buffer
	pumps   []*Pump
	echo    io.Writer
}

// NewFanIn creates a collector for n sources. When echo is not nil every block is also
// written to it, for example the console stderr.
func NewFanIn(n int, echo io.Writer) *FanIn {
	f := &FanIn{
		shared:  capture.New(),
		private: make([]*capture.Buffer, n),
		pumps:   make([]*Pump, n),
		echo:    echo,
	}

	for i := range f.private {
		f.private[i] = capture.New()
	}

	return f
}

// Attach starts a pump from src into slot i. Slots without a source stay empty.
func (f *FanIn) Attach(i int, src io.Reader) error {
	p := New(src,
		WithSink(f.shared, false),
		WithSink(f.private[i], false),
		WithSink(f.echo, false),
		WithCloseSource(),
	)

	f.pumps[i] = p

	return p.Start()
}

// Join waits for every attached pump.
func (f *FanIn) Join() error {
	var errs []error

	for _, p := range f.pumps {
		if p == nil {
			continue
		}

		if err := p.Join(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Abort closes every attached source.
func (f *FanIn) Abort() {
	for _, p := range f.pumps {
		if p != nil {
			p.Abort()
		}
	}
}

// Combined returns everything written by every source.
func (f *FanIn) Combined() string {
	return f.shared.String()
}

// Source returns the buffer holding the output of source i.
func (f *FanIn) Source(i int) *capture.Buffer {
	return f.private[i]
}
