// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package streampump

import (
	"errors"
	"io"
	"slices"
	"sync"
	"sync/atomic"
)

// DefaultBlockSize is the size of the copy buffer used by a Pump.
const DefaultBlockSize = 32 * 1024

var (
	// ErrAlreadyStarted is returned by Start when the pump is already running.
	ErrAlreadyStarted = errors.New("pump already started")
	// ErrNotStarted is returned by Join when Start was never called.
	ErrNotStarted = errors.New("pump not started")
	// ErrNoSinks is returned by Join when every sink failed before the source was exhausted.
	ErrNoSinks = errors.New("all sinks failed")
)

type sink struct {
	w     io.Writer
	close bool
	err   error
}

// Pump copies a source stream into a set of sinks.
type Pump struct {
	src         io.Reader
	sinks       []*sink
	closeSource bool
	blockSize   int

	mu      sync.Mutex
	started bool
	aborted atomic.Bool
	done    chan struct{}
	err     error
}

// Option configures a Pump.
type Option func(p *Pump)

// WithSink adds a destination. When closeOnDone is set and the sink implements io.Closer
// it is closed once the pump finishes or the sink fails.
func WithSink(w io.Writer, closeOnDone bool) Option {
	return func(p *Pump) {
		if w == nil {
			return
		}

		p.sinks = append(p.sinks, &sink{w: w, close: closeOnDone})
	}
}

// WithCloseSource closes the source (if it is an io.Closer) when the pump finishes.
func WithCloseSource() Option {
	return func(p *Pump) {
		p.closeSource = true
	}
}

// WithBlockSize overrides DefaultBlockSize.
func WithBlockSize(n int) Option {
	return func(p *Pump) {
		if n > 0 {
			p.blockSize = n
		}
	}
}

// New creates a pump. It does nothing until Start is called.
func New(src io.Reader, opts ...Option) *Pump {
	p := &Pump{
		src:       src,
		blockSize: DefaultBlockSize,
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	// Without a sink the source is still drained so the writer never blocks.
	if len(p.sinks) == 0 {
		p.sinks = append(p.sinks, &sink{w: io.Discard})
	}

	return p
}

// Start launches the copy goroutine.
func (p *Pump) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}

	p.started = true

	go p.run()

	return nil
}

// Done is closed once the pump has finished.
func (p *Pump) Done() <-chan struct{} {
	return p.done
}

// Join blocks until the pump finishes and returns the source read error, if any.
// End of stream is not an error.
func (p *Pump) Join() error {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()

	if !started {
		return ErrNotStarted
	}

	<-p.done

	return p.err
}

// Abort closes the source so that a blocked read returns and the pump winds down.
// It is used when a timeout fires and the captured output is no longer wanted.
func (p *Pump) Abort() {
	p.aborted.Store(true)

	if c, ok := p.src.(io.Closer); ok {
		_ = c.Close()
	}
}

// SinkErrors returns the errors of sinks that were dropped, in the order the sinks were added.
// Only meaningful after Join.
func (p *Pump) SinkErrors() []error {
	var errs []error

	for _, s := range p.sinks {
		if s.err != nil {
			errs = append(errs, s.err)
		}
	}

	return errs
}

func (p *Pump) run() {
	defer close(p.done)

	active := slices.Clone(p.sinks)
	buf := make([]byte, p.blockSize)

	for len(active) > 0 {
		n, rerr := p.src.Read(buf)
		if n > 0 {
			active = slices.DeleteFunc(active, func(s *sink) bool {
				_, werr := s.w.Write(buf[:n])
				if werr == nil {
					return false
				}

				s.err = werr
				closeSink(s)

				return true
			})
		}

		if rerr != nil {
			if !p.aborted.Load() && !errors.Is(rerr, io.EOF) && !errors.Is(rerr, io.ErrClosedPipe) {
				p.err = rerr
			}

			break
		}
	}

	if len(active) == 0 && len(p.sinks) > 0 && p.err == nil && allFailed(p.sinks) {
		p.err = ErrNoSinks
	}

	for _, s := range active {
		closeSink(s)
	}

	if p.closeSource {
		if c, ok := p.src.(io.Closer); ok {
			_ = c.Close()
		}
	}
}

func allFailed(sinks []*sink) bool {
	for _, s := range sinks {
		if s.err == nil {
			return false
		}
	}

	return true
}

func closeSink(s *sink) {
	if !s.close {
		return
	}

	if c, ok := s.w.(io.Closer); ok {
		_ = c.Close()
	}
}
