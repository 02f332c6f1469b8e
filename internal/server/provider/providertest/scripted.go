// Package providertest provides an in-process provider that replays a fixed
// script of deltas, for tests of code that consumes provider streams.
package providertest

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/mathsolver/internal/server/provider"
)

// Step is one scripted event: a delta, or an error when Err is set.
// Delay is waited before the event is delivered.
type Step struct {
	Delta string
	Err   error
	Delay time.Duration
}

// Scripted returns the same script for every Open. OpenErr fails Open itself.
type Scripted struct {
	Steps   []Step
	OpenErr error

	mu     sync.Mutex
	inputs []provider.Input
	closed int
}

func (s *Scripted) Open(ctx context.Context, in provider.Input) (provider.Stream, error) {
	s.mu.Lock()
	s.inputs = append(s.inputs, in)
	s.mu.Unlock()

	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	return &stream{ctx: ctx, parent: s, steps: s.Steps}, nil
}

// Calls returns how many times Open was called.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inputs)
}

// Inputs returns what Open received, in order.
func (s *Scripted) Inputs() []provider.Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]provider.Input(nil), s.inputs...)
}

// Closed returns how many opened streams were closed.
func (s *Scripted) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type stream struct {
	ctx    context.Context
	parent *Scripted
	steps  []Step
	pos    int
}

func (st *stream) Recv() (string, error) {
	if st.pos >= len(st.steps) {
		return "", io.EOF
	}
	step := st.steps[st.pos]
	st.pos++

	if step.Delay > 0 {
		t := time.NewTimer(step.Delay)
		defer t.Stop()
		select {
		case <-st.ctx.Done():
			return "", st.ctx.Err()
		case <-t.C:
		}
	} else if err := st.ctx.Err(); err != nil {
		return "", err
	}

	if step.Err != nil {
		return "", step.Err
	}
	return step.Delta, nil
}

func (st *stream) Close() error {
	st.parent.mu.Lock()
	st.parent.closed++
	st.parent.mu.Unlock()
	return nil
}
