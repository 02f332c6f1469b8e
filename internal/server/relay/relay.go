// Package relay forwards a provider's output stream to a client as it
// arrives and accumulates the full text.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/mathsolver/internal/logging"
	"github.com/dmitrijs2005/mathsolver/internal/server/provider"
)

// ErrSinkClosed means the client could not take a chunk; the stream was
// abandoned.
var ErrSinkClosed = errors.New("relay: sink closed")

// ProviderError is a failure of the inference provider. Message is safe to
// show to the client.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return "provider: " + e.Message
}

const timeoutMessage = "timeout"

// Sink receives each chunk, in order, before the next one is read.
type Sink func(ctx context.Context, chunk string) error

type Relayer struct {
	provider provider.Provider
	timeout  time.Duration
	logger   logging.Logger
}

// New returns a Relayer. A zero timeout leaves the call bounded only by ctx.
func New(p provider.Provider, timeout time.Duration, logger logging.Logger) *Relayer {
	return &Relayer{provider: p, timeout: timeout, logger: logger}
}

// Relay opens one provider stream for in and pushes every non-empty delta to
// sink. On success it returns the concatenation of all deltas, possibly empty.
//
// Errors are a *ProviderError, ErrSinkClosed (wrapped), or ctx's own error
// when the caller cancelled. Partial output is never returned with an error.
func (r *Relayer) Relay(ctx context.Context, in provider.Input, sink Sink) (string, error) {
	rctx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	started := time.Now()

	stream, err := r.provider.Open(rctx, in)
	if err != nil {
		return "", r.classify(ctx, rctx, err)
	}
	defer stream.Close()

	var sb strings.Builder
	chunks := 0

	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			r.logger.Debug(ctx, "provider stream failed", "chunks", chunks, "error", err)
			return "", r.classify(ctx, rctx, err)
		}
		if delta == "" {
			continue
		}

		if err := sink(rctx, delta); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if errors.Is(rctx.Err(), context.DeadlineExceeded) {
				return "", &ProviderError{Message: timeoutMessage}
			}
			return "", fmt.Errorf("%w: %v", ErrSinkClosed, err)
		}

		sb.WriteString(delta)
		chunks++
	}

	r.logger.Debug(ctx, "provider stream finished", "chunks", chunks, "bytes", sb.Len(), "elapsed", time.Since(started))
	return sb.String(), nil
}

// classify separates caller cancellation from provider failures; a deadline
// that only the relay's own timeout imposed is a provider timeout.
func (r *Relayer) classify(parent, rctx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if rctx.Err() != nil && errors.Is(rctx.Err(), context.DeadlineExceeded) {
		return &ProviderError{Message: timeoutMessage}
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{Message: err.Error()}
}
