// Package provider talks to the external inference service that turns an
// image into a streamed textual answer.
package provider

import (
	"context"

	"github.com/dmitrijs2005/mathsolver/internal/server/inputs"
)

// Input is one inference request.
type Input struct {
	Prompt string
	Image  inputs.Image
}

// Stream yields output deltas in order. Recv returns io.EOF after the last
// delta. Deltas may be empty.
type Stream interface {
	Recv() (string, error)
	Close() error
}

type Provider interface {
	Open(ctx context.Context, in Input) (Stream, error)
}
