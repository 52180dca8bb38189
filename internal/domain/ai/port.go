package ai

import (
	"context"
	"io"
)

// Client is the inference provider capability: push media, wait until the
// provider reports it usable, then run stateless prompt calls against it.
type Client interface {
	// Upload pushes media to the provider and returns its handle.
	Upload(ctx context.Context, r io.Reader, filename, mimeType string) (*Asset, error)

	// AwaitActive polls the asset until it is active. It returns
	// ErrProcessingFailed on any other terminal state and respects ctx
	// cancellation and the client's configured poll timeout.
	AwaitActive(ctx context.Context, asset *Asset) (*Asset, error)

	// Analyze runs a vision prompt against an active asset. Every call is a
	// fresh conversation; no state is carried across requests.
	Analyze(ctx context.Context, asset *Asset, prompt string) (string, error)

	// Generate runs a text-only prompt, used for summaries and chat.
	Generate(ctx context.Context, prompt string) (string, error)
}
