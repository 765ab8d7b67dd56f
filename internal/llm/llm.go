package llm

import (
	"context"
	"errors"
)

// Client abstracts LLM providers behind a single completion call.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Provider failures, classified so callers can distinguish "try again
// shortly" from "fix the configuration".
var (
	ErrProviderUnavailable = errors.New("llm provider unavailable")
	ErrProviderThrottled   = errors.New("llm provider throttled")
	ErrProviderRejected    = errors.New("llm provider rejected request")
	ErrProviderTimeout     = errors.New("llm provider timeout")
)

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm provider not configured")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	return "", ErrNotConfigured
}
