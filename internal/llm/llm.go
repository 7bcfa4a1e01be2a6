package llm

import (
	"context"
	"encoding/json"
	"errors"

	"studyviz-backend/internal/visualizations"
)

// Client generates a visualization payload from document text.
type Client interface {
	Generate(ctx context.Context, input GenerateInput) (json.RawMessage, error)
}

// GenerateInput captures the inputs needed for one generation call.
type GenerateInput struct {
	Kind visualizations.Kind
	Text string
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is used when no provider is configured.
type PlaceholderClient struct{}

// Generate returns ErrNotImplemented.
func (PlaceholderClient) Generate(ctx context.Context, input GenerateInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	return nil, ErrNotImplemented
}

var _ Client = PlaceholderClient{}
