// Package ai defines the embedding provider contract shared by the scoring
// pipeline and the concrete provider clients.
package ai

import (
	"context"
	"errors"
)

// Supported provider names.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// ErrNotConfigured is returned when an embedding provider is used before it was initialized.
var ErrNotConfigured = errors.New("embedding provider is not configured")

// Embedder maps texts to fixed-length vectors.
//
// Embed must return exactly one vector per input text, in input order, and all
// vectors of one call must share the same dimensionality. Implementations are
// safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Provider() string
	Model() string
}
