// Package openai implements the embedding provider on top of the OpenAI API
// and any endpoint compatible with it.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/ai"
)

const (
	defaultModel      = "text-embedding-3-small"
	defaultMaxRetries = 3
	defaultTimeout    = 30 * time.Second
)

type embeddingsAPI interface {
	New(ctx context.Context, body goopenai.EmbeddingNewParams, opts ...option.RequestOption) (*goopenai.CreateEmbeddingResponse, error)
}

// Options configures the OpenAI embedder.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	Timeout    time.Duration
	Dimensions int
	Logger     *zap.Logger
}

// Embedder produces embeddings through the OpenAI embeddings endpoint.
type Embedder struct {
	embeddings embeddingsAPI
	model      string
	dimensions int
	logger     *zap.Logger
}

// NewEmbedder creates an Embedder. Retries and request timeouts are delegated to the SDK.
func NewEmbedder(opts Options) (*Embedder, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	retries := opts.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(retries),
		option.WithRequestTimeout(timeout),
	}
	if baseURL := strings.TrimSpace(opts.BaseURL); baseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(baseURL))
	}

	client := goopenai.NewClient(requestOpts...)
	return newEmbedder(&client.Embeddings, opts), nil
}

func newEmbedder(api embeddingsAPI, opts Options) *Embedder {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		embeddings: api,
		model:      model,
		dimensions: opts.Dimensions,
		logger:     logger,
	}
}

// Embed returns one vector per text using a single batched request.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e == nil || e.embeddings == nil {
		return nil, ai.ErrNotConfigured
	}
	if len(texts) == 0 {
		return nil, nil
	}

	params := goopenai.EmbeddingNewParams{
		Input: goopenai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: goopenai.EmbeddingModel(e.model),
	}
	if e.dimensions > 0 {
		params.Dimensions = goopenai.Int(int64(e.dimensions))
	}

	resp, err := e.embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if resp == nil || len(resp.Data) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Data)
		}
		return nil, fmt.Errorf("openai api returned %d embeddings for %d texts", got, len(texts))
	}

	e.logger.Debug("openai embeddings created",
		zap.String("model", e.model),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
	)

	// The API may return items out of order; place each by its index.
	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(out) || out[idx] != nil {
			return nil, fmt.Errorf("openai api returned unexpected embedding index %d", item.Index)
		}
		if len(item.Embedding) == 0 {
			return nil, fmt.Errorf("openai api returned empty embedding at index %d", idx)
		}
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		out[idx] = vec
	}
	return out, nil
}

// Provider reports the provider name.
func (e *Embedder) Provider() string { return ai.ProviderOpenAI }

// Model reports the configured embedding model.
func (e *Embedder) Model() string {
	if e == nil {
		return ""
	}
	return e.model
}
