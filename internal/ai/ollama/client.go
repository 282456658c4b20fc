// Package ollama implements the embedding provider against a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/ai"
	"github.com/spigell/resume-scorer/internal/utils"
)

const (
	defaultEndpoint  = "http://localhost:11434"
	defaultModel     = "nomic-embed-text"
	defaultTimeout   = 30 * time.Second
	availableTimeout = 3 * time.Second
	errorBodyLimit   = 200
)

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Options configures the Ollama embedder.
type Options struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Embedder generates embeddings via the Ollama HTTP API.
type Embedder struct {
	endpoint string
	model    string
	client   *http.Client
	logger   *zap.Logger
}

// NewEmbedder creates an Embedder. No request is made until Embed or Available is called.
func NewEmbedder(opts Options) *Embedder {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Available reports whether the server answers and has the configured model pulled.
func (e *Embedder) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, availableTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Debug("ollama tags request failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}

	for _, m := range tags.Models {
		// "model" matches "model:latest".
		if m.Name == e.model || m.Name == e.model+":latest" {
			return true
		}
	}
	return false
}

// Embed returns one vector per text using a single batched request.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e == nil || e.client == nil {
		return nil, ai.ErrNotConfigured
	}
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("embed request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, utils.TruncateForLog(string(payload), errorBodyLimit))
	}

	var parsed embedResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("parse embed response: %w", err)
	}

	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d texts", len(parsed.Embeddings), len(texts))
	}
	for i, vec := range parsed.Embeddings {
		if len(vec) == 0 {
			return nil, fmt.Errorf("ollama returned an empty embedding at index %d", i)
		}
	}

	return parsed.Embeddings, nil
}

// Provider reports the provider name.
func (e *Embedder) Provider() string { return ai.ProviderOllama }

// Model reports the configured embedding model.
func (e *Embedder) Model() string {
	if e == nil {
		return ""
	}
	return e.model
}
