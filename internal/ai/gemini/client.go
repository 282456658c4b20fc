package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-scorer/internal/ai"
	"github.com/spigell/resume-scorer/internal/utils"
)

const (
	defaultModel      = "gemini-embedding-001"
	defaultMaxRetries = 3
	taskType          = "SEMANTIC_SIMILARITY"

	retryBaseDelay = time.Second
	maxRetryDelay  = 30 * time.Second
)

var retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*(s|sec|second|seconds)?\b`)

type embedModels interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Options configures the Gemini embedder.
type Options struct {
	APIKey     string
	Model      string
	MaxRetries int
	Dimensions int
	Logger     *zap.Logger
}

// Embedder produces embeddings through the Gemini API.
type Embedder struct {
	models     embedModels
	model      string
	dimensions int32
	maxRetries int
	logger     *zap.Logger
	wait       func(context.Context, time.Duration) error
}

// NewEmbedder creates an Embedder configured for the Gemini API backend.
func NewEmbedder(ctx context.Context, opts Options) (*Embedder, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newEmbedder(client.Models, opts), nil
}

func newEmbedder(models embedModels, opts Options) *Embedder {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		models:     models,
		model:      model,
		dimensions: int32(opts.Dimensions),
		maxRetries: retries,
		logger:     logger,
		wait:       utils.WaitFor,
	}
}

// Embed returns one vector per text using a single batched request.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e == nil || e.models == nil {
		return nil, ai.ErrNotConfigured
	}
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	config := &genai.EmbedContentConfig{TaskType: taskType}
	if e.dimensions > 0 {
		dims := e.dimensions
		config.OutputDimensionality = &dims
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		resp, err := e.models.EmbedContent(ctx, e.model, contents, config)
		if err == nil {
			return vectors(resp, len(texts))
		}
		lastErr = err

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == e.maxRetries {
			break
		}

		e.logger.Warn("gemini embed request failed, retrying",
			zap.String("model", e.model),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := e.wait(ctx, delay); err != nil {
			return nil, fmt.Errorf("embed content: %w", err)
		}
	}

	return nil, fmt.Errorf("embed content: %w", lastErr)
}

// Provider reports the provider name.
func (e *Embedder) Provider() string { return ai.ProviderGemini }

// Model reports the configured embedding model.
func (e *Embedder) Model() string {
	if e == nil {
		return ""
	}
	return e.model
}

func vectors(resp *genai.EmbedContentResponse, want int) ([][]float32, error) {
	if resp == nil {
		return nil, errors.New("gemini api returned empty response")
	}
	if len(resp.Embeddings) != want {
		return nil, fmt.Errorf("gemini api returned %d embeddings for %d texts", len(resp.Embeddings), want)
	}

	out := make([][]float32, 0, want)
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini api returned empty embedding at index %d", i)
		}
		out = append(out, emb.Values)
	}
	return out, nil
}

// retryDelay decides whether err is transient and how long to wait before the next attempt.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	apiErr, ok := asAPIError(err)
	if !ok {
		return 0, false
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		if hinted, ok := parseRetryAfter(apiErr.Message); ok {
			if hinted > maxRetryDelay {
				return 0, false
			}
			return hinted, true
		}
		return utils.Backoff(retryBaseDelay, maxRetryDelay, attempt), true
	case apiErr.Code >= http.StatusInternalServerError:
		return utils.Backoff(retryBaseDelay, maxRetryDelay, attempt), true
	default:
		return 0, false
	}
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

func parseRetryAfter(message string) (time.Duration, bool) {
	match := retryAfterPattern.FindStringSubmatch(message)
	if match == nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}
