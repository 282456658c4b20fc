package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-scorer/internal/ai"
)

type embedCall struct {
	model    string
	contents []*genai.Content
	config   *genai.EmbedContentConfig
}

type fakeEmbedResponse struct {
	resp *genai.EmbedContentResponse
	err  error
}

type fakeModels struct {
	mu    sync.Mutex
	calls []embedCall
	queue []fakeEmbedResponse
}

func (f *fakeModels) enqueue(resp *genai.EmbedContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeEmbedResponse{resp: resp, err: err})
}

func (f *fakeModels) EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, embedCall{model: model, contents: contents, config: config})
	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res.resp, res.err
}

func embeddings(vectors ...[]float32) *genai.EmbedContentResponse {
	resp := &genai.EmbedContentResponse{}
	for _, v := range vectors {
		resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{Values: v})
	}
	return resp
}

func newTestEmbedder(models *fakeModels, retries int) *Embedder {
	e := newEmbedder(models, Options{Model: "embed-test", MaxRetries: retries, Logger: zap.NewNop()})
	e.wait = func(context.Context, time.Duration) error { return nil }
	return e
}

func TestEmbedderBatchesTextsInOrder(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(embeddings([]float32{1, 0}, []float32{0, 1}), nil)

	e := newTestEmbedder(models, 1)
	e.dimensions = 2

	vectors, err := e.Embed(context.Background(), []string{"resume text", "job text"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(vectors) != 2 || vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected a single batched call, got %d", len(models.calls))
	}
	call := models.calls[0]
	if call.model != "embed-test" {
		t.Fatalf("unexpected model: %q", call.model)
	}
	if len(call.contents) != 2 || call.contents[0].Parts[0].Text != "resume text" || call.contents[1].Parts[0].Text != "job text" {
		t.Fatalf("unexpected contents: %+v", call.contents)
	}
	if call.config == nil || call.config.OutputDimensionality == nil || *call.config.OutputDimensionality != 2 {
		t.Fatalf("expected output dimensionality to be set: %+v", call.config)
	}
}

func TestEmbedderRetriesOnTemporaryError(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	models.enqueue(embeddings([]float32{1}, []float32{1}), nil)

	vectors, err := newTestEmbedder(models, 2).Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestEmbedderStopsAfterRetriesExhausted(t *testing.T) {
	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	_, err := newTestEmbedder(models, 2).Embed(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestEmbedderDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	_, err := newTestEmbedder(models, 3).Embed(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error when quota delay too long")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestEmbedderDoesNotRetryClientErrors(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	_, err := newTestEmbedder(models, 3).Embed(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestEmbedderRejectsMismatchedResponse(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.EmbedContentResponse
	}{
		{name: "nil response", resp: nil},
		{name: "too few embeddings", resp: embeddings([]float32{1})},
		{name: "empty embedding", resp: embeddings([]float32{1}, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := &fakeModels{}
			models.enqueue(tt.resp, nil)

			if _, err := newTestEmbedder(models, 1).Embed(context.Background(), []string{"a", "b"}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestEmbedderNotConfigured(t *testing.T) {
	var e *Embedder
	if _, err := e.Embed(context.Background(), []string{"a"}); !errors.Is(err, ai.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message string
		expect  time.Duration
		ok      bool
	}{
		{message: "retry after 60 seconds", expect: time.Minute, ok: true},
		{message: "Please retry in 2.5s.", expect: 2500 * time.Millisecond, ok: true},
		{message: "quota exhausted", ok: false},
	}

	for _, tt := range tests {
		got, ok := parseRetryAfter(tt.message)
		if ok != tt.ok || got != tt.expect {
			t.Fatalf("%q: expected (%s, %v), got (%s, %v)", tt.message, tt.expect, tt.ok, got, ok)
		}
	}
}

func TestNewEmbedderRequiresAPIKey(t *testing.T) {
	if _, err := NewEmbedder(context.Background(), Options{APIKey: "  "}); err == nil {
		t.Fatal("expected error for blank api key")
	}
}
