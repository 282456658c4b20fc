package openai

import (
	"context"
	"errors"
	"testing"

	goopenai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

type fakeEmbeddings struct {
	resp   *goopenai.CreateEmbeddingResponse
	err    error
	params []goopenai.EmbeddingNewParams
}

func (f *fakeEmbeddings) New(ctx context.Context, body goopenai.EmbeddingNewParams, opts ...option.RequestOption) (*goopenai.CreateEmbeddingResponse, error) {
	f.params = append(f.params, body)
	return f.resp, f.err
}

func TestEmbedderOrdersByIndex(t *testing.T) {
	api := &fakeEmbeddings{resp: &goopenai.CreateEmbeddingResponse{
		Data: []goopenai.Embedding{
			{Index: 1, Embedding: []float64{0, 1}},
			{Index: 0, Embedding: []float64{1, 0}},
		},
	}}

	e := newEmbedder(api, Options{Model: "embed-test", Dimensions: 2, Logger: zap.NewNop()})
	vectors, err := e.Embed(context.Background(), []string{"resume", "job"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Fatalf("vectors not ordered by index: %v", vectors)
	}

	if len(api.params) != 1 {
		t.Fatalf("expected one request, got %d", len(api.params))
	}
	got := api.params[0]
	if len(got.Input.OfArrayOfStrings) != 2 || got.Input.OfArrayOfStrings[0] != "resume" {
		t.Fatalf("unexpected input: %+v", got.Input.OfArrayOfStrings)
	}
	if string(got.Model) != "embed-test" {
		t.Fatalf("unexpected model: %q", got.Model)
	}
	if got.Dimensions.Value != 2 {
		t.Fatalf("expected dimensions 2, got %d", got.Dimensions.Value)
	}
}

func TestEmbedderErrors(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeEmbeddings
	}{
		{name: "api error", api: &fakeEmbeddings{err: errors.New("boom")}},
		{name: "count mismatch", api: &fakeEmbeddings{resp: &goopenai.CreateEmbeddingResponse{
			Data: []goopenai.Embedding{{Index: 0, Embedding: []float64{1}}},
		}}},
		{name: "duplicate index", api: &fakeEmbeddings{resp: &goopenai.CreateEmbeddingResponse{
			Data: []goopenai.Embedding{{Index: 0, Embedding: []float64{1}}, {Index: 0, Embedding: []float64{1}}},
		}}},
		{name: "empty vector", api: &fakeEmbeddings{resp: &goopenai.CreateEmbeddingResponse{
			Data: []goopenai.Embedding{{Index: 0, Embedding: []float64{1}}, {Index: 1}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEmbedder(tt.api, Options{})
			if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestEmbedderDefaults(t *testing.T) {
	e := newEmbedder(&fakeEmbeddings{}, Options{})
	if e.Model() != defaultModel {
		t.Fatalf("expected default model, got %q", e.Model())
	}
	if e.Provider() != "openai" {
		t.Fatalf("unexpected provider %q", e.Provider())
	}
}

func TestNewEmbedderRequiresAPIKey(t *testing.T) {
	if _, err := NewEmbedder(Options{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
