package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/ai"
	"github.com/spigell/resume-scorer/internal/ai/gemini"
	"github.com/spigell/resume-scorer/internal/ai/ollama"
	"github.com/spigell/resume-scorer/internal/ai/openai"
	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/rules"
	"github.com/spigell/resume-scorer/internal/scoring"
	"github.com/spigell/resume-scorer/internal/secrets"
)

// newEmbedder builds the configured embedding provider.
func newEmbedder(ctx context.Context, cfg EmbeddingConfig, log *zap.Logger) (ai.Embedder, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider == "" {
		provider = ai.ProviderGemini
	}

	providerLogger := logger.WithEmbedding(log, provider, cfg.Model).With(
		zap.Int("embedding_retry_attempts", cfg.MaxRetries),
	)

	switch provider {
	case ai.ProviderGemini:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.APIKey,
			File:  cfg.APIKeyFile,
			Env:   []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"},
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set embedding.api-key-file or GEMINI_API_KEY)", err)
		}
		return gemini.NewEmbedder(ctx, gemini.Options{
			APIKey:     apiKey,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
			Dimensions: cfg.Dimensions,
			Logger:     providerLogger,
		})

	case ai.ProviderOpenAI:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			Value: cfg.APIKey,
			File:  cfg.APIKeyFile,
			Env:   []string{"OPENAI_API_KEY"},
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set embedding.api-key-file or OPENAI_API_KEY)", err)
		}
		return openai.NewEmbedder(openai.Options{
			APIKey:     apiKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
			Timeout:    cfg.Timeout,
			Dimensions: cfg.Dimensions,
			Logger:     providerLogger,
		})

	case ai.ProviderOllama:
		return ollama.NewEmbedder(ollama.Options{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			Logger:  providerLogger,
		}), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// newScoring wires the scorer and analyzer. A provider that fails to load
// leaves the scorer without an embedder so requests report scoring as unavailable.
func newScoring(ctx context.Context, config *Config, log *zap.Logger) (*scoring.Scorer, *scoring.Analyzer, error) {
	ruleset, err := rules.Configure(config.Scoring.DisabledRecommendations)
	if err != nil {
		return nil, nil, fmt.Errorf("configure recommendations: %w", err)
	}

	embedder, err := newEmbedder(ctx, config.Embedding, log)
	if err != nil {
		log.Warn("embedding provider is not loaded; scoring will be unavailable", zap.Error(err))
		embedder = nil
	}

	scorer := scoring.NewScorer(embedder, log)
	return scorer, scoring.NewAnalyzer(scorer, ruleset, log), nil
}
