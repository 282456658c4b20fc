// Package scoring computes resume to job description compatibility scores
// from embedding similarity and derives the detailed match report.
package scoring

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/ai"
	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/text"
)

// MinTextLength is the shortest normalized text, in characters, that is sent to the embedder.
const MinTextLength = 10

// Scorer produces 0-100 compatibility scores.
type Scorer struct {
	embedder ai.Embedder
	logger   *zap.Logger
}

// NewScorer creates a Scorer. A nil embedder is allowed; every non-trivial
// Score call then fails with an UnavailableError.
func NewScorer(embedder ai.Embedder, log *zap.Logger) *Scorer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scorer{embedder: embedder, logger: log}
}

// Embedder returns the embedding provider the scorer uses. It may be nil.
func (s *Scorer) Embedder() ai.Embedder { return s.embedder }

// Score normalizes both texts and returns their compatibility in [0, 100].
// Texts shorter than MinTextLength after normalization score 0 without an embedder call.
func (s *Scorer) Score(ctx context.Context, resume, job string) (float64, error) {
	return s.scoreNormalized(ctx, text.Normalize(resume), text.Normalize(job))
}

// ScoreOrZero is Score with failures logged and reported as 0.
func (s *Scorer) ScoreOrZero(ctx context.Context, resume, job string) float64 {
	score, err := s.Score(ctx, resume, job)
	if err != nil {
		s.logger.Warn("similarity calculation failed, returning 0", zap.Error(err))
		return 0
	}
	return score
}

func (s *Scorer) scoreNormalized(ctx context.Context, resume, job string) (float64, error) {
	if text.Length(resume) < MinTextLength || text.Length(job) < MinTextLength {
		s.logger.Debug("input too short to score",
			zap.Int("resume_length", text.Length(resume)),
			zap.Int("job_description_length", text.Length(job)),
		)
		return 0, nil
	}

	if s.embedder == nil {
		return 0, unavailable("embedding provider is not loaded", ai.ErrNotConfigured)
	}

	vectors, err := s.embed(ctx, resume, job)
	if err != nil {
		return 0, unavailable("embed texts", err)
	}
	if len(vectors) != 2 {
		return 0, unavailable(fmt.Sprintf("expected 2 embeddings, got %d", len(vectors)), nil)
	}
	a, b := vectors[0], vectors[1]
	if len(a) == 0 || len(a) != len(b) {
		return 0, unavailable(fmt.Sprintf("embedding dimensions mismatch: %d and %d", len(a), len(b)), nil)
	}

	cosine := CosineSimilarity(a, b)
	if math.IsNaN(cosine) || math.IsInf(cosine, 0) {
		return 0, unavailable("embeddings produced a non-finite similarity", nil)
	}

	score := Scale(cosine)
	s.logger.Debug("similarity calculated",
		logger.EmbeddingFields(s.embedder.Provider(), s.embedder.Model(),
			zap.Float64("cosine", cosine),
			zap.Float64("score", score),
		)...,
	)
	return score, nil
}

// embed issues exactly one batched call and converts a provider panic into an error.
func (s *Scorer) embed(ctx context.Context, resume, job string) (vectors [][]float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("embedding provider panicked: %v", r)
		}
	}()
	return s.embedder.Embed(ctx, []string{resume, job})
}
