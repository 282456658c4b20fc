package scoring

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/rules"
	"github.com/spigell/resume-scorer/internal/text"
)

// Tier is the human-readable band of a score.
type Tier string

// Tiers, from best to worst. TierError marks a degraded result.
const (
	TierExcellent Tier = "Excellent"
	TierGood      Tier = "Good"
	TierFair      Tier = "Fair"
	TierPoor      Tier = "Poor"
	TierError     Tier = "Error"
)

// TierFor maps a score to its tier.
func TierFor(score float64) Tier {
	switch {
	case score >= 80:
		return TierExcellent
	case score >= 65:
		return TierGood
	case score >= 50:
		return TierFair
	default:
		return TierPoor
	}
}

// DetailedResult is the full match report.
type DetailedResult struct {
	OverallScore            float64  `json:"overall_score"`
	SimilarityLevel         Tier     `json:"similarity_level"`
	KeywordOverlap          float64  `json:"keyword_overlap_percentage"`
	ResumeWordCount         int      `json:"resume_word_count"`
	JobDescriptionWordCount int      `json:"job_description_word_count"`
	CommonKeywordsCount     int      `json:"common_keywords_count"`
	Recommendations         []string `json:"recommendations"`
	Error                   string   `json:"error,omitempty"`

	// Err holds the failure behind a degraded result.
	Err error `json:"-"`
}

// Degraded reports whether the result carries a failure instead of a score.
func (r *DetailedResult) Degraded() bool { return r.SimilarityLevel == TierError }

// Analyzer builds detailed match reports on top of a Scorer.
type Analyzer struct {
	scorer *Scorer
	rules  []rules.Rule
	logger *zap.Logger
}

// NewAnalyzer creates an Analyzer. A nil rule set means rules.Default().
func NewAnalyzer(scorer *Scorer, ruleset []rules.Rule, log *zap.Logger) *Analyzer {
	if ruleset == nil {
		ruleset = rules.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{scorer: scorer, rules: ruleset, logger: log}
}

// Rules returns the recommendation rules the analyzer evaluates.
func (a *Analyzer) Rules() []rules.Rule { return a.rules }

// Analyze scores the pair and adds keyword statistics and recommendations.
// It never returns an error: failures yield a degraded result with TierError and a zero score.
func (a *Analyzer) Analyze(ctx context.Context, resume, job string) (result *DetailedResult) {
	defer func() {
		if r := recover(); r != nil {
			result = degraded(fmt.Errorf("analysis panicked: %v", r))
			a.logger.Error("detailed analysis panicked", zap.Any("panic", r))
		}
	}()

	normResume := text.Normalize(resume)
	normJob := text.Normalize(job)

	score, err := a.scorer.scoreNormalized(ctx, normResume, normJob)
	if err != nil {
		a.logger.Warn("detailed analysis failed", zap.Error(err))
		return degraded(err)
	}

	resumeTokens := text.Tokens(normResume)
	jobTokens := text.Tokens(normJob)
	resumeSet := text.NewTokenSet(normResume)
	jobSet := text.NewTokenSet(normJob)

	common := resumeSet.Intersect(jobSet)
	overlap := 0.0
	if jobSet.Len() > 0 {
		overlap = float64(common) / float64(jobSet.Len()) * 100
	}

	return &DetailedResult{
		OverallScore:            score,
		SimilarityLevel:         TierFor(score),
		KeywordOverlap:          Round2(overlap),
		ResumeWordCount:         len(resumeTokens),
		JobDescriptionWordCount: len(jobTokens),
		CommonKeywordsCount:     common,
		Recommendations:         rules.Run(a.rules, rules.Metrics{Score: score, KeywordOverlap: overlap}, a.logger),
	}
}

func degraded(err error) *DetailedResult {
	return &DetailedResult{
		OverallScore:    0,
		SimilarityLevel: TierError,
		Recommendations: []string{},
		Error:           err.Error(),
		Err:             err,
	}
}
