// Package rules turns match metrics into user-facing recommendations.
package rules

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// Rule names.
const (
	TailorResume    = "tailor_resume"
	IncludeKeywords = "include_keywords"
	HighlightSkills = "highlight_skills"
)

// FallbackMessage is returned when no rule triggers.
const FallbackMessage = "Great match! Your resume aligns well with the job requirements"

const (
	metricScore        = "score"
	metricOverlap      = "keyword_overlap"
	disabledByConfig   = "disabled by configuration"
	maxMetricThreshold = 100
)

// Rule is a single recommendation check evaluated against match metrics.
type Rule interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(m Metrics) Step
}

// Metrics are the inputs every rule sees. Values are unrounded.
type Metrics struct {
	Score          float64
	KeywordOverlap float64
}

// Step describes the result of evaluating a rule.
type Step struct {
	Triggered bool
	Message   string
}

// Status represents runtime information about a rule.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type statusProvider interface {
	Status() Status
}

// Default returns the standard rule set in evaluation order.
func Default() []Rule {
	return []Rule{
		NewBelow(TailorResume, metricScore, 50, "Consider tailoring your resume more closely to the job requirements"),
		NewBelow(IncludeKeywords, metricOverlap, 30, "Include more relevant keywords from the job description"),
		NewBelow(HighlightSkills, metricScore, 70, "Highlight skills and experiences that match the job posting"),
	}
}

// DisableByName marks a rule with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Rule, name, reason string) bool {
	found := false
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
			found = true
		}
	}
	return found
}

// Configure builds the default rule set with the named rules disabled.
func Configure(disabled []string) ([]Rule, error) {
	steps := Default()
	for _, name := range disabled {
		if !DisableByName(steps, name, disabledByConfig) {
			return nil, fmt.Errorf("unknown recommendation rule %q", name)
		}
	}
	for _, step := range steps {
		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}
	return steps, nil
}

// Run evaluates the enabled rules in order and returns the triggered messages.
// When nothing triggers, the result is the single fallback message.
func Run(steps []Rule, m Metrics, logger *zap.Logger) []string {
	if logger == nil {
		logger = zap.NewNop()
	}

	messages := make([]string, 0, len(steps))
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}

		info := step.Apply(m)
		logger.Debug("recommendation rule",
			zap.String("name", step.Name()),
			zap.Bool("triggered", info.Triggered),
		)
		if info.Triggered {
			messages = append(messages, info.Message)
		}
	}

	if len(messages) == 0 {
		messages = append(messages, FallbackMessage)
	}
	return messages
}

// Describe returns status entries for the provided rules.
func Describe(steps []Rule) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}
		statuses = append(statuses, Status{Name: step.Name(), Enabled: step.IsEnabled()})
	}
	return statuses
}

type belowRule struct {
	name      string
	metric    string
	threshold float64
	message   string
	disabled  bool
	reason    string
}

// NewBelow creates a rule that triggers when the named metric is strictly below threshold.
func NewBelow(name, metric string, threshold float64, message string) Rule {
	return &belowRule{name: name, metric: metric, threshold: threshold, message: message}
}

func (r *belowRule) Name() string { return r.name }

func (r *belowRule) Disable(reason string) {
	r.disabled = true
	r.reason = reason
}

func (r *belowRule) IsEnabled() bool { return !r.disabled }

func (r *belowRule) Validate() error {
	if r.metric != metricScore && r.metric != metricOverlap {
		return fmt.Errorf("unknown metric %q", r.metric)
	}
	if r.threshold < 0 || r.threshold > maxMetricThreshold {
		return fmt.Errorf("threshold %v is outside [0, %d]", r.threshold, maxMetricThreshold)
	}
	if r.message == "" {
		return fmt.Errorf("message is required")
	}
	return nil
}

func (r *belowRule) Apply(m Metrics) Step {
	value := m.Score
	if r.metric == metricOverlap {
		value = m.KeywordOverlap
	}
	if value < r.threshold {
		return Step{Triggered: true, Message: r.message}
	}
	return Step{}
}

func (r *belowRule) Status() Status {
	return Status{
		Name:    r.name,
		Enabled: !r.disabled,
		Reason:  r.reason,
		Details: map[string]string{
			"metric":    r.metric,
			"threshold": strconv.FormatFloat(r.threshold, 'f', -1, 64),
		},
	}
}
