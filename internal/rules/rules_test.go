package rules

import (
	"testing"

	"go.uber.org/zap"
)

func TestRunTriggersInOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		metrics Metrics
		expect  []string
	}{
		{
			name:    "low score and low overlap",
			metrics: Metrics{Score: 40, KeywordOverlap: 20},
			expect: []string{
				"Consider tailoring your resume more closely to the job requirements",
				"Include more relevant keywords from the job description",
				"Highlight skills and experiences that match the job posting",
			},
		},
		{
			name:    "fair score with good overlap",
			metrics: Metrics{Score: 60, KeywordOverlap: 45},
			expect:  []string{"Highlight skills and experiences that match the job posting"},
		},
		{
			name:    "strong match",
			metrics: Metrics{Score: 85, KeywordOverlap: 60},
			expect:  []string{FallbackMessage},
		},
		{
			name:    "thresholds are strict",
			metrics: Metrics{Score: 70, KeywordOverlap: 30},
			expect:  []string{FallbackMessage},
		},
		{
			name:    "unrounded overlap just below threshold",
			metrics: Metrics{Score: 90, KeywordOverlap: 29.999},
			expect:  []string{"Include more relevant keywords from the job description"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Run(Default(), tt.metrics, zap.NewNop())
			if len(got) != len(tt.expect) {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
			for i := range got {
				if got[i] != tt.expect[i] {
					t.Fatalf("message %d: expected %q, got %q", i, tt.expect[i], got[i])
				}
			}
		})
	}
}

func TestConfigureDisablesRules(t *testing.T) {
	steps, err := Configure([]string{HighlightSkills})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got := Run(steps, Metrics{Score: 60, KeywordOverlap: 50}, nil)
	if len(got) != 1 || got[0] != FallbackMessage {
		t.Fatalf("expected fallback only, got %v", got)
	}

	for _, status := range Describe(steps) {
		if status.Name == HighlightSkills {
			if status.Enabled || status.Reason != disabledByConfig {
				t.Fatalf("unexpected status: %+v", status)
			}
			if status.Details["threshold"] != "70" {
				t.Fatalf("unexpected details: %+v", status.Details)
			}
		}
	}
}

func TestConfigureRejectsUnknownRule(t *testing.T) {
	if _, err := Configure([]string{"no_such_rule"}); err == nil {
		t.Fatal("expected error for unknown rule")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{name: "valid", rule: NewBelow("r", metricScore, 50, "msg")},
		{name: "unknown metric", rule: NewBelow("r", "length", 50, "msg"), wantErr: true},
		{name: "threshold out of range", rule: NewBelow("r", metricOverlap, 120, "msg"), wantErr: true},
		{name: "empty message", rule: NewBelow("r", metricScore, 50, ""), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.rule.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
