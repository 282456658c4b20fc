package text

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "empty",
			input:  "",
			expect: "",
		},
		{
			name:   "whitespace only",
			input:  " \t\n  ",
			expect: "",
		},
		{
			name:   "collapses whitespace and repeated punctuation",
			input:  "  Hello,   World!!  ",
			expect: "hello, world!",
		},
		{
			name:   "replaces disallowed characters with spaces",
			input:  "C++/Go (5+ years) @ ACME-Corp",
			expect: "c go 5 years acme corp",
		},
		{
			name:   "keeps allowed punctuation",
			input:  "Skills: Go; Python. Done? Yes!",
			expect: "skills: go; python. done? yes!",
		},
		{
			name:   "keeps underscores and digits",
			input:  "snake_case 2024",
			expect: "snake_case 2024",
		},
		{
			name:   "unicode letters survive",
			input:  "Développeur  Юрист 東京",
			expect: "développeur юрист 東京",
		},
		{
			name:   "mixed punctuation runs are kept",
			input:  "really?!",
			expect: "really?!",
		},
		{
			name:   "non-breaking spaces collapse",
			input:  "go\u00a0\u00a0developer",
			expect: "go developer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.input); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"  Hello,   World!!  ",
		"!@!",
		"a -- b ,, c ..",
		"Senior Go Engineer (remote) — 100% async!!!",
		"İstanbul ünïcödé text",
		"\xff\xfe invalid utf8",
		"tabs\tand\nnewlines\r\nmixed",
	}

	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("normalize is not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestLengthCountsCharacters(t *testing.T) {
	t.Parallel()

	if got := Length("héllo"); got != 5 {
		t.Fatalf("expected 5 characters, got %d", got)
	}
}
