package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	t.Setenv("RESUME_SCORER_TEST_KEY", " from-env ")

	tests := []struct {
		name   string
		src    Source
		expect string
	}{
		{name: "file wins", src: Source{File: keyFile, Value: "inline", Env: []string{"RESUME_SCORER_TEST_KEY"}}, expect: "from-file"},
		{name: "inline before env", src: Source{Value: " inline ", Env: []string{"RESUME_SCORER_TEST_KEY"}}, expect: "inline"},
		{name: "env fallback", src: Source{Env: []string{"RESUME_SCORER_UNSET_KEY", "RESUME_SCORER_TEST_KEY"}}, expect: "from-env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("   \n"), 0o600); err != nil {
		t.Fatalf("write empty file: %v", err)
	}

	if _, err := Load(Source{Name: "gemini api key"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := Load(Source{File: emptyFile}); err == nil {
		t.Fatal("expected error for empty file")
	}
	if _, err := Load(Source{File: filepath.Join(dir, "missing")}); err == nil {
		t.Fatal("expected error for missing file")
	}
}
