package extract

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// minimalPDF is enough for content sniffing; the fake opener supplies the pages.
var minimalPDF = []byte("%PDF-1.4\n%fake\n")

type fakePDF struct {
	pages []string
	errs  map[int]error
	panic map[int]bool
}

func (f *fakePDF) NumPage() int { return len(f.pages) }

func (f *fakePDF) PageText(i int) (string, error) {
	if f.panic[i] {
		panic("broken content stream")
	}
	if err := f.errs[i]; err != nil {
		return "", err
	}
	return f.pages[i-1], nil
}

func newFakeExtractor(doc *fakePDF, openErr error) *Extractor {
	e := New(zap.NewNop())
	e.open = func([]byte) (pageReader, error) {
		if openErr != nil {
			return nil, openErr
		}
		return doc, nil
	}
	return e
}

func TestExtractPDFJoinsPages(t *testing.T) {
	doc := &fakePDF{pages: []string{"  Jane Doe\nGo developer ", "", "   ", "Experience: 5 years  "}}

	got, err := newFakeExtractor(doc, nil).Extract(bytes.NewReader(minimalPDF))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := "Jane Doe\nGo developer \nExperience: 5 years"
	if got.Text != want {
		t.Fatalf("expected %q, got %q", want, got.Text)
	}
	if got.Pages != 4 || got.Source != SourcePDF {
		t.Fatalf("unexpected metadata: %+v", got)
	}
}

func TestExtractPDFSkipsBrokenPages(t *testing.T) {
	doc := &fakePDF{
		pages: []string{"first", "second", "third"},
		errs:  map[int]error{2: errors.New("bad font")},
		panic: map[int]bool{3: true},
	}

	text, err := newFakeExtractor(doc, nil).ExtractText(bytes.NewReader(minimalPDF))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if text != "first" {
		t.Fatalf("expected only the readable page, got %q", text)
	}
}

func TestExtractPDFErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     *fakePDF
		openErr error
		target  error
	}{
		{name: "zero pages", doc: &fakePDF{}, target: ErrNoPages},
		{name: "no text", doc: &fakePDF{pages: []string{" ", "\n"}}, target: ErrNoReadableText},
		{name: "open failure", openErr: errors.New("xref table not found")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newFakeExtractor(tt.doc, tt.openErr).Extract(bytes.NewReader(minimalPDF))
			var extractionErr *ExtractionError
			if !errors.As(err, &extractionErr) {
				t.Fatalf("expected *ExtractionError, got %v", err)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Fatalf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestExtractMalformedPDF(t *testing.T) {
	_, err := New(nil).Extract(bytes.NewReader([]byte("%PDF-1.7\nthis is not really a pdf")))
	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected *ExtractionError, got %v", err)
	}
}

func TestExtractPlainText(t *testing.T) {
	got, err := New(nil).Extract(strings.NewReader("\xef\xbb\xbf  Senior Go developer\nKubernetes  \n"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Text != "Senior Go developer\nKubernetes" {
		t.Fatalf("unexpected text %q", got.Text)
	}
	if got.Source != SourcePlain || got.Pages != 1 {
		t.Fatalf("unexpected metadata: %+v", got)
	}
}

func TestExtractRewindsStream(t *testing.T) {
	r := strings.NewReader("Senior Go developer")
	if _, err := io.CopyN(io.Discard, r, 7); err != nil {
		t.Fatalf("advance reader: %v", err)
	}

	text, err := New(nil).ExtractText(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if text != "Senior Go developer" {
		t.Fatalf("expected the full document, got %q", text)
	}
}

func TestExtractRejectsEmptyAndBinary(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		target error
	}{
		{name: "empty", data: nil, target: ErrNoPages},
		{name: "png", data: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), target: ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil).Extract(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.target) {
				t.Fatalf("expected %v, got %v", tt.target, err)
			}
		})
	}
}
