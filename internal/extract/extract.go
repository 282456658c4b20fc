// Package extract turns uploaded resume documents into plain text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// Source kinds reported in Document.Source.
const (
	SourcePDF   = "pdf"
	SourcePlain = "plain"
)

const mimePDF = "application/pdf"

var (
	// ErrNoPages is returned for empty input or a document without pages.
	ErrNoPages = errors.New("document has no pages")
	// ErrNoReadableText is returned when no page yields text.
	ErrNoReadableText = errors.New("no readable text found in document")
	// ErrUnsupportedType is returned for content that is neither PDF nor plain text.
	ErrUnsupportedType = errors.New("unsupported document type")
)

// ExtractionError wraps every failure to turn a document into text.
type ExtractionError struct {
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// Document is the result of a successful extraction.
type Document struct {
	Text   string
	Pages  int
	Source string
	MIME   string
}

type pageReader interface {
	NumPage() int
	// PageText returns the text of page i, 1-based.
	PageText(i int) (string, error)
}

// Extractor reads PDF and plain-text documents.
type Extractor struct {
	open   func(data []byte) (pageReader, error)
	logger *zap.Logger
}

// New creates an Extractor.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{open: openPDF, logger: logger}
}

// ExtractText returns the trimmed text of the document read from r.
// The stream is rewound before reading.
func (e *Extractor) ExtractText(r io.ReadSeeker) (string, error) {
	doc, err := e.Extract(r)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

// Extract detects the document type and extracts its text.
func (e *Extractor) Extract(r io.ReadSeeker) (*Document, error) {
	if r == nil {
		return nil, &ExtractionError{Message: "read document", Cause: ErrNoPages}
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, &ExtractionError{Message: "rewind document", Cause: err}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ExtractionError{Message: "read document", Cause: err}
	}
	if len(data) == 0 {
		return nil, &ExtractionError{Message: "document is empty", Cause: ErrNoPages}
	}

	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is(mimePDF):
		return e.extractPDF(data)
	case isText(mtype):
		return e.extractPlain(data, mtype.String())
	default:
		return nil, &ExtractionError{Message: fmt.Sprintf("detected %s", mtype.String()), Cause: ErrUnsupportedType}
	}
}

func (e *Extractor) extractPDF(data []byte) (*Document, error) {
	reader, err := e.open(data)
	if err != nil {
		return nil, &ExtractionError{Message: "open pdf", Cause: err}
	}

	pages, err := numPages(reader)
	if err != nil {
		return nil, &ExtractionError{Message: "read pdf page count", Cause: err}
	}
	if pages == 0 {
		return nil, &ExtractionError{Message: "pdf", Cause: ErrNoPages}
	}

	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		text, err := pageText(reader, i)
		if err != nil {
			e.logger.Warn("skipping unreadable pdf page", zap.Int("page", i), zap.Error(err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, text)
	}

	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return nil, &ExtractionError{Message: fmt.Sprintf("pdf with %d pages", pages), Cause: ErrNoReadableText}
	}

	e.logger.Debug("pdf text extracted",
		zap.Int("pages", pages),
		zap.Int("pages_with_text", len(parts)),
		zap.Int("characters", utf8.RuneCountInString(text)),
	)
	return &Document{Text: text, Pages: pages, Source: SourcePDF, MIME: mimePDF}, nil
}

func (e *Extractor) extractPlain(data []byte, mime string) (*Document, error) {
	text := strings.TrimSpace(strings.ToValidUTF8(string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), ""))
	if text == "" {
		return nil, &ExtractionError{Message: "plain text", Cause: ErrNoReadableText}
	}
	return &Document{Text: text, Pages: 1, Source: SourcePlain, MIME: mime}, nil
}

func isText(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// The pdf package panics on some malformed inputs; the helpers below turn that into errors.

func numPages(r pageReader) (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	return r.NumPage(), nil
}

func pageText(r pageReader, i int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed page: %v", rec)
		}
	}()
	return r.PageText(i)
}

type pdfDocument struct {
	reader *pdf.Reader
}

func openPDF(data []byte) (doc pageReader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			doc, err = nil, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &pdfDocument{reader: reader}, nil
}

func (d *pdfDocument) NumPage() int { return d.reader.NumPage() }

func (d *pdfDocument) PageText(i int) (string, error) {
	page := d.reader.Page(i)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
