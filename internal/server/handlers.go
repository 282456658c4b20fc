package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/extract"
	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/rules"
	"github.com/spigell/resume-scorer/internal/scoring"
)

// sourceText marks a resume sent inline as JSON. Uploads report extract.SourcePDF or extract.SourcePlain.
const sourceText = "text"

const resumeFileField = "resume"

// MatchRequest is the JSON body of /match and /match/detailed.
type MatchRequest struct {
	Resume         string `json:"resume" validate:"required"`
	JobDescription string `json:"job_description" validate:"required"`
}

// UploadForm holds the non-file fields of a multipart upload.
type UploadForm struct {
	JobDescription string `mapstructure:"job_description" validate:"required"`
	Detailed       bool   `mapstructure:"detailed"`
}

// ScoreResponse is the body of a successful /match call.
type ScoreResponse struct {
	Score float64 `json:"score"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	RequestID         string `json:"request_id"`
	EmbeddingProvider string `json:"embedding_provider,omitempty"`
	EmbeddingModel    string `json:"embedding_model,omitempty"`
	ElapsedMS         int64  `json:"elapsed_ms"`
	ResumeSource      string `json:"resume_source,omitempty"`
	Pages             int    `json:"pages,omitempty"`
	Characters        int    `json:"characters,omitempty"`
}

// MatchResponse is the body of /match/detailed and /match/upload.
type MatchResponse struct {
	Success  bool                    `json:"success"`
	Score    *float64                `json:"score,omitempty"`
	Result   *scoring.DetailedResult `json:"result,omitempty"`
	Error    string                  `json:"error,omitempty"`
	Metadata Metadata                `json:"metadata"`
}

// ExtractResponse is the body of /extract.
type ExtractResponse struct {
	Success  bool     `json:"success"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status            string         `json:"status"`
	EmbeddingProvider string         `json:"embedding_provider,omitempty"`
	EmbeddingModel    string         `json:"embedding_model,omitempty"`
	Rules             []rules.Status `json:"recommendation_rules"`
}

// handleMatch returns the bare compatibility score.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := s.decodeMatchRequest(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	score, err := s.scorer.Score(r.Context(), req.Resume, req.JobDescription)
	if err != nil {
		s.requestLogger(r).Warn("scoring unavailable", zap.Error(err))
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, ScoreResponse{Score: score})
}

// handleMatchDetailed returns the full report. Scoring failures produce a degraded result, not an error status.
func (s *Server) handleMatchDetailed(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req MatchRequest
	if err := s.decodeMatchRequest(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result := s.analyzer.Analyze(r.Context(), req.Resume, req.JobDescription)
	s.jsonResponse(w, http.StatusOK, s.detailedResponse(r, result, s.metadata(r, start, sourceText)))
}

// handleMatchUpload extracts the uploaded resume and scores it against the job description field.
func (s *Server) handleMatchUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	file, err := s.parseUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer closeUpload(r, file)

	var form UploadForm
	if err := mapstructure.WeakDecode(formValues(r.MultipartForm), &form); err != nil {
		s.writeError(w, r, &ErrValidation{Field: "form", Message: err.Error()})
		return
	}
	if err := s.validateStruct(form); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.checkLength("job_description", form.JobDescription, s.cfg.MinInputLength); err != nil {
		s.writeError(w, r, err)
		return
	}

	doc, err := s.extractResume(r, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	meta := s.metadata(r, start, doc.Source)
	meta.Pages = doc.Pages
	meta.Characters = utf8.RuneCountInString(doc.Text)

	if form.Detailed {
		result := s.analyzer.Analyze(r.Context(), doc.Text, form.JobDescription)
		meta.ElapsedMS = time.Since(start).Milliseconds()
		s.jsonResponse(w, http.StatusOK, s.detailedResponse(r, result, meta))
		return
	}

	score, err := s.scorer.Score(r.Context(), doc.Text, form.JobDescription)
	if err != nil {
		s.requestLogger(r).Warn("scoring unavailable", zap.Error(err))
		s.writeError(w, r, err)
		return
	}
	meta.ElapsedMS = time.Since(start).Milliseconds()
	s.jsonResponse(w, http.StatusOK, MatchResponse{Success: true, Score: &score, Metadata: meta})
}

// handleExtract returns the text of the uploaded resume.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	file, err := s.parseUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer closeUpload(r, file)

	doc, err := s.extractor.Extract(file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	meta := s.metadata(r, start, doc.Source)
	meta.Pages = doc.Pages
	meta.Characters = utf8.RuneCountInString(doc.Text)
	meta.EmbeddingProvider, meta.EmbeddingModel = "", ""
	s.jsonResponse(w, http.StatusOK, ExtractResponse{Success: true, Text: doc.Text, Metadata: meta})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{Status: "ok", Rules: rules.Describe(s.analyzer.Rules())}
	if embedder := s.scorer.Embedder(); embedder != nil {
		resp.EmbeddingProvider = embedder.Provider()
		resp.EmbeddingModel = embedder.Model()
	} else {
		resp.Status = "degraded"
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) decodeMatchRequest(w http.ResponseWriter, r *http.Request, req *MatchRequest) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return &ErrRequestTooLarge{Limit: maxBytesErr.Limit}
		}
		return &ErrValidation{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if err := s.validateStruct(req); err != nil {
		return err
	}
	if err := s.checkLength("resume", req.Resume, s.cfg.MinInputLength); err != nil {
		return err
	}
	return s.checkLength("job_description", req.JobDescription, s.cfg.MinInputLength)
}

func (s *Server) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return &ErrValidation{Field: fe.Field(), Message: fmt.Sprintf("failed on the '%s' rule", fe.Tag())}
	}
	return &ErrValidation{Field: "body", Message: err.Error()}
}

func (s *Server) checkLength(field, value string, minimum int) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(value)); n < minimum {
		return &ErrValidation{Field: field, Message: fmt.Sprintf("must be at least %d characters, got %d", minimum, n)}
	}
	return nil
}

// parseUpload enforces the size limit and returns the uploaded resume file.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (multipart.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, &ErrRequestTooLarge{Limit: maxBytesErr.Limit}
		}
		return nil, &ErrValidation{Field: "body", Message: fmt.Sprintf("invalid multipart form: %v", err)}
	}

	file, header, err := r.FormFile(resumeFileField)
	if err != nil {
		return nil, &ErrValidation{Field: resumeFileField, Message: "file is required"}
	}

	s.requestLogger(r).Debug("resume uploaded",
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
	)
	return file, nil
}

func closeUpload(r *http.Request, file multipart.File) {
	_ = file.Close()
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func (s *Server) extractResume(r *http.Request, file multipart.File) (*extract.Document, error) {
	doc, err := s.extractor.Extract(file)
	if err != nil {
		s.requestLogger(r).Info("resume extraction failed", zap.Error(err))
		return nil, err
	}

	if n := utf8.RuneCountInString(doc.Text); n < s.cfg.MinExtractedLength {
		return nil, &ErrValidation{
			Field:   resumeFileField,
			Message: fmt.Sprintf("extracted text is too short (%d characters); the document may be scanned or image-only", n),
		}
	}
	return doc, nil
}

func (s *Server) detailedResponse(r *http.Request, result *scoring.DetailedResult, meta Metadata) MatchResponse {
	resp := MatchResponse{Success: true, Result: result, Metadata: meta}
	if result.Degraded() {
		s.requestLogger(r).Warn("detailed analysis degraded", zap.Error(result.Err))
		resp.Success = false
		resp.Error = result.Error
	}
	return resp
}

func (s *Server) metadata(r *http.Request, start time.Time, source string) Metadata {
	meta := Metadata{
		RequestID:    requestIDFrom(r.Context()),
		ElapsedMS:    time.Since(start).Milliseconds(),
		ResumeSource: source,
	}
	if embedder := s.scorer.Embedder(); embedder != nil {
		meta.EmbeddingProvider = embedder.Provider()
		meta.EmbeddingModel = embedder.Model()
	}
	return meta
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return logger.WithRequestID(s.logger, requestIDFrom(r.Context()))
}

// writeError maps err to a status code and writes the standard failure body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.requestLogger(r).Error("request failed", zap.Error(err))
		message = "internal server error"
	}
	s.errorResponse(w, status, message)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding JSON response failed", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]any{"success": false, "error": message})
}

// formValues flattens a multipart form to its first value per field.
func formValues(form *multipart.Form) map[string]any {
	values := make(map[string]any)
	if form == nil {
		return values
	}
	for key, vals := range form.Value {
		if len(vals) > 0 {
			values[key] = vals[0]
		}
	}
	return values
}
