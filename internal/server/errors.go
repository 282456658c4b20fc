package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spigell/resume-scorer/internal/extract"
	"github.com/spigell/resume-scorer/internal/scoring"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrRequestTooLarge indicates the body exceeded the configured upload limit
type ErrRequestTooLarge struct {
	Limit int64
}

func (e *ErrRequestTooLarge) Error() string {
	return fmt.Sprintf("request body exceeds %d bytes", e.Limit)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		tooLargeErr   *ErrRequestTooLarge
		maxBytesErr   *http.MaxBytesError
		extractionErr *extract.ExtractionError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &tooLargeErr), errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &extractionErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scoring.ErrScoringUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
