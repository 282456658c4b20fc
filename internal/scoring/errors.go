package scoring

import (
	"errors"
	"fmt"
)

// ErrScoringUnavailable is the sentinel matched by every UnavailableError.
var ErrScoringUnavailable = errors.New("scoring unavailable")

// UnavailableError reports that a score could not be computed because the
// embedding provider failed or returned unusable vectors.
type UnavailableError struct {
	Reason string
	Cause  error
}

func (e *UnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("scoring unavailable: %s: %v", e.Reason, e.Cause)
	}
	return "scoring unavailable: " + e.Reason
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, ErrScoringUnavailable) hold for any UnavailableError.
func (e *UnavailableError) Is(target error) bool { return target == ErrScoringUnavailable }

func unavailable(reason string, cause error) error {
	return &UnavailableError{Reason: reason, Cause: cause}
}
