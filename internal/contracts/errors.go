package contracts

import (
	"errors"
	"net/http"
)

// Pipeline error taxonomy. Wrap with fmt.Errorf("...: %w", Err...) and match with errors.Is.
var (
	ErrMissingInput     = errors.New("missing input")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("no data found")
	ErrInsufficientData = errors.New("insufficient data")
	ErrAlignment        = errors.New("forecast series misaligned")
	ErrComputation      = errors.New("computation failure")
)

// StatusCode maps an error to the HTTP status the API returns for it
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMissingInput), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorKind returns a short label for metrics and logs
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrMissingInput):
		return "missing_input"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrAlignment):
		return "alignment"
	case errors.Is(err, ErrComputation):
		return "computation"
	default:
		return "internal"
	}
}
