package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/luxury-studio/internal/artifacts"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates the requested resource does not exist
type ErrNotFound struct {
	Resource string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("not found: %s", e.Resource)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var validation *ErrValidation
	var notFound *ErrNotFound
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &validation), errors.Is(err, artifacts.ErrInvalidName):
		return http.StatusBadRequest
	case errors.As(err, &notFound), errors.Is(err, artifacts.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
