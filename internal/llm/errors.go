package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
)

// ErrorKind categorizes a failed backend call.
type ErrorKind string

const (
	ErrKindTimeout  ErrorKind = "timeout"
	ErrKindQuota    ErrorKind = "quota"
	ErrKindServer   ErrorKind = "server"
	ErrKindAuth     ErrorKind = "auth"
	ErrKindRequest  ErrorKind = "request"
	ErrKindCanceled ErrorKind = "canceled"
	ErrKindUnknown  ErrorKind = "unknown"
)

// BackendCallError represents a failed call to the model backend
type BackendCallError struct {
	Role      ModelRole
	Model     string
	Kind      ErrorKind
	Retryable bool
	Cause     error
}

func (e *BackendCallError) Error() string {
	return fmt.Sprintf("%s call to %s failed (%s): %v", e.Role, e.Model, e.Kind, e.Cause)
}

func (e *BackendCallError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err is a BackendCallError worth another attempt.
func IsRetryable(err error) bool {
	var callErr *BackendCallError
	return errors.As(err, &callErr) && callErr.Retryable
}

// classify wraps a raw backend error in a BackendCallError.
func classify(role ModelRole, model string, err error) *BackendCallError {
	var existing *BackendCallError
	if errors.As(err, &existing) {
		return existing
	}

	kind := classifyKind(err)
	return &BackendCallError{
		Role:      role,
		Model:     model,
		Kind:      kind,
		Retryable: kind == ErrKindTimeout || kind == ErrKindQuota || kind == ErrKindServer,
		Cause:     err,
	}
}

func classifyKind(err error) ErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrKindTimeout
	case errors.Is(err, context.Canceled):
		return ErrKindCanceled
	}

	if code, _, ok := apiErrorCode(err); ok {
		return kindForStatus(code)
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return kindForStatus(gErr.Code)
	}

	errLower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errLower, "api key not valid") ||
		strings.Contains(errLower, "invalid api key") ||
		strings.Contains(errLower, "permission denied") ||
		strings.Contains(errLower, "unauthenticated"):
		return ErrKindAuth
	case strings.Contains(errLower, "quota") ||
		strings.Contains(errLower, "resource exhausted") ||
		strings.Contains(errLower, "rate limit"):
		return ErrKindQuota
	case strings.Contains(errLower, "deadline exceeded") ||
		strings.Contains(errLower, "timeout"):
		return ErrKindTimeout
	case strings.Contains(errLower, "unavailable") ||
		strings.Contains(errLower, "internal error") ||
		strings.Contains(errLower, "connection reset"):
		return ErrKindServer
	default:
		return ErrKindUnknown
	}
}

func kindForStatus(code int) ErrorKind {
	switch {
	case code == 401 || code == 403:
		return ErrKindAuth
	case code == 408:
		return ErrKindTimeout
	case code == 429:
		return ErrKindQuota
	case code >= 500:
		return ErrKindServer
	case code >= 400:
		return ErrKindRequest
	default:
		return ErrKindUnknown
	}
}
