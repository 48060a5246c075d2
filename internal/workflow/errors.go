package workflow

import (
	"errors"
	"fmt"

	"github.com/jonathan/luxury-studio/internal/llm"
	"github.com/jonathan/luxury-studio/internal/schemas"
	"github.com/jonathan/luxury-studio/internal/types"
)

// RunError is returned when a run ends in the failed stage.
// Stage is the stage the run was in when it failed.
type RunError struct {
	RunID     string
	Stage     types.Stage
	Retries   int
	Exhausted bool
	Cause     error
}

func (e *RunError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("run %s failed at %s: retry budget exhausted after %d retries: %v", e.RunID, e.Stage, e.Retries, e.Cause)
	}
	return fmt.Sprintf("run %s failed at %s: %v", e.RunID, e.Stage, e.Cause)
}

func (e *RunError) Unwrap() error {
	return e.Cause
}

// ErrInvalidOptions is returned for out-of-range orchestrator options.
var ErrInvalidOptions = errors.New("invalid workflow options")

// retryableInPass reports whether a producer or judge failure may consume a retry slot.
func retryableInPass(err error) bool {
	return llm.IsRetryable(err) || schemas.IsSchemaError(err)
}
