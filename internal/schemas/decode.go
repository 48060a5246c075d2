package schemas

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/jonathan/luxury-studio/internal/llm"
)

// SchemaValidationError is returned when model output does not satisfy a record schema.
// Raw holds the unmodified model text for diagnostics.
type SchemaValidationError struct {
	Schema Name
	Raw    string
	Errors []FieldError
	Cause  error
}

func (e *SchemaValidationError) Error() string {
	if len(e.Errors) > 0 {
		parts := make([]string, 0, len(e.Errors))
		for _, fe := range e.Errors {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
		}
		return fmt.Sprintf("%s output failed validation: %s", e.Schema, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("%s output could not be parsed: %v", e.Schema, e.Cause)
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Cause
}

var structValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank: %v", err))
	}
	return v
}

// Decode parses raw model text into T after checking it against the named schema.
// Markdown fences and surrounding prose are stripped first; no part of the text
// is ever evaluated.
func Decode[T any](name Name, raw string) (*T, error) {
	cleaned := llm.CleanJSONBlock(raw)
	if cleaned == "" {
		return nil, &SchemaValidationError{Schema: name, Raw: raw, Cause: errors.New("empty output")}
	}

	if err := ValidateNamed(name, cleaned); err != nil {
		schemaErr := &SchemaValidationError{Schema: name, Raw: raw, Cause: err}
		var ve *ValidationError
		if errors.As(err, &ve) {
			schemaErr.Errors = ve.Errors
		}
		return nil, schemaErr
	}

	var out T
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, &SchemaValidationError{Schema: name, Raw: raw, Cause: err}
	}

	if err := structValidator.Struct(&out); err != nil {
		schemaErr := &SchemaValidationError{Schema: name, Raw: raw, Cause: err}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				schemaErr.Errors = append(schemaErr.Errors, FieldError{
					Field:   fe.Namespace(),
					Message: fmt.Sprintf("failed %s", fe.Tag()),
				})
			}
		}
		return nil, schemaErr
	}

	return &out, nil
}

// IsSchemaError reports whether err is a SchemaValidationError.
func IsSchemaError(err error) bool {
	var schemaErr *SchemaValidationError
	return errors.As(err, &schemaErr)
}
