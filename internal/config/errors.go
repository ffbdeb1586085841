package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiError is a collection of field errors (implements error interface)
type MultiError []FieldError

func (m MultiError) Error() string {
	if len(m) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range m {
		msgs = append(msgs, err.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// ValidationToMultiError converts go-playground/validator errors to MultiError
func ValidationToMultiError(validationErrs validator.ValidationErrors) MultiError {
	var fieldErrors MultiError

	for _, e := range validationErrs {
		fieldName := strings.ToLower(e.Namespace())
		fieldName = strings.TrimPrefix(fieldName, "config.")

		var message string
		switch e.Tag() {
		case "required":
			message = "is required"
		case "url":
			message = "must be an absolute URL"
		case "oneof":
			message = fmt.Sprintf("must be one of: %s", e.Param())
		case "gt":
			message = fmt.Sprintf("must be greater than %s", e.Param())
		case "gte", "min":
			message = fmt.Sprintf("must be at least %s", e.Param())
		case "max":
			message = fmt.Sprintf("must be at most %s", e.Param())
		default:
			message = "is invalid"
		}

		fieldErrors = append(fieldErrors, FieldError{
			Field:   fieldName,
			Message: message,
		})
	}

	return fieldErrors
}
