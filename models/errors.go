package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrValidation        = errors.New("validation error")
	ErrMalformedResponse = errors.New("malformed response")
)

// ValidationError describes the first field that failed a rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// MalformedResponseError is returned when generated text cannot be turned into a record.
type MalformedResponseError struct {
	Missing []string
	Reason  string
}

func (e *MalformedResponseError) Error() string {
	if len(e.Missing) > 0 {
		return "malformed response: missing " + strings.Join(e.Missing, ", ")
	}
	return "malformed response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error { return ErrMalformedResponse }
