package errs

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var ErrValidation = errors.New("validation failed")

// ValidationErrors collects per-field messages. The zero value is ready to use.
type ValidationErrors struct {
	Fields map[string][]string
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Fields: make(map[string][]string)}
}

// NewFieldError is a shorthand for a single-field validation failure.
func NewFieldError(field, message string) *ValidationErrors {
	v := NewValidationErrors()
	v.Add(field, message)
	return v
}

func (v *ValidationErrors) Add(field, message string) {
	if v.Fields == nil {
		v.Fields = make(map[string][]string)
	}
	v.Fields[field] = append(v.Fields[field], message)
}

func (v *ValidationErrors) Addf(field, format string, args ...any) {
	v.Add(field, fmt.Sprintf(format, args...))
}

// Merge copies every message of other into v.
func (v *ValidationErrors) Merge(other *ValidationErrors) {
	if other == nil {
		return
	}
	for field, messages := range other.Fields {
		for _, m := range messages {
			v.Add(field, m)
		}
	}
}

func (v *ValidationErrors) HasErrors() bool {
	return v != nil && len(v.Fields) > 0
}

// OrNil returns v as an error when it holds messages, nil otherwise.
func (v *ValidationErrors) OrNil() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

func (v *ValidationErrors) StatusCode() int {
	return http.StatusBadRequest
}

func (v *ValidationErrors) Error() string {
	if !v.HasErrors() {
		return ErrValidation.Error()
	}
	fields := make([]string, 0, len(v.Fields))
	for field := range v.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(v.Fields[field], ", ")))
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (v *ValidationErrors) Unwrap() error {
	return ErrValidation
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}
