package audit

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound covers missing batches, items and export artifacts.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when cleanup is attempted before export.
	ErrConflict = errors.New("batch must be exported before cleanup")
)

// ValidationError reports client input that failed validation, naming the
// offending fields or values.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

func newValidationError(message string, fields []string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}
