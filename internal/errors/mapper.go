package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MapError maps external errors (inference server, filesystem, tools) to the
// Biwa error taxonomy.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	// Propagate context errors as-is
	if errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timeout: %v: %w", err, ErrTransient)
	}

	// Map based on error message content; the original text stays in the
	// chain so logs keep the real failure.
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "not found"), strings.Contains(errStr, "does not exist"), strings.Contains(errStr, "no such file"):
		return fmt.Errorf("%v: %w", err, ErrNotFound)

	case strings.Contains(errStr, "invalid input"), strings.Contains(errStr, "invalid request"), strings.Contains(errStr, "bad request"):
		return fmt.Errorf("%v: %w", err, ErrInvalidInput)

	case strings.Contains(errStr, "invalid model output"), strings.Contains(errStr, "malformed json"), strings.Contains(errStr, "invalid json"):
		return fmt.Errorf("%v: %w", err, ErrInvalidModelOutput)

	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return fmt.Errorf("%v: %w", err, ErrTransient)

	case strings.Contains(errStr, "connection refused"), strings.Contains(errStr, "connection reset"), strings.Contains(errStr, "unreachable"), strings.Contains(errStr, "server loading"):
		return fmt.Errorf("%v: %w", err, ErrTransient)

	default:
		return fmt.Errorf("%v: %w", err, ErrInternal)
	}
}

// IsRetryable checks if an error is transient, indicating it can be retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrTransient)
}

// Category returns the Biwa error category name for an error
func Category(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return "ErrNotFound"
	case errors.Is(err, ErrInvalidInput):
		return "ErrInvalidInput"
	case errors.Is(err, ErrInvalidModelOutput):
		return "ErrInvalidModelOutput"
	case errors.Is(err, ErrTransient):
		return "ErrTransient"
	case errors.Is(err, ErrInternal):
		return "ErrInternal"
	default:
		return "Unknown"
	}
}
