package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for different categories
var (
	// ErrNotFound - resource not found (unknown tool, unknown model, missing file)
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput - invalid input (bad tool arguments, bad config value)
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidModelOutput - model returned malformed structured output
	ErrInvalidModelOutput = errors.New("invalid model output")

	// ErrTransient - transient error (server not ready, network hiccup); safe to retry
	ErrTransient = errors.New("transient error")

	// ErrInternal - internal error; generic message plus trace id in interactive mode
	ErrInternal = errors.New("internal error")
)

// Wrap wraps an error with context while preserving its category.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", message, err)
}

// WrapWithCategory wraps an error with a specific category, discarding the
// original chain but keeping its text.
func WrapWithCategory(err error, message string, category error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %v: %w", message, err, category)
}

// IsCategory checks if error belongs to a specific category
func IsCategory(err error, category error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, category)
}

// NotFound wraps a message as not found
func NotFound(message string) error {
	return fmt.Errorf("%s: %w", message, ErrNotFound)
}

// InvalidInput wraps a message as invalid input
func InvalidInput(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInvalidInput)
}

// InvalidModelOutput wraps a message as invalid model output
func InvalidModelOutput(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInvalidModelOutput)
}

// Transient wraps a message as transient
func Transient(message string) error {
	return fmt.Errorf("%s: %w", message, ErrTransient)
}

// Internal wraps a message as internal
func Internal(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInternal)
}
