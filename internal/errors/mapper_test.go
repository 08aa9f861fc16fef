package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapError_Categories(t *testing.T) {
	cases := []struct {
		name     string
		in       error
		category error
	}{
		{"not_found", errors.New("model file does not exist"), ErrNotFound},
		{"invalid_input", errors.New("bad request: missing field"), ErrInvalidInput},
		{"invalid_output", errors.New("invalid json in response"), ErrInvalidModelOutput},
		{"timeout", errors.New("request timeout after 30s"), ErrTransient},
		{"conn_refused", errors.New("dial tcp: connection refused"), ErrTransient},
		{"unknown", errors.New("something odd"), ErrInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := MapError(tc.in)
			require.True(t, errors.Is(mapped, tc.category), "got %v", mapped)
		})
	}
}

func TestMapError_KeepsOriginalText(t *testing.T) {
	mapped := MapError(errors.New("dial tcp 127.0.0.1:8012: connection refused"))
	require.True(t, errors.Is(mapped, ErrTransient))
	require.Contains(t, mapped.Error(), "connection refused")
}

func TestMapError_ContextCanceledPassesThrough(t *testing.T) {
	err := MapError(context.Canceled)
	require.True(t, errors.Is(err, context.Canceled))
	require.False(t, IsRetryable(err))
}

func TestIsRetryable(t *testing.T) {
	require.True(t, IsRetryable(Transient("server warming up")))
	require.False(t, IsRetryable(NotFound("no such tool")))
	require.False(t, IsRetryable(nil))
}

func TestCategory(t *testing.T) {
	require.Equal(t, "ErrNotFound", Category(NotFound("x")))
	require.Equal(t, "ErrTransient", Category(fmt.Errorf("outer: %w", ErrTransient)))
	require.Equal(t, "Unknown", Category(errors.New("raw")))
}
