package llama

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	biwaErrors "github.com/harunnryd/biwa/internal/errors"

	"github.com/stretchr/testify/require"
)

func TestArgs(t *testing.T) {
	s := NewSupervisor(Options{
		ModelPath:   "/models/llama-3.1-8b-instruct-q4_k_m.gguf",
		Host:        "127.0.0.1",
		Port:        8012,
		ContextSize: 8192,
		Threads:     12,
		GPULayers:   28,
		Embeddings:  true,
	})

	args, err := s.Args()
	require.NoError(t, err)
	require.Equal(t, []string{
		"-m", "/models/llama-3.1-8b-instruct-q4_k_m.gguf",
		"--host", "127.0.0.1",
		"--port", "8012",
		"--ctx-size", "8192",
		"--threads", "12",
		"--n-gpu-layers", "28",
		"--embeddings",
	}, args)
}

func TestArgs_ExtraArgsSplit(t *testing.T) {
	s := NewSupervisor(Options{
		ModelPath: "/m.gguf",
		Host:      "127.0.0.1",
		Port:      8012,
		ExtraArgs: `--flash-attn --override-kv "tokenizer.ggml.add_bos_token=bool:false"`,
	})

	args, err := s.Args()
	require.NoError(t, err)
	require.Contains(t, args, "--flash-attn")
	require.Contains(t, args, "tokenizer.ggml.add_bos_token=bool:false")
}

func TestArgs_BadExtraArgs(t *testing.T) {
	s := NewSupervisor(Options{
		ModelPath: "/m.gguf",
		ExtraArgs: `--broken "unterminated`,
	})

	_, err := s.Args()
	require.Error(t, err)
	require.True(t, errors.Is(err, biwaErrors.ErrInvalidInput))
}

func TestStart_MissingModelIsFatal(t *testing.T) {
	s := NewSupervisor(Options{
		ModelPath: filepath.Join(t.TempDir(), "missing.gguf"),
		Host:      "127.0.0.1",
		Port:      8012,
	})

	err := s.Start(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, biwaErrors.ErrNotFound))
}

func TestWaitReady_SucceedsOnceHealthy(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSupervisor(Options{
		ModelPath:      "/m.gguf",
		StartupTimeout: 5 * time.Second,
		HealthURL:      srv.URL,
	})

	require.NoError(t, s.WaitReady(context.Background()))
	require.GreaterOrEqual(t, calls, 3)
}

func TestWaitReady_TimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewSupervisor(Options{
		ModelPath:      "/m.gguf",
		StartupTimeout: 100 * time.Millisecond,
		HealthURL:      srv.URL,
	})

	err := s.WaitReady(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, biwaErrors.ErrTransient))
}

func TestStop_WithoutStartIsNoop(t *testing.T) {
	s := NewSupervisor(Options{ModelPath: "/m.gguf"})
	s.Stop()
}

func TestHealth_ExternalServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSupervisor(Options{ModelPath: "/m.gguf", HealthURL: srv.URL})
	require.NoError(t, s.Health(context.Background()))
}

func TestStart_ModelFileExistsButBinaryMissing(t *testing.T) {
	model := filepath.Join(t.TempDir(), "m.gguf")
	require.NoError(t, os.WriteFile(model, []byte("gguf"), 0644))

	s := NewSupervisor(Options{
		Binary:    filepath.Join(t.TempDir(), "no-such-binary"),
		ModelPath: model,
		Host:      "127.0.0.1",
		Port:      0,
	})

	err := s.Start(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "start llama server")
}
