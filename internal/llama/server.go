// Package llama supervises a local llama.cpp server process. When managed,
// the server is spawned with the configured model and sampling-independent
// runtime flags, health-polled until ready, and terminated on shutdown.
// When unmanaged, only the health check runs against an external server.
package llama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	biwaErrors "github.com/harunnryd/biwa/internal/errors"

	"github.com/google/shlex"
)

type Options struct {
	Binary         string
	ModelPath      string
	Host           string
	Port           int
	ContextSize    int
	Threads        int
	GPULayers      int
	Embeddings     bool
	ExtraArgs      string
	StartupTimeout time.Duration

	// HealthURL overrides the derived http://host:port/health. Tests use it.
	HealthURL string
}

type Supervisor struct {
	opts  Options
	cmd   *exec.Cmd
	httpc *http.Client
}

func NewSupervisor(opts Options) *Supervisor {
	if opts.Binary == "" {
		opts.Binary = "llama-server"
	}
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = 2 * time.Minute
	}
	if opts.HealthURL == "" {
		opts.HealthURL = fmt.Sprintf("http://%s:%d/health", opts.Host, opts.Port)
	}
	return &Supervisor{
		opts:  opts,
		httpc: &http.Client{Timeout: 2 * time.Second},
	}
}

// Args builds the server command line from the options.
func (s *Supervisor) Args() ([]string, error) {
	args := []string{
		"-m", s.opts.ModelPath,
		"--host", s.opts.Host,
		"--port", strconv.Itoa(s.opts.Port),
		"--ctx-size", strconv.Itoa(s.opts.ContextSize),
		"--threads", strconv.Itoa(s.opts.Threads),
		"--n-gpu-layers", strconv.Itoa(s.opts.GPULayers),
	}
	if s.opts.Embeddings {
		args = append(args, "--embeddings")
	}

	if s.opts.ExtraArgs != "" {
		extra, err := shlex.Split(s.opts.ExtraArgs)
		if err != nil {
			return nil, biwaErrors.InvalidInput(fmt.Sprintf("parse llama.extra_args: %v", err))
		}
		args = append(args, extra...)
	}
	return args, nil
}

// Start spawns the server and blocks until it reports healthy or the
// startup timeout elapses. A missing model file is fatal up front.
func (s *Supervisor) Start(ctx context.Context) error {
	if _, err := os.Stat(s.opts.ModelPath); err != nil {
		return biwaErrors.NotFound(fmt.Sprintf("model file %s", s.opts.ModelPath))
	}

	args, err := s.Args()
	if err != nil {
		return err
	}

	slog.Info("Starting llama server", "binary", s.opts.Binary, "model", s.opts.ModelPath, "port", s.opts.Port)

	cmd := exec.CommandContext(ctx, s.opts.Binary, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return biwaErrors.Wrap(biwaErrors.MapError(err), "start llama server")
	}
	s.cmd = cmd

	if err := s.WaitReady(ctx); err != nil {
		s.Stop()
		return err
	}
	slog.Info("Llama server ready", "health_url", s.opts.HealthURL)
	return nil
}

// WaitReady polls the health endpoint until 200 or the startup timeout.
func (s *Supervisor) WaitReady(ctx context.Context) error {
	deadline := time.Now().Add(s.opts.StartupTimeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.Health(ctx); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return biwaErrors.Transient(fmt.Sprintf("llama server not healthy after %v", s.opts.StartupTimeout))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Supervisor) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.HealthURL, nil)
	if err != nil {
		return err
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return biwaErrors.Transient(fmt.Sprintf("health check: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return biwaErrors.Transient(fmt.Sprintf("llama server status %d", resp.StatusCode))
	}
	return nil
}

// Stop terminates the managed process: SIGTERM first, SIGKILL if it does
// not exit within a grace period. No-op when nothing was spawned.
func (s *Supervisor) Stop() {
	if s.cmd == nil || s.cmd.Process == nil {
		return
	}

	slog.Info("Stopping llama server", "pid", s.cmd.Process.Pid)
	if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		slog.Warn("SIGTERM failed, killing", "error", err)
		_ = s.cmd.Process.Kill()
	}

	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		slog.Warn("Llama server did not exit, killing")
		_ = s.cmd.Process.Kill()
		<-done
	}
	s.cmd = nil
}
