package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harunnryd/biwa/cmd/biwa/runtime"
	"github.com/harunnryd/biwa/internal/config"

	"github.com/spf13/cobra"
)

func executeWithRuntime(cmd *cobra.Command, fn func(*runtime.Components) error) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Ctrl-C cancels in-flight generation and tears the runtime down.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := runtime.Build(ctx, cfg, runtime.BuildOptions{
		WorkspaceID: runtime.ResolveWorkspaceID(cmd, cfg),
		SessionID:   runtime.ResolveSessionID(cmd),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize runtime: %w", err)
	}
	defer components.Stop()

	return fn(components)
}
