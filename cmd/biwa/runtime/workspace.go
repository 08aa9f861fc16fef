package runtime

import (
	"github.com/harunnryd/biwa/internal/config"

	"github.com/spf13/cobra"
)

const DefaultSessionID = "default"

// ResolveWorkspaceID picks the workspace: flag first, then config, then the
// built-in default.
func ResolveWorkspaceID(cmd *cobra.Command, cfg *config.Config) string {
	if workspaceID, _ := cmd.Flags().GetString("workspace"); workspaceID != "" {
		return workspaceID
	}
	if cfg != nil && cfg.Store.WorkspaceID != "" {
		return cfg.Store.WorkspaceID
	}
	return config.DefaultWorkspaceID
}

// ResolveSessionID picks the session. The default is stable so history
// carries across runs.
func ResolveSessionID(cmd *cobra.Command) string {
	if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
		return sessionID
	}
	return DefaultSessionID
}
