package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/harunnryd/biwa/internal/pathutil"
)

// ResolveWorkspaceRootPath resolves the configured workspace root path.
// If empty, it falls back to ~/.biwa/workspaces.
func ResolveWorkspaceRootPath(workspaceRootPath string) (string, error) {
	if trimmed := strings.TrimSpace(workspaceRootPath); trimmed != "" {
		return pathutil.Expand(trimmed)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".biwa", "workspaces"), nil
}

// WorkspacePath returns the base path for a workspace.
func WorkspacePath(workspaceID string, workspaceRootPath string) (string, error) {
	root, err := ResolveWorkspaceRootPath(workspaceRootPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, workspaceID), nil
}

// SessionsDir returns the transcript directory under a workspace base path.
func SessionsDir(basePath string) string {
	return filepath.Join(basePath, "sessions")
}

// VectorsDir returns the vector-db directory under a workspace base path.
func VectorsDir(basePath string) string {
	return filepath.Join(basePath, "vectors")
}

// LockPath returns the lock file guarding a workspace base path.
func LockPath(basePath string) string {
	return filepath.Join(basePath, "workspace.lock")
}
