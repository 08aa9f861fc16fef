package store

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/biwa/internal/config"

	"github.com/gofrs/flock"
)

// FileLock guards a workspace against concurrent biwa instances.
type FileLock struct {
	fileLock    *flock.Flock
	lockPath    string
	workspaceID string
	acquiredAt  time.Time
	mu          sync.RWMutex
}

type FileLockConfig struct {
	LockTimeout  time.Duration
	LockRetry    time.Duration
	LockMaxRetry int
}

func DefaultFileLockConfig() *FileLockConfig {
	lockTimeout, _ := config.DurationOrDefault(config.DefaultStoreLockTimeout, config.DefaultStoreLockTimeout)
	lockRetry, _ := config.DurationOrDefault(config.DefaultStoreLockRetry, config.DefaultStoreLockRetry)

	return &FileLockConfig{
		LockTimeout:  lockTimeout,
		LockRetry:    lockRetry,
		LockMaxRetry: config.DefaultStoreLockMaxRetry,
	}
}

func NewFileLock(workspaceID, basePath string, cfg *FileLockConfig) (*FileLock, error) {
	if cfg == nil {
		cfg = DefaultFileLockConfig()
	}

	lockPath := LockPath(basePath)
	fl := &FileLock{
		fileLock:    flock.New(lockPath),
		lockPath:    lockPath,
		workspaceID: workspaceID,
	}

	if err := fl.acquireWithRetry(cfg); err != nil {
		return nil, err
	}

	fl.acquiredAt = time.Now()
	slog.Info("Workspace lock acquired", "workspace", workspaceID, "path", lockPath)
	return fl, nil
}

func (fl *FileLock) acquireWithRetry(cfg *FileLockConfig) error {
	deadline := time.Now().Add(cfg.LockTimeout)

	for i := 0; i < cfg.LockMaxRetry; i++ {
		locked, err := fl.fileLock.TryLock()
		if err != nil {
			return fmt.Errorf("failed to attempt lock: %w", err)
		}
		if locked {
			return nil
		}

		if time.Now().After(deadline) {
			break
		}
		time.Sleep(cfg.LockRetry)
	}

	return fmt.Errorf("workspace %s is locked by another instance (timeout after %v)",
		fl.workspaceID, cfg.LockTimeout)
}

func (fl *FileLock) Unlock() {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.fileLock == nil {
		return
	}

	if err := fl.fileLock.Unlock(); err != nil {
		slog.Error("Failed to release workspace lock", "workspace", fl.workspaceID, "error", err)
	} else {
		slog.Info("Workspace lock released",
			"workspace", fl.workspaceID,
			"held_duration_ms", time.Since(fl.acquiredAt).Milliseconds(),
		)
	}
	fl.fileLock = nil
}

func (fl *FileLock) IsLocked() bool {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	return fl.fileLock != nil
}
