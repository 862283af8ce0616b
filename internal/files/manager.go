package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"icarecli/internal/config"
)

// Manager provides directory management relative to a base path
type Manager struct {
	basePath string
	logger   *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(basePath string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{basePath: basePath, logger: logger}
}

// EnsureDirectory creates the directory and its parents if missing.
// It reports whether the directory had to be created.
func (m *Manager) EnsureDirectory(path string) (bool, error) {
	fullPath := m.resolvePath(path)

	info, err := os.Stat(fullPath)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("%s exists and is not a directory", fullPath)
		}
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat %s: %w", fullPath, err)
	}

	if err := os.MkdirAll(fullPath, config.DirPerm); err != nil {
		return false, fmt.Errorf("failed to create directory %s: %w", fullPath, err)
	}

	m.logger.Debug("Created directory", slog.String("path", fullPath))
	return true, nil
}

// Path resolves path against the base path
func (m *Manager) Path(path string) string {
	return m.resolvePath(path)
}

// resolvePath resolves a path against the base path; "" is the base itself
func (m *Manager) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.basePath, path)
}
