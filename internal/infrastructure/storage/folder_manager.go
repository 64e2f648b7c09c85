package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/office-orders/internal/application/port"
)

var (
	separators = strings.NewReplacer("/", "_", "\\", "_")
	unsafeName = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)
)

// LocalFolderManager implements port.FolderManager for local filesystem
type LocalFolderManager struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalFolderManager creates a new LocalFolderManager
func NewLocalFolderManager(baseDir string, logger *zap.Logger) port.FolderManager {
	return &LocalFolderManager{
		baseDir: baseDir,
		logger:  logger,
	}
}

// CreateFolder creates a folder with the given name and returns its full path
func (m *LocalFolderManager) CreateFolder(ctx context.Context, name string) (string, error) {
	safeName := m.SanitizeName(name)
	if safeName == "" {
		return "", fmt.Errorf("cannot create folder: empty name")
	}

	folderPath := filepath.Join(m.baseDir, safeName)
	if err := os.MkdirAll(folderPath, 0o755); err != nil {
		m.logger.Error("Failed to create folder",
			zap.String("name", name),
			zap.String("folder_path", folderPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	m.logger.Debug("Created folder",
		zap.String("name", name),
		zap.String("folder_path", folderPath))

	return folderPath, nil
}

// GetPath returns the path for a folder without creating it
func (m *LocalFolderManager) GetPath(name string) string {
	return filepath.Join(m.baseDir, m.SanitizeName(name))
}

// Exists checks if folder already exists
func (m *LocalFolderManager) Exists(name string) bool {
	if m.SanitizeName(name) == "" {
		return false
	}
	info, err := os.Stat(m.GetPath(name))
	return err == nil && info.IsDir()
}

// Delete removes a folder and all contents; deleting a missing folder succeeds
func (m *LocalFolderManager) Delete(ctx context.Context, name string) error {
	if m.SanitizeName(name) == "" {
		return fmt.Errorf("cannot delete folder: empty name")
	}

	folderPath := m.GetPath(name)
	if err := os.RemoveAll(folderPath); err != nil {
		m.logger.Error("Failed to delete folder",
			zap.String("name", name),
			zap.String("folder_path", folderPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	m.logger.Debug("Deleted folder", zap.String("folder_path", folderPath))
	return nil
}

// SanitizeName returns a single filesystem-safe path segment. Separators become
// underscores so "OO/2026/12" maps to "OO_2026_12"; parent references and any
// other character outside [A-Za-z0-9_-] are dropped.
func (m *LocalFolderManager) SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = separators.Replace(name)
	return unsafeName.ReplaceAllString(name, "")
}
