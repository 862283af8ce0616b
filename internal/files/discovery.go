package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"icarecli/internal/config"
)

// FileInfo represents information about a discovered file or directory
type FileInfo struct {
	Path    string
	Name    string
	ModTime time.Time
	IsDir   bool
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance. Relative directories
// passed to its methods are resolved against basePath.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindDataFolders returns the patient ids under root in name order.
// A patient id is the name of a subdirectory containing "<id>.txt".
func (d *Discovery) FindDataFolders(root string) ([]string, error) {
	dirs, err := d.ListDirectories(root)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, dir := range dirs {
		metadata := filepath.Join(dir.Path, dir.Name+config.PatientMetadataExt)
		info, err := os.Stat(metadata)
		if err != nil || info.IsDir() {
			continue
		}
		ids = append(ids, dir.Name)
	}

	sort.Strings(ids)
	return ids, nil
}

// ListDirectories lists all subdirectories of dir. Symbolic links to
// directories are followed; dangling links are skipped.
func (d *Discovery) ListDirectories(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var dirs []FileInfo
	for _, entry := range entries {
		path := filepath.Join(fullPath, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			continue
		}

		dirs = append(dirs, FileInfo{
			Path:    path,
			Name:    entry.Name(),
			ModTime: info.ModTime(),
			IsDir:   true,
		})
	}

	return dirs, nil
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}
