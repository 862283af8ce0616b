package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "icarecli/internal/errors"
)

// FileValidator checks export paths before anything is written
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateInputDirectory validates that the data folder exists and is a directory
func (v *FileValidator) ValidateInputDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Input directory does not exist",
			slog.String("directory", dir))
		return apperrors.NewStorageError(fmt.Sprintf("input directory %s does not exist", dir), err).
			WithContext("path", dir)
	}
	if err != nil {
		v.logger.Error("Failed to stat input directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to stat directory %s", dir), err).
			WithContext("path", dir)
	}
	if !info.IsDir() {
		v.logger.Error("Input path is not a directory",
			slog.String("path", dir))
		return apperrors.NewStorageError(fmt.Sprintf("%s is not a directory", dir), nil).
			WithContext("path", dir)
	}

	v.logger.Debug("Input directory validated", slog.String("directory", dir))
	return nil
}

// ValidateOutputDirectory ensures dir is absent or a directory. It never
// creates anything; directories are created when the first patient is written.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		v.logger.Error("Failed to stat output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to stat directory %s", dir), err).
			WithContext("path", dir)
	}
	if !info.IsDir() {
		v.logger.Error("Output path is not a directory",
			slog.String("path", dir))
		return apperrors.NewStorageError(fmt.Sprintf("%s exists and is not a directory", dir), nil).
			WithContext("path", dir)
	}
	return nil
}

// ValidateWorkbookPath checks that path names an Excel workbook that can be replaced
func (v *FileValidator) ValidateWorkbookPath(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" {
		v.logger.Error("Workbook is not an Excel file",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewInvalidArgumentError(
			fmt.Sprintf("workbook %s is not an Excel file (extension: %s)", path, ext)).
			WithContext("path", path)
	}

	if strings.HasPrefix(filepath.Base(path), "~$") {
		return apperrors.NewInvalidArgumentError(
			fmt.Sprintf("workbook %s is a temporary Excel file", path)).
			WithContext("path", path)
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return apperrors.NewInvalidArgumentError(
			fmt.Sprintf("workbook %s is a directory", path)).
			WithContext("path", path)
	}
	return nil
}
