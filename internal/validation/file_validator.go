// Package validation checks event source files and export destinations
// before they are read or written.
package validation

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "eventdash/internal/errors"
)

// SourceExtensions are the file types the loader can read
var SourceExtensions = []string{".xlsx", ".xlsm", ".csv"}

// FileValidator provides the file checks shared by the server and the CLI
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger.With(slog.String("component", "file_validator"))}
}

// ValidateSource checks an existing source path: it must be a non-empty
// regular file with a supported extension and must not be an Office lock
// file.
func (v *FileValidator) ValidateSource(path string, info fs.FileInfo) error {
	if info.IsDir() {
		return v.reject(path, fmt.Sprintf("source %s is a directory, not a file", path))
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !supported(ext) {
		return v.reject(path, fmt.Sprintf("source %s has unsupported extension %q (want one of %s)",
			path, ext, strings.Join(SourceExtensions, ", ")))
	}

	if strings.HasPrefix(filepath.Base(path), "~$") {
		return v.reject(path, fmt.Sprintf("source %s is a temporary Excel lock file", path))
	}

	if info.Size() == 0 {
		return v.reject(path, fmt.Sprintf("source %s is empty", path))
	}

	v.logger.Debug("Source file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures dir exists and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("cannot create output directory %s", dir), err)
	}

	probe, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return nil
}

// ValidateOutputFile prepares the parent directory of path and refuses
// paths that name a directory
func (v *FileValidator) ValidateOutputFile(path string) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return v.reject(path, fmt.Sprintf("output %s is a directory", path))
	}
	return v.ValidateOutputDirectory(filepath.Dir(path))
}

func (v *FileValidator) reject(path, message string) error {
	v.logger.Warn("File rejected", slog.String("file", path), slog.String("reason", message))
	return apperrors.NewAppValidationError(message)
}

func supported(ext string) bool {
	for _, e := range SourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
