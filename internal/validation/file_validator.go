package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"banvicdash/internal/config"
	"banvicdash/internal/errors"
)

// FileValidator checks the data and output locations used by the CLI before
// any work starts.
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

// ValidateDataDirectory checks that the data directory exists and holds every
// configured source file. Missing files are reported together as one schema
// error naming the tables.
func (v *FileValidator) ValidateDataDirectory(cfg config.DataConfig) error {
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		v.logger.Error("Data directory is not accessible",
			slog.String("directory", cfg.Dir),
			slog.String("error", err.Error()))
		return errors.NewSchemaError(fmt.Sprintf("data directory %s is not accessible", cfg.Dir), err)
	}
	if !info.IsDir() {
		return errors.NewSchemaError(fmt.Sprintf("%s is not a directory", cfg.Dir), nil)
	}

	var missing []string
	for _, f := range cfg.Files() {
		if err := v.ValidateFile(f.Path); err != nil {
			missing = append(missing, f.Table)
		}
	}
	if len(missing) > 0 {
		return errors.NewSchemaError(fmt.Sprintf("missing source files: %s", strings.Join(missing, ", ")), nil).
			WithContext("directory", cfg.Dir)
	}

	v.logger.Debug("Data directory validated",
		slog.String("directory", cfg.Dir))
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return errors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return errors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	tmp.Close()
	os.Remove(tmp.Name())

	return nil
}

// ValidateFile checks that path is a readable, non-empty regular file.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		v.logger.Warn("File is not accessible",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not accessible: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file %s is empty", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()
	return nil
}

// ValidateWorkbook reopens a written workbook and checks that it carries the
// expected sheets.
func (v *FileValidator) ValidateWorkbook(path string, sheets []string) error {
	if filepath.Ext(path) != ".xlsx" {
		return fmt.Errorf("%s is not an xlsx file", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	present := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		present[name] = true
	}
	for _, name := range sheets {
		if !present[name] {
			return fmt.Errorf("workbook %s has no sheet %q", path, name)
		}
	}

	v.logger.Debug("Workbook validated",
		slog.String("file", path),
		slog.Int("sheets", len(present)))
	return nil
}
