package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pharmaguard-client/internal/domain"
)

// FileValidator enforces upload preconditions. It never inspects content.
type FileValidator struct {
	maxBytes  int64
	extension string
}

// NewFileValidator creates a validator with the standard .vcf / 5 MiB limits
func NewFileValidator() *FileValidator {
	return &FileValidator{
		maxBytes:  domain.MaxUploadBytes,
		extension: domain.VCFExtension,
	}
}

// Validate checks the extension first, then the size.
func (v *FileValidator) Validate(file domain.UploadedFile) error {
	if !strings.HasSuffix(file.Name, v.extension) {
		return domain.NewValidationError("file", domain.ReasonExtension, file.Name)
	}
	if file.Size > v.maxBytes {
		return domain.NewValidationError("file", domain.ReasonSize, file.Size)
	}
	return nil
}

// FileStage holds at most one validated file.
type FileStage struct {
	validator *FileValidator
	file      *domain.UploadedFile
}

// NewFileStage creates an empty stage backed by validator.
func NewFileStage(validator *FileValidator) *FileStage {
	if validator == nil {
		validator = NewFileValidator()
	}
	return &FileStage{validator: validator}
}

// Stage validates file and, if accepted, replaces any previously staged
// file. A rejected file leaves the stage unchanged.
func (s *FileStage) Stage(file domain.UploadedFile) error {
	if err := s.validator.Validate(file); err != nil {
		return err
	}
	staged := file
	s.file = &staged
	return nil
}

// Staged returns the staged file, if any.
func (s *FileStage) Staged() (domain.UploadedFile, bool) {
	if s.file == nil {
		return domain.UploadedFile{}, false
	}
	return *s.file, true
}

// Clear drops the staged file.
func (s *FileStage) Clear() {
	s.file = nil
}

// LoadFile reads a variant file from disk. Name and size are checked before
// the content is read so oversized or mis-named files are never loaded.
func LoadFile(path string, validator *FileValidator) (domain.UploadedFile, error) {
	if validator == nil {
		validator = NewFileValidator()
	}
	info, err := os.Stat(path)
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("failed to stat variant file: %w", err)
	}
	if info.IsDir() {
		return domain.UploadedFile{}, fmt.Errorf("%s is a directory", path)
	}

	file := domain.UploadedFile{Name: filepath.Base(path), Size: info.Size()}
	if err := validator.Validate(file); err != nil {
		return domain.UploadedFile{}, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("failed to read variant file: %w", err)
	}
	file.Content = content
	file.Size = int64(len(content))
	return file, nil
}
