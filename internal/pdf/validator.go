package pdf

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/form-copilot/internal/apperrors"
)

// Validator handles PDF document validation operations
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// MaxFileSize returns the configured size limit in bytes
func (v *Validator) MaxFileSize() int64 {
	return v.maxFileSize
}

// ValidateBytes checks that data holds a parseable PDF with at least one
// page and returns the page count. Failures are KindInvalidDocument, or
// KindTooLarge when the size limit is exceeded.
func (v *Validator) ValidateBytes(data []byte) (pages int, err error) {
	if len(data) == 0 {
		return 0, apperrors.New(apperrors.KindInvalidDocument, "document is empty")
	}

	if int64(len(data)) > v.maxFileSize {
		return 0, apperrors.Newf(apperrors.KindTooLarge, "document too large: %d bytes (max: %d bytes)",
			len(data), v.maxFileSize)
	}

	// Readers accept a header anywhere in the first kilobyte
	if !bytes.Contains(data[:min(len(data), 1024)], []byte("%PDF-")) {
		return 0, apperrors.New(apperrors.KindInvalidDocument, "invalid PDF file: missing %PDF header")
	}

	// ledongthuc/pdf panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			pages = 0
			err = apperrors.New(apperrors.KindInvalidDocument, fmt.Sprintf("invalid PDF file: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindInvalidDocument, err, "invalid PDF file")
	}

	pages = reader.NumPage()
	if pages < 1 {
		return 0, apperrors.New(apperrors.KindInvalidDocument, "document has no pages")
	}

	return pages, nil
}

// ReadFile validates a PDF on disk and returns its contents
func (v *Validator) ReadFile(filePath string) ([]byte, error) {
	if filePath == "" {
		return nil, apperrors.New(apperrors.KindInvalidRequest, "path cannot be empty")
	}

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, apperrors.Newf(apperrors.KindNotFound, "file does not exist: %s", filePath)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "cannot access file")
	}

	if err := v.ValidateFileInfo(filePath, fileInfo); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to read file")
	}

	if _, err := v.ValidateBytes(data); err != nil {
		return nil, err
	}

	return data, nil
}

// ValidateFileInfo performs basic validation on file info without opening the PDF
func (v *Validator) ValidateFileInfo(filePath string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return apperrors.Newf(apperrors.KindInvalidRequest, "path is a directory, not a file: %s", filePath)
	}

	if !strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return apperrors.Newf(apperrors.KindInvalidRequest, "file is not a PDF: %s", filePath)
	}

	if fileInfo.Size() == 0 {
		return apperrors.Newf(apperrors.KindInvalidDocument, "file is empty: %s", filePath)
	}

	if fileInfo.Size() > v.maxFileSize {
		return apperrors.Newf(apperrors.KindTooLarge, "file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), v.maxFileSize)
	}

	return nil
}
