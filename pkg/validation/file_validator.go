package validation

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	apperrors "go-sign-classifier/internal/errors"
)

// MaxFileSize is the default upload ceiling (10MiB). Files of this size or larger are rejected.
const MaxFileSize int64 = 10 * 1024 * 1024

const MsgInvalidFileType = "Invalid file type. Please upload PNG, JPG, or JPEG images only."

// FileTooLargeMessage describes the size ceiling maxSize to the user, e.g.
// "File size exceeds 10MB. Please upload a smaller image."
func FileTooLargeMessage(maxSize int64) string {
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}
	var limit string
	switch {
	case maxSize%(1<<20) == 0:
		limit = fmt.Sprintf("%dMB", maxSize>>20)
	case maxSize%(1<<10) == 0:
		limit = fmt.Sprintf("%dKB", maxSize>>10)
	default:
		limit = fmt.Sprintf("%d bytes", maxSize)
	}
	return "File size exceeds " + limit + ". Please upload a smaller image."
}

// FileValidator checks uploaded files against the accepted MIME types and size ceiling.
type FileValidator struct {
	allowedTypes []string
	maxSize      int64
}

// NewFileValidator creates a validator accepting png and jpeg files below maxSize.
// A non-positive maxSize falls back to MaxFileSize.
func NewFileValidator(maxSize int64) *FileValidator {
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}
	return &FileValidator{
		allowedTypes: []string{"image/png", "image/jpeg", "image/jpg"},
		maxSize:      maxSize,
	}
}

// MaxSize returns the configured size ceiling in bytes.
func (v *FileValidator) MaxSize() int64 {
	return v.maxSize
}

// ValidateFile checks a file's type and size and returns the content type to use for it.
// declaredType is the type reported by the client; when it is missing or generic the
// type is sniffed from head, the leading bytes of the file.
func (v *FileValidator) ValidateFile(declaredType string, size int64, head []byte) (string, error) {
	contentType := normalizeType(declaredType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = normalizeType(mimetype.Detect(head).String())
	}

	if !v.isTypeAllowed(contentType) {
		err := apperrors.NewValidationError(MsgInvalidFileType, nil)
		err.Details = "content type " + contentType
		return "", err
	}

	if size >= v.maxSize {
		err := apperrors.NewValidationError(FileTooLargeMessage(v.maxSize), nil)
		err.StatusCode = http.StatusRequestEntityTooLarge
		err.Details = "file too large"
		return "", err
	}

	return contentType, nil
}

func (v *FileValidator) isTypeAllowed(contentType string) bool {
	for _, allowed := range v.allowedTypes {
		if contentType == allowed {
			return true
		}
	}
	return false
}

// normalizeType lowercases a media type and strips its parameters.
func normalizeType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return strings.ToLower(mediaType)
	}
	return strings.ToLower(contentType)
}
