package validation

import (
	"errors"
	"net/http"
	"testing"

	apperrors "go-sign-classifier/internal/errors"
)

var (
	pngHead  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}
	jpegHead = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00, 0x01}
)

func TestNewFileValidator_DefaultSize(t *testing.T) {
	if v := NewFileValidator(0); v.MaxSize() != MaxFileSize {
		t.Errorf("Expected default max size %d, got %d", MaxFileSize, v.MaxSize())
	}
	if v := NewFileValidator(1024); v.MaxSize() != 1024 {
		t.Errorf("Expected max size 1024, got %d", v.MaxSize())
	}
}

func TestValidateFile_AcceptedTypes(t *testing.T) {
	validator := NewFileValidator(MaxFileSize)

	tests := []struct {
		name         string
		declaredType string
		head         []byte
		wantType     string
	}{
		{"declared png", "image/png", nil, "image/png"},
		{"declared jpeg", "image/jpeg", nil, "image/jpeg"},
		{"declared jpg", "image/jpg", nil, "image/jpg"},
		{"declared with params", "Image/PNG; charset=binary", nil, "image/png"},
		{"sniffed png", "", pngHead, "image/png"},
		{"sniffed jpeg behind octet-stream", "application/octet-stream", jpegHead, "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validator.ValidateFile(tt.declaredType, 2048, tt.head)
			if err != nil {
				t.Fatalf("Expected file to be accepted, got %v", err)
			}
			if got != tt.wantType {
				t.Errorf("Expected content type %q, got %q", tt.wantType, got)
			}
		})
	}
}

func TestValidateFile_RejectedTypes(t *testing.T) {
	validator := NewFileValidator(MaxFileSize)

	tests := []struct {
		name         string
		declaredType string
		head         []byte
	}{
		{"gif", "image/gif", nil},
		{"webp", "image/webp", nil},
		{"pdf", "application/pdf", nil},
		{"sniffed text", "", []byte("hello, this is not an image")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.ValidateFile(tt.declaredType, 100, tt.head)
			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("Expected AppError, got %v", err)
			}
			if appErr.Message != MsgInvalidFileType {
				t.Errorf("Expected %q, got %q", MsgInvalidFileType, appErr.Message)
			}
		})
	}
}

func TestValidateFile_SizeBoundary(t *testing.T) {
	validator := NewFileValidator(MaxFileSize)

	tests := []struct {
		name      string
		size      int64
		wantError bool
	}{
		{"empty", 0, false},
		{"one byte under", MaxFileSize - 1, false},
		{"exactly at ceiling", MaxFileSize, true},
		{"over ceiling", MaxFileSize + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.ValidateFile("image/png", tt.size, nil)
			if tt.wantError {
				var appErr *apperrors.AppError
				if !errors.As(err, &appErr) {
					t.Fatalf("Expected AppError, got %v", err)
				}
				if want := "File size exceeds 10MB. Please upload a smaller image."; appErr.Message != want {
					t.Errorf("Expected %q, got %q", want, appErr.Message)
				}
				if appErr.StatusCode != http.StatusRequestEntityTooLarge {
					t.Errorf("Expected 413, got %d", appErr.StatusCode)
				}
			} else if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestValidateFile_TypeCheckedBeforeSize(t *testing.T) {
	validator := NewFileValidator(MaxFileSize)

	_, err := validator.ValidateFile("image/gif", MaxFileSize*2, nil)
	if apperrors.UserMessage(err, "") != MsgInvalidFileType {
		t.Errorf("Expected type error to win over size error, got %v", err)
	}
}

func TestFileTooLargeMessage(t *testing.T) {
	tests := []struct {
		maxSize int64
		want    string
	}{
		{MaxFileSize, "File size exceeds 10MB. Please upload a smaller image."},
		{0, "File size exceeds 10MB. Please upload a smaller image."},
		{2 << 20, "File size exceeds 2MB. Please upload a smaller image."},
		{1024, "File size exceeds 1KB. Please upload a smaller image."},
		{1500, "File size exceeds 1500 bytes. Please upload a smaller image."},
	}

	for _, tt := range tests {
		if got := FileTooLargeMessage(tt.maxSize); got != tt.want {
			t.Errorf("FileTooLargeMessage(%d) = %q, want %q", tt.maxSize, got, tt.want)
		}
	}

	_, err := NewFileValidator(2048).ValidateFile("image/png", 4096, nil)
	if got := apperrors.UserMessage(err, ""); got != FileTooLargeMessage(2048) {
		t.Errorf("Expected configured ceiling in message, got %q", got)
	}
}
