package repository

import (
	"context"
	"fmt"
	"io"
	"strings"

	apperrors "go-sign-classifier/internal/errors"
	"go-sign-classifier/internal/storage"
	"go-sign-classifier/pkg/models"
	"go-sign-classifier/pkg/validation"
)

const (
	MsgFileReadFailed = "Failed to read file. Please try again."
	MsgURLLoadFailed  = "Failed to load image from URL. Please check the URL and try again."
)

// sniffLen is how many leading bytes are inspected when a file has no declared type
const sniffLen = 3072

// HTTPImageRepository implements ImageRepository on top of the storage layer
type HTTPImageRepository struct {
	reader        storage.FileReader
	loader        storage.ImageLoader
	urlValidator  *validation.URLValidator
	fileValidator *validation.FileValidator
}

// NewHTTPImageRepository creates a new image repository
func NewHTTPImageRepository(
	reader storage.FileReader,
	loader storage.ImageLoader,
	urlValidator *validation.URLValidator,
	fileValidator *validation.FileValidator,
) ImageRepository {
	return &HTTPImageRepository{
		reader:        reader,
		loader:        loader,
		urlValidator:  urlValidator,
		fileValidator: fileValidator,
	}
}

// ValidateFile checks the file's type and size. When no type was declared the
// leading bytes are read for sniffing.
func (r *HTTPImageRepository) ValidateFile(f storage.SelectedFile) (string, error) {
	var head []byte
	if declared := strings.TrimSpace(f.ContentType); declared == "" || declared == "application/octet-stream" {
		head = r.readHead(f)
	}
	return r.fileValidator.ValidateFile(f.ContentType, f.Size, head)
}

func (r *HTTPImageRepository) readHead(f storage.SelectedFile) []byte {
	if f.Open == nil {
		return nil
	}
	rc, err := f.Open(context.Background())
	if err != nil {
		return nil
	}
	defer rc.Close()

	head := make([]byte, sniffLen)
	n, _ := io.ReadFull(rc, head)
	return head[:n]
}

// ReadFile reads the file contents into a display image
func (r *HTTPImageRepository) ReadFile(ctx context.Context, f storage.SelectedFile, contentType string) (*models.Image, error) {
	data, err := r.reader.ReadFile(ctx, f, r.fileValidator.MaxSize())
	if err != nil {
		return nil, apperrors.NewProcessingError(MsgFileReadFailed, fmt.Errorf("%w: %v", ErrFileUnreadable, err))
	}

	return &models.Image{
		Source:      models.SourceLocalFile,
		Name:        f.Name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

// ValidateImageURL validates if the provided URL is acceptable
func (r *HTTPImageRepository) ValidateImageURL(imageURL string) error {
	return r.urlValidator.ValidateImageURL(imageURL)
}

// LoadURL probes the URL by loading it as an image
func (r *HTTPImageRepository) LoadURL(ctx context.Context, imageURL string) (*models.Image, error) {
	imageURL = strings.TrimSpace(imageURL)
	if err := r.ValidateImageURL(imageURL); err != nil {
		return nil, err
	}

	loaded, err := r.loader.LoadImage(ctx, imageURL)
	if err != nil {
		return nil, apperrors.NewNetworkError(MsgURLLoadFailed, fmt.Errorf("%w: %v", ErrImageNotLoadable, err))
	}

	return &models.Image{
		Source:      models.SourceRemoteURL,
		Name:        imageURL,
		ContentType: loaded.ContentType,
		Size:        loaded.Size,
		URL:         imageURL,
		Width:       loaded.Width,
		Height:      loaded.Height,
		Format:      loaded.Format,
	}, nil
}
