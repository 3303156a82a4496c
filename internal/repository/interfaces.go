package repository

import (
	"context"

	"go-sign-classifier/internal/storage"
	"go-sign-classifier/pkg/models"
)

// ImageRepository defines the input side of a session: validating what the
// user supplied and turning it into a display image.
type ImageRepository interface {
	// ValidateFile checks type and size synchronously and returns the content type to use
	ValidateFile(f storage.SelectedFile) (string, error)

	// ReadFile reads a validated file into a display image
	ReadFile(ctx context.Context, f storage.SelectedFile, contentType string) (*models.Image, error)

	// ValidateImageURL checks that the URL is well formed without touching the network
	ValidateImageURL(imageURL string) error

	// LoadURL verifies that the URL resolves to a loadable image
	LoadURL(ctx context.Context, imageURL string) (*models.Image, error)
}
