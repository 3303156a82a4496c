package factory

import (
	"context"
	"fmt"
	"strings"

	"go-sign-classifier/internal/config"
	"go-sign-classifier/internal/storage"
)

// StorageType represents where a selected file lives
type StorageType string

const (
	// LocalStorage for the local file system
	LocalStorage StorageType = "local"
	// AzureStorage for Azure blob storage, referenced as az://container/blob
	AzureStorage StorageType = "azure"
)

// FileSourceFactory turns a file reference into a selectable file
type FileSourceFactory interface {
	StorageTypeOf(ref string) StorageType
	Open(ctx context.Context, ref string) (storage.SelectedFile, error)
}

// fileSourceFactory implements FileSourceFactory
type fileSourceFactory struct {
	blobs storage.BlobStorage
}

// NewFileSourceFactory creates a factory. Blob references are only available
// when Azure credentials are configured.
func NewFileSourceFactory(cfg *config.Config) (FileSourceFactory, error) {
	f := &fileSourceFactory{}
	if cfg.AzureEnabled() {
		blobs, err := storage.NewAzureStorage(cfg.AzureAccountName, cfg.AzureAccountKey)
		if err != nil {
			return nil, err
		}
		f.blobs = blobs
	}
	return f, nil
}

// NewFileSourceFactoryWithBlobs creates a factory backed by the given blob storage
func NewFileSourceFactoryWithBlobs(blobs storage.BlobStorage) FileSourceFactory {
	return &fileSourceFactory{blobs: blobs}
}

// StorageTypeOf reports which storage backend serves ref
func (f *fileSourceFactory) StorageTypeOf(ref string) StorageType {
	if strings.HasPrefix(ref, storage.BlobScheme) {
		return AzureStorage
	}
	return LocalStorage
}

// Open describes the file named by ref without reading its content
func (f *fileSourceFactory) Open(ctx context.Context, ref string) (storage.SelectedFile, error) {
	switch f.StorageTypeOf(ref) {
	case AzureStorage:
		if f.blobs == nil {
			return storage.SelectedFile{}, fmt.Errorf("azure storage is not configured: set AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
		return f.blobs.Stat(ctx, ref)
	default:
		return storage.OpenLocalFile(ref)
	}
}
