package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// BlobScheme prefixes blob references, e.g. az://signs/hand-a.png
const BlobScheme = "az://"

// BlobStorage describes blobs as selectable files
type BlobStorage interface {
	Stat(ctx context.Context, ref string) (SelectedFile, error)
}

type azureStorage struct {
	client *azblob.Client
}

func NewAzureStorage(accountName string, accountKey string) (BlobStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &azureStorage{client: client}, nil
}

// ParseBlobRef splits az://container/blob into its container and blob names
func ParseBlobRef(ref string) (containerName, blobName string, err error) {
	if !strings.HasPrefix(ref, BlobScheme) {
		return "", "", fmt.Errorf("invalid blob reference %q: missing %s prefix", ref, BlobScheme)
	}
	containerName, blobName, ok := strings.Cut(strings.TrimPrefix(ref, BlobScheme), "/")
	if !ok || containerName == "" || blobName == "" {
		return "", "", fmt.Errorf("invalid blob reference %q: expected %scontainer/blob", ref, BlobScheme)
	}
	return containerName, blobName, nil
}

// Stat reads the blob's properties. Content is downloaded only when the file is opened.
func (s *azureStorage) Stat(ctx context.Context, ref string) (SelectedFile, error) {
	containerName, blobName, err := ParseBlobRef(ref)
	if err != nil {
		return SelectedFile{}, err
	}

	props, err := s.client.ServiceClient().
		NewContainerClient(containerName).
		NewBlobClient(blobName).
		GetProperties(ctx, nil)
	if err != nil {
		return SelectedFile{}, fmt.Errorf("failed to read blob properties: %w", err)
	}

	f := SelectedFile{Name: path.Base(blobName)}
	if props.ContentLength != nil {
		f.Size = *props.ContentLength
	}
	if props.ContentType != nil {
		f.ContentType = *props.ContentType
	}
	f.Open = func(ctx context.Context) (io.ReadCloser, error) {
		resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
		if err != nil {
			return nil, fmt.Errorf("download failed: %w", err)
		}
		return resp.Body, nil
	}
	return f, nil
}
