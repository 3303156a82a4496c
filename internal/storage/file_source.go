package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
)

// SelectedFile is a file the user picked, before its contents are read.
// Size and ContentType come from the client (browser form, file system, blob
// properties) and are used for synchronous validation.
type SelectedFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func(ctx context.Context) (io.ReadCloser, error)
}

// FileReader reads a selected file into memory
type FileReader interface {
	ReadFile(ctx context.Context, f SelectedFile, limit int64) ([]byte, error)
}

// LocalFileReader reads selected files through their Open function
type LocalFileReader struct{}

// NewLocalFileReader creates a file reader
func NewLocalFileReader() FileReader {
	return &LocalFileReader{}
}

// ReadFile reads at most limit bytes; a file of limit bytes or more is an error.
func (r *LocalFileReader) ReadFile(ctx context.Context, f SelectedFile, limit int64) ([]byte, error) {
	if f.Open == nil {
		return nil, fmt.Errorf("file %q has no content", f.Name)
	}
	rc, err := f.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) >= limit {
		return nil, fmt.Errorf("file exceeds %d bytes", limit)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

// OpenLocalFile describes a file on disk. The content type is derived from the
// file extension and left empty when unknown.
func OpenLocalFile(path string) (SelectedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return SelectedFile{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return SelectedFile{}, fmt.Errorf("%s is a directory", path)
	}

	return SelectedFile{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Size:        info.Size(),
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// FromMultipart describes a file received in a multipart form. Parts smaller
// than limit are buffered so they outlive the request that carried them; larger
// parts are left unread since validation rejects them on size alone.
func FromMultipart(header *multipart.FileHeader, limit int64) (SelectedFile, error) {
	f := SelectedFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}
	if header.Size >= limit {
		f.Open = func(ctx context.Context) (io.ReadCloser, error) {
			return nil, fmt.Errorf("file exceeds %d bytes", limit)
		}
		return f, nil
	}

	src, err := header.Open()
	if err != nil {
		return SelectedFile{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, limit))
	if err != nil {
		return SelectedFile{}, fmt.Errorf("failed to buffer upload: %w", err)
	}
	return FromBytes(header.Filename, f.ContentType, data), nil
}

// FromBytes describes an in-memory file
func FromBytes(name, contentType string, data []byte) SelectedFile {
	return SelectedFile{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}
