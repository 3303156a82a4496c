package repository

import (
	"context"
	"errors"
	"testing"

	apperrors "go-sign-classifier/internal/errors"
	"go-sign-classifier/internal/storage"
	"go-sign-classifier/pkg/validation"
)

type fakeLoader struct {
	calls  int
	result *storage.LoadedImage
	err    error
}

func (f *fakeLoader) LoadImage(ctx context.Context, imageURL string) (*storage.LoadedImage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestRepository(loader storage.ImageLoader) ImageRepository {
	return NewHTTPImageRepository(
		storage.NewLocalFileReader(),
		loader,
		validation.NewURLValidator(),
		validation.NewFileValidator(validation.MaxFileSize),
	)
}

var pngHead = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

func TestValidateFile_SniffsUndeclaredType(t *testing.T) {
	repo := newTestRepository(&fakeLoader{})

	contentType, err := repo.ValidateFile(storage.FromBytes("hand", "", pngHead))
	if err != nil {
		t.Fatalf("Expected sniffed PNG to be accepted, got %v", err)
	}
	if contentType != "image/png" {
		t.Errorf("Expected image/png, got %q", contentType)
	}

	_, err = repo.ValidateFile(storage.FromBytes("notes.txt", "", []byte("plain text content")))
	if apperrors.UserMessage(err, "") != validation.MsgInvalidFileType {
		t.Errorf("Expected invalid type error, got %v", err)
	}
}

func TestReadFile(t *testing.T) {
	repo := newTestRepository(&fakeLoader{})
	f := storage.FromBytes("hand.png", "image/png", pngHead)

	img, err := repo.ReadFile(context.Background(), f, "image/png")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if img.Source != "localFile" || img.Name != "hand.png" || img.Size != int64(len(pngHead)) {
		t.Errorf("Unexpected image: %+v", img)
	}

	broken := storage.SelectedFile{Name: "broken.png", ContentType: "image/png", Size: 10}
	_, err = repo.ReadFile(context.Background(), broken, "image/png")
	if !errors.Is(err, ErrFileUnreadable) {
		t.Errorf("Expected ErrFileUnreadable, got %v", err)
	}
	if apperrors.UserMessage(err, "") != MsgFileReadFailed {
		t.Errorf("Expected read failure message, got %q", apperrors.UserMessage(err, ""))
	}
}

func TestLoadURL_InvalidURLNeverProbes(t *testing.T) {
	loader := &fakeLoader{}
	repo := newTestRepository(loader)

	for _, raw := range []string{"", "not a url", "ftp://example.com/a.png", "http://"} {
		if _, err := repo.LoadURL(context.Background(), raw); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			t.Errorf("Expected validation error for %q, got %v", raw, err)
		}
	}
	if loader.calls != 0 {
		t.Errorf("Expected no network probe for invalid URLs, got %d", loader.calls)
	}
}

func TestLoadURL_ProbeFailure(t *testing.T) {
	loader := &fakeLoader{err: errors.New("client error: status code 404")}
	repo := newTestRepository(loader)

	_, err := repo.LoadURL(context.Background(), "https://example.com/missing.png")
	if !errors.Is(err, ErrImageNotLoadable) {
		t.Errorf("Expected ErrImageNotLoadable, got %v", err)
	}
	if apperrors.UserMessage(err, "") != MsgURLLoadFailed {
		t.Errorf("Expected load failure message, got %q", apperrors.UserMessage(err, ""))
	}
	if loader.calls != 1 {
		t.Errorf("Expected exactly one probe, got %d", loader.calls)
	}
}

func TestLoadURL_Success(t *testing.T) {
	loader := &fakeLoader{result: &storage.LoadedImage{Format: "jpeg", Width: 64, Height: 48, Size: 900}}
	repo := newTestRepository(loader)

	img, err := repo.LoadURL(context.Background(), " https://example.com/a.jpg ")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if img.Source != "remoteUrl" || img.URL != "https://example.com/a.jpg" {
		t.Errorf("Unexpected image: %+v", img)
	}
	if img.Width != 64 || img.Height != 48 || img.Data != nil {
		t.Errorf("Unexpected URL image details: %+v", img)
	}
}
