package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	// maxProbeBytes bounds how much of a remote image is read while probing it.
	maxProbeBytes = 32 * 1024 * 1024
	// maxProbePixels bounds the declared dimensions of a remote image. Decoders
	// allocate the pixel buffer from the header, so this is checked first.
	maxProbePixels = 50_000_000
)

// ErrImageTooLarge is returned when a remote image declares more pixels than
// the probe will decode
var ErrImageTooLarge = errors.New("image dimensions exceed limit")

// LoadedImage describes a remote image that decoded successfully
type LoadedImage struct {
	URL         string
	ContentType string
	Format      string
	Width       int
	Height      int
	Size        int64
}

// ImageLoader verifies that a URL resolves to a loadable image
type ImageLoader interface {
	LoadImage(ctx context.Context, imageURL string) (*LoadedImage, error)
}

// HTTPImageLoader fetches and decodes remote images over HTTP
type HTTPImageLoader struct {
	client *http.Client
}

// NewHTTPImageLoader creates an HTTP image loader. timeout bounds a whole probe.
func NewHTTPImageLoader(timeout time.Duration) ImageLoader {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	transport := &http.Transport{
		Proxy:                  http.ProxyFromEnvironment,
		MaxIdleConns:           10,
		MaxIdleConnsPerHost:    2,
		IdleConnTimeout:        30 * time.Second,
		TLSHandshakeTimeout:    10 * time.Second,
		ResponseHeaderTimeout:  10 * time.Second,
		ExpectContinueTimeout:  1 * time.Second,
		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageLoader{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

// LoadImage issues a single GET and decodes the body. There is no retry: a
// failed probe is reported to the user, who can try again.
func (h *HTTPImageLoader) LoadImage(ctx context.Context, imageURL string) (*LoadedImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req.Header.Set("Accept", "image/png, image/jpeg, image/webp, image/gif, image/*;q=0.8")
	req.Header.Set("User-Agent", "Go-Sign-Classifier/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, fmt.Errorf("client error: status code %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("server error: status code %d", resp.StatusCode)
	}

	counter := &countingReader{r: io.LimitReader(resp.Body, maxProbeBytes)}

	// Bytes consumed by the header read are replayed to the full decode.
	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(counter, &head))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxProbePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(io.MultiReader(&head, counter))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	return &LoadedImage{
		URL:         imageURL,
		ContentType: resp.Header.Get("Content-Type"),
		Format:      format,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Size:        counter.n,
	}, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
