// Package predictor is the client for the remote sign language prediction service.
package predictor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/goccy/go-json"

	apperrors "go-sign-classifier/internal/errors"
	"go-sign-classifier/pkg/models"
)

const (
	predictFilePath = "/slc/predict"
	predictURLPath  = "/slc/predict/url"
	modelInfoPath   = "/slc/model/info"
)

const (
	MsgServiceUnreachable = "Failed to connect to the prediction service. Please ensure the backend is running and try again."
	MsgPredictionFailed   = "Prediction failed. Please try again."
)

// maxResponseBytes bounds the size of a decoded service response
const maxResponseBytes = 1 << 20

// Client issues prediction requests
type Client interface {
	PredictFile(ctx context.Context, name, contentType string, data []byte) (*models.Prediction, error)
	PredictURL(ctx context.Context, imageURL string) (*models.Prediction, error)
	ModelInfo(ctx context.Context) (*models.ModelInfo, error)
	Ping(ctx context.Context) error
}

// HTTPClient talks to the prediction service over HTTP
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the service rooted at baseURL
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// PredictFile uploads the raw file bytes as the multipart field "file"
func (c *HTTPClient) PredictFile(ctx context.Context, name, contentType string, data []byte) (*models.Prediction, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, apperrors.NewInternalError(MsgPredictionFailed, err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, apperrors.NewInternalError(MsgPredictionFailed, err)
	}
	if err := w.Close(); err != nil {
		return nil, apperrors.NewInternalError(MsgPredictionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictFilePath, &body)
	if err != nil {
		return nil, apperrors.NewInternalError(MsgServiceUnreachable, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.doPredict(req)
}

// PredictURL submits the image URL as JSON
func (c *HTTPClient) PredictURL(ctx context.Context, imageURL string) (*models.Prediction, error) {
	payload, err := json.Marshal(models.PredictURLRequest{ImageURL: imageURL})
	if err != nil {
		return nil, apperrors.NewInternalError(MsgPredictionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictURLPath, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.NewInternalError(MsgServiceUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doPredict(req)
}

func (c *HTTPClient) doPredict(req *http.Request) (*models.Prediction, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, apperrors.NewServiceError(
			fmt.Sprintf("The prediction service returned an error (status %d). Please try again.", resp.StatusCode),
			fmt.Errorf("HTTP error! status: %d", resp.StatusCode),
		)
	}

	var payload models.PredictionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return nil, apperrors.NewNetworkError(MsgServiceUnreachable, fmt.Errorf("decode response: %w", err))
	}

	if !payload.Success {
		msg := strings.TrimSpace(payload.Error)
		if msg == "" {
			msg = MsgPredictionFailed
		}
		return nil, apperrors.NewServiceError(msg, nil)
	}
	if strings.TrimSpace(payload.Letter) == "" {
		return nil, apperrors.NewProcessingError(MsgPredictionFailed, errors.New("success response without a letter"))
	}

	prediction := &models.Prediction{Label: payload.Letter}
	if payload.Confidence != nil {
		prediction.Confidence = *payload.Confidence
	}
	return prediction, nil
}

// ModelInfo fetches information about the model loaded by the service
func (c *HTTPClient) ModelInfo(ctx context.Context) (*models.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+modelInfoPath, nil)
	if err != nil {
		return nil, apperrors.NewInternalError(MsgServiceUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewServiceError(
			fmt.Sprintf("Failed to retrieve model information (status %d).", resp.StatusCode), nil)
	}

	var info models.ModelInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&info); err != nil {
		return nil, apperrors.NewNetworkError(MsgServiceUnreachable, fmt.Errorf("decode model info: %w", err))
	}
	return &info, nil
}

// Ping checks that the service root answers
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return apperrors.NewInternalError(MsgServiceUnreachable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 500 {
		return apperrors.NewServiceError("prediction service unhealthy", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(MsgServiceUnreachable, err)
	}
	return apperrors.NewNetworkError(MsgServiceUnreachable, err)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
