package predictor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	apperrors "go-sign-classifier/internal/errors"
	"go-sign-classifier/pkg/models"
)

func TestPredictFile_SendsMultipart(t *testing.T) {
	var requests int32
	data := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if r.Method != http.MethodPost || r.URL.Path != "/slc/predict" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Expected multipart field 'file': %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		got, _ := io.ReadAll(file)
		if string(got) != string(data) {
			t.Errorf("Uploaded bytes differ")
		}
		if header.Filename != `hand "a".png` {
			t.Errorf("Expected filename to round-trip, got %q", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("Expected part content type image/png, got %q", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "letter": "A", "confidence": 97}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL+"/", 5*time.Second)
	prediction, err := client.PredictFile(context.Background(), `hand "a".png`, "image/png", data)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if prediction.Label != "A" || prediction.Confidence != 97 {
		t.Errorf("Unexpected prediction: %+v", prediction)
	}
	if n := atomic.LoadInt32(&requests); n != 1 {
		t.Errorf("Expected exactly one request, got %d", n)
	}
}

func TestPredictURL_SendsJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/slc/predict/url" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %q", ct)
		}
		var body models.PredictURLRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
		if body.ImageURL != "https://example.com/b.jpg" {
			t.Errorf("Unexpected image_url %q", body.ImageURL)
		}
		w.Write([]byte(`{"success": true, "letter": "B", "confidence": 88.5}`))
	}))
	defer server.Close()

	prediction, err := NewHTTPClient(server.URL, 5*time.Second).PredictURL(context.Background(), "https://example.com/b.jpg")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if prediction.Label != "B" || prediction.Confidence != 88.5 {
		t.Errorf("Unexpected prediction: %+v", prediction)
	}
}

func TestPredict_OutcomeMapping(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantType    apperrors.ErrorType
		wantMessage string
	}{
		{
			name:        "service reported failure",
			status:      http.StatusOK,
			body:        `{"success": false, "error": "low confidence"}`,
			wantType:    apperrors.ErrorTypeService,
			wantMessage: "low confidence",
		},
		{
			name:        "service failure without message",
			status:      http.StatusOK,
			body:        `{"success": false}`,
			wantType:    apperrors.ErrorTypeService,
			wantMessage: MsgPredictionFailed,
		},
		{
			name:        "success without letter",
			status:      http.StatusOK,
			body:        `{"success": true, "confidence": 50}`,
			wantType:    apperrors.ErrorTypeProcessing,
			wantMessage: MsgPredictionFailed,
		},
		{
			name:        "non-success status",
			status:      http.StatusInternalServerError,
			body:        `{"detail": "Internal server error"}`,
			wantType:    apperrors.ErrorTypeService,
			wantMessage: "The prediction service returned an error (status 500). Please try again.",
		},
		{
			name:        "undecodable body",
			status:      http.StatusOK,
			body:        `<html>gateway</html>`,
			wantType:    apperrors.ErrorTypeNetwork,
			wantMessage: MsgServiceUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewHTTPClient(server.URL, 5*time.Second).PredictURL(context.Background(), "https://example.com/a.png")
			if !apperrors.IsType(err, tt.wantType) {
				t.Fatalf("Expected %s error, got %v", tt.wantType, err)
			}
			if msg := apperrors.UserMessage(err, ""); msg != tt.wantMessage {
				t.Errorf("Expected message %q, got %q", tt.wantMessage, msg)
			}
		})
	}
}

func TestPredict_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	_, err := NewHTTPClient(baseURL, time.Second).PredictFile(context.Background(), "a.png", "image/png", []byte{1})
	if msg := apperrors.UserMessage(err, ""); msg != MsgServiceUnreachable {
		t.Errorf("Expected unreachable message, got %q (%v)", msg, err)
	}
}

func TestPredict_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	_, err := NewHTTPClient(server.URL, 50*time.Millisecond).PredictURL(context.Background(), "https://example.com/a.png")
	if msg := apperrors.UserMessage(err, ""); msg != MsgServiceUnreachable {
		t.Errorf("Expected unreachable message on timeout, got %q (%v)", msg, err)
	}
}

func TestModelInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/slc/model/info" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"loaded": true, "num_classes": 24, "labels": ["A","B"], "total_parameters": 1200}`))
	}))
	defer server.Close()

	info, err := NewHTTPClient(server.URL, time.Second).ModelInfo(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !info.Loaded || info.NumClasses != 24 || len(info.Labels) != 2 || info.TotalParameters != 1200 {
		t.Errorf("Unexpected model info: %+v", info)
	}
}

func TestPing(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Hello": "World"}`))
	}))
	defer healthy.Close()
	if err := NewHTTPClient(healthy.URL, time.Second).Ping(context.Background()); err != nil {
		t.Errorf("Expected healthy service, got %v", err)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()
	if err := NewHTTPClient(broken.URL, time.Second).Ping(context.Background()); err == nil {
		t.Error("Expected error for 503")
	}
}

func TestEscapeQuotes(t *testing.T) {
	if got := escapeQuotes(`a"b\c`); !strings.Contains(got, `\"`) || !strings.Contains(got, `\\`) {
		t.Errorf("Expected quotes and backslashes to be escaped, got %q", got)
	}
}
