package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/closetly/internal/removebg"
)

// --- モック定義 ---

type mockRemoveBgClient struct {
	configured         bool
	removeBackgroundFn func(ctx context.Context, image io.Reader, filename string) (*removebg.Result, error)
}

func (m *mockRemoveBgClient) Configured() bool {
	return m.configured
}

func (m *mockRemoveBgClient) RemoveBackground(ctx context.Context, image io.Reader, filename string) (*removebg.Result, error) {
	return m.removeBackgroundFn(ctx, image, filename)
}

var _ RemoveBgClientInterface = (*mockRemoveBgClient)(nil)

func newTestRemoveBgHandler(client RemoveBgClientInterface) *RemoveBgHandler {
	return NewRemoveBgHandler(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// --- テスト ---

func TestRemoveBg_NonPost_ReturnsMethodNotAllowed(t *testing.T) {
	h := newTestRemoveBgHandler(&mockRemoveBgClient{configured: true})

	req := httptest.NewRequest(http.MethodGet, "/api/removebg", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestRemoveBg_KeyNotConfigured_ReturnsInternalError(t *testing.T) {
	h := newTestRemoveBgHandler(&mockRemoveBgClient{configured: false})

	req := httptest.NewRequest(http.MethodPost, "/api/removebg", bytes.NewReader([]byte("png")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp["error"] != "API key not configured" {
		t.Errorf("error = %q, want %q", resp["error"], "API key not configured")
	}
}

func TestRemoveBg_Success_StreamsProcessedImage(t *testing.T) {
	client := &mockRemoveBgClient{
		configured: true,
		removeBackgroundFn: func(ctx context.Context, image io.Reader, filename string) (*removebg.Result, error) {
			data, _ := io.ReadAll(image)
			if string(data) != "raw-image" {
				t.Errorf("image = %q, want %q", string(data), "raw-image")
			}
			return &removebg.Result{
				Body:        io.NopCloser(bytes.NewReader([]byte("processed-png"))),
				ContentType: "image/png",
			}, nil
		},
	}
	h := newTestRemoveBgHandler(client)

	req := httptest.NewRequest(http.MethodPost, "/api/removebg", bytes.NewReader([]byte("raw-image")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want %q", ct, "image/png")
	}
	if rec.Body.String() != "processed-png" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "processed-png")
	}
}

func TestRemoveBg_UpstreamError_ReturnsMessage(t *testing.T) {
	client := &mockRemoveBgClient{
		configured: true,
		removeBackgroundFn: func(ctx context.Context, image io.Reader, filename string) (*removebg.Result, error) {
			return nil, &removebg.UpstreamError{StatusCode: 402, Message: "Insufficient credits"}
		},
	}
	h := newTestRemoveBgHandler(client)

	req := httptest.NewRequest(http.MethodPost, "/api/removebg", bytes.NewReader([]byte("png")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp["error"] != "Insufficient credits" {
		t.Errorf("error = %q, want %q", resp["error"], "Insufficient credits")
	}
}

func TestRemoveBg_DefaultFilename_IsUsed(t *testing.T) {
	gotFilename := ""
	client := &mockRemoveBgClient{
		configured: true,
		removeBackgroundFn: func(ctx context.Context, image io.Reader, filename string) (*removebg.Result, error) {
			gotFilename = filename
			return &removebg.Result{
				Body:        io.NopCloser(bytes.NewReader(nil)),
				ContentType: "image/png",
			}, nil
		},
	}
	h := newTestRemoveBgHandler(client)

	req := httptest.NewRequest(http.MethodPost, "/api/removebg", bytes.NewReader([]byte("png")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if gotFilename != "upload.png" {
		t.Errorf("filename = %q, want %q", gotFilename, "upload.png")
	}
}
