package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/closetly/internal/removebg"
)

// RemoveBgClientInterface は背景除去ハンドラーが必要とするクライアントインターフェース。
type RemoveBgClientInterface interface {
	// Configured はAPIキーが設定済みかを返す。
	Configured() bool
	// RemoveBackground は画像をアップストリームに転送し、背景除去済み画像を返す。
	RemoveBackground(ctx context.Context, image io.Reader, filename string) (*removebg.Result, error)
}

// RemoveBgHandler は背景除去プロキシのHTTPハンドラー。
// APIキーをサーバー側に秘匿したまま、クライアントの画像をアップストリームに中継する。
type RemoveBgHandler struct {
	client RemoveBgClientInterface
	logger *slog.Logger
}

// NewRemoveBgHandler はRemoveBgHandlerを生成する。
func NewRemoveBgHandler(client RemoveBgClientInterface, logger *slog.Logger) *RemoveBgHandler {
	return &RemoveBgHandler{
		client: client,
		logger: logger,
	}
}

// ServeHTTP は背景除去リクエストを処理する。
// リクエストボディの画像をそのままアップストリームに転送し、
// 成功時は背景除去済みPNGをストリーミングで返す。
// POST /api/removebg
func (h *RemoveBgHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	if !h.client.Configured() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "API key not configured"})
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "upload.png"
	}

	result, err := h.client.RemoveBackground(r.Context(), r.Body, filename)
	if err != nil {
		var upstream *removebg.UpstreamError
		if errors.As(err, &upstream) {
			h.logger.Warn("background removal rejected by upstream",
				slog.Int("upstream_status", upstream.StatusCode),
				slog.String("message", upstream.Message),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": upstream.Message})
			return
		}

		h.logger.Error("background removal request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to process image"})
		return
	}
	defer result.Body.Close()

	w.Header().Set("Content-Type", result.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, result.Body); err != nil {
		h.logger.Warn("failed to stream processed image", slog.String("error", err.Error()))
	}
}
