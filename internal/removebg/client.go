// Package removebg は remove.bg APIへの背景除去プロキシを提供する。
// APIキーをサーバー側に保持し、クライアントには渡さない。
package removebg

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
)

// defaultEndpoint は remove.bg の背景除去APIエンドポイント。
const defaultEndpoint = "https://api.remove.bg/v1.0/removebg"

// Result は背景除去の成功レスポンス。
// Bodyは呼び出し元がCloseすること。
type Result struct {
	Body        io.ReadCloser
	ContentType string
}

// UpstreamError は remove.bg がエラーステータスを返した場合のエラー。
// ステータスコードと上流のエラーメッセージを保持する。
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("remove.bg returned status %d: %s", e.StatusCode, e.Message)
}

// Client は remove.bg APIのクライアント。
type Client struct {
	httpClient *http.Client
	apiKey     string
	logger     *slog.Logger
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// apiKeyが空の場合でも生成は成功し、呼び出し時にConfiguredで判定する。
func NewClient(httpClient *http.Client, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		apiKey:     apiKey,
		logger:     logger,
		endpoint:   defaultEndpoint,
	}
}

// SetEndpoint はアップストリームのエンドポイントを上書きする。
// 空文字列の場合は既定のエンドポイントを維持する。
func (c *Client) SetEndpoint(endpoint string) {
	if endpoint != "" {
		c.endpoint = endpoint
	}
}

// Configured はAPIキーが設定されているかを返す。
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// RemoveBackground は画像の背景を除去して結果画像のストリームを返す。
// 入力画像はmultipart/form-dataのimage_fileフィールドで送信する。
func (c *Client) RemoveBackground(ctx context.Context, image io.Reader, filename string) (*Result, error) {
	body, contentType, err := buildMultipartBody(image, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("remove.bg API呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		message := readUpstreamError(resp.Body)
		c.logger.Error("remove.bg APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("message", message),
		)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: message}
	}

	respContentType := resp.Header.Get("Content-Type")
	if respContentType == "" {
		respContentType = "image/png"
	}
	return &Result{Body: resp.Body, ContentType: respContentType}, nil
}

// buildMultipartBody は画像全体をメモリに読み込まずに済むよう、
// パイプ経由でmultipartボディを構築する。
func buildMultipartBody(image io.Reader, filename string) (io.Reader, string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("image_file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, image); err != nil {
			pw.CloseWithError(err)
			return
		}
		if err := mw.WriteField("size", "auto"); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	return pr, mw.FormDataContentType(), nil
}

// readUpstreamError は remove.bg のエラーレスポンスから先頭のメッセージを取り出す。
func readUpstreamError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var parsed struct {
		Errors []struct {
			Title string `json:"title"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Errors) == 0 {
		return string(body)
	}
	return parsed.Errors[0].Title
}
