package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/closetly/internal/metrics"
	"github.com/hitoshi/closetly/internal/middleware"
	"github.com/hitoshi/closetly/internal/model"
)

// WardrobeServiceInterface はワードローブハンドラーが必要とするサービスインターフェース。
type WardrobeServiceInterface interface {
	// ListGrouped はユーザーの全アイテムをカテゴリ別に返す。
	ListGrouped(ctx context.Context, userID string) (model.WardrobeByCategory, error)
	// AddItem は画像を保存しアイテムを登録する。
	AddItem(ctx context.Context, userID, name string, category model.Category, filename string, blob io.Reader) (*model.WardrobeItem, error)
	// RemoveItem は指定ユーザー所有のアイテムを削除する。
	RemoveItem(ctx context.Context, userID, itemID string) error
}

// WardrobeImporterInterface は外部URLからのアイテム取り込みインターフェース。
type WardrobeImporterInterface interface {
	// ImportItem は外部URLから画像を取得しアイテムを登録する。
	ImportItem(ctx context.Context, userID, name string, category model.Category, imageURL string) (*model.WardrobeItem, error)
}

// AvatarServiceInterface はアバターハンドラーが必要とするサービスインターフェース。
type AvatarServiceInterface interface {
	// UploadAvatar はアバター画像を保存しレコードを追加する。
	UploadAvatar(ctx context.Context, userID, filename string, blob io.Reader) (*model.Avatar, error)
	// GetAvatar はユーザーのアバターを返す。存在しない場合はnilを返す。
	GetAvatar(ctx context.Context, userID string) (*model.Avatar, error)
}

// uploadMemoryLimit はmultipartフォーム解析時のメモリ上限（それ以上は一時ファイルに退避）。
const uploadMemoryLimit = 4 << 20 // 4MiB

// WardrobeHandler はワードローブ管理のHTTPハンドラー。
type WardrobeHandler struct {
	service   WardrobeServiceInterface
	importer  WardrobeImporterInterface
	avatars   AvatarServiceInterface
	collector metrics.MetricsCollector
	maxUpload int64
}

// NewWardrobeHandler はWardrobeHandlerを生成する。
// collectorがnilの場合、メトリクスの記録はスキップされる。
func NewWardrobeHandler(service WardrobeServiceInterface, importer WardrobeImporterInterface, avatars AvatarServiceInterface, collector metrics.MetricsCollector, maxUpload int64) *WardrobeHandler {
	return &WardrobeHandler{
		service:   service,
		importer:  importer,
		avatars:   avatars,
		collector: collector,
		maxUpload: maxUpload,
	}
}

// importItemRequest はURL取り込みリクエストのボディ。
type importItemRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	ImageURL string `json:"image_url"`
}

// wardrobeItemResponse は衣類アイテムのAPIレスポンス。
type wardrobeItemResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	ImageURL  string `json:"imageUrl"`
	CreatedAt string `json:"createdAt"`
}

// avatarResponse はアバターのAPIレスポンス。
type avatarResponse struct {
	ImageURL string `json:"imageUrl"`
}

// ListWardrobe はカテゴリ別グルーピング済みのワードローブを返す。
// GET /api/wardrobe
func (h *WardrobeHandler) ListWardrobe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	grouped, err := h.service.ListGrouped(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toWardrobeResponse(grouped))
}

// AddItem は衣類アイテムの登録を処理する。
// multipartフォームのフィールド: name, category, image
// POST /api/wardrobe
func (h *WardrobeHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	// 1. multipartフォームの解析（ボディサイズを上限で制限）
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("multipartフォームの解析に失敗しました。"))
		return
	}

	name := r.FormValue("name")
	category := model.Category(r.FormValue("category"))

	file, header, err := r.FormFile("image")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("画像ファイルが添付されていません。"))
		return
	}
	defer file.Close()

	// 2. 画像保存とアイテム登録
	start := time.Now()
	item, err := h.service.AddItem(r.Context(), userID, name, category, header.Filename, file)
	if err != nil {
		h.recordUploadFailure("item")
		handleServiceError(w, err)
		return
	}
	h.recordUploadSuccess("item", time.Since(start))
	if h.collector != nil {
		h.collector.RecordItemCreated()
	}

	writeJSON(w, http.StatusCreated, toItemResponse(item))
}

// ImportItem は外部URLからのアイテム取り込みを処理する。
// POST /api/wardrobe/import
func (h *WardrobeHandler) ImportItem(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req importItemRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	if req.ImageURL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("画像URLが空です"))
		return
	}

	start := time.Now()
	item, err := h.importer.ImportItem(r.Context(), userID, req.Name, model.Category(req.Category), req.ImageURL)
	if err != nil {
		h.recordUploadFailure("import")
		handleServiceError(w, err)
		return
	}
	h.recordUploadSuccess("import", time.Since(start))
	if h.collector != nil {
		h.collector.RecordItemCreated()
	}

	writeJSON(w, http.StatusCreated, toItemResponse(item))
}

// RemoveItem は衣類アイテムの削除を処理する。
// DELETE /api/wardrobe/:id
func (h *WardrobeHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	itemID := chi.URLParam(r, "id")

	if err := h.service.RemoveItem(r.Context(), userID, itemID); err != nil {
		handleServiceError(w, err)
		return
	}
	if h.collector != nil {
		h.collector.RecordItemDeleted()
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetAvatar は現在のユーザーのアバターを返す。未設定の場合は空のURLを返す。
// GET /api/avatar
func (h *WardrobeHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	avatar, err := h.avatars.GetAvatar(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := avatarResponse{}
	if avatar != nil {
		resp.ImageURL = avatar.ImageURL
	}
	writeJSON(w, http.StatusOK, resp)
}

// UploadAvatar はアバター画像のアップロードを処理する。
// multipartフォームのフィールド: image
// POST /api/avatar
func (h *WardrobeHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("multipartフォームの解析に失敗しました。"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("画像ファイルが添付されていません。"))
		return
	}
	defer file.Close()

	start := time.Now()
	avatar, err := h.avatars.UploadAvatar(r.Context(), userID, header.Filename, file)
	if err != nil {
		h.recordUploadFailure("avatar")
		handleServiceError(w, err)
		return
	}
	h.recordUploadSuccess("avatar", time.Since(start))

	writeJSON(w, http.StatusCreated, avatarResponse{ImageURL: avatar.ImageURL})
}

// --- ヘルパー関数 ---

func (h *WardrobeHandler) recordUploadSuccess(kind string, latency time.Duration) {
	if h.collector == nil {
		return
	}
	h.collector.RecordUploadSuccess(kind)
	h.collector.RecordUploadLatency(latency)
}

func (h *WardrobeHandler) recordUploadFailure(kind string) {
	if h.collector == nil {
		return
	}
	h.collector.RecordUploadFailure(kind)
}

// toItemResponse はmodel.WardrobeItemからAPIレスポンスに変換する。
func toItemResponse(item *model.WardrobeItem) wardrobeItemResponse {
	return wardrobeItemResponse{
		ID:        item.ID,
		Name:      item.Name,
		Category:  string(item.Category),
		ImageURL:  item.ImageURL,
		CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// toWardrobeResponse はグルーピング結果をカテゴリキーのJSONオブジェクトに変換する。
// アイテムが1件もないカテゴリはキー自体を含めない。
func toWardrobeResponse(grouped model.WardrobeByCategory) map[string][]wardrobeItemResponse {
	resp := make(map[string][]wardrobeItemResponse, len(grouped))
	for category, items := range grouped {
		list := make([]wardrobeItemResponse, 0, len(items))
		for i := range items {
			list = append(list, toItemResponse(&items[i]))
		}
		resp[string(category)] = list
	}
	return resp
}
