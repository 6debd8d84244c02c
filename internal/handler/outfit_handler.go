package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/closetly/internal/metrics"
	"github.com/hitoshi/closetly/internal/middleware"
	"github.com/hitoshi/closetly/internal/model"
	"github.com/hitoshi/closetly/internal/outfit"
	"github.com/hitoshi/closetly/internal/repository"
)

// wardrobeItemsBlobName はクライアント互換のレガシーキャッシュブロブ名。
// サーバーは内容を解釈せず、そのまま保存・返却する。
const wardrobeItemsBlobName = "wardrobe-items"

// cacheBlobMaxSize はレガシーキャッシュブロブの受け入れ上限（バイト）。
const cacheBlobMaxSize = 1 << 20 // 1MiB

// OutfitManagerInterface はアウトフィットハンドラーが必要とするマネージャーインターフェース。
type OutfitManagerInterface interface {
	// Get はユーザーのアウトフィットコントローラーを返す。未作成なら保存済み一覧を読み込んで生成する。
	Get(ctx context.Context, userID string) (*outfit.Controller, error)
}

// OutfitHandler はアウトフィット編成・保存のHTTPハンドラー。
type OutfitHandler struct {
	manager   OutfitManagerInterface
	blobs     repository.BlobRepository
	collector metrics.MetricsCollector
}

// NewOutfitHandler はOutfitHandlerを生成する。
// collectorがnilの場合、メトリクスの記録はスキップされる。
func NewOutfitHandler(manager OutfitManagerInterface, blobs repository.BlobRepository, collector metrics.MetricsCollector) *OutfitHandler {
	return &OutfitHandler{
		manager:   manager,
		blobs:     blobs,
		collector: collector,
	}
}

// addOutfitItemRequest は編成中アウトフィットへの追加リクエストのボディ。
type addOutfitItemRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

// saveOutfitRequest はアウトフィット保存リクエストのボディ。
type saveOutfitRequest struct {
	Name string `json:"name"`
}

// currentOutfitResponse は編成中アウトフィットのAPIレスポンス。
type currentOutfitResponse struct {
	Items []model.OutfitItem `json:"items"`
}

// GetCurrentOutfit は編成中のアウトフィットを返す。
// GET /api/outfit/current
func (h *OutfitHandler) GetCurrentOutfit(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	items := ctrl.CurrentOutfit()
	if items == nil {
		items = []model.OutfitItem{}
	}
	writeJSON(w, http.StatusOK, currentOutfitResponse{Items: items})
}

// AddOutfitItem は編成中アウトフィットへのアイテム追加を処理する。
// 同一アイテムの重複追加は許容される。
// POST /api/outfit/current/items
func (h *OutfitHandler) AddOutfitItem(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	var req addOutfitItemRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	ctrl.AddToOutfit(model.OutfitItem{
		ID:       req.ID,
		Name:     req.Name,
		ImageURL: req.ImageURL,
	})

	items := ctrl.CurrentOutfit()
	writeJSON(w, http.StatusOK, currentOutfitResponse{Items: items})
}

// RemoveOutfitItem は編成中アウトフィットからの位置指定削除を処理する。
// 範囲外のインデックスは何も変更しない。
// DELETE /api/outfit/current/items/:index
func (h *OutfitHandler) RemoveOutfitItem(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("インデックスは整数で指定してください。"))
		return
	}

	ctrl.RemoveFromOutfit(index)

	items := ctrl.CurrentOutfit()
	if items == nil {
		items = []model.OutfitItem{}
	}
	writeJSON(w, http.StatusOK, currentOutfitResponse{Items: items})
}

// SaveOutfit は編成中アウトフィットの保存を処理する。
// 名前省略時は "Outfit N" が自動採番される。
// POST /api/outfits
func (h *OutfitHandler) SaveOutfit(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	var req saveOutfitRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	saved, err := ctrl.SaveOutfit(r.Context(), req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if h.collector != nil {
		h.collector.RecordOutfitSaved()
	}

	writeJSON(w, http.StatusCreated, saved)
}

// ListOutfits は保存済みアウトフィットの一覧を新しい順で返す。
// GET /api/outfits
func (h *OutfitHandler) ListOutfits(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	saved := ctrl.SavedOutfits()
	if saved == nil {
		saved = []model.Outfit{}
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteOutfit は保存済みアウトフィットの削除を処理する。
// DELETE /api/outfits/:id
func (h *OutfitHandler) DeleteOutfit(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	outfitID := chi.URLParam(r, "id")

	if err := ctrl.DeleteOutfit(r.Context(), outfitID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetWardrobeCache はレガシーキャッシュブロブを返す。
// 内容は解釈せず、保存されたJSON文字列をそのまま返す。未設定は空配列。
// GET /api/cache/wardrobe-items
func (h *OutfitHandler) GetWardrobeCache(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	value, err := h.blobs.Get(r.Context(), userID, wardrobeItemsBlobName)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if value == "" {
		value = "[]"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, value)
}

// PutWardrobeCache はレガシーキャッシュブロブを全量書き換える。
// PUT /api/cache/wardrobe-items
func (h *OutfitHandler) PutWardrobeCache(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, cacheBlobMaxSize))
	if err != nil {
		writeInvalidBody(w)
		return
	}

	if err := h.blobs.Set(r.Context(), userID, wardrobeItemsBlobName, string(body)); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// controllerFor は現在のユーザーのアウトフィットコントローラーを解決する。
// 未認証・読み込み失敗の場合はエラーレスポンスを書き込みfalseを返す。
func (h *OutfitHandler) controllerFor(w http.ResponseWriter, r *http.Request) (*outfit.Controller, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return nil, false
	}

	ctrl, err := h.manager.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}

	return ctrl, true
}
