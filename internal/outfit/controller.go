// Package outfit はアウトフィットの編集・保存を提供する。
package outfit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/hitoshi/closetly/internal/model"
	"github.com/hitoshi/closetly/internal/repository"
)

// savedOutfitsBlobName は保存済みアウトフィット一覧のブロブ名。
// クライアントのローカルストレージキーと同じ名前を使う。
const savedOutfitsBlobName = "saved-outfits"

// Controller はひとりのユーザーのアウトフィット編集状態を保持する。
// 編集中のアイテム列はメモリ上にのみ存在し、保存時に全量を書き出す。
type Controller struct {
	userID string
	blobs  repository.BlobRepository
	logger *slog.Logger

	mu      sync.Mutex
	current []model.OutfitItem
	saved   []model.Outfit
}

// newController は保存済み一覧をブロブから読み込んでControllerを生成する。
// ブロブが壊れている場合は空の一覧として扱う。
func newController(ctx context.Context, userID string, blobs repository.BlobRepository, logger *slog.Logger) (*Controller, error) {
	raw, err := blobs.Get(ctx, userID, savedOutfitsBlobName)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved outfits: %w", err)
	}

	var saved []model.Outfit
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &saved); err != nil {
			logger.Warn("saved outfits blob is malformed, starting empty",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			saved = nil
		}
	}

	return &Controller{
		userID: userID,
		blobs:  blobs,
		logger: logger,
		saved:  saved,
	}, nil
}

// AddToOutfit は編集中のアウトフィットにアイテムを追加する。
// 同じアイテムを複数回追加できる。
func (c *Controller) AddToOutfit(item model.OutfitItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = append(c.current, item)
}

// RemoveFromOutfit は編集中のアウトフィットから位置指定でアイテムを外す。
// 範囲外のインデックスは何もせずfalseを返す。
func (c *Controller) RemoveFromOutfit(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.current) {
		return false
	}
	c.current = append(c.current[:index], c.current[index+1:]...)
	return true
}

// CurrentOutfit は編集中のアイテム列のコピーを返す。
func (c *Controller) CurrentOutfit() []model.OutfitItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]model.OutfitItem, len(c.current))
	copy(items, c.current)
	return items
}

// SavedOutfits は保存済み一覧のコピーを新しい順で返す。
func (c *Controller) SavedOutfits() []model.Outfit {
	c.mu.Lock()
	defer c.mu.Unlock()
	outfits := make([]model.Outfit, len(c.saved))
	copy(outfits, c.saved)
	return outfits
}

// SaveOutfit は編集中のアイテム列を名前付きで保存する。
// 空のアウトフィットは保存できず、保存済み一覧は変更されない。
// 名前が空の場合は「Outfit {保存済み件数+1}」を採用する。
// 保存後は編集中のアイテム列をクリアする。
func (c *Controller) SaveOutfit(ctx context.Context, name string) (*model.Outfit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.current) == 0 {
		return nil, model.NewOutfitEmptyError()
	}

	if name == "" {
		name = fmt.Sprintf("Outfit %d", len(c.saved)+1)
	}

	now := time.Now()
	outfit := model.Outfit{
		ID:        strconv.FormatInt(now.UnixMilli(), 10),
		Name:      name,
		Items:     c.current,
		CreatedAt: now.Format(time.RFC3339),
	}

	// 新しいものが先頭
	updated := append([]model.Outfit{outfit}, c.saved...)
	if err := c.persist(ctx, updated); err != nil {
		return nil, err
	}

	c.saved = updated
	c.current = nil

	c.logger.Info("outfit saved",
		slog.String("user_id", c.userID),
		slog.String("outfit_id", outfit.ID),
		slog.Int("items", len(outfit.Items)),
	)
	return &outfit, nil
}

// DeleteOutfit は保存済みアウトフィットを削除して全量を書き戻す。
func (c *Controller) DeleteOutfit(ctx context.Context, outfitID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := -1
	for i, o := range c.saved {
		if o.ID == outfitID {
			index = i
			break
		}
	}
	if index < 0 {
		return model.NewOutfitNotFoundError(outfitID)
	}

	updated := make([]model.Outfit, 0, len(c.saved)-1)
	updated = append(updated, c.saved[:index]...)
	updated = append(updated, c.saved[index+1:]...)
	if err := c.persist(ctx, updated); err != nil {
		return err
	}

	c.saved = updated
	return nil
}

// persist は保存済み一覧全体をJSONとしてブロブに書き込む。呼び出し元がロックを握る。
func (c *Controller) persist(ctx context.Context, outfits []model.Outfit) error {
	data, err := json.Marshal(outfits)
	if err != nil {
		return fmt.Errorf("failed to marshal saved outfits: %w", err)
	}
	if err := c.blobs.Set(ctx, c.userID, savedOutfitsBlobName, string(data)); err != nil {
		return fmt.Errorf("failed to persist saved outfits: %w", err)
	}
	return nil
}
