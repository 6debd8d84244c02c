// Package wardrobe は衣類アイテムの登録・削除・カテゴリ別ビューを提供する。
package wardrobe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/closetly/internal/model"
	"github.com/hitoshi/closetly/internal/repository"
	"github.com/hitoshi/closetly/internal/security"
	"github.com/hitoshi/closetly/internal/storage"
)

// Service はワードローブのサービス層。
// 画像のアップロードとドキュメント行の作成を常にこの順序で行う。
type Service struct {
	repo      repository.WardrobeRepository
	store     storage.ObjectStore
	sanitizer security.NameSanitizerService
	notifier  *Notifier
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	repo repository.WardrobeRepository,
	store storage.ObjectStore,
	sanitizer security.NameSanitizerService,
	notifier *Notifier,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		store:     store,
		sanitizer: sanitizer,
		notifier:  notifier,
		logger:    logger,
	}
}

// ListGrouped はユーザーの全アイテムをカテゴリ別マップとして返す。
func (s *Service) ListGrouped(ctx context.Context, userID string) (model.WardrobeByCategory, error) {
	items, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wardrobe items: %w", err)
	}
	return GroupByCategory(items), nil
}

// AddItem は画像をアップロードしてからアイテム行を作成する。
// アップロード失敗時はドキュメント書き込みを開始しない。
// 行の作成に失敗した場合、アップロード済み画像の取り消しは行わない
// （参照されない画像は後からクリーンアップワーカーが回収する）。
func (s *Service) AddItem(ctx context.Context, userID, name string, category model.Category, filename string, blob io.Reader) (*model.WardrobeItem, error) {
	if !model.IsValidCategory(category) {
		return nil, model.NewInvalidCategoryError(string(category))
	}
	name = s.sanitizer.SanitizeName(name)
	if name == "" {
		return nil, model.NewInvalidRequestError("アイテム名を入力してください")
	}

	// 1. 画像をアップロード
	key := fmt.Sprintf("wardrobe/%s/%d_%s", userID, time.Now().UnixMilli(), safeFilename(filename))
	if err := s.store.Put(ctx, key, blob); err != nil {
		s.logger.Error("item image upload failed",
			slog.String("user_id", userID),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUploadFailedError()
	}

	// 2. 公開URLを解決してアイテム行を作成
	item := &model.WardrobeItem{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Category:  category,
		ImageURL:  s.store.PublicURL(key),
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create wardrobe item: %w", err)
	}

	s.logger.Info("item added",
		slog.String("user_id", userID),
		slog.String("item_id", item.ID),
		slog.String("category", string(category)),
	)

	// 3. 最新スナップショットを購読者へ配信
	s.publishSnapshot(ctx, userID)
	return item, nil
}

// RemoveItem はアイテム行を削除する。画像の削除は行わない。
// 他ユーザーのアイテムIDを指定しても所有チェックにより削除されない。
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) error {
	deleted, err := s.repo.DeleteByIDAndUserID(ctx, itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete wardrobe item: %w", err)
	}
	if !deleted {
		return model.NewItemNotFoundError(itemID)
	}

	s.logger.Info("item removed",
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
	)

	s.publishSnapshot(ctx, userID)
	return nil
}

// Subscribe はカテゴリ別スナップショットの購読を開始する。
// 購読直後に現時点のスナップショットを1回配信する。
func (s *Service) Subscribe(ctx context.Context, userID string) (*Watcher, error) {
	w := s.notifier.Subscribe(userID)
	grouped, err := s.ListGrouped(ctx, userID)
	if err != nil {
		w.Close()
		return nil, err
	}
	s.notifier.Publish(userID, grouped)
	return w, nil
}

// publishSnapshot はミューテーション後の完全なスナップショットを配信する。
// 再取得に失敗した場合はログに残して配信をスキップする。
func (s *Service) publishSnapshot(ctx context.Context, userID string) {
	grouped, err := s.ListGrouped(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to rebuild wardrobe snapshot",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.notifier.Publish(userID, grouped)
}

// safeFilename はアップロードファイル名をストレージキーに安全な形へ整える。
func safeFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "upload"
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
