package wardrobe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/closetly/internal/model"
	"github.com/hitoshi/closetly/internal/repository"
	"github.com/hitoshi/closetly/internal/storage"
)

// AvatarService はアバター画像の登録・取得を提供する。
// レコードは置き換えず追加し、取得時は最新の1件を採用する。
type AvatarService struct {
	repo   repository.AvatarRepository
	store  storage.ObjectStore
	logger *slog.Logger
}

// NewAvatarService はAvatarServiceの新しいインスタンスを生成する。
func NewAvatarService(repo repository.AvatarRepository, store storage.ObjectStore, logger *slog.Logger) *AvatarService {
	return &AvatarService{
		repo:   repo,
		store:  store,
		logger: logger,
	}
}

// UploadAvatar はアバター画像をアップロードしてレコードを追加する。
// アイテムと同様、アップロード成功後にのみ行を作成する。
func (s *AvatarService) UploadAvatar(ctx context.Context, userID, filename string, blob io.Reader) (*model.Avatar, error) {
	key := fmt.Sprintf("avatars/%s/%d_%s", userID, time.Now().UnixMilli(), safeFilename(filename))
	if err := s.store.Put(ctx, key, blob); err != nil {
		s.logger.Error("avatar upload failed",
			slog.String("user_id", userID),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUploadFailedError()
	}

	avatar := &model.Avatar{
		ID:        uuid.New().String(),
		UserID:    userID,
		ImageURL:  s.store.PublicURL(key),
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, avatar); err != nil {
		return nil, fmt.Errorf("failed to create avatar record: %w", err)
	}

	s.logger.Info("avatar uploaded", slog.String("user_id", userID))
	return avatar, nil
}

// GetAvatar はユーザーのアバターを返す。未設定の場合はnilを返す。
func (s *AvatarService) GetAvatar(ctx context.Context, userID string) (*model.Avatar, error) {
	avatar, err := s.repo.FindFirstByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find avatar: %w", err)
	}
	return avatar, nil
}
