// Package profile はユーザープロフィールのドメインロジックを提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/closetly/internal/model"
	"github.com/hitoshi/closetly/internal/repository"
	"github.com/hitoshi/closetly/internal/security"
)

// Service はプロフィールの取得と更新を提供する。
type Service struct {
	profileRepo repository.ProfileRepository
	userRepo    repository.UserRepository
	sanitizer   security.NameSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	profileRepo repository.ProfileRepository,
	userRepo repository.UserRepository,
	sanitizer security.NameSanitizerService,
) *Service {
	return &Service{
		profileRepo: profileRepo,
		userRepo:    userRepo,
		sanitizer:   sanitizer,
	}
}

// Get はユーザーのプロフィールを取得する。
// プロフィール行がまだ存在しない場合は、ユーザーのメールアドレスから
// 空の名前のプロフィールを作成して返す。
func (s *Service) Get(ctx context.Context, userID string) (*model.UserProfile, error) {
	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile != nil {
		return profile, nil
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewProfileNotFoundError(userID)
	}

	// 旧データなどでプロフィール行が無い場合はここで補完する
	now := time.Now()
	profile = &model.UserProfile{
		UserID:    userID,
		Email:     user.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("プロフィールの作成に失敗しました: %w", err)
	}

	slog.Info("プロフィールを補完しました", slog.String("user_id", userID))
	return profile, nil
}

// Update は姓と名を更新する。空文字は「変更しない」ではなく空として保存する。
func (s *Service) Update(ctx context.Context, userID, firstName, lastName string) (*model.UserProfile, error) {
	// 更新前にプロフィール行の存在を保証する
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}

	firstName = s.sanitizer.SanitizeName(firstName)
	lastName = s.sanitizer.SanitizeName(lastName)

	if err := s.profileRepo.UpdateNames(ctx, userID, firstName, lastName); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの再取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError(userID)
	}
	return profile, nil
}
