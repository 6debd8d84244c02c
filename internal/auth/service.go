package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/closetly/internal/model"
	"github.com/hitoshi/closetly/internal/repository"
	"github.com/hitoshi/closetly/internal/security"
)

// minPasswordLength はパスワードの最低文字数。
const minPasswordLength = 6

// defaultResetTokenTTL はパスワードリセットトークンの有効期間。
const defaultResetTokenTTL = time.Hour

// Config は認証サービスの動作設定。
type Config struct {
	// SessionMaxAge はセッションの有効期間(秒)。
	SessionMaxAge int
	// ResetTokenTTL はリセットトークンの有効期間。ゼロ値なら既定値を使う。
	ResetTokenTTL time.Duration
	// ResetBaseURL はリセットメールに載せるリンクのベースURL。
	ResetBaseURL string
}

// Mailer はパスワードリセットメールの送信先。
type Mailer interface {
	SendPasswordReset(ctx context.Context, toEmail, resetURL string) error
}

// Service はメールアドレスとパスワードによる認証とセッション管理を提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	resetRepo   repository.ResetTokenRepository
	mailer      Mailer
	sanitizer   security.NameSanitizerService
	config      Config
	logger      *slog.Logger
}

// NewService は認証サービスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	resetRepo repository.ResetTokenRepository,
	mailer Mailer,
	sanitizer security.NameSanitizerService,
	config Config,
	logger *slog.Logger,
) *Service {
	if config.ResetTokenTTL == 0 {
		config.ResetTokenTTL = defaultResetTokenTTL
	}
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		resetRepo:   resetRepo,
		mailer:      mailer,
		sanitizer:   sanitizer,
		config:      config,
		logger:      logger,
	}
}

// SignUp は新規ユーザーを登録し、セッションを発行する。
func (s *Service) SignUp(ctx context.Context, email, password, firstName, lastName string) (*model.Session, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, model.NewInvalidRequestError("メールアドレスを入力してください")
	}
	if len(password) < minPasswordLength {
		return nil, model.NewWeakPasswordError()
	}

	// 1. メールアドレスの重複を確認
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	// 2. パスワードをハッシュ化してユーザーとプロフィールを作成
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile := &model.UserProfile{
		UserID:    user.ID,
		FirstName: s.sanitizer.SanitizeName(firstName),
		LastName:  s.sanitizer.SanitizeName(lastName),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.CreateWithProfile(ctx, user, profile); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user signed up", slog.String("user_id", user.ID))

	// 3. セッションを発行
	return s.createSession(ctx, user.ID)
}

// SignIn はメールアドレスとパスワードを検証し、セッションを発行する。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	email = normalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	return s.createSession(ctx, user.ID)
}

// SignOut はセッションを破棄する。存在しないセッションIDでもエラーにしない。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// GetCurrentUser はセッションIDから現在のユーザーを取得する。
// セッションが無効・期限切れの場合は nil を返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// Reauthenticate は現在のパスワードを検証する。パスワード変更前の再認証に使う。
func (s *Service) Reauthenticate(ctx context.Context, userID, currentPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUnauthorizedError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return model.NewInvalidCredentialsError()
	}
	return nil
}

// ChangePassword は現在のパスワードを検証したうえで新しいパスワードに更新する。
// 既存のセッションは維持される。
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := s.Reauthenticate(ctx, userID, currentPassword); err != nil {
		return err
	}
	if len(newPassword) < minPasswordLength {
		return model.NewWeakPasswordError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("password changed", slog.String("user_id", userID))
	return nil
}

// RequestPasswordReset はリセットトークンを発行してメールを送信する。
// 未登録のメールアドレスでも成功として扱い、アカウントの存在を漏らさない。
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		s.logger.Info("password reset requested for unknown email")
		return nil
	}

	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	reset := &model.PasswordResetToken{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.config.ResetTokenTTL),
		CreatedAt: time.Now(),
	}
	if err := s.resetRepo.Create(ctx, reset); err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	resetURL := s.config.ResetBaseURL + "?token=" + token
	if err := s.mailer.SendPasswordReset(ctx, user.Email, resetURL); err != nil {
		return fmt.Errorf("failed to send reset mail: %w", err)
	}

	s.logger.Info("password reset mail sent", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword はリセットトークンを検証して新しいパスワードを設定する。
// トークンは一度使うと無効になり、全セッションを破棄する。
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	reset, err := s.resetRepo.FindByToken(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to find reset token: %w", err)
	}
	if reset == nil || reset.UsedAt != nil || time.Now().After(reset.ExpiresAt) {
		return model.NewResetTokenInvalidError()
	}
	if len(newPassword) < minPasswordLength {
		return model.NewWeakPasswordError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, reset.UserID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.resetRepo.MarkUsed(ctx, token, time.Now()); err != nil {
		return fmt.Errorf("failed to mark reset token used: %w", err)
	}
	// リセット後は既存セッションをすべて無効化する
	if err := s.sessionRepo.DeleteByUserID(ctx, reset.UserID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	s.logger.Info("password reset completed", slog.String("user_id", reset.UserID))
	return nil
}

// createSession は新しいセッションを発行して保存する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// generateToken は32バイトの乱数を16進文字列にして返す。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
