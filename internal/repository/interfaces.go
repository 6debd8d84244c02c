// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/closetly/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// CreateWithProfile はユーザーとプロフィールを同一トランザクションで作成する。
	CreateWithProfile(ctx context.Context, user *model.User, profile *model.UserProfile) error

	// UpdatePasswordHash はユーザーのパスワードハッシュを更新する。
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ResetTokenRepository はパスワード再設定トークンの永続化インターフェース。
type ResetTokenRepository interface {
	// Create はトークンを作成する。
	Create(ctx context.Context, token *model.PasswordResetToken) error
	// FindByToken は指定トークンを取得する。見つからない場合はnilを返す。
	// 期限切れ・使用済みの判定は呼び出し元が行う。
	FindByToken(ctx context.Context, token string) (*model.PasswordResetToken, error)
	// MarkUsed はトークンを使用済みにする。
	MarkUsed(ctx context.Context, token string, usedAt time.Time) error
}

// ProfileRepository はユーザープロフィールの永続化インターフェース。
type ProfileRepository interface {
	// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.UserProfile, error)
	// Create はプロフィールを作成する。
	Create(ctx context.Context, profile *model.UserProfile) error
	// UpdateNames は姓名のみをマージ更新する。メールアドレスはIdentityに追従する。
	UpdateNames(ctx context.Context, userID, firstName, lastName string) error
}

// WardrobeRepository は衣類アイテムの永続化インターフェース。
type WardrobeRepository interface {
	// ListByUserID はユーザーの全アイテムを作成日時の昇順（投入順）で返す。
	ListByUserID(ctx context.Context, userID string) ([]model.WardrobeItem, error)

	// Create はアイテムを作成する。
	Create(ctx context.Context, item *model.WardrobeItem) error

	// DeleteByIDAndUserID は指定ユーザー所有のアイテムを削除する。
	// 削除された場合はtrueを返す。所有者不一致・未存在の場合はfalseを返す。
	DeleteByIDAndUserID(ctx context.Context, id, userID string) (bool, error)
}

// AvatarRepository はアバター画像レコードの永続化インターフェース。
type AvatarRepository interface {
	// Create はアバターレコードを追加する。既存レコードは置き換えない。
	Create(ctx context.Context, avatar *model.Avatar) error

	// FindFirstByUserID はユーザーのアバターを1件返す。
	// 複数存在する場合は作成日時の新しいものを採用する。見つからない場合はnilを返す。
	FindFirstByUserID(ctx context.Context, userID string) (*model.Avatar, error)
}

// BlobRepository はクライアント互換のJSON文字列ブロブの永続化インターフェース。
// ローカルストレージ互換の名前付きブロブを(user_id, name)単位で保持する。
type BlobRepository interface {
	// Get は指定ユーザーの名前付きブロブを取得する。未設定の場合は空文字列を返す。
	Get(ctx context.Context, userID, name string) (string, error)
	// Set は指定ユーザーの名前付きブロブを全量書き換える。
	Set(ctx context.Context, userID, name, value string) error
}
