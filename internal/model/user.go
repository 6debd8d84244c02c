// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// メールアドレスとパスワードで認証する。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity は認証済みユーザーの外部公開情報を表す。
// 依存コントローラーが参照する最小の識別子セット。
type Identity struct {
	ID    string
	Email string
}

// Identity はユーザーからIdentityを導出する。
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email}
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// PasswordResetToken はパスワード再設定用のワンタイムトークンを表す。
// 使用済み（UsedAtが非nil）または期限切れのトークンは無効。
type PasswordResetToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
