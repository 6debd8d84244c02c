// Package model はドメインモデルを定義する。
package model

import "time"

// UserProfile はユーザーの設定画面で編集可能なプロフィールを表す。
// Identity 1件につき1件。初回サインアップ時、または設定画面の
// 初回アクセス時に遅延作成される。
type UserProfile struct {
	UserID    string
	FirstName string
	LastName  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
