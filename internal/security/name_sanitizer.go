// Package security はアプリケーションのセキュリティ機能を提供する。
//
// NameSanitizerService はユーザー入力の表示名（アイテム名、アウトフィット名、
// プロフィールの姓名）からマークアップを除去し、XSS攻撃などの
// セキュリティリスクからユーザーを保護する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// NameSanitizerService は表示名サニタイズ機能のインターフェースを定義する。
// 表示名の保存前に使用される。
type NameSanitizerService interface {
	// SanitizeName は表示名からHTMLタグと前後の空白を除去して返す。
	// タグは内容ごと残さず除去するのではなく、タグのみを剥がしてテキストを残す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeName(raw string) string
}

// nameSanitizer はNameSanitizerServiceの実装。
// bluemondayのStrictPolicy（全タグ除去）を保持し、スレッドセーフに動作する。
type nameSanitizer struct {
	policy *bluemonday.Policy
}

// NewNameSanitizer はNameSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可タグを一切持たないため、入力中のあらゆるマークアップが
// 除去され、プレーンテキストのみが残る。
func NewNameSanitizer() *nameSanitizer {
	return &nameSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeName は表示名からHTMLタグと前後の空白を除去して返す。
func (s *nameSanitizer) SanitizeName(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

// compile-time interface check
var _ NameSanitizerService = (*nameSanitizer)(nil)
