// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, wardrobe, outfit, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeWeakPassword       = "WEAK_PASSWORD"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidCategory    = "INVALID_CATEGORY"
	ErrCodeItemNotFound       = "ITEM_NOT_FOUND"
	ErrCodeOutfitEmpty        = "OUTFIT_EMPTY"
	ErrCodeOutfitNotFound     = "OUTFIT_NOT_FOUND"
	ErrCodeUploadFailed       = "UPLOAD_FAILED"
	ErrCodeInvalidURL         = "INVALID_URL"
	ErrCodeSSRFBlocked        = "SSRF_BLOCKED"
	ErrCodeFetchFailed        = "FETCH_FAILED"
	ErrCodeNotAnImage         = "NOT_AN_IMAGE"
	ErrCodeResetTokenInvalid  = "RESET_TOKEN_INVALID"
	ErrCodeProfileNotFound    = "PROFILE_NOT_FOUND"
)

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// メールアドレス未登録とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "別のメールアドレスを使用するか、サインインしてください。",
	}
}

// NewWeakPasswordError はパスワード強度不足エラーを生成する。
func NewWeakPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  "パスワードは6文字以上で設定してください。",
		Category: "validation",
		Action:   "より長いパスワードを入力してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "サインインしてください。",
	}
}

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidCategoryError は無効なカテゴリエラーを生成する。
func NewInvalidCategoryError(category string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCategory,
		Message:  fmt.Sprintf("無効なカテゴリです: %s", category),
		Category: "validation",
		Action:   "定義済みのカテゴリから選択してください。",
	}
}

// NewItemNotFoundError はアイテム未検出エラーを生成する。
func NewItemNotFoundError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定されたアイテムが見つかりません: %s", itemID),
		Category: "wardrobe",
		Action:   "アイテムIDを確認してください。",
	}
}

// NewOutfitEmptyError は空アウトフィット保存エラーを生成する。
func NewOutfitEmptyError() *APIError {
	return &APIError{
		Code:     ErrCodeOutfitEmpty,
		Message:  "アウトフィットにアイテムが追加されていません。",
		Category: "outfit",
		Action:   "ワードローブからアイテムを追加してから保存してください。",
	}
}

// NewOutfitNotFoundError はアウトフィット未検出エラーを生成する。
func NewOutfitNotFoundError(outfitID string) *APIError {
	return &APIError{
		Code:     ErrCodeOutfitNotFound,
		Message:  fmt.Sprintf("指定されたアウトフィットが見つかりません: %s", outfitID),
		Category: "outfit",
		Action:   "アウトフィットIDを確認してください。",
	}
}

// NewUploadFailedError は画像アップロード失敗エラーを生成する。
func NewUploadFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeUploadFailed,
		Message:  "画像のアップロードに失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトの画像URLを入力してください。",
	}
}

// NewFetchFailedError は画像取得失敗エラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("画像の取得に失敗しました: %s", reason),
		Category: "wardrobe",
		Action:   "URLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewNotAnImageError は画像以外のコンテンツエラーを生成する。
func NewNotAnImageError(contentType string) *APIError {
	return &APIError{
		Code:     ErrCodeNotAnImage,
		Message:  fmt.Sprintf("指定されたURLの内容が画像ではありません: %s", contentType),
		Category: "validation",
		Action:   "画像ファイルを直接指すURLを入力してください。",
	}
}

// NewResetTokenInvalidError は無効なパスワード再設定トークンエラーを生成する。
func NewResetTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeResetTokenInvalid,
		Message:  "パスワード再設定リンクが無効か、有効期限が切れています。",
		Category: "auth",
		Action:   "パスワード再設定メールを再度リクエストしてください。",
	}
}

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  fmt.Sprintf("プロフィールが見つかりません: %s", userID),
		Category: "auth",
		Action:   "再度サインインしてください。",
	}
}
