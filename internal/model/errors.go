package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, account, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidInput          = "INVALID_INPUT"
	ErrCodeInvalidStatus         = "INVALID_STATUS"
	ErrCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	ErrCodeAccountNotActive      = "ACCOUNT_NOT_ACTIVE"
	ErrCodeDuplicateLogin        = "DUPLICATE_LOGIN"
	ErrCodeAccountNotFound       = "ACCOUNT_NOT_FOUND"
	ErrCodeProfileNotFound       = "PROFILE_NOT_FOUND"
	ErrCodeMissingToken          = "MISSING_TOKEN"
	ErrCodeTokenExpired          = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid          = "TOKEN_INVALID"
	ErrCodeDownstreamUnavailable = "DOWNSTREAM_UNAVAILABLE"
)

// NewInvalidInputError は入力不備エラーを生成する。
func NewInvalidInputError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("入力が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidStatusError は未知のアカウント状態エラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効なステータスです: %s", status),
		Category: "validation",
		Action:   "ステータスには active、inactive、blocked のいずれかを指定してください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// アカウント列挙を防ぐため、ログイン名不明とパスワード不一致で同一のエラーを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ログイン名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewAccountNotActiveError は非アクティブアカウントのログイン拒否エラーを生成する。
func NewAccountNotActiveError(status AccountStatus) *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotActive,
		Message:  fmt.Sprintf("アカウントは利用できません（状態: %s）。", status),
		Category: "auth",
		Action:   "管理者にお問い合わせください。",
	}
}

// NewDuplicateLoginError はログイン名重複エラーを生成する。
func NewDuplicateLoginError(login string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateLogin,
		Message:  fmt.Sprintf("このログイン名は既に使用されています: %s", login),
		Category: "account",
		Action:   "別のログイン名で再度お試しください。",
	}
}

// NewAccountNotFoundError はアカウント未検出エラーを生成する。
func NewAccountNotFoundError(accountID string) *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  fmt.Sprintf("指定されたアカウントが見つかりません: %s", accountID),
		Category: "account",
		Action:   "アカウントIDを確認してください。",
	}
}

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError(accountID string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  fmt.Sprintf("指定されたアカウントのプロフィールが見つかりません: %s", accountID),
		Category: "account",
		Action:   "プロフィールを作成してから再度お試しください。",
	}
}

// NewMissingTokenError はトークン未提示エラーを生成する。
func NewMissingTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingToken,
		Message:  "認証トークンが提示されていません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewTokenExpiredError はトークン期限切れエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "認証トークンの有効期限が切れています。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewTokenInvalidError はトークン不正エラーを生成する。
func NewTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenInvalid,
		Message:  "認証トークンが無効です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewDownstreamUnavailableError は下流サービス到達不能エラーを生成する。
// 検証サービスに到達できない場合は認証失敗として扱う（フェイルクローズ）。
func NewDownstreamUnavailableError(service string) *APIError {
	return &APIError{
		Code:     ErrCodeDownstreamUnavailable,
		Message:  fmt.Sprintf("依存サービスに接続できません: %s", service),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
