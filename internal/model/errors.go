package model

import (
	"errors"
	"fmt"
)

// ValidationError はドメインルール違反を表す（例: タイトルなしでの公開）。
type ValidationError struct {
	Field  string
	Reason string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NotFoundError は対象（記事、言語など）が存在しないことを表す。
type NotFoundError struct {
	Resource string
	Key      string
}

// Error はerrorインターフェースを実装する。
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// StorageError は永続化層の失敗（接続断、制約違反など）を表す。原因エラーを保持する。
type StorageError struct {
	Op  string
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

// Unwrap は原因エラーを返す。
func (e *StorageError) Unwrap() error {
	return e.Err
}

// ConfigurationError は外部サービス（ストレージ、メール）の認証情報が未設定であることを表す。
type ConfigurationError struct {
	Service string
}

// Error はerrorインターフェースを実装する。
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s service is not configured", e.Service)
}

// NewStorageError は原因エラーをStorageErrorでラップする。errがnilの場合はnilを返す。
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsNotFound はerrがNotFoundErrorかを返す。
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, content, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation           = "VALIDATION_FAILED"
	ErrCodeSlugConflict         = "SLUG_CONFLICT"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeLanguageNotSupported = "LANGUAGE_NOT_SUPPORTED"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeServiceNotConfigured = "SERVICE_NOT_CONFIGURED"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// NewValidationAPIError はバリデーションエラーを生成する。
func NewValidationAPIError(ve *ValidationError) *APIError {
	code := ErrCodeValidation
	if ve.Field == "slug" {
		code = ErrCodeSlugConflict
	}
	return &APIError{
		Code:     code,
		Message:  ve.Error(),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewNotFoundAPIError は対象未検出エラーを生成する。
func NewNotFoundAPIError(nf *NotFoundError) *APIError {
	code := ErrCodeNotFound
	if nf.Resource == "language" {
		code = ErrCodeLanguageNotSupported
	}
	return &APIError{
		Code:     code,
		Message:  nf.Error(),
		Category: "content",
		Action:   "URLを確認してください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// ユーザー列挙を防ぐため、ユーザー不在とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid credentials",
		Category: "auth",
		Action:   "ユーザー名とパスワードを確認してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewServiceNotConfiguredError は外部サービス未設定エラーを生成する。
func NewServiceNotConfiguredError(ce *ConfigurationError) *APIError {
	return &APIError{
		Code:     ErrCodeServiceNotConfigured,
		Message:  ce.Error(),
		Category: "system",
		Action:   "サーバーの環境変数を設定してください。",
	}
}

// NewInvalidRequestError はリクエスト形式のエラーを生成する。
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  message,
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
