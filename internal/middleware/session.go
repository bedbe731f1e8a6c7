// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/marsblog/internal/model"
)

// SessionCookieName は管理者セッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// adminContextKey はリクエストコンテキストに管理者名を格納するためのキー。
var adminContextKey = contextKey("admin")

// ErrNoAdmin はコンテキストに管理者名が無いことを表す。
var ErrNoAdmin = errors.New("admin not found in context")

// AdminResolver はセッションIDから管理者名を解決するインターフェース。
// auth.Serviceの部分集合として定義する。
type AdminResolver interface {
	CurrentAdmin(ctx context.Context, sessionID string) (string, error)
}

// NewAdminSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 管理者として有効かを検証するミドルウェアを返す。
// 認証済みの管理者名をリクエストコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewAdminSessionMiddleware(resolver AdminResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. CookieからセッションIDを取得
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 2. セッションの有効性を検証
			username, err := resolver.CurrentAdmin(r.Context(), cookie.Value)
			if err != nil {
				slog.Warn("admin session rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 3. 管理者名をコンテキストとリクエストログに反映
			recordAdmin(r.Context(), username)
			ctx := ContextWithAdmin(r.Context(), username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminFromContext はリクエストコンテキストから管理者名を取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func AdminFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value(adminContextKey).(string)
	if !ok || username == "" {
		return "", ErrNoAdmin
	}
	return username, nil
}

// ContextWithAdmin はコンテキストに管理者名を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithAdmin(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, adminContextKey, username)
}
