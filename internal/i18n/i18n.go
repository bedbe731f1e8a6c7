// Package i18n は公開ページの言語解決ポリシーを提供する。
// 言語は記事テーブルの language カラムで表され、ロケール別のテーブルは持たない。
package i18n

import (
	"context"
	"strings"

	"github.com/hitoshi/marsblog/internal/model"
)

type contextKey string

var languageContextKey = contextKey("language")

// Resolve はURLなどから受け取った言語コードを検証する。
// サポート外の言語はNotFoundErrorを返す。ストレージには一切アクセスしない。
func Resolve(raw string) (model.Language, error) {
	lang := model.Language(strings.TrimSpace(raw))
	if !lang.IsSupported() {
		return "", &model.NotFoundError{Resource: "language", Key: raw}
	}
	return lang, nil
}

// ContextWithLanguage はコンテキストに解決済みの言語を注入する。
func ContextWithLanguage(ctx context.Context, lang model.Language) context.Context {
	return context.WithValue(ctx, languageContextKey, lang)
}

// LanguageFromContext はコンテキストから言語を取得する。未設定の場合は第1言語を返す。
func LanguageFromContext(ctx context.Context) model.Language {
	if lang, ok := ctx.Value(languageContextKey).(model.Language); ok && lang != "" {
		return lang
	}
	return model.LanguagePrimary
}
