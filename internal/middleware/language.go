package middleware

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/marsblog/internal/i18n"
	"github.com/hitoshi/marsblog/internal/model"
)

// LanguageParam は言語コードを表すURLパラメータ名。
const LanguageParam = "lang"

// NewLanguageMiddleware はURLの {lang} パラメータを検証し、解決済みの言語をコンテキストに注入する。
// サポート外の言語はハンドラーに到達する前に404を返す。
func NewLanguageMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang, err := i18n.Resolve(chi.URLParam(r, LanguageParam))
			var nf *model.NotFoundError
			if errors.As(err, &nf) {
				WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundAPIError(nf))
				return
			}
			next.ServeHTTP(w, r.WithContext(i18n.ContextWithLanguage(r.Context(), lang)))
		})
	}
}
