package middleware

import "net/http"

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// mediaOriginが空でない場合は、記事本文に埋め込む画像・動画の配信元としてCSPに追加する。
func NewSecurityHeadersMiddleware(mediaOrigin string) func(next http.Handler) http.Handler {
	csp := "default-src 'self'; img-src 'self' data:; media-src 'self'; frame-ancestors 'none'"
	if mediaOrigin != "" {
		csp = "default-src 'self'; img-src 'self' data: " + mediaOrigin +
			"; media-src 'self' " + mediaOrigin + "; frame-ancestors 'none'"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			w.Header().Set("Content-Security-Policy", csp)
			next.ServeHTTP(w, r)
		})
	}
}
