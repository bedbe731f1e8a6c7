package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// adminRequest は管理ルート向けのリクエストを組み立てる。空文字のトークンは付与しない。
func adminRequest(method, path, cookieToken, headerToken string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if cookieToken != "" {
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: cookieToken})
	}
	if headerToken != "" {
		req.Header.Set(csrfHeaderName, headerToken)
	}
	return req
}

func csrfCookieFrom(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == csrfCookieName {
			return c
		}
	}
	return nil
}

// 記事の作成・更新・削除とアップロード署名はトークン一致時のみ通過すること。
func TestCSRFMiddleware_AdminMutations(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		path        string
		cookieToken string
		headerToken string
		wantPass    bool
	}{
		{"create post without tokens", http.MethodPost, "/admin/posts", "", "", false},
		{"create post cookie only", http.MethodPost, "/admin/posts", "tok-1", "", false},
		{"create post header only", http.MethodPost, "/admin/posts", "", "tok-1", false},
		{"create post matching", http.MethodPost, "/admin/posts", "tok-1", "tok-1", true},
		{"update post mismatch", http.MethodPut, "/admin/posts/post-42", "tok-1", "tok-2", false},
		{"update post matching", http.MethodPut, "/admin/posts/post-42", "tok-1", "tok-1", true},
		{"delete post without tokens", http.MethodDelete, "/admin/posts/post-42", "", "", false},
		{"delete post matching", http.MethodDelete, "/admin/posts/post-42", "tok-9", "tok-9", true},
		{"presign upload mismatch", http.MethodPost, "/admin/uploads", "tok-1", "TOK-1", false},
		{"patch without tokens", http.MethodPatch, "/admin/posts/post-42", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusNoContent)
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, adminRequest(tt.method, tt.path, tt.cookieToken, tt.headerToken))

			if called != tt.wantPass {
				t.Fatalf("handler called = %v, want %v (status %d)", called, tt.wantPass, w.Code)
			}
			if !tt.wantPass && w.Code != http.StatusForbidden {
				t.Errorf("status = %d, want 403", w.Code)
			}
		})
	}
}

// 拒否レスポンスは統一エラーフォーマットのJSONで返ること。
func TestCSRFMiddleware_RejectionBody(t *testing.T) {
	handler := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, adminRequest(http.MethodDelete, "/admin/posts/post-42", "", ""))

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != "CSRF_FAILED" {
		t.Errorf("code = %q, want CSRF_FAILED", body.Code)
	}
}

// 管理画面のフォーム送信（シード投入）はcsrf_tokenフィールドでも通過すること。
func TestCSRFMiddleware_SeedFormField(t *testing.T) {
	tests := []struct {
		name      string
		formToken string
		wantPass  bool
	}{
		{"matching field", "seed-tok", true},
		{"different field", "other", false},
		{"empty field", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			form := url.Values{"csrf_token": {tt.formToken}}
			req := httptest.NewRequest(http.MethodPost, "/admin/seed", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "seed-tok"})
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if called != tt.wantPass {
				t.Errorf("handler called = %v, want %v", called, tt.wantPass)
			}
		})
	}
}

// ダッシュボードや記事取得などの参照系はトークン無しで通過し、Cookieが発行されること。
func TestCSRFMiddleware_SafeMethodsIssueCookie(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			called := false
			handler := NewCSRFMiddleware(CSRFConfig{CookieSecure: true, CookieDomain: "mars.example"})(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					called = true
				}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, adminRequest(method, "/admin/posts/post-42", "", ""))

			if !called {
				t.Fatal("handler should be called")
			}
			c := csrfCookieFrom(w.Result())
			if c == nil || c.Value == "" {
				t.Fatal("expected csrf cookie")
			}
			if c.HttpOnly {
				t.Error("csrf cookie must be readable by the admin script")
			}
			if !c.Secure || c.SameSite != http.SameSiteLaxMode || c.Path != "/" {
				t.Errorf("cookie attrs = secure:%v samesite:%v path:%q", c.Secure, c.SameSite, c.Path)
			}
		})
	}
}

func TestCSRFMiddleware_ExistingCookieKept(t *testing.T) {
	handler := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, adminRequest(http.MethodGet, "/admin/", "already-issued", ""))

	if c := csrfCookieFrom(w.Result()); c != nil {
		t.Errorf("cookie re-issued with %q", c.Value)
	}
}

// 発行したトークンでそのまま記事を作成できること。
func TestCSRFTokenHandler_TokenUsableForCreatePost(t *testing.T) {
	tokenHandler := NewCSRFTokenHandler(CSRFConfig{})
	w := httptest.NewRecorder()
	tokenHandler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/csrf-token", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	c := csrfCookieFrom(w.Result())
	if body.Token == "" || c == nil || c.Value != body.Token {
		t.Fatalf("token = %q, cookie = %v", body.Token, c)
	}

	called := false
	create := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	create.ServeHTTP(httptest.NewRecorder(), adminRequest(http.MethodPost, "/admin/posts", c.Value, body.Token))

	if !called {
		t.Error("create post should pass with the issued token")
	}
}

func TestCSRFTokenHandler_ReturnsExistingToken(t *testing.T) {
	w := httptest.NewRecorder()
	NewCSRFTokenHandler(CSRFConfig{}).ServeHTTP(w, adminRequest(http.MethodGet, "/admin/csrf-token", "already-issued", ""))

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Token != "already-issued" {
		t.Errorf("token = %q, want already-issued", body.Token)
	}
}
