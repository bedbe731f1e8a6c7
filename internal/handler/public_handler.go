package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/marsblog/internal/engagement"
	"github.com/hitoshi/marsblog/internal/i18n"
	"github.com/hitoshi/marsblog/internal/model"
	"github.com/hitoshi/marsblog/internal/post"
)

// PublicPostService は公開ページのハンドラーが必要とするサービスインターフェース。
type PublicPostService interface {
	Home(ctx context.Context, lang model.Language) (*post.HomePage, error)
	Archive(ctx context.Context, lang model.Language, page int) (*post.ArchivePage, error)
	Detail(ctx context.Context, lang model.Language, slug string) (*model.Post, error)
	Like(ctx context.Context, lang model.Language, slug string, liked *engagement.LikedSet) (*post.LikeResult, error)
	Search(ctx context.Context, lang model.Language, query string) ([]*model.Post, error)
	Feed(ctx context.Context, lang model.Language) (string, error)
}

// PublicHandlerConfig は公開ページハンドラーの設定。
type PublicHandlerConfig struct {
	BaseURL      string
	CookieSecure bool
}

// PublicHandler は言語別の公開ページのHTTPハンドラー。
// 言語はLanguageMiddlewareでコンテキストに解決済みであることを前提とする。
type PublicHandler struct {
	service PublicPostService
	config  PublicHandlerConfig
}

// NewPublicHandler はPublicHandlerを生成する。
func NewPublicHandler(service PublicPostService, config PublicHandlerConfig) *PublicHandler {
	return &PublicHandler{service: service, config: config}
}

type homeResponse struct {
	Language string               `json:"language"`
	Posts    []publicPostResponse `json:"posts"`
	Stats    statsResponse        `json:"stats"`
}

type archiveResponse struct {
	Language string               `json:"language"`
	Page     int                  `json:"page"`
	HasNext  bool                 `json:"has_next"`
	Posts    []publicPostResponse `json:"posts"`
}

type searchResponse struct {
	Language string               `json:"language"`
	Query    string               `json:"query"`
	Posts    []publicPostResponse `json:"posts"`
}

type likeResponse struct {
	Likes        int64 `json:"likes"`
	AlreadyLiked bool  `json:"already_liked"`
}

// RootRedirect は第1言語のトップページへリダイレクトする。
// GET /
func RootRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/"+string(model.LanguagePrimary)+"/", http.StatusSeeOther)
}

// Home はトップページ（最新記事と集計）を返す。
// GET /{lang}/
func (h *PublicHandler) Home(w http.ResponseWriter, r *http.Request) {
	lang := i18n.LanguageFromContext(r.Context())

	page, err := h.service.Home(r.Context(), lang)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, homeResponse{
		Language: string(lang),
		Posts:    toPublicPostList(page.Posts, lang, h.config.BaseURL),
		Stats:    toStatsResponse(page.Stats),
	})
}

// Archive は公開記事の一覧をページ単位で返す。
// GET /{lang}/archive?page=N
func (h *PublicHandler) Archive(w http.ResponseWriter, r *http.Request) {
	lang := i18n.LanguageFromContext(r.Context())

	page, err := h.service.Archive(r.Context(), lang, parsePage(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, archiveResponse{
		Language: string(lang),
		Page:     page.Page,
		HasNext:  page.HasNext,
		Posts:    toPublicPostList(page.Posts, lang, h.config.BaseURL),
	})
}

// Post は記事詳細を返す。閲覧数はサービス層で加算される。
// GET /{lang}/posts/{slug}
func (h *PublicHandler) Post(w http.ResponseWriter, r *http.Request) {
	lang := i18n.LanguageFromContext(r.Context())

	p, err := h.service.Detail(r.Context(), lang, chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPublicPostResponse(p, lang, h.config.BaseURL))
}

// Like は記事にいいねする。同じブラウザからの2回目以降は数えない。
// POST /{lang}/posts/{slug}/like
func (h *PublicHandler) Like(w http.ResponseWriter, r *http.Request) {
	lang := i18n.LanguageFromContext(r.Context())
	liked := engagement.FromRequest(r)

	result, err := h.service.Like(r.Context(), lang, chi.URLParam(r, "slug"), liked)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !result.AlreadyLiked {
		http.SetCookie(w, liked.Cookie(h.config.CookieSecure))
	}
	writeJSON(w, http.StatusOK, likeResponse{
		Likes:        result.Likes,
		AlreadyLiked: result.AlreadyLiked,
	})
}

// Search はタイトル・本文で公開記事を検索する。
// GET /{lang}/search?q=...
func (h *PublicHandler) Search(w http.ResponseWriter, r *http.Request) {
	lang := i18n.LanguageFromContext(r.Context())
	query := r.URL.Query().Get("q")

	posts, err := h.service.Search(r.Context(), lang, query)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Language: string(lang),
		Query:    query,
		Posts:    toPublicPostList(posts, lang, h.config.BaseURL),
	})
}

// Feed はRSS 2.0フィードを返す。
// GET /{lang}/rss.xml
func (h *PublicHandler) Feed(w http.ResponseWriter, r *http.Request) {
	lang := i18n.LanguageFromContext(r.Context())

	body, err := h.service.Feed(r.Context(), lang)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}
