// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/marsblog/internal/middleware"
	"github.com/hitoshi/marsblog/internal/model"
	"github.com/hitoshi/marsblog/internal/rss"
)

// publicPostResponse は公開ページ向けの記事表現。表示言語に合わせたタイトル・本文を持つ。
type publicPostResponse struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	MediaURL    *string    `json:"media_url,omitempty"`
	MediaType   *string    `json:"media_type,omitempty"`
	Tags        []string   `json:"tags"`
	Language    string     `json:"language"`
	Views       int64      `json:"views"`
	Likes       int64      `json:"likes"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	URL         string     `json:"url"`
}

// adminPostResponse は管理画面向けの記事表現。全フィールドをそのまま返す。
type adminPostResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	TitleIT     *string    `json:"title_it,omitempty"`
	Slug        string     `json:"slug"`
	Content     string     `json:"content"`
	ContentIT   *string    `json:"content_it,omitempty"`
	MediaURL    *string    `json:"media_url,omitempty"`
	MediaType   *string    `json:"media_type,omitempty"`
	Tags        []string   `json:"tags"`
	Status      string     `json:"status"`
	Language    string     `json:"language"`
	Views       int64      `json:"views"`
	Likes       int64      `json:"likes"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

type statsResponse struct {
	PostCount  int64 `json:"post_count"`
	TotalViews int64 `json:"total_views"`
}

func toPublicPostResponse(p *model.Post, lang model.Language, baseURL string) publicPostResponse {
	lp := p.Localized(lang)
	return publicPostResponse{
		ID:          p.ID,
		Slug:        p.Slug,
		Title:       lp.Title,
		Content:     lp.Content,
		MediaURL:    p.MediaURL,
		MediaType:   p.MediaType,
		Tags:        p.Tags,
		Language:    string(p.Language),
		Views:       p.Views,
		Likes:       p.Likes,
		PublishedAt: p.PublishedAt,
		URL:         rss.PostURL(baseURL, lang, p.Slug),
	}
}

func toPublicPostList(posts []*model.Post, lang model.Language, baseURL string) []publicPostResponse {
	out := make([]publicPostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPublicPostResponse(p, lang, baseURL))
	}
	return out
}

func toAdminPostResponse(p *model.Post) adminPostResponse {
	return adminPostResponse{
		ID:          p.ID,
		Title:       p.Title,
		TitleIT:     p.TitleIT,
		Slug:        p.Slug,
		Content:     p.Content,
		ContentIT:   p.ContentIT,
		MediaURL:    p.MediaURL,
		MediaType:   p.MediaType,
		Tags:        p.Tags,
		Status:      string(p.Status),
		Language:    string(p.Language),
		Views:       p.Views,
		Likes:       p.Likes,
		CreatedAt:   p.CreatedAt,
		PublishedAt: p.PublishedAt,
	}
}

func toAdminPostList(posts []*model.Post) []adminPostResponse {
	out := make([]adminPostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toAdminPostResponse(p))
	}
	return out
}

func toStatsResponse(s *model.PostStats) statsResponse {
	if s == nil {
		return statsResponse{}
	}
	return statsResponse{PostCount: s.PostCount, TotalViews: s.TotalViews}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// 想定外のエラーは詳細をログのみに記録し、一般的な500を返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var (
		ve     *model.ValidationError
		nf     *model.NotFoundError
		ce     *model.ConfigurationError
		apiErr *model.APIError
	)
	switch {
	case errors.As(err, &ve):
		status := http.StatusBadRequest
		if ve.Field == "slug" {
			status = http.StatusConflict
		}
		writeAPIErrorResponse(w, status, model.NewValidationAPIError(ve))
	case errors.As(err, &nf):
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewNotFoundAPIError(nf))
	case errors.As(err, &ce):
		slog.Error("external service not configured", slog.String("service", ce.Service))
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewServiceNotConfiguredError(ce))
	case errors.As(err, &apiErr):
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
	default:
		slog.Error("internal server error", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
	}
}

// parsePage はクエリパラメータのページ番号を解析する。不正値と1未満は1として扱う。
func parsePage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
