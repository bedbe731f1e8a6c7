package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/marsblog/internal/middleware"
	"github.com/hitoshi/marsblog/internal/model"
	"github.com/hitoshi/marsblog/internal/seed"
	"github.com/hitoshi/marsblog/internal/storage"
)

// AdminPostService は管理画面のハンドラーが必要とするサービスインターフェース。
type AdminPostService interface {
	Create(ctx context.Context, in model.PostInput, publish bool) (*model.Post, error)
	Update(ctx context.Context, id string, edit model.PostEdit, status model.PostStatus) (*model.Post, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Post, error)
	ListAll(ctx context.Context, page int) ([]*model.Post, error)
}

// Seeder はデモ記事の投入を行うインターフェース。
type Seeder interface {
	Seed(ctx context.Context) (*seed.Result, error)
}

// SeederFunc は関数をSeederとして扱うためのアダプタ。
type SeederFunc func(ctx context.Context) (*seed.Result, error)

// Seed はSeederインターフェースを実装する。
func (f SeederFunc) Seed(ctx context.Context) (*seed.Result, error) {
	return f(ctx)
}

// AdminHandler は管理画面（記事管理・メディアアップロード・デモ投入）のHTTPハンドラー。
// すべてのルートはAdminSessionMiddlewareの内側に配置する。
type AdminHandler struct {
	posts     AdminPostService
	presigner storage.Presigner
	seeder    Seeder
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(posts AdminPostService, presigner storage.Presigner, seeder Seeder) *AdminHandler {
	return &AdminHandler{posts: posts, presigner: presigner, seeder: seeder}
}

// postRequest は記事作成・更新リクエストのボディ。
type postRequest struct {
	Title     string   `json:"title"`
	Slug      string   `json:"slug"`
	Content   string   `json:"content"`
	TitleIT   *string  `json:"title_it"`
	ContentIT *string  `json:"content_it"`
	MediaURL  *string  `json:"media_url"`
	MediaType *string  `json:"media_type"`
	Tags      []string `json:"tags"`
	Publish   bool     `json:"publish"`
	Status    string   `json:"status"`
}

// uploadRequest は署名付きアップロードURL発行リクエストのボディ。
type uploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type dashboardResponse struct {
	Admin string              `json:"admin"`
	Page  int                 `json:"page"`
	Posts []adminPostResponse `json:"posts"`
}

// Dashboard は全記事を作成日時の新しい順に返す。
// GET /admin?page=N
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.AdminFromContext(r.Context())
	page := parsePage(r)

	posts, err := h.posts.ListAll(r.Context(), page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Admin: admin,
		Page:  page,
		Posts: toAdminPostList(posts),
	})
}

// CreatePost は記事を作成する。publishがtrueの場合は同時に公開する。
// POST /admin/posts
func (h *AdminHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePostRequest(w, r)
	if !ok {
		return
	}

	p, err := h.posts.Create(r.Context(), model.PostInput{
		Title:     req.Title,
		Slug:      req.Slug,
		Content:   req.Content,
		TitleIT:   req.TitleIT,
		ContentIT: req.ContentIT,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
		Tags:      req.Tags,
	}, req.Publish)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAdminPostResponse(p))
}

// GetPost は状態に関わらず記事を返す。
// GET /admin/posts/{id}
func (h *AdminHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	p, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAdminPostResponse(p))
}

// UpdatePost は記事の内容と公開状態を更新する。statusを省略した場合は現在の状態を維持する。
// PUT /admin/posts/{id}
func (h *AdminHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req, ok := decodePostRequest(w, r)
	if !ok {
		return
	}

	var status model.PostStatus
	if req.Status == "" {
		cur, err := h.posts.Get(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		status = cur.Status
	} else {
		parsed, err := model.ParsePostStatus(req.Status)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		status = parsed
	}

	p, err := h.posts.Update(r.Context(), id, model.PostEdit{
		Title:     req.Title,
		Content:   req.Content,
		TitleIT:   req.TitleIT,
		ContentIT: req.ContentIT,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
		Tags:      req.Tags,
	}, status)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAdminPostResponse(p))
}

// DeletePost は記事を削除する。
// DELETE /admin/posts/{id}
func (h *AdminHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PresignUpload はメディアを直接ストレージへPUTするための署名付きURLを発行する。
// POST /admin/uploads
func (h *AdminHandler) PresignUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました。"))
		return
	}
	if req.Filename == "" || req.ContentType == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("filename and content_type are required"))
		return
	}

	upload, err := h.presigner.PresignUpload(r.Context(), req.Filename, req.ContentType)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, upload)
}

// Seed はデモ記事を投入する。既存のスラッグはスキップする。
// POST /admin/seed
func (h *AdminHandler) Seed(w http.ResponseWriter, r *http.Request) {
	res, err := h.seeder.Seed(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func decodePostRequest(w http.ResponseWriter, r *http.Request) (*postRequest, bool) {
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました。"))
		return nil, false
	}
	return &req, true
}
