package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/marsblog/internal/middleware"
	"github.com/hitoshi/marsblog/internal/model"
	"github.com/hitoshi/marsblog/internal/seed"
	"github.com/hitoshi/marsblog/internal/storage"
)

func TestAdminHandler_CreatePost_Success(t *testing.T) {
	var gotPublish bool
	svc := &mockAdminService{
		createFn: func(ctx context.Context, in model.PostInput, publish bool) (*model.Post, error) {
			gotPublish = publish
			if in.Title != "Perseverance update" {
				t.Errorf("title = %q", in.Title)
			}
			if len(in.Tags) != 2 {
				t.Errorf("tags = %v", in.Tags)
			}
			if in.TitleIT == nil || *in.TitleIT != "Aggiornamento" {
				t.Errorf("title_it = %v", in.TitleIT)
			}
			p := model.NewPost(in)
			p.Publish()
			return p, nil
		},
	}
	h := NewAdminHandler(svc, &mockPresigner{}, nil)

	body := `{"title":"Perseverance update","content":"<p>x</p>","title_it":"Aggiornamento","tags":["rover","sample"],"publish":true}`
	req := httptest.NewRequest(http.MethodPost, "/admin/posts", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.CreatePost(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if !gotPublish {
		t.Error("publish flag should be passed through")
	}
	var resp adminPostResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Slug != "perseverance-update" || resp.Status != "published" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestAdminHandler_CreatePost_InvalidJSON_Returns400(t *testing.T) {
	h := NewAdminHandler(&mockAdminService{}, &mockPresigner{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/posts", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	h.CreatePost(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if body := parseAPIErrorResponse(t, w); body["code"] != model.ErrCodeInvalidRequest {
		t.Errorf("code = %q", body["code"])
	}
}

func TestAdminHandler_CreatePost_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing title", &model.ValidationError{Field: "title", Reason: "required"}, http.StatusBadRequest, model.ErrCodeValidation},
		{"duplicate slug", &model.ValidationError{Field: "slug", Reason: "taken"}, http.StatusConflict, model.ErrCodeSlugConflict},
		{"storage failure", model.NewStorageError("save post", errors.New("conn refused")), http.StatusInternalServerError, model.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAdminService{
				createFn: func(ctx context.Context, in model.PostInput, publish bool) (*model.Post, error) {
					return nil, tt.err
				},
			}
			h := NewAdminHandler(svc, &mockPresigner{}, nil)

			req := httptest.NewRequest(http.MethodPost, "/admin/posts", bytes.NewBufferString(`{"title":"x","publish":true}`))
			w := httptest.NewRecorder()
			h.CreatePost(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			body := parseAPIErrorResponse(t, w)
			if body["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", body["code"], tt.wantCode)
			}
			if tt.wantStatus == http.StatusInternalServerError && bytes.Contains(w.Body.Bytes(), []byte("conn refused")) {
				t.Error("internal error details must not leak to the response")
			}
		})
	}
}

func TestAdminHandler_UpdatePost_KeepsStatusWhenOmitted(t *testing.T) {
	cur := publishedPost(t, "Old")
	var gotStatus model.PostStatus
	svc := &mockAdminService{
		getFn: func(ctx context.Context, id string) (*model.Post, error) { return cur, nil },
		updateFn: func(ctx context.Context, id string, edit model.PostEdit, status model.PostStatus) (*model.Post, error) {
			gotStatus = status
			return cur.WithFields(edit), nil
		},
	}
	h := NewAdminHandler(svc, &mockPresigner{}, nil)

	req := httptest.NewRequest(http.MethodPut, "/admin/posts/"+cur.ID, bytes.NewBufferString(`{"title":"New"}`))
	req = withChiURLParam(req, "id", cur.ID)
	w := httptest.NewRecorder()
	h.UpdatePost(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if gotStatus != model.PostStatusPublished {
		t.Errorf("status = %q, want published", gotStatus)
	}
}

func TestAdminHandler_UpdatePost_UnknownStatus_Returns400(t *testing.T) {
	h := NewAdminHandler(&mockAdminService{}, &mockPresigner{}, nil)

	req := httptest.NewRequest(http.MethodPut, "/admin/posts/p1", bytes.NewBufferString(`{"title":"x","status":"archived"}`))
	req = withChiURLParam(req, "id", "p1")
	w := httptest.NewRecorder()
	h.UpdatePost(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAdminHandler_GetPost_NotFound(t *testing.T) {
	h := NewAdminHandler(&mockAdminService{}, &mockPresigner{}, nil)

	req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/admin/posts/missing", nil), "id", "missing")
	w := httptest.NewRecorder()
	h.GetPost(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestAdminHandler_DeletePost_Returns204(t *testing.T) {
	var deleted string
	svc := &mockAdminService{
		deleteFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	h := NewAdminHandler(svc, &mockPresigner{}, nil)

	req := withChiURLParam(httptest.NewRequest(http.MethodDelete, "/admin/posts/p1", nil), "id", "p1")
	w := httptest.NewRecorder()
	h.DeletePost(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if deleted != "p1" {
		t.Errorf("deleted = %q", deleted)
	}
}

func TestAdminHandler_Dashboard_IncludesAdmin(t *testing.T) {
	svc := &mockAdminService{
		listAllFn: func(ctx context.Context, page int) ([]*model.Post, error) {
			return []*model.Post{model.NewPost(model.PostInput{Title: "draft"})}, nil
		},
	}
	h := NewAdminHandler(svc, &mockPresigner{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req = req.WithContext(middleware.ContextWithAdmin(req.Context(), "admin"))
	w := httptest.NewRecorder()
	h.Dashboard(w, req)

	var body dashboardResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Admin != "admin" || len(body.Posts) != 1 || body.Posts[0].Status != "draft" {
		t.Errorf("body = %+v", body)
	}
}

func TestAdminHandler_PresignUpload_NotConfigured_Returns500(t *testing.T) {
	h := NewAdminHandler(&mockAdminService{}, &mockPresigner{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/uploads", bytes.NewBufferString(`{"filename":"dust.png","content_type":"image/png"}`))
	w := httptest.NewRecorder()
	h.PresignUpload(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if body := parseAPIErrorResponse(t, w); body["code"] != model.ErrCodeServiceNotConfigured {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeServiceNotConfigured)
	}
}

func TestAdminHandler_PresignUpload_Success(t *testing.T) {
	presigner := &mockPresigner{
		presignFn: func(ctx context.Context, filename, contentType string) (*storage.Upload, error) {
			return &storage.Upload{
				UploadURL: "https://bucket.example.com/media/x/dust.png?sig",
				Method:    http.MethodPut,
				PublicURL: "https://cdn.example.com/media/x/dust.png",
				Key:       "media/x/dust.png",
				MediaType: "image",
			}, nil
		},
	}
	h := NewAdminHandler(&mockAdminService{}, presigner, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/uploads", bytes.NewBufferString(`{"filename":"dust.png","content_type":"image/png"}`))
	w := httptest.NewRecorder()
	h.PresignUpload(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var up storage.Upload
	if err := json.NewDecoder(w.Body).Decode(&up); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if up.PublicURL != "https://cdn.example.com/media/x/dust.png" || up.MediaType != "image" {
		t.Errorf("upload = %+v", up)
	}
}

func TestAdminHandler_PresignUpload_MissingFields_Returns400(t *testing.T) {
	h := NewAdminHandler(&mockAdminService{}, &mockPresigner{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/uploads", bytes.NewBufferString(`{"filename":""}`))
	w := httptest.NewRecorder()
	h.PresignUpload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAdminHandler_Seed_ReturnsCounts(t *testing.T) {
	seeder := SeederFunc(func(ctx context.Context) (*seed.Result, error) {
		return &seed.Result{Created: 3, Skipped: 2}, nil
	})
	h := NewAdminHandler(&mockAdminService{}, &mockPresigner{}, seeder)

	w := httptest.NewRecorder()
	h.Seed(w, httptest.NewRequest(http.MethodPost, "/admin/seed", nil))

	var res seed.Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Created != 3 || res.Skipped != 2 {
		t.Errorf("result = %+v", res)
	}
}
