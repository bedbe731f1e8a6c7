package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/marsblog/internal/engagement"
	"github.com/hitoshi/marsblog/internal/i18n"
	"github.com/hitoshi/marsblog/internal/model"
	"github.com/hitoshi/marsblog/internal/post"
	"github.com/hitoshi/marsblog/internal/storage"
)

// --- モック定義 ---

// mockPublicService はPublicPostServiceのモック実装。呼び出し回数を記録する。
type mockPublicService struct {
	homeFn    func(ctx context.Context, lang model.Language) (*post.HomePage, error)
	archiveFn func(ctx context.Context, lang model.Language, page int) (*post.ArchivePage, error)
	detailFn  func(ctx context.Context, lang model.Language, slug string) (*model.Post, error)
	likeFn    func(ctx context.Context, lang model.Language, slug string, liked *engagement.LikedSet) (*post.LikeResult, error)
	searchFn  func(ctx context.Context, lang model.Language, query string) ([]*model.Post, error)
	feedFn    func(ctx context.Context, lang model.Language) (string, error)
	calls     int
}

func (m *mockPublicService) Home(ctx context.Context, lang model.Language) (*post.HomePage, error) {
	m.calls++
	if m.homeFn != nil {
		return m.homeFn(ctx, lang)
	}
	return &post.HomePage{Posts: []*model.Post{}, Stats: &model.PostStats{}}, nil
}

func (m *mockPublicService) Archive(ctx context.Context, lang model.Language, page int) (*post.ArchivePage, error) {
	m.calls++
	if m.archiveFn != nil {
		return m.archiveFn(ctx, lang, page)
	}
	return &post.ArchivePage{Posts: []*model.Post{}, Page: page}, nil
}

func (m *mockPublicService) Detail(ctx context.Context, lang model.Language, slug string) (*model.Post, error) {
	m.calls++
	if m.detailFn != nil {
		return m.detailFn(ctx, lang, slug)
	}
	return nil, &model.NotFoundError{Resource: "post", Key: slug}
}

func (m *mockPublicService) Like(ctx context.Context, lang model.Language, slug string, liked *engagement.LikedSet) (*post.LikeResult, error) {
	m.calls++
	if m.likeFn != nil {
		return m.likeFn(ctx, lang, slug, liked)
	}
	return &post.LikeResult{}, nil
}

func (m *mockPublicService) Search(ctx context.Context, lang model.Language, query string) ([]*model.Post, error) {
	m.calls++
	if m.searchFn != nil {
		return m.searchFn(ctx, lang, query)
	}
	return []*model.Post{}, nil
}

func (m *mockPublicService) Feed(ctx context.Context, lang model.Language) (string, error) {
	m.calls++
	if m.feedFn != nil {
		return m.feedFn(ctx, lang)
	}
	return "<rss></rss>", nil
}

// mockAdminService はAdminPostServiceのモック実装。
type mockAdminService struct {
	createFn  func(ctx context.Context, in model.PostInput, publish bool) (*model.Post, error)
	updateFn  func(ctx context.Context, id string, edit model.PostEdit, status model.PostStatus) (*model.Post, error)
	deleteFn  func(ctx context.Context, id string) error
	getFn     func(ctx context.Context, id string) (*model.Post, error)
	listAllFn func(ctx context.Context, page int) ([]*model.Post, error)
}

func (m *mockAdminService) Create(ctx context.Context, in model.PostInput, publish bool) (*model.Post, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in, publish)
	}
	return model.NewPost(in), nil
}

func (m *mockAdminService) Update(ctx context.Context, id string, edit model.PostEdit, status model.PostStatus) (*model.Post, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, edit, status)
	}
	return nil, &model.NotFoundError{Resource: "post", Key: id}
}

func (m *mockAdminService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockAdminService) Get(ctx context.Context, id string) (*model.Post, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, &model.NotFoundError{Resource: "post", Key: id}
}

func (m *mockAdminService) ListAll(ctx context.Context, page int) ([]*model.Post, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx, page)
	}
	return []*model.Post{}, nil
}

// mockSubscriptionService はSubscriptionServiceInterfaceのモック実装。
type mockSubscriptionService struct {
	subscribeFn   func(ctx context.Context, email string) (*model.Subscriber, error)
	unsubscribeFn func(ctx context.Context, email string) error
	listActiveFn  func(ctx context.Context) ([]*model.Subscriber, error)
}

func (m *mockSubscriptionService) Subscribe(ctx context.Context, email string) (*model.Subscriber, error) {
	if m.subscribeFn != nil {
		return m.subscribeFn(ctx, email)
	}
	return model.NewSubscriber(email), nil
}

func (m *mockSubscriptionService) Unsubscribe(ctx context.Context, email string) error {
	if m.unsubscribeFn != nil {
		return m.unsubscribeFn(ctx, email)
	}
	return nil
}

func (m *mockSubscriptionService) ListActive(ctx context.Context) ([]*model.Subscriber, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return []*model.Subscriber{}, nil
}

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	loginFn  func(ctx context.Context, username, password string) (*model.Session, error)
	logoutFn func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

// mockPresigner はstorage.Presignerのモック実装。
type mockPresigner struct {
	presignFn func(ctx context.Context, filename, contentType string) (*storage.Upload, error)
}

func (m *mockPresigner) PresignUpload(ctx context.Context, filename, contentType string) (*storage.Upload, error) {
	if m.presignFn != nil {
		return m.presignFn(ctx, filename, contentType)
	}
	return nil, &model.ConfigurationError{Service: "storage"}
}

// --- テストヘルパー ---

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// withLanguage はテスト用にLanguageMiddleware通過後のコンテキストを再現するヘルパー。
func withLanguage(r *http.Request, lang model.Language) *http.Request {
	return r.WithContext(i18n.ContextWithLanguage(r.Context(), lang))
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// publishedPost はテスト用の公開記事を生成するヘルパー。
func publishedPost(t *testing.T, title string) *model.Post {
	t.Helper()
	p := model.NewPost(model.PostInput{Title: title, Content: "<p>" + title + "</p>"})
	if _, err := p.Publish(); err != nil {
		t.Fatalf("publish: %v", err)
	}
	return p
}
