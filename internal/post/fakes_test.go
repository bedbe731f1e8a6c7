package post

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/lib/pq"

	"github.com/hitoshi/marsblog/internal/metrics"
	"github.com/hitoshi/marsblog/internal/model"
)

// memPostRepo はテスト用のインメモリPostRepository。呼び出し回数を記録する。
type memPostRepo struct {
	mu    sync.Mutex
	posts map[string]*model.Post
	calls int
}

func newMemPostRepo() *memPostRepo {
	return &memPostRepo{posts: map[string]*model.Post{}}
}

func clonePost(p *model.Post) *model.Post {
	c := *p
	c.Tags = append([]string{}, p.Tags...)
	return &c
}

func (r *memPostRepo) Save(ctx context.Context, p *model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	for id, other := range r.posts {
		if id != p.ID && other.Slug == p.Slug {
			return model.NewStorageError("save post", &pq.Error{Code: "23505"})
		}
	}
	c := clonePost(p)
	if prev, ok := r.posts[p.ID]; ok {
		c.CreatedAt = prev.CreatedAt
		c.Views = prev.Views
		c.Likes = prev.Likes
	}
	r.posts[p.ID] = c
	return nil
}

func (r *memPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if p, ok := r.posts[id]; ok {
		return clonePost(p), nil
	}
	return nil, nil
}

func (r *memPostRepo) FindBySlug(ctx context.Context, slug string) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	for _, p := range r.posts {
		if p.Slug == slug {
			return clonePost(p), nil
		}
	}
	return nil, nil
}

func (r *memPostRepo) published(lang model.Language) []*model.Post {
	var out []*model.Post
	for _, p := range r.posts {
		if p.IsPublished() && p.Language == lang {
			out = append(out, clonePost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(*out[j].PublishedAt) })
	return out
}

func page(posts []*model.Post, limit, offset int) []*model.Post {
	if offset >= len(posts) {
		return []*model.Post{}
	}
	end := offset + limit
	if end > len(posts) {
		end = len(posts)
	}
	return posts[offset:end]
}

func (r *memPostRepo) ListPublished(ctx context.Context, lang model.Language, limit, offset int) ([]*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return page(r.published(lang), limit, offset), nil
}

func (r *memPostRepo) ListAll(ctx context.Context, limit, offset int) ([]*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	var out []*model.Post
	for _, p := range r.posts {
		out = append(out, clonePost(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r *memPostRepo) Search(ctx context.Context, query string, lang model.Language) ([]*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	q := strings.ToLower(query)
	var out []*model.Post
	for _, p := range r.published(lang) {
		if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Content), q) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPostRepo) GetStats(ctx context.Context, lang model.Language) (*model.PostStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	stats := &model.PostStats{}
	for _, p := range r.published(lang) {
		stats.PostCount++
		stats.TotalViews += p.Views
	}
	return stats, nil
}

func (r *memPostRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if _, ok := r.posts[id]; !ok {
		return &model.NotFoundError{Resource: "post", Key: id}
	}
	delete(r.posts, id)
	return nil
}

func (r *memPostRepo) IncrementViews(ctx context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	p, ok := r.posts[id]
	if !ok {
		return 0, &model.NotFoundError{Resource: "post", Key: id}
	}
	p.IncrementViews()
	return p.Views, nil
}

func (r *memPostRepo) IncrementLikes(ctx context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	p, ok := r.posts[id]
	if !ok {
		return 0, &model.NotFoundError{Resource: "post", Key: id}
	}
	p.IncrementLikes()
	return p.Likes, nil
}

type mockSubscriberRepo struct {
	listActiveFn func(ctx context.Context) ([]*model.Subscriber, error)
}

func (m *mockSubscriberRepo) Save(ctx context.Context, s *model.Subscriber) error { return nil }
func (m *mockSubscriberRepo) ListActive(ctx context.Context) ([]*model.Subscriber, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return nil, nil
}
func (m *mockSubscriberRepo) Deactivate(ctx context.Context, email string) error { return nil }

type mockNotifier struct {
	calls []notifyCall
	err   error
}

type notifyCall struct {
	emails []string
	title  string
	url    string
}

func (m *mockNotifier) NotifySubscribers(ctx context.Context, emails []string, title, url string) error {
	m.calls = append(m.calls, notifyCall{emails: emails, title: title, url: url})
	return m.err
}

// passthroughSanitizer は入力をそのまま返す。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(s string) string { return s }

type testEnv struct {
	svc      *Service
	repo     *memPostRepo
	subs     *mockSubscriberRepo
	notifier *mockNotifier
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:     newMemPostRepo(),
		subs:     &mockSubscriberRepo{},
		notifier: &mockNotifier{},
	}
	env.svc = NewService(
		env.repo, env.subs, passthroughSanitizer{}, env.notifier, metrics.Nop{},
		Site{Title: "Mars Notes", BaseURL: "https://blog.example.com"},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return env
}

// likeDuringReadRepo はFindByIDの直後に別リクエストのいいねが割り込む状況を再現する。
type likeDuringReadRepo struct {
	*memPostRepo
	fired bool
}

func (r *likeDuringReadRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	p, err := r.memPostRepo.FindByID(ctx, id)
	if err == nil && p != nil && !r.fired {
		r.fired = true
		if _, err := r.memPostRepo.IncrementLikes(ctx, id); err != nil {
			return nil, err
		}
	}
	return p, err
}
