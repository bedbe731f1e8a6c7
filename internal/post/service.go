// Package post は記事のライフサイクル（作成・編集・公開・閲覧・いいね）のドメインロジックを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/marsblog/internal/engagement"
	"github.com/hitoshi/marsblog/internal/metrics"
	"github.com/hitoshi/marsblog/internal/model"
	"github.com/hitoshi/marsblog/internal/notify"
	"github.com/hitoshi/marsblog/internal/repository"
	"github.com/hitoshi/marsblog/internal/rss"
	"github.com/hitoshi/marsblog/internal/security"
)

const (
	// HomeLimit はトップページに表示する最新記事数。
	HomeLimit = 5
	// ArchivePageSize はアーカイブ1ページあたりの記事数。
	ArchivePageSize = 100
	// AdminPageSize は管理画面の記事一覧1ページあたりの記事数。
	AdminPageSize = 100
)

// Site はフィードや通知メールに使うサイト情報。
type Site struct {
	Title       string
	Description string
	BaseURL     string
}

// HomePage はトップページの表示内容。
type HomePage struct {
	Posts []*model.Post
	Stats *model.PostStats
}

// ArchivePage はアーカイブの1ページ分。
type ArchivePage struct {
	Posts   []*model.Post
	Page    int
	HasNext bool
}

// LikeResult はいいね操作の結果。
type LikeResult struct {
	Likes        int64
	AlreadyLiked bool
}

// Service は記事管理のサービス層。
type Service struct {
	posts       repository.PostRepository
	subscribers repository.SubscriberRepository
	sanitizer   security.ContentSanitizer
	notifier    notify.Notifier
	metrics     metrics.MetricsCollector
	site        Site
	logger      *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	posts repository.PostRepository,
	subscribers repository.SubscriberRepository,
	sanitizer security.ContentSanitizer,
	notifier notify.Notifier,
	collector metrics.MetricsCollector,
	site Site,
	logger *slog.Logger,
) *Service {
	return &Service{
		posts:       posts,
		subscribers: subscribers,
		sanitizer:   sanitizer,
		notifier:    notifier,
		metrics:     collector,
		site:        site,
		logger:      logger,
	}
}

// Create は記事を作成する。publishがtrueの場合は作成と同時に公開し、購読者に通知する。
// 公開時にタイトルが空の場合はValidationErrorを返し、何も保存しない。
func (s *Service) Create(ctx context.Context, in model.PostInput, publish bool) (*model.Post, error) {
	in.Content = s.sanitizer.Sanitize(in.Content)
	in.ContentIT = s.sanitizePtr(in.ContentIT)

	p := model.NewPost(in)
	if publish {
		if _, err := p.Publish(); err != nil {
			return nil, err
		}
	}

	if err := s.save(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("post created",
		slog.String("post_id", p.ID),
		slog.String("slug", p.Slug),
		slog.String("status", string(p.Status)),
	)
	if p.IsPublished() {
		s.notifyPublished(ctx, p)
	}
	return p, nil
}

// Update は記事の内容と公開状態を更新する。
// 下書きから公開へ遷移した場合のみ購読者に通知する。
func (s *Service) Update(ctx context.Context, id string, edit model.PostEdit, status model.PostStatus) (*model.Post, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	edit.Content = s.sanitizer.Sanitize(edit.Content)
	edit.ContentIT = s.sanitizePtr(edit.ContentIT)
	next := cur.WithFields(edit)

	switch status {
	case model.PostStatusPublished:
		if _, err := next.Publish(); err != nil {
			return nil, err
		}
	case model.PostStatusDraft:
		next.Unpublish()
	default:
		return nil, &model.ValidationError{Field: "status", Reason: "unknown status " + string(status)}
	}

	if err := s.save(ctx, next); err != nil {
		return nil, err
	}

	s.logger.Info("post updated",
		slog.String("post_id", next.ID),
		slog.String("status", string(next.Status)),
	)
	if !cur.IsPublished() && next.IsPublished() {
		s.notifyPublished(ctx, next)
	}
	return next, nil
}

// Delete は記事を削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("post deleted", slog.String("post_id", id))
	return nil
}

// Get は状態に関わらず記事を取得する（管理画面用）。
func (s *Service) Get(ctx context.Context, id string) (*model.Post, error) {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &model.NotFoundError{Resource: "post", Key: id}
	}
	return p, nil
}

// Detail は公開記事を取得し、閲覧数を1増やす。
// 下書き、および指定言語以外の記事はNotFoundErrorを返す。
func (s *Service) Detail(ctx context.Context, lang model.Language, slug string) (*model.Post, error) {
	p, err := s.findPublished(ctx, lang, slug)
	if err != nil {
		return nil, err
	}

	views, err := s.posts.IncrementViews(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Views = views
	s.metrics.RecordPostView()
	return p, nil
}

// Like は公開記事のいいね数を1増やす。likedに既に含まれている記事は数えない。
// 数えた場合はlikedに記事IDを追加する（呼び出し元がクッキーに書き戻す）。
func (s *Service) Like(ctx context.Context, lang model.Language, slug string, liked *engagement.LikedSet) (*LikeResult, error) {
	p, err := s.findPublished(ctx, lang, slug)
	if err != nil {
		return nil, err
	}

	if liked.Has(p.ID) {
		s.metrics.RecordLike(metrics.LikeResultAlreadyLiked)
		return &LikeResult{Likes: p.Likes, AlreadyLiked: true}, nil
	}

	likes, err := s.posts.IncrementLikes(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	liked.Add(p.ID)
	s.metrics.RecordLike(metrics.LikeResultCounted)
	return &LikeResult{Likes: likes}, nil
}

// ListPublished は指定言語の公開記事を新しい順に返す。
func (s *Service) ListPublished(ctx context.Context, lang model.Language, limit, offset int) ([]*model.Post, error) {
	if err := checkLanguage(lang); err != nil {
		return nil, err
	}
	return s.posts.ListPublished(ctx, lang, limit, offset)
}

// ListAll は管理画面用に全記事を作成日時の新しい順に返す。pageは1始まり。
func (s *Service) ListAll(ctx context.Context, page int) ([]*model.Post, error) {
	if page < 1 {
		page = 1
	}
	return s.posts.ListAll(ctx, AdminPageSize, (page-1)*AdminPageSize)
}

// Search は指定言語の公開記事をタイトル・本文で検索する。空のクエリは空の結果を返す。
func (s *Service) Search(ctx context.Context, lang model.Language, query string) ([]*model.Post, error) {
	if err := checkLanguage(lang); err != nil {
		return nil, err
	}
	// 空白のみのクエリは空扱い。検索自体は入力をそのまま部分一致させる
	if strings.TrimSpace(query) == "" {
		return []*model.Post{}, nil
	}
	return s.posts.Search(ctx, query, lang)
}

// Stats は指定言語の公開記事の集計を返す。
func (s *Service) Stats(ctx context.Context, lang model.Language) (*model.PostStats, error) {
	if err := checkLanguage(lang); err != nil {
		return nil, err
	}
	return s.posts.GetStats(ctx, lang)
}

// Home はトップページ用に最新記事と集計を返す。
func (s *Service) Home(ctx context.Context, lang model.Language) (*HomePage, error) {
	posts, err := s.ListPublished(ctx, lang, HomeLimit, 0)
	if err != nil {
		return nil, err
	}
	stats, err := s.posts.GetStats(ctx, lang)
	if err != nil {
		return nil, err
	}
	return &HomePage{Posts: posts, Stats: stats}, nil
}

// Archive は公開記事をArchivePageSize件ずつ返す。pageは1始まりで、1未満は1として扱う。
func (s *Service) Archive(ctx context.Context, lang model.Language, page int) (*ArchivePage, error) {
	if page < 1 {
		page = 1
	}
	// 次ページの有無を判定するため1件多く取得する
	posts, err := s.ListPublished(ctx, lang, ArchivePageSize+1, (page-1)*ArchivePageSize)
	if err != nil {
		return nil, err
	}
	hasNext := len(posts) > ArchivePageSize
	if hasNext {
		posts = posts[:ArchivePageSize]
	}
	return &ArchivePage{Posts: posts, Page: page, HasNext: hasNext}, nil
}

// Feed は指定言語のRSS 2.0フィードを返す。
func (s *Service) Feed(ctx context.Context, lang model.Language) (string, error) {
	posts, err := s.ListPublished(ctx, lang, rss.MaxItems, 0)
	if err != nil {
		return "", err
	}
	return rss.Build(posts, rss.Channel{
		Title:       s.site.Title,
		BaseURL:     s.site.BaseURL,
		Description: s.site.Description,
		Language:    lang,
	})
}

// findPublished は指定言語の公開記事をスラッグで探す。
func (s *Service) findPublished(ctx context.Context, lang model.Language, slug string) (*model.Post, error) {
	if err := checkLanguage(lang); err != nil {
		return nil, err
	}
	p, err := s.posts.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.IsPublished() || p.Language != lang {
		return nil, &model.NotFoundError{Resource: "post", Key: slug}
	}
	return p, nil
}

// save は記事を保存する。スラッグの一意制約違反はValidationErrorに変換する。
func (s *Service) save(ctx context.Context, p *model.Post) error {
	err := s.posts.Save(ctx, p)
	if err == nil {
		return nil
	}
	if repository.IsUniqueViolation(err) {
		return &model.ValidationError{Field: "slug", Reason: fmt.Sprintf("slug %q is already in use", p.Slug)}
	}
	return err
}

// notifyPublished は有効な購読者に公開を通知する。失敗はログに記録し、呼び出し元には返さない。
func (s *Service) notifyPublished(ctx context.Context, p *model.Post) {
	subs, err := s.subscribers.ListActive(ctx)
	if err != nil {
		s.metrics.RecordNotification(metrics.NotifyResultFailed)
		s.logger.Error("failed to list subscribers for notification",
			slog.String("post_id", p.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if len(subs) == 0 {
		s.metrics.RecordNotification(metrics.NotifyResultSkipped)
		return
	}

	emails := make([]string, len(subs))
	for i, sub := range subs {
		emails[i] = sub.Email
	}

	url := rss.PostURL(s.site.BaseURL, p.Language, p.Slug)
	if err := s.notifier.NotifySubscribers(ctx, emails, p.Title, url); err != nil {
		s.metrics.RecordNotification(metrics.NotifyResultFailed)
		s.logger.Error("failed to notify subscribers",
			slog.String("post_id", p.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.metrics.RecordNotification(metrics.NotifyResultSent)
}

func (s *Service) sanitizePtr(v *string) *string {
	if v == nil {
		return nil
	}
	out := s.sanitizer.Sanitize(*v)
	return &out
}

// checkLanguage は対応言語以外をNotFoundErrorにする。ストレージへの問い合わせ前に呼ぶこと。
func checkLanguage(lang model.Language) error {
	if !lang.IsSupported() {
		return &model.NotFoundError{Resource: "language", Key: string(lang)}
	}
	return nil
}
