// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// PostStatus は記事の公開状態を表す。
type PostStatus string

const (
	// PostStatusDraft は下書き状態。
	PostStatusDraft PostStatus = "draft"
	// PostStatusPublished は公開状態。
	PostStatusPublished PostStatus = "published"
)

// ParsePostStatus は文字列をPostStatusに変換する。未知の値はエラーを返す。
func ParsePostStatus(s string) (PostStatus, error) {
	switch PostStatus(s) {
	case PostStatusDraft:
		return PostStatusDraft, nil
	case PostStatusPublished:
		return PostStatusPublished, nil
	default:
		return "", &ValidationError{Field: "status", Reason: "unknown status " + s}
	}
}

// Post はブログ記事を表す。
// 第2言語のタイトル・本文とメディア情報は任意項目のためポインタで保持し、
// 未設定はnilのまま永続化層を往復する。
type Post struct {
	ID          string
	Title       string
	TitleIT     *string
	Slug        string
	Content     string
	ContentIT   *string
	MediaURL    *string
	MediaType   *string // "image" または "video"
	Tags        []string
	Status      PostStatus
	Language    Language
	Views       int64
	Likes       int64
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// PostInput は記事作成時の入力値。
type PostInput struct {
	Title     string
	Slug      string // slug.Makeで正規化する。空の場合はタイトルから生成する
	Content   string
	MediaURL  *string
	MediaType *string
	Tags      []string
	TitleIT   *string
	ContentIT *string
}

// PostEdit は記事編集時の入力値。WithFieldsで既存の記事に適用する。
type PostEdit struct {
	Title     string
	Content   string
	MediaURL  *string
	MediaType *string
	Tags      []string
	TitleIT   *string
	ContentIT *string
}

// NewPost は下書き状態の新規記事を生成する。
// IDを採番し、言語は第1言語に固定する。タイトルの必須チェックは公開時に行う。
func NewPost(in PostInput) *Post {
	id := uuid.New().String()
	p := &Post{
		ID:        id,
		Title:     in.Title,
		TitleIT:   nonEmpty(in.TitleIT),
		Content:   in.Content,
		ContentIT: nonEmpty(in.ContentIT),
		MediaURL:  nonEmpty(in.MediaURL),
		MediaType: nonEmpty(in.MediaType),
		Tags:      NormalizeTags(in.Tags),
		Status:    PostStatusDraft,
		Language:  LanguagePrimary,
		CreatedAt: time.Now().UTC(),
	}
	// 指定スラッグもURLセーフな形に正規化する。正規化で空になる場合はタイトルから生成する
	p.Slug = slug.Make(in.Slug)
	if p.Slug == "" {
		p.Slug = Slugify(in.Title, id)
	}
	return p
}

// Publish は記事を公開状態に遷移させる。
// タイトルが空の場合はValidationErrorを返し、状態は変更しない。
// published_atは初回公開時に1度だけ記録し、以後は上書きしない。
func (p *Post) Publish() (*Post, error) {
	if strings.TrimSpace(p.Title) == "" {
		return p, &ValidationError{Field: "title", Reason: "a post must have a title to be published"}
	}
	p.Status = PostStatusPublished
	if p.PublishedAt == nil {
		now := time.Now().UTC()
		p.PublishedAt = &now
	}
	return p, nil
}

// Unpublish は記事を下書きに戻す。published_atは履歴として保持する。
func (p *Post) Unpublish() *Post {
	p.Status = PostStatusDraft
	return p
}

// IsPublished は記事が公開状態かを返す。
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// IncrementViews は閲覧数を1増やす。
func (p *Post) IncrementViews() {
	p.Views++
}

// IncrementLikes はいいね数を1増やす。
func (p *Post) IncrementLikes() {
	p.Likes++
}

// WithFields は編集内容を適用した新しい記事の値を返す。レシーバは変更しない。
// ID、言語、カウンタ、作成日時、公開状態は引き継ぎ、スラッグはタイトルから再生成する。
func (p Post) WithFields(e PostEdit) *Post {
	next := p
	next.Title = e.Title
	next.Slug = Slugify(e.Title, p.ID)
	next.Content = e.Content
	next.TitleIT = nonEmpty(e.TitleIT)
	next.ContentIT = nonEmpty(e.ContentIT)
	next.MediaURL = nonEmpty(e.MediaURL)
	next.MediaType = nonEmpty(e.MediaType)
	next.Tags = NormalizeTags(e.Tags)
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		next.PublishedAt = &t
	}
	return &next
}

// LocalizedPost は表示言語に合わせたタイトル・本文の射影。
type LocalizedPost struct {
	Title   string
	Content string
}

// Localized は指定言語での表示用タイトル・本文を返す。
// 第2言語が指定され、かつ対応するフィールドが設定されている場合のみ第2言語を使う。
func (p *Post) Localized(lang Language) LocalizedPost {
	lp := LocalizedPost{Title: p.Title, Content: p.Content}
	if lang != LanguageSecondary {
		return lp
	}
	if p.TitleIT != nil {
		lp.Title = *p.TitleIT
	}
	if p.ContentIT != nil {
		lp.Content = *p.ContentIT
	}
	return lp
}

// Slugify はタイトルからURLセーフなスラッグを決定的に生成する。
// タイトルが空（または記号のみ）の場合は下書き用に "draft-" とIDの先頭8文字を使う。
func Slugify(title, id string) string {
	s := slug.Make(title)
	if s != "" {
		return s
	}
	short := strings.ReplaceAll(id, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return "draft-" + short
}

// NormalizeTags はタグの前後空白を除去し、空要素と重複を取り除く。
// 出現順は維持する。
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SplitTags はカンマ区切りのタグ文字列を分割する。
func SplitTags(raw string) []string {
	return NormalizeTags(strings.Split(raw, ","))
}

// nonEmpty は空白のみの文字列をnilに正規化する。
func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}

// StringPtr は文字列のポインタを返す。空文字列の場合はnilを返す。
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// PostStats は公開記事の集計値。
type PostStats struct {
	PostCount  int64
	TotalViews int64
}
