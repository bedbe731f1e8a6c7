// Package rss は公開記事のRSS 2.0フィードを生成する。
package rss

import (
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/hitoshi/marsblog/internal/model"
	"github.com/hitoshi/marsblog/internal/security"
)

// MaxItems はフィードに含める記事数の上限。
const MaxItems = 10

// excerptLength は記事説明文の最大文字数。
const excerptLength = 280

// Channel はフィードのチャンネル情報。
type Channel struct {
	Title       string
	BaseURL     string
	Description string
	Language    model.Language
}

// PostURL は記事の正規URLを返す。
func PostURL(baseURL string, lang model.Language, slug string) string {
	return fmt.Sprintf("%s/%s/posts/%s", strings.TrimRight(baseURL, "/"), lang, slug)
}

// Build は記事一覧からRSS 2.0のXMLを生成する。
// 記事は与えられた順（新しい順を想定）にMaxItems件まで含め、タイトル・本文はチャンネルの言語で表示する。
func Build(posts []*model.Post, ch Channel) (string, error) {
	base := strings.TrimRight(ch.BaseURL, "/")
	feed := &feeds.Feed{
		Title:       ch.Title,
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/%s/", base, ch.Language)},
		Description: ch.Description,
	}

	if len(posts) > MaxItems {
		posts = posts[:MaxItems]
	}
	for _, p := range posts {
		lp := p.Localized(ch.Language)
		link := PostURL(base, ch.Language, p.Slug)
		item := &feeds.Item{
			Title:       lp.Title,
			Link:        &feeds.Link{Href: link},
			Id:          link,
			Description: security.Excerpt(lp.Content, excerptLength),
		}
		if p.PublishedAt != nil {
			item.Created = p.PublishedAt.UTC()
		} else {
			item.Created = p.CreatedAt.UTC()
		}
		feed.Items = append(feed.Items, item)
	}
	if len(feed.Items) > 0 {
		feed.Updated = feed.Items[0].Created
	} else {
		feed.Updated = time.Now().UTC()
	}

	rss := (&feeds.Rss{Feed: feed}).RssFeed()
	rss.Language = string(ch.Language)
	out, err := feeds.ToXML(rss)
	if err != nil {
		return "", fmt.Errorf("failed to render rss: %w", err)
	}
	return out, nil
}
