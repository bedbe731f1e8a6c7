// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer は管理画面から投稿された記事本文のHTMLをサニタイズする。
// bluemondayの許可リストポリシーで、記事表示に必要なタグと属性のみを通過させる。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
// 記事本文（第1言語・第2言語とも）の保存前に使用される。
type ContentSanitizer interface {
	// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// contentSanitizer はContentSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: 見出し(h2-h4), p, br, hr, リスト, blockquote, pre, code, strong, em, figure, figcaption
//   - a: href（http/https/相対）、外部リンクには target="_blank" と rel="noopener noreferrer"
//   - img: src, alt, width, height
//   - video: src, controls, poster, width, height（sourceタグのsrc/typeも許可）
//   - script, iframe, style および on* 属性は除去
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"h2", "h3", "h4",
		"p", "br", "hr", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
		"figure", "figcaption",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowAttrs("width", "height").Matching(bluemonday.Integer).OnElements("img", "video")

	// 記事に埋め込む動画はCDN上のファイルを直接参照する
	p.AllowAttrs("src", "poster").OnElements("video")
	p.AllowAttrs("controls").Matching(bluemonday.Paragraph).OnElements("video")
	p.AllowAttrs("src").OnElements("source")
	p.AllowAttrs("type").Matching(bluemonday.Paragraph).OnElements("source")

	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})
	p.AllowURLSchemeWithCustomPolicy("http", func(u *url.URL) bool {
		return true
	})

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}

// compile-time interface check
var _ ContentSanitizer = (*contentSanitizer)(nil)
