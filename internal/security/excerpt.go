package security

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Excerpt はHTMLからテキストのみを取り出し、空白を詰めてmaxRunes文字以内に切り詰める。
// 切り詰めた場合は末尾に "…" を付ける。scriptとstyleの中身は含めない。
func Excerpt(rawHTML string, maxRunes int) string {
	z := html.NewTokenizer(strings.NewReader(rawHTML))

	var b strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF 以外のエラーでもそこまでのテキストを返す
			return truncateRunes(collapseSpace(b.String()), maxRunes)
		case html.StartTagToken:
			name, _ := z.TagName()
			if isSkippedTag(string(name)) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if isSkippedTag(string(name)) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isSkippedTag(name string) bool {
	return name == "script" || name == "style"
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimRight(string(r[:max]), " ") + "…"
}
