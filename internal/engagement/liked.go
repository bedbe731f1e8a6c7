// Package engagement は閲覧数・いいね数の重複排除に使うクライアント側の状態を扱う。
//
// いいね済みの記事IDは長期クッキーに保持する。クッキーを削除すれば再度いいねできるため、
// 重複排除は厳密なものではない。
package engagement

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// CookieName はいいね済み記事IDを保持するクッキー名。
	CookieName = "liked_posts"
	// MaxLiked はクッキーに保持する記事IDの上限。超えた場合は古いものから捨てる。
	MaxLiked = 100
	// CookieMaxAge はクッキーの有効期間。
	CookieMaxAge = 365 * 24 * time.Hour

	separator = "."
)

// LikedSet はいいね済み記事IDの順序付き集合。追加順を維持する。
type LikedSet struct {
	ids []string
}

// ParseLikedSet はクッキー値をLikedSetに変換する。
// UUIDとして解釈できない要素と重複は無視する。
func ParseLikedSet(raw string) *LikedSet {
	s := &LikedSet{}
	if raw == "" {
		return s
	}
	for _, part := range strings.Split(raw, separator) {
		id, err := uuid.Parse(part)
		if err != nil {
			continue
		}
		s.Add(id.String())
	}
	return s
}

// FromRequest はリクエストのクッキーからLikedSetを読み出す。クッキーが無い場合は空集合を返す。
func FromRequest(r *http.Request) *LikedSet {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return &LikedSet{}
	}
	return ParseLikedSet(c.Value)
}

// Has は指定IDがいいね済みかを返す。
func (s *LikedSet) Has(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Add は指定IDを追加する。既に含まれている場合はfalseを返す。
func (s *LikedSet) Add(id string) bool {
	if s.Has(id) {
		return false
	}
	s.ids = append(s.ids, id)
	if len(s.ids) > MaxLiked {
		s.ids = s.ids[len(s.ids)-MaxLiked:]
	}
	return true
}

// Len は保持しているID数を返す。
func (s *LikedSet) Len() int {
	return len(s.ids)
}

// Encode はクッキー値に変換する。
func (s *LikedSet) Encode() string {
	return strings.Join(s.ids, separator)
}

// Cookie はレスポンスに設定するクッキーを生成する。
func (s *LikedSet) Cookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    s.Encode(),
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
