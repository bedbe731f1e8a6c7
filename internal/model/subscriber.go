package model

import (
	"strings"
	"time"
)

// Subscriber はメール配信の購読者を表す。emailが一意キー。
type Subscriber struct {
	Email        string
	SubscribedAt time.Time
	IsActive     bool
}

// NewSubscriber は有効状態の購読者を生成する。メールアドレスは小文字に正規化する。
func NewSubscriber(email string) *Subscriber {
	return &Subscriber{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		SubscribedAt: time.Now().UTC(),
		IsActive:     true,
	}
}
