package model

import "time"

// Admin は管理者の認証情報を表す。PasswordHashは一方向ハッシュで、平文は保持しない。
type Admin struct {
	Username     string
	PasswordHash string
}

// NewAdmin はAdminを生成する。
func NewAdmin(username, passwordHash string) *Admin {
	return &Admin{Username: username, PasswordHash: passwordHash}
}

// Session は管理者のログインセッションを表す。
type Session struct {
	ID        string
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
}
