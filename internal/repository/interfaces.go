// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/marsblog/internal/model"
)

// PostRepository は記事データの永続化インターフェース。
// ドライバ由来の失敗はすべて *model.StorageError として返す。
type PostRepository interface {
	// Save は記事を保存する。同一IDが存在する場合は全カラムを置き換える（created_at、views、likesは除く）。
	Save(ctx context.Context, post *model.Post) error

	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// FindBySlug は指定スラッグの記事を取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Post, error)

	// ListPublished は指定言語の公開記事をpublished_atの降順で返す。
	ListPublished(ctx context.Context, lang model.Language, limit, offset int) ([]*model.Post, error)

	// ListAll は状態に関わらず全記事をcreated_atの降順で返す。
	ListAll(ctx context.Context, limit, offset int) ([]*model.Post, error)

	// Search はタイトルまたは本文に部分一致する公開記事を返す（大文字小文字を区別しない）。
	Search(ctx context.Context, query string, lang model.Language) ([]*model.Post, error)

	// GetStats は指定言語の公開記事数と閲覧数の合計を返す。
	GetStats(ctx context.Context, lang model.Language) (*model.PostStats, error)

	// Delete は指定IDの記事を削除する。存在しない場合はNotFoundErrorを返す。
	Delete(ctx context.Context, id string) error

	// IncrementViews は閲覧数を原子的に1増やし、更新後の値を返す。
	IncrementViews(ctx context.Context, id string) (int64, error)

	// IncrementLikes はいいね数を原子的に1増やし、更新後の値を返す。
	IncrementLikes(ctx context.Context, id string) (int64, error)
}

// SubscriberRepository は購読者データの永続化インターフェース。
type SubscriberRepository interface {
	// Save は購読者を登録する。既に存在する場合は有効状態に戻す。
	Save(ctx context.Context, subscriber *model.Subscriber) error

	// ListActive は有効な購読者を登録日時の昇順で返す。
	ListActive(ctx context.Context) ([]*model.Subscriber, error)

	// Deactivate は購読者を無効にする。存在しない場合もエラーにしない。
	Deactivate(ctx context.Context, email string) error
}

// AdminRepository は管理者データの永続化インターフェース。
type AdminRepository interface {
	// Save は管理者を保存する。同一ユーザー名が存在する場合はハッシュを更新する。
	Save(ctx context.Context, admin *model.Admin) error

	// FindByUsername は指定ユーザー名の管理者を取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.Admin, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
