package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hitoshi/marsblog/internal/model"
)

// PostgresAdminRepo はPostgreSQLを使用した管理者リポジトリ。
type PostgresAdminRepo struct {
	db *sql.DB
}

// NewPostgresAdminRepo はPostgresAdminRepoを生成する。
func NewPostgresAdminRepo(db *sql.DB) *PostgresAdminRepo {
	return &PostgresAdminRepo{db: db}
}

// Save は管理者を保存する。同一ユーザー名が存在する場合はパスワードハッシュを更新する。
func (r *PostgresAdminRepo) Save(ctx context.Context, admin *model.Admin) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (username, password_hash)
		 VALUES ($1, $2)
		 ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash`,
		admin.Username, admin.PasswordHash,
	)
	if err != nil {
		return model.NewStorageError("save admin", err)
	}
	return nil
}

// FindByUsername は指定ユーザー名の管理者を取得する。見つからない場合はnilを返す。
func (r *PostgresAdminRepo) FindByUsername(ctx context.Context, username string) (*model.Admin, error) {
	admin := &model.Admin{}
	err := r.db.QueryRowContext(ctx,
		`SELECT username, password_hash FROM admins WHERE username = $1`,
		username,
	).Scan(&admin.Username, &admin.PasswordHash)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewStorageError("find admin", err)
	}
	return admin, nil
}

// compile-time interface check
var _ AdminRepository = (*PostgresAdminRepo)(nil)
