package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/marsblog/internal/model"
)

// PostgresSubscriberRepo はPostgreSQLを使用した購読者リポジトリ。
type PostgresSubscriberRepo struct {
	db *sql.DB
}

// NewPostgresSubscriberRepo はPostgresSubscriberRepoを生成する。
func NewPostgresSubscriberRepo(db *sql.DB) *PostgresSubscriberRepo {
	return &PostgresSubscriberRepo{db: db}
}

// Save は購読者を登録する。既に存在する場合はis_activeをTRUEに戻し、登録日時は維持する。
func (r *PostgresSubscriberRepo) Save(ctx context.Context, subscriber *model.Subscriber) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscribers (email, subscribed_at, is_active)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET is_active = EXCLUDED.is_active`,
		subscriber.Email, subscriber.SubscribedAt, subscriber.IsActive,
	)
	if err != nil {
		return model.NewStorageError("save subscriber", err)
	}
	return nil
}

// ListActive は有効な購読者を登録日時の昇順で返す。
func (r *PostgresSubscriberRepo) ListActive(ctx context.Context) ([]*model.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT email, subscribed_at, is_active
		 FROM subscribers
		 WHERE is_active
		 ORDER BY subscribed_at ASC`,
	)
	if err != nil {
		return nil, model.NewStorageError("list active subscribers", err)
	}
	defer rows.Close()

	subscribers := []*model.Subscriber{}
	for rows.Next() {
		s := &model.Subscriber{}
		if err := rows.Scan(&s.Email, &s.SubscribedAt, &s.IsActive); err != nil {
			return nil, model.NewStorageError("scan subscriber", err)
		}
		subscribers = append(subscribers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("iterate subscribers", err)
	}
	return subscribers, nil
}

// Deactivate は購読者を無効にする。
func (r *PostgresSubscriberRepo) Deactivate(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE subscribers SET is_active = FALSE WHERE email = $1`,
		email,
	)
	if err != nil {
		return model.NewStorageError("deactivate subscriber", err)
	}
	return nil
}

// compile-time interface check
var _ SubscriberRepository = (*PostgresSubscriberRepo)(nil)
