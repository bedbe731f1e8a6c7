package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// secondaryLanguageColumns は第2言語のタイトル・本文カラム。
var secondaryLanguageColumns = []string{"title_it", "content_it"}

// EnsureSecondaryLanguageColumns はpostsテーブルに第2言語カラムが無ければ追加する。
// golang-migrate を使わずに構築された既存DB向けの単独マイグレーション。
// 接続はpolicyに従ってリトライし、結果はエラーとして返す（呼び出し元をクラッシュさせない）。
// 何度実行しても同じ結果になる。
func EnsureSecondaryLanguageColumns(ctx context.Context, databaseURL string, policy RetryPolicy, logger *slog.Logger) (added []string, err error) {
	logger.Info("connecting to database for secondary language migration")

	db, err := Connect(ctx, databaseURL, policy, logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	added, err = addMissingColumns(ctx, db)
	if err != nil {
		logger.Error("secondary language migration failed", slog.String("error", err.Error()))
		return nil, err
	}

	logger.Info("secondary language migration completed",
		slog.Any("added_columns", added),
	)
	return added, nil
}

// addMissingColumns は現在のスキーマの既存カラムを information_schema で確認し、不足分を同一トランザクションで追加する。
func addMissingColumns(ctx context.Context, db *sql.DB) ([]string, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT column_name
		 FROM information_schema.columns
		 WHERE table_schema = current_schema()
		   AND table_name = 'posts'
		   AND column_name IN ('title_it', 'content_it')`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect posts columns: %w", err)
	}

	existing := make(map[string]bool, len(secondaryLanguageColumns))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to read column name: %w", err)
		}
		existing[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate columns: %w", err)
	}

	added := missingColumns(existing)
	for _, col := range added {
		// カラム名は固定リスト由来のため識別子の埋め込みは安全
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE posts ADD COLUMN %s TEXT`, col)); err != nil {
			return nil, fmt.Errorf("failed to add column %s: %w", col, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return added, nil
}

// missingColumns は既存カラム集合に含まれない第2言語カラムを定義順で返す。
func missingColumns(existing map[string]bool) []string {
	var missing []string
	for _, col := range secondaryLanguageColumns {
		if !existing[col] {
			missing = append(missing, col)
		}
	}
	return missing
}
