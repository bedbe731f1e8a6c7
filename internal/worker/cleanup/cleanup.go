// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval はジョブの実行間隔。
const DefaultInterval = time.Hour

// SessionPurger は期限切れセッションを削除し、削除件数を返す。
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// CleanupJob は期限切れセッションの削除ジョブ。
// 冪等で、削除対象がない場合もエラーにならない。
type CleanupJob struct {
	purger SessionPurger
	logger *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(purger SessionPurger, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		purger: purger,
		logger: logger,
	}
}

// Run は期限切れセッションを1回削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.purger.PurgeExpiredSessions(ctx)
	if err != nil {
		j.logger.Error("session cleanup failed",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("session cleanup failed: %w", err)
	}

	j.logger.Info("session cleanup completed",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は起動直後に1回実行し、その後intervalごとにRunを呼ぶ。
// コンテキストがキャンセルされるまで実行を継続する。失敗はログに記録して次回に持ち越す。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("session cleanup job started", slog.Duration("interval", interval))

	_ = j.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("session cleanup job stopped")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
