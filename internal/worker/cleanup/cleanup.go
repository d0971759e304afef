// Package cleanup は期限切れセッションの自動削除ジョブを提供する。
// ステートフル戦略ではセッション行がデータベースに蓄積するため、
// 有効期限を過ぎた行を日次バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/userplane/internal/repository"
)

// CleanupJob は期限切れセッションの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
// 期限切れセッションはトークン検証時点で既に拒否されているため、
// このジョブの遅延や失敗が認証判断に影響することはない。
type CleanupJob struct {
	sessions  repository.SessionRepository
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。
// retentionは期限切れ後もセッション行を保持する猶予期間。
// ゼロの場合は期限切れと同時に削除対象となる。
func NewCleanupJob(sessions repository.SessionRepository, retention time.Duration, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessions:  sessions,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Run は有効期限を過ぎたセッション行を削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.now()

	deletedCount, err := j.sessions.DeleteExpired(ctx, start.Add(-j.retention))
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
