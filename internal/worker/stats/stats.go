// Package stats は日次の利用統計集計ジョブを提供する。
// 総アカウント数、直近24時間の新規アカウント数・新規セッション数、
// 状態別アカウント数を集計し、構造化ログとして出力する。
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/userplane/internal/model"
)

// 集計対象の期間。
const statsWindow = 24 * time.Hour

// AccountCounter はアカウント集計に必要なクエリのインターフェース。
type AccountCounter interface {
	// CountAll は総アカウント数を返す。
	CountAll(ctx context.Context) (int64, error)

	// CountCreatedSince は指定時刻以降に作成されたアカウント数を返す。
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)

	// CountByStatus は状態ごとのアカウント数を返す。
	CountByStatus(ctx context.Context) (map[model.AccountStatus]int64, error)
}

// SessionCounter はセッション集計に必要なクエリのインターフェース。
type SessionCounter interface {
	// CountCreatedSince は指定時刻以降に作成されたセッション数を返す。
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
}

// Snapshot は1回の集計結果。
type Snapshot struct {
	TotalAccounts    int64
	NewAccounts24h   int64
	NewSessions24h   int64
	AccountsByStatus map[model.AccountStatus]int64
	CollectedAt      time.Time
}

// StatsJob は日次統計集計ジョブ。
// 読み取り専用のため、遅延や失敗がサービスの認証判断に影響することはない。
type StatsJob struct {
	accounts AccountCounter
	sessions SessionCounter
	logger   *slog.Logger
	now      func() time.Time
}

// NewStatsJob は新しいStatsJobを生成する。
func NewStatsJob(accounts AccountCounter, sessions SessionCounter, logger *slog.Logger) *StatsJob {
	return &StatsJob{
		accounts: accounts,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// Run は直近24時間の利用統計を集計し、ログに出力する。
func (j *StatsJob) Run(ctx context.Context) (*Snapshot, error) {
	start := j.now()
	since := start.Add(-statsWindow)

	total, err := j.accounts.CountAll(ctx)
	if err != nil {
		return nil, j.fail("総アカウント数", err)
	}

	newAccounts, err := j.accounts.CountCreatedSince(ctx, since)
	if err != nil {
		return nil, j.fail("新規アカウント数", err)
	}

	newSessions, err := j.sessions.CountCreatedSince(ctx, since)
	if err != nil {
		return nil, j.fail("新規セッション数", err)
	}

	byStatus, err := j.accounts.CountByStatus(ctx)
	if err != nil {
		return nil, j.fail("状態別アカウント数", err)
	}

	snapshot := &Snapshot{
		TotalAccounts:    total,
		NewAccounts24h:   newAccounts,
		NewSessions24h:   newSessions,
		AccountsByStatus: byStatus,
		CollectedAt:      start,
	}

	args := []any{
		slog.Int64("total_accounts", snapshot.TotalAccounts),
		slog.Int64("new_accounts_24h", snapshot.NewAccounts24h),
		slog.Int64("new_sessions_24h", snapshot.NewSessions24h),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	}
	for status, count := range snapshot.AccountsByStatus {
		args = append(args, slog.Int64("accounts_"+string(status), count))
	}
	j.logger.Info("日次統計の集計が完了しました", args...)

	return snapshot, nil
}

func (j *StatsJob) fail(target string, err error) error {
	j.logger.Error("日次統計の集計に失敗しました",
		slog.String("target", target),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%sの集計に失敗: %w", target, err)
}
