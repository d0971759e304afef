package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/userplane/internal/model"
)

// --- モック定義 ---

// mockAccountCounter はAccountCounterのモック実装。
type mockAccountCounter struct {
	countAllFn          func(ctx context.Context) (int64, error)
	countCreatedSinceFn func(ctx context.Context, since time.Time) (int64, error)
	countByStatusFn     func(ctx context.Context) (map[model.AccountStatus]int64, error)
}

func (m *mockAccountCounter) CountAll(ctx context.Context) (int64, error) {
	if m.countAllFn != nil {
		return m.countAllFn(ctx)
	}
	return 0, nil
}

func (m *mockAccountCounter) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	if m.countCreatedSinceFn != nil {
		return m.countCreatedSinceFn(ctx, since)
	}
	return 0, nil
}

func (m *mockAccountCounter) CountByStatus(ctx context.Context) (map[model.AccountStatus]int64, error) {
	if m.countByStatusFn != nil {
		return m.countByStatusFn(ctx)
	}
	return map[model.AccountStatus]int64{}, nil
}

// mockSessionCounter はSessionCounterのモック実装。
type mockSessionCounter struct {
	countCreatedSinceFn func(ctx context.Context, since time.Time) (int64, error)
}

func (m *mockSessionCounter) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	if m.countCreatedSinceFn != nil {
		return m.countCreatedSinceFn(ctx, since)
	}
	return 0, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// --- テスト ---

func TestStatsJob_Run_CollectsSnapshot(t *testing.T) {
	accounts := &mockAccountCounter{
		countAllFn: func(ctx context.Context) (int64, error) { return 120, nil },
		countCreatedSinceFn: func(ctx context.Context, since time.Time) (int64, error) {
			return 5, nil
		},
		countByStatusFn: func(ctx context.Context) (map[model.AccountStatus]int64, error) {
			return map[model.AccountStatus]int64{
				model.StatusActive:  110,
				model.StatusBlocked: 10,
			}, nil
		},
	}
	sessions := &mockSessionCounter{
		countCreatedSinceFn: func(ctx context.Context, since time.Time) (int64, error) {
			return 37, nil
		},
	}

	job := NewStatsJob(accounts, sessions, discardLogger())

	snapshot, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if snapshot.TotalAccounts != 120 {
		t.Errorf("TotalAccounts = %d, want 120", snapshot.TotalAccounts)
	}
	if snapshot.NewAccounts24h != 5 {
		t.Errorf("NewAccounts24h = %d, want 5", snapshot.NewAccounts24h)
	}
	if snapshot.NewSessions24h != 37 {
		t.Errorf("NewSessions24h = %d, want 37", snapshot.NewSessions24h)
	}
	if snapshot.AccountsByStatus[model.StatusActive] != 110 {
		t.Errorf("active accounts = %d, want 110", snapshot.AccountsByStatus[model.StatusActive])
	}
}

func TestStatsJob_Run_Uses24HourWindow(t *testing.T) {
	var gotAccountSince, gotSessionSince time.Time
	accounts := &mockAccountCounter{
		countCreatedSinceFn: func(ctx context.Context, since time.Time) (int64, error) {
			gotAccountSince = since
			return 0, nil
		},
	}
	sessions := &mockSessionCounter{
		countCreatedSinceFn: func(ctx context.Context, since time.Time) (int64, error) {
			gotSessionSince = since
			return 0, nil
		},
	}

	job := NewStatsJob(accounts, sessions, discardLogger())

	if _, err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := time.Now().Add(-24 * time.Hour)
	for name, got := range map[string]time.Time{
		"accounts": gotAccountSince,
		"sessions": gotSessionSince,
	} {
		if got.Before(want.Add(-time.Second)) || got.After(want.Add(time.Second)) {
			t.Errorf("%s since = %v, want about %v", name, got, want)
		}
	}
}

func TestStatsJob_Run_LogsCollectedCounts(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	accounts := &mockAccountCounter{
		countAllFn: func(ctx context.Context) (int64, error) { return 8, nil },
	}
	job := NewStatsJob(accounts, &mockSessionCounter{}, logger)

	if _, err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v", err)
	}
	if entry["total_accounts"] != float64(8) {
		t.Errorf("total_accounts = %v, want 8", entry["total_accounts"])
	}
	if _, ok := entry["new_sessions_24h"]; !ok {
		t.Error("expected 'new_sessions_24h' field in log entry")
	}
}

func TestStatsJob_Run_RepositoryError(t *testing.T) {
	accounts := &mockAccountCounter{
		countAllFn: func(ctx context.Context) (int64, error) {
			return 0, errors.New("connection refused")
		},
	}

	job := NewStatsJob(accounts, &mockSessionCounter{}, discardLogger())

	if _, err := job.Run(context.Background()); err == nil {
		t.Error("Run() expected error when repository fails")
	}
}
