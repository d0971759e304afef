package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/userplane/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Create は通知を記録する。
func (r *PostgresNotificationRepo) Create(ctx context.Context, notification *model.Notification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, account_id, channel, message, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		notification.ID, notification.AccountID, notification.Channel, notification.Message, notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListByAccountID は指定アカウントの通知を新しい順に最大50件返す。
func (r *PostgresNotificationRepo) ListByAccountID(ctx context.Context, accountID string) ([]*model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, channel, message, created_at
		 FROM notifications
		 WHERE account_id = $1
		 ORDER BY created_at DESC
		 LIMIT 50`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		n := &model.Notification{}
		if err := rows.Scan(&n.ID, &n.AccountID, &n.Channel, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return notifications, nil
}

// CountByAccountID は指定アカウントの通知件数を返す。
func (r *PostgresNotificationRepo) CountByAccountID(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE account_id = $1`,
		accountID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
