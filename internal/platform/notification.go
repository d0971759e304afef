package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/userplane/internal/model"
	"github.com/hitoshi/userplane/internal/repository"
)

// defaultChannel はチャネル未指定時の通知チャネル。
const defaultChannel = "email"

// NotificationService は通知の記録と一覧取得を提供する。
type NotificationService struct {
	notifications repository.NotificationRepository
}

// NewNotificationService はNotificationServiceを生成する。
func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// Notify は通知を記録する。messageは必須。
func (s *NotificationService) Notify(ctx context.Context, accountID, channel, message string) (*model.Notification, error) {
	message = strings.TrimSpace(message)
	if accountID == "" || message == "" {
		return nil, model.NewInvalidInputError("account_id and message are required")
	}

	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = defaultChannel
	}

	notification := &model.Notification{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Channel:   channel,
		Message:   message,
		CreatedAt: time.Now(),
	}

	if err := s.notifications.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	slog.Info("notification queued",
		slog.String("notification_id", notification.ID),
		slog.String("account_id", accountID),
		slog.String("channel", channel),
	)

	return notification, nil
}

// List は指定アカウントの通知を新しい順に返す。
func (s *NotificationService) List(ctx context.Context, accountID string) ([]*model.Notification, error) {
	notifications, err := s.notifications.ListByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}
