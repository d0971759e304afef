package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/userplane/internal/middleware"
	"github.com/hitoshi/userplane/internal/model"
)

// NotificationServiceInterface は通知ハンドラーが必要とするサービスインターフェース。
type NotificationServiceInterface interface {
	Notify(ctx context.Context, accountID, channel, message string) (*model.Notification, error)
	List(ctx context.Context, accountID string) ([]*model.Notification, error)
}

// NotificationHandler は通知関連のHTTPハンドラー。
type NotificationHandler struct {
	service NotificationServiceInterface
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(service NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// notifyRequest は通知記録のリクエストボディ。
type notifyRequest struct {
	AccountID string `json:"account_id"`
	Channel   string `json:"channel,omitempty"`
	Message   string `json:"message"`
}

// notificationResponse は通知のレスポンスボディ。
type notificationResponse struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Channel   string `json:"channel"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

func newNotificationResponse(n *model.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		AccountID: n.AccountID,
		Channel:   n.Channel,
		Message:   n.Message,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}

// Notify は通知を記録する。
// POST /notify
func (h *NotificationHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidInputError("request body must be valid JSON"))
		return
	}

	notification, err := h.service.Notify(r.Context(), req.AccountID, req.Channel, req.Message)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newNotificationResponse(notification))
}

// List は指定アカウントの通知一覧を新しい順に返す。
// GET /notifications/{id}
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	notifications, err := h.service.List(r.Context(), id)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	items := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, newNotificationResponse(n))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account_id":    id,
		"notifications": items,
	})
}
