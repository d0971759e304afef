package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/userplane/internal/model"
)

// --- モック定義 ---

// mockNotificationService はNotificationServiceInterfaceのモック実装。
type mockNotificationService struct {
	notifyFn func(ctx context.Context, accountID, channel, message string) (*model.Notification, error)
	listFn   func(ctx context.Context, accountID string) ([]*model.Notification, error)
}

func (m *mockNotificationService) Notify(ctx context.Context, accountID, channel, message string) (*model.Notification, error) {
	if m.notifyFn != nil {
		return m.notifyFn(ctx, accountID, channel, message)
	}
	return &model.Notification{
		ID:        "notif-001",
		AccountID: accountID,
		Channel:   channel,
		Message:   message,
		CreatedAt: time.Now(),
	}, nil
}

func (m *mockNotificationService) List(ctx context.Context, accountID string) ([]*model.Notification, error) {
	if m.listFn != nil {
		return m.listFn(ctx, accountID)
	}
	return nil, nil
}

// --- POST /notify テスト ---

func TestNotificationHandler_Notify_Success(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{})

	body := strings.NewReader(`{"account_id":"acc-001","channel":"sms","message":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/notify", body)
	w := httptest.NewRecorder()

	h.Notify(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var got notificationResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if got.Channel != "sms" {
		t.Errorf("channel = %q, want %q", got.Channel, "sms")
	}
	if got.Message != "hello" {
		t.Errorf("message = %q, want %q", got.Message, "hello")
	}
}

func TestNotificationHandler_Notify_MissingMessage(t *testing.T) {
	svc := &mockNotificationService{
		notifyFn: func(ctx context.Context, accountID, channel, message string) (*model.Notification, error) {
			return nil, model.NewInvalidInputError("account_id and message are required")
		},
	}
	h := NewNotificationHandler(svc)

	body := strings.NewReader(`{"account_id":"acc-001"}`)
	req := httptest.NewRequest(http.MethodPost, "/notify", body)
	w := httptest.NewRecorder()

	h.Notify(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

// --- GET /notifications/{id} テスト ---

func TestNotificationHandler_List_Success(t *testing.T) {
	now := time.Now()
	svc := &mockNotificationService{
		listFn: func(ctx context.Context, accountID string) ([]*model.Notification, error) {
			return []*model.Notification{
				{ID: "n-2", AccountID: accountID, Channel: "email", Message: "second", CreatedAt: now},
				{ID: "n-1", AccountID: accountID, Channel: "email", Message: "first", CreatedAt: now.Add(-time.Hour)},
			}, nil
		},
	}
	h := NewNotificationHandler(svc)

	r := chi.NewRouter()
	r.Get("/notifications/{id}", h.List)

	req := httptest.NewRequest(http.MethodGet, "/notifications/acc-001", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got struct {
		AccountID     string                 `json:"account_id"`
		Notifications []notificationResponse `json:"notifications"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if got.AccountID != "acc-001" {
		t.Errorf("account_id = %q, want %q", got.AccountID, "acc-001")
	}
	if len(got.Notifications) != 2 {
		t.Fatalf("notifications length = %d, want 2", len(got.Notifications))
	}
	if got.Notifications[0].ID != "n-2" {
		t.Errorf("first notification = %q, want newest first", got.Notifications[0].ID)
	}
}

func TestNotificationHandler_List_Empty(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{})

	r := chi.NewRouter()
	r.Get("/notifications/{id}", h.List)

	req := httptest.NewRequest(http.MethodGet, "/notifications/acc-001", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	var got struct {
		Notifications []notificationResponse `json:"notifications"`
	}
	if err := json.NewDecoder(w.Result().Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	// 通知ゼロ件はnullではなく空配列で返す
	if got.Notifications == nil {
		t.Error("notifications must be an empty array, not null")
	}
}
