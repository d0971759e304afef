package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/userplane/internal/middleware"
	"github.com/hitoshi/userplane/internal/model"
)

// ReportServiceInterface はレポートハンドラーが必要とするサービスインターフェース。
type ReportServiceInterface interface {
	Build(ctx context.Context, accountID string) (*model.Report, error)
}

// ReportHandler はレポート関連のHTTPハンドラー。
type ReportHandler struct {
	service ReportServiceInterface
}

// NewReportHandler はReportHandlerを生成する。
func NewReportHandler(service ReportServiceInterface) *ReportHandler {
	return &ReportHandler{service: service}
}

// Build は指定アカウントの集計レポートを返す。
// GET /reports/{id}
func (h *ReportHandler) Build(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	report, err := h.service.Build(r.Context(), id)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	body := map[string]any{
		"account_id":         report.AccountID,
		"login":              report.Login,
		"status":             string(report.Status),
		"registered_at":      report.RegisteredAt.Format(time.RFC3339),
		"notification_count": report.NotificationCount,
		"generated_at":       report.GeneratedAt.Format(time.RFC3339),
	}
	if report.Profile != nil {
		body["profile"] = newProfileResponse(report.Profile)
	} else {
		body["profile"] = nil
	}

	writeJSON(w, http.StatusOK, body)
}
