package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"
)

// HealthChecker はliveness/readinessプローブのハンドラー。
type HealthChecker struct {
	db *sql.DB
}

// NewHealthChecker はHealthCheckerを生成する。
// dbがnilの場合、readinessはデータベース確認をスキップする。
func NewHealthChecker(db *sql.DB) *HealthChecker {
	return &HealthChecker{db: db}
}

// Live はプロセスの生存を返す。依存先は確認しない。
// GET /health/live
func (h *HealthChecker) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready はリクエストを受け付けられる状態かを返す。
// データベースへの疎通が取れない場合は503を返す。
// GET /health/ready
func (h *HealthChecker) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"reason": "database unreachable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
