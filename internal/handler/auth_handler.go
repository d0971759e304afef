// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/userplane/internal/auth"
	"github.com/hitoshi/userplane/internal/metrics"
	"github.com/hitoshi/userplane/internal/middleware"
	"github.com/hitoshi/userplane/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, login, password, status string) (*model.Account, error)
	Login(ctx context.Context, login, password string) (*auth.LoginResult, error)
	Validate(ctx context.Context, token string) (*model.Identity, error)
	Logout(ctx context.Context, token string) (revoked bool, err error)
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	SetStatus(ctx context.Context, id, status string) (model.AccountStatus, error)
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics metrics.Recorder
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, recorder metrics.Recorder) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: recorder,
	}
}

// credentialsRequest は登録・ログインの共通リクエストボディ。
type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Status   string `json:"status,omitempty"`
}

// Register は新規アカウントを作成する。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidInputError("request body must be valid JSON"))
		return
	}

	account, err := h.service.Register(r.Context(), req.Login, req.Password, req.Status)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	h.metrics.RecordRegistration()

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     account.ID,
		"login":  account.Login,
		"status": string(account.Status),
	})
}

// Login は認証情報を検証してトークンを発行する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidInputError("request body must be valid JSON"))
		return
	}

	result, err := h.service.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		h.metrics.RecordLogin(loginOutcome(err))
		middleware.WriteServiceError(w, err)
		return
	}

	h.metrics.RecordLogin(metrics.OutcomeSuccess)

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      result.Token,
		"account_id": result.Identity.AccountID,
		"login":      result.Identity.Login,
		"status":     string(result.Identity.Status),
		"expires_at": result.ExpiresAt.Format(time.RFC3339),
	})
}

// Validate はトークンを検証してアイデンティティを返す。
// GET /validate
// トークンはAuthorization: Bearerヘッダーまたはtokenクエリパラメータで受け取る。
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)

	identity, err := h.service.Validate(r.Context(), token)
	if err != nil {
		h.metrics.RecordValidation(validationOutcome(err))
		middleware.WriteServiceError(w, err)
		return
	}

	h.metrics.RecordValidation(metrics.OutcomeSuccess)

	writeJSON(w, http.StatusOK, map[string]any{
		"valid":      true,
		"account_id": identity.AccountID,
		"login":      identity.Login,
		"status":     string(identity.Status),
	})
}

// Logout はトークンを失効させる。
// POST /logout
// ステートフル戦略ではセッション行が削除され、即時に失効する。
// 失効メトリクスは実際に即時失効した場合のみ記録する
// （ステートレス戦略のログアウトは失効を伴わない）。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)

	revoked, err := h.service.Logout(r.Context(), token)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	if revoked {
		h.metrics.RecordRevocation()
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAccount はアカウント情報を返す。
// GET /accounts/{id}
func (h *AuthHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         account.ID,
		"login":      account.Login,
		"status":     string(account.Status),
		"created_at": account.CreatedAt.Format(time.RFC3339),
	})
}

// statusRequest はステータス変更のリクエストボディ。
type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus はアカウントの状態を変更する。
// PATCH /accounts/{id}/status
func (h *AuthHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidInputError("request body must be valid JSON"))
		return
	}

	status, err := h.service.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account_id": id,
		"status":     string(status),
	})
}

// extractToken はリクエストからトークンを取り出す。
// Authorization: Bearerヘッダーを優先し、なければtokenクエリパラメータを見る。
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// loginOutcome はログイン失敗エラーをメトリクスのoutcomeラベルに変換する。
func loginOutcome(err error) string {
	if apiErr := asAPIError(err); apiErr != nil {
		switch apiErr.Code {
		case model.ErrCodeInvalidCredentials, model.ErrCodeAccountNotActive:
			return metrics.OutcomeRejected
		}
	}
	return metrics.OutcomeInvalid
}

// validationOutcome は検証失敗エラーをメトリクスのoutcomeラベルに変換する。
func validationOutcome(err error) string {
	if apiErr := asAPIError(err); apiErr != nil {
		switch apiErr.Code {
		case model.ErrCodeMissingToken:
			return metrics.OutcomeMissing
		case model.ErrCodeTokenExpired:
			return metrics.OutcomeExpired
		}
	}
	return metrics.OutcomeInvalid
}
