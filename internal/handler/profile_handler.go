package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/userplane/internal/middleware"
	"github.com/hitoshi/userplane/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	Get(ctx context.Context, accountID string) (*model.Profile, error)
	Save(ctx context.Context, accountID, fullName, bio string) (*model.Profile, error)
}

// ProfileHandler はプロフィール関連のHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// profileResponse はプロフィールのレスポンスボディ。
type profileResponse struct {
	AccountID string `json:"account_id"`
	FullName  string `json:"full_name"`
	Bio       string `json:"bio"`
	UpdatedAt string `json:"updated_at"`
}

func newProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		AccountID: p.AccountID,
		FullName:  p.FullName,
		Bio:       p.Bio,
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

// Get はプロフィールを取得する。
// GET /profiles/{id}
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	profile, err := h.service.Get(r.Context(), id)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newProfileResponse(profile))
}

// profileRequest はプロフィール保存のリクエストボディ。
type profileRequest struct {
	FullName string `json:"full_name"`
	Bio      string `json:"bio"`
}

// Save はプロフィールを作成または更新する。
// PUT /profiles/{id}
func (h *ProfileHandler) Save(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidInputError("request body must be valid JSON"))
		return
	}

	profile, err := h.service.Save(r.Context(), id, req.FullName, req.Bio)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newProfileResponse(profile))
}
