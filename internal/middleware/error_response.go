// Package middleware はHTTPミドルウェアと統一レスポンスヘルパーを提供する。
package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/userplane/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// StatusForErrorCode はエラーコードに対応するHTTPステータスを返す。
func StatusForErrorCode(code string) int {
	switch code {
	case model.ErrCodeInvalidInput, model.ErrCodeInvalidStatus:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredentials, model.ErrCodeMissingToken,
		model.ErrCodeTokenExpired, model.ErrCodeTokenInvalid:
		return http.StatusUnauthorized
	case model.ErrCodeAccountNotActive:
		return http.StatusForbidden
	case model.ErrCodeAccountNotFound, model.ErrCodeProfileNotFound:
		return http.StatusNotFound
	case model.ErrCodeDuplicateLogin:
		return http.StatusConflict
	case model.ErrCodeDownstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError はサービス層のエラーを統一フォーマットで書き込む。
// APIError以外のエラーは詳細をログに記録し、500として扱う。
func WriteServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteErrorResponse(w, StatusForErrorCode(apiErr.Code), apiErr)
		return
	}

	slog.Error("unhandled service error", slog.String("error", err.Error()))
	WriteInternalServerError(w)
}
