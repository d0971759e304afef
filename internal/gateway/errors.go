package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/userplane/internal/middleware"
	"github.com/hitoshi/userplane/internal/model"
)

// asAPIError はエラーをAPIErrorとして取り出す。APIErrorでなければnilを返す。
func asAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// bearerOrCookieToken はAuthorization: Bearerヘッダーを優先し、
// なければセッションCookieからトークンを取り出す。
func bearerOrCookieToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return sessionToken(r)
}

// statusForPageError はHTMLページ描画時のHTTPステータスを返す。
func statusForPageError(err error) int {
	if apiErr := asAPIError(err); apiErr != nil {
		return middleware.StatusForErrorCode(apiErr.Code)
	}
	return http.StatusInternalServerError
}

// loginErrorMessage はログイン失敗時のユーザー向けメッセージを返す。
// アカウント列挙を防ぐため、認証失敗の詳細は区別しない。
func loginErrorMessage(err error) string {
	if apiErr := asAPIError(err); apiErr != nil {
		switch apiErr.Code {
		case model.ErrCodeInvalidCredentials:
			return "Login or password is incorrect."
		case model.ErrCodeAccountNotActive:
			return "This account is not active. Please contact the administrator."
		case model.ErrCodeDownstreamUnavailable:
			return "Login is temporarily unavailable. Please try again later."
		}
	}
	return "Login failed. Please try again."
}

// registerErrorMessage は登録失敗時のユーザー向けメッセージを返す。
func registerErrorMessage(err error) string {
	if apiErr := asAPIError(err); apiErr != nil {
		switch apiErr.Code {
		case model.ErrCodeDuplicateLogin:
			return "This login is already taken. Please choose another."
		case model.ErrCodeInvalidInput:
			return "Login and password are both required."
		case model.ErrCodeDownstreamUnavailable:
			return "Registration is temporarily unavailable. Please try again later."
		}
	}
	return "Registration failed. Please try again."
}

// pageErrorMessage はAPIErrorのコードに応じたメッセージ、なければfallbackを返す。
func pageErrorMessage(err error, fallback string) string {
	if apiErr := asAPIError(err); apiErr != nil {
		switch apiErr.Code {
		case model.ErrCodeInvalidInput:
			return "Full name is required."
		case model.ErrCodeDownstreamUnavailable:
			return "Service is temporarily unavailable. Please try again later."
		}
	}
	return fallback
}
