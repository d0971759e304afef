// Package gateway はセッションゲートウェイを提供する。
// ブラウザ向けのセッションCookieを管理し、認証サービスと業務サービスへ
// リクエストを仲介する。下流の検証に到達できない場合は認証失敗として扱う。
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/userplane/internal/metrics"
	"github.com/hitoshi/userplane/internal/middleware"
	"github.com/hitoshi/userplane/internal/model"
)

// 下流サービスのメトリクスラベル。
const (
	serviceAuth     = "auth"
	servicePlatform = "platform"
)

// client は下流サービス呼び出しの共通処理を持つ。
type client struct {
	baseURL string
	service string
	http    *http.Client
	metrics metrics.Recorder
}

// doJSON は下流サービスへJSONリクエストを送り、レスポンスをoutにデコードする。
// トランスポートエラー・タイムアウト・5xxはDOWNSTREAM_UNAVAILABLEに写像する。
// 4xxは下流の統一エラーフォーマットをAPIErrorとして復元する。
func (c *client) doJSON(ctx context.Context, method, path string, headers map[string]string, reqBody, out any) error {
	var body io.Reader
	if reqBody != nil {
		buf, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.RecordDownstreamLatency(c.service, time.Since(start))
	if err != nil {
		c.metrics.RecordDownstreamFailure(c.service)
		slog.Warn("downstream request failed",
			slog.String("service", c.service),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return model.NewDownstreamUnavailableError(c.service)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		c.metrics.RecordDownstreamFailure(c.service)
		slog.Warn("downstream returned server error",
			slog.String("service", c.service),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return model.NewDownstreamUnavailableError(c.service)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.metrics.RecordDownstreamFailure(c.service)
			return model.NewDownstreamUnavailableError(c.service)
		}
	}

	return nil
}

// decodeAPIError は下流の統一エラーレスポンスをAPIErrorとして復元する。
// デコードできないボディはTOKEN_INVALID相当ではなく汎用エラーにする。
func decodeAPIError(resp *http.Response) error {
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Code == "" {
		return &model.APIError{
			Code:     "UPSTREAM_ERROR",
			Message:  fmt.Sprintf("予期しない応答を受信しました（status: %d）。", resp.StatusCode),
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		}
	}
	return &model.APIError{
		Code:     body.Code,
		Message:  body.Message,
		Category: body.Category,
		Action:   body.Action,
	}
}

// AuthClient は認証サービスへのHTTPクライアント。
type AuthClient struct {
	client
}

// NewAuthClient はAuthClientを生成する。
func NewAuthClient(baseURL string, timeout time.Duration, recorder metrics.Recorder) *AuthClient {
	return &AuthClient{client{
		baseURL: strings.TrimRight(baseURL, "/"),
		service: serviceAuth,
		http:    &http.Client{Timeout: timeout},
		metrics: recorder,
	}}
}

// LoginResponse は認証サービスのログイン応答。
type LoginResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id"`
	Login     string `json:"login"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
}

// Register は認証サービスにアカウント登録を依頼する。
func (c *AuthClient) Register(ctx context.Context, login, password string) error {
	body := map[string]string{"login": login, "password": password}
	return c.doJSON(ctx, http.MethodPost, "/register", nil, body, nil)
}

// Login は認証サービスにログインを依頼し、発行されたトークンを返す。
func (c *AuthClient) Login(ctx context.Context, login, password string) (*LoginResponse, error) {
	body := map[string]string{"login": login, "password": password}
	var out LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/login", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate はトークンを認証サービスで検証し、アイデンティティを返す。
// 認証サービスに到達できない場合はエラーを返す（フェイルクローズ）。
func (c *AuthClient) Validate(ctx context.Context, token string) (*model.Identity, error) {
	headers := map[string]string{"Authorization": "Bearer " + token}
	var out struct {
		Valid     bool   `json:"valid"`
		AccountID string `json:"account_id"`
		Login     string `json:"login"`
		Status    string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/validate", headers, nil, &out); err != nil {
		return nil, err
	}

	status, err := model.ParseAccountStatus(out.Status)
	if err != nil {
		return nil, model.NewDownstreamUnavailableError(c.service)
	}

	return &model.Identity{
		AccountID: out.AccountID,
		Login:     out.Login,
		Status:    status,
	}, nil
}

// Logout はトークンの失効を認証サービスに依頼する。
func (c *AuthClient) Logout(ctx context.Context, token string) error {
	headers := map[string]string{"Authorization": "Bearer " + token}
	return c.doJSON(ctx, http.MethodPost, "/logout", headers, nil, nil)
}

// Ready は認証サービスのreadinessを確認する。
// ゲートウェイ自身のreadinessは認証サービスへの到達性に委譲する。
func (c *AuthClient) Ready(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/health/ready", nil, nil, nil)
}

// PlatformClient は業務サービスへのHTTPクライアント。
// 解決済みアイデンティティをヘッダーで伝搬する。
type PlatformClient struct {
	client
}

// NewPlatformClient はPlatformClientを生成する。
func NewPlatformClient(baseURL string, timeout time.Duration, recorder metrics.Recorder) *PlatformClient {
	return &PlatformClient{client{
		baseURL: strings.TrimRight(baseURL, "/"),
		service: servicePlatform,
		http:    &http.Client{Timeout: timeout},
		metrics: recorder,
	}}
}

// identityHeaders は業務サービスへ伝搬するアイデンティティヘッダーを構築する。
func identityHeaders(accountID string) map[string]string {
	return map[string]string{middleware.IdentityHeader: accountID}
}

// ProfileResponse は業務サービスのプロフィール応答。
type ProfileResponse struct {
	AccountID string `json:"account_id"`
	FullName  string `json:"full_name"`
	Bio       string `json:"bio"`
	UpdatedAt string `json:"updated_at"`
}

// GetProfile は指定アカウントのプロフィールを取得する。
func (c *PlatformClient) GetProfile(ctx context.Context, accountID string) (*ProfileResponse, error) {
	var out ProfileResponse
	err := c.doJSON(ctx, http.MethodGet, "/profiles/"+accountID, identityHeaders(accountID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveProfile はプロフィールを作成または更新する。
func (c *PlatformClient) SaveProfile(ctx context.Context, accountID, fullName, bio string) (*ProfileResponse, error) {
	body := map[string]string{"full_name": fullName, "bio": bio}
	var out ProfileResponse
	err := c.doJSON(ctx, http.MethodPut, "/profiles/"+accountID, identityHeaders(accountID), body, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Notify は通知依頼を業務サービスへそのまま中継する。
func (c *PlatformClient) Notify(ctx context.Context, requesterID string, payload map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.doJSON(ctx, http.MethodPost, "/notify", identityHeaders(requesterID), payload, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Report は指定アカウントの集計レポートを取得する。
// レスポンスは整形せずそのまま中継するため、汎用マップで受け取る。
func (c *PlatformClient) Report(ctx context.Context, requesterID, targetID string) (map[string]any, error) {
	var out map[string]any
	err := c.doJSON(ctx, http.MethodGet, "/reports/"+targetID, identityHeaders(requesterID), nil, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}
