package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/userplane/internal/middleware"
	"github.com/hitoshi/userplane/internal/model"
)

// --- モック定義 ---

// noopRecorder はmetrics.Recorderの何もしない実装。
type noopRecorder struct{}

func (noopRecorder) RecordRegistration()                           {}
func (noopRecorder) RecordLogin(string)                            {}
func (noopRecorder) RecordValidation(string)                       {}
func (noopRecorder) RecordRevocation()                             {}
func (noopRecorder) RecordDownstreamLatency(string, time.Duration) {}
func (noopRecorder) RecordDownstreamFailure(string)                {}

func writeAPIError(w http.ResponseWriter, status int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, status, apiErr)
}

// --- AuthClient テスト ---

func TestAuthClient_Login_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body["login"] != "alice" {
			t.Errorf("login = %q, want %q", body["login"], "alice")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"token":      "token-xyz",
			"account_id": "acc-001",
			"login":      "alice",
			"status":     "active",
			"expires_at": time.Now().Add(2 * time.Hour).Format(time.RFC3339),
		})
	}))
	defer server.Close()

	c := NewAuthClient(server.URL, 2*time.Second, noopRecorder{})

	result, err := c.Login(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token != "token-xyz" {
		t.Errorf("token = %q, want %q", result.Token, "token-xyz")
	}
	if result.AccountID != "acc-001" {
		t.Errorf("account_id = %q, want %q", result.AccountID, "acc-001")
	}
}

func TestAuthClient_Login_InvalidCredentialsDecoded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
	}))
	defer server.Close()

	c := NewAuthClient(server.URL, 2*time.Second, noopRecorder{})

	_, err := c.Login(context.Background(), "alice", "wrong")
	apiErr := asAPIError(err)
	if apiErr == nil {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeInvalidCredentials)
	}
}

func TestAuthClient_Validate_ServerErrorIsUnavailable(t *testing.T) {
	// 下流の5xxはフェイルクローズでDOWNSTREAM_UNAVAILABLEに写像する
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewAuthClient(server.URL, 2*time.Second, noopRecorder{})

	_, err := c.Validate(context.Background(), "some-token")
	apiErr := asAPIError(err)
	if apiErr == nil || apiErr.Code != model.ErrCodeDownstreamUnavailable {
		t.Errorf("error = %v, want DOWNSTREAM_UNAVAILABLE", err)
	}
}

func TestAuthClient_Validate_TransportErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // 接続先を閉じてトランスポートエラーを起こす

	c := NewAuthClient(server.URL, time.Second, noopRecorder{})

	_, err := c.Validate(context.Background(), "some-token")
	apiErr := asAPIError(err)
	if apiErr == nil || apiErr.Code != model.ErrCodeDownstreamUnavailable {
		t.Errorf("error = %v, want DOWNSTREAM_UNAVAILABLE", err)
	}
}

func TestAuthClient_Validate_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := NewAuthClient(server.URL, 20*time.Millisecond, noopRecorder{})

	_, err := c.Validate(context.Background(), "some-token")
	apiErr := asAPIError(err)
	if apiErr == nil || apiErr.Code != model.ErrCodeDownstreamUnavailable {
		t.Errorf("error = %v, want DOWNSTREAM_UNAVAILABLE on timeout", err)
	}
}

func TestAuthClient_Validate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-abc" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer token-abc")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"valid":      true,
			"account_id": "acc-001",
			"login":      "alice",
			"status":     "active",
		})
	}))
	defer server.Close()

	c := NewAuthClient(server.URL, 2*time.Second, noopRecorder{})

	identity, err := c.Validate(context.Background(), "token-abc")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if identity.AccountID != "acc-001" {
		t.Errorf("account ID = %q, want %q", identity.AccountID, "acc-001")
	}
	if identity.Status != model.StatusActive {
		t.Errorf("status = %q, want %q", identity.Status, model.StatusActive)
	}
}

// --- PlatformClient テスト ---

func TestPlatformClient_GetProfile_PropagatesIdentity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(middleware.IdentityHeader); got != "acc-001" {
			t.Errorf("identity header = %q, want %q", got, "acc-001")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"account_id": "acc-001",
			"full_name":  "Alice Example",
		})
	}))
	defer server.Close()

	c := NewPlatformClient(server.URL, 2*time.Second, noopRecorder{})

	profile, err := c.GetProfile(context.Background(), "acc-001")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if profile.FullName != "Alice Example" {
		t.Errorf("full name = %q, want %q", profile.FullName, "Alice Example")
	}
}

func TestPlatformClient_GetProfile_NotFoundDecoded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusNotFound, model.NewProfileNotFoundError("acc-001"))
	}))
	defer server.Close()

	c := NewPlatformClient(server.URL, 2*time.Second, noopRecorder{})

	_, err := c.GetProfile(context.Background(), "acc-001")
	apiErr := asAPIError(err)
	if apiErr == nil || apiErr.Code != model.ErrCodeProfileNotFound {
		t.Errorf("error = %v, want PROFILE_NOT_FOUND", err)
	}
}

func TestPlatformClient_Notify_RelaysPayloadWithIdentity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/notify" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/notify")
		}
		if got := r.Header.Get(middleware.IdentityHeader); got != "acc-001" {
			t.Errorf("identity header = %q, want %q", got, "acc-001")
		}

		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["message"] != "hello" {
			t.Errorf("message = %v, want %q", body["message"], "hello")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": "notif-001"})
	}))
	defer server.Close()

	c := NewPlatformClient(server.URL, 2*time.Second, noopRecorder{})

	result, err := c.Notify(context.Background(), "acc-001", map[string]any{"message": "hello"})
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if result["id"] != "notif-001" {
		t.Errorf("id = %v, want %q", result["id"], "notif-001")
	}
}

func TestPlatformClient_Report_RelaysBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reports/acc-002" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/reports/acc-002")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"account_id":         "acc-002",
			"notification_count": 7,
		})
	}))
	defer server.Close()

	c := NewPlatformClient(server.URL, 2*time.Second, noopRecorder{})

	report, err := c.Report(context.Background(), "acc-001", "acc-002")
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if report["account_id"] != "acc-002" {
		t.Errorf("account_id = %v, want %q", report["account_id"], "acc-002")
	}
	if report["notification_count"] != float64(7) {
		t.Errorf("notification_count = %v, want 7", report["notification_count"])
	}
}
