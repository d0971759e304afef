package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/userplane/internal/metrics"
	"github.com/hitoshi/userplane/internal/middleware"
)

func newTestAuthRouter(t *testing.T) http.Handler {
	t.Helper()

	loginLimiter := middleware.NewIPRateLimiter(middleware.NewIPRateLimiterConfig(600))
	t.Cleanup(loginLimiter.Stop)
	generalLimiter := middleware.NewIPRateLimiter(middleware.NewIPRateLimiterConfig(600))
	t.Cleanup(generalLimiter.Stop)

	registry := prometheus.NewRegistry()

	return NewAuthRouter(&AuthRouterDeps{
		AuthService:    &mockAuthService{},
		Health:         NewHealthChecker(nil),
		Metrics:        metrics.NewCollector(registry),
		MetricsHandler: metrics.Handler(registry),

		CORSAllowedOrigin: "http://localhost:3000",
		LoginLimiter:      loginLimiter,
		GeneralLimiter:    generalLimiter,
	})
}

func TestAuthRouter_Routes(t *testing.T) {
	r := newTestAuthRouter(t)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health/live", "", http.StatusOK},
		{http.MethodGet, "/health/ready", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodPost, "/register", `{"login":"alice","password":"secret"}`, http.StatusCreated},
		{http.MethodPost, "/login", `{"login":"alice","password":"secret"}`, http.StatusOK},
		{http.MethodGet, "/validate?token=abc", "", http.StatusOK},
		{http.MethodPost, "/logout", "", http.StatusNoContent},
		{http.MethodGet, "/accounts/acc-001", "", http.StatusOK},
		{http.MethodPatch, "/accounts/acc-001/status", `{"status":"blocked"}`, http.StatusOK},
		{http.MethodGet, "/no-such-route", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			} else {
				req = httptest.NewRequest(tt.method, tt.path, nil)
			}
			req.RemoteAddr = "10.0.0.1:12345"
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Result().StatusCode != tt.want {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, tt.want)
			}
		})
	}
}

func TestAuthRouter_CORSHeaders(t *testing.T) {
	r := newTestAuthRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want %q", origin, "http://localhost:3000")
	}
}

func newTestPlatformRouter(t *testing.T) http.Handler {
	t.Helper()

	generalLimiter := middleware.NewIPRateLimiter(middleware.NewIPRateLimiterConfig(600))
	t.Cleanup(generalLimiter.Stop)

	return NewPlatformRouter(&PlatformRouterDeps{
		ProfileService:      &mockProfileService{},
		NotificationService: &mockNotificationService{},
		ReportService:       &mockReportService{},
		Health:              NewHealthChecker(nil),

		CORSAllowedOrigin: "http://localhost:3000",
		GeneralLimiter:    generalLimiter,
	})
}

func TestPlatformRouter_RequiresIdentityHeader(t *testing.T) {
	r := newTestPlatformRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/profiles/acc-001", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d without identity header", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestPlatformRouter_Routes(t *testing.T) {
	r := newTestPlatformRouter(t)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/profiles/acc-001", "", http.StatusOK},
		{http.MethodPut, "/profiles/acc-001", `{"full_name":"Alice Example"}`, http.StatusOK},
		{http.MethodPost, "/notify", `{"account_id":"acc-001","message":"hi"}`, http.StatusCreated},
		{http.MethodGet, "/notifications/acc-001", "", http.StatusOK},
		{http.MethodGet, "/reports/acc-001", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			} else {
				req = httptest.NewRequest(tt.method, tt.path, nil)
			}
			req.RemoteAddr = "10.0.0.1:12345"
			req.Header.Set(middleware.IdentityHeader, "acc-001")
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Result().StatusCode != tt.want {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, tt.want)
			}
		})
	}
}

func TestPlatformRouter_HealthOutsideIdentityChain(t *testing.T) {
	r := newTestPlatformRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d without identity header", w.Result().StatusCode, http.StatusOK)
	}
}
