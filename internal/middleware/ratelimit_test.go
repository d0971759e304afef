package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestIPRateLimiter_AllowsWithinBurst(t *testing.T) {
	rl := NewIPRateLimiter(IPRateLimiterConfig{
		Rate:            rate.Limit(1),
		Burst:           3,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Result().StatusCode, http.StatusOK)
		}
	}
}

func TestIPRateLimiter_RejectsBeyondBurst(t *testing.T) {
	rl := NewIPRateLimiter(IPRateLimiterConfig{
		Rate:            rate.Limit(0.01),
		Burst:           2,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var lastStatus int
	var retryAfter string
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.2:12345"
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)
		lastStatus = w.Result().StatusCode
		retryAfter = w.Result().Header.Get("Retry-After")
	}

	if lastStatus != http.StatusTooManyRequests {
		t.Errorf("third request: status = %d, want %d", lastStatus, http.StatusTooManyRequests)
	}
	if retryAfter == "" {
		t.Error("expected Retry-After header on rate-limited response")
	}
}

func TestIPRateLimiter_IsolatesClients(t *testing.T) {
	rl := NewIPRateLimiter(IPRateLimiterConfig{
		Rate:            rate.Limit(0.01),
		Burst:           1,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// クライアントAがバーストを使い切る
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.3:1111"
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	// クライアントBは影響を受けない
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.4:2222"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("client B: status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	if count := rl.LimiterCount(); count != 2 {
		t.Errorf("LimiterCount() = %d, want 2", count)
	}
}

func TestNewIPRateLimiterConfig(t *testing.T) {
	cfg := NewIPRateLimiterConfig(60)

	if cfg.Rate != rate.Limit(1) {
		t.Errorf("Rate = %v, want 1 req/sec for 60 req/min", cfg.Rate)
	}
	if cfg.Burst != 60 {
		t.Errorf("Burst = %d, want 60", cfg.Burst)
	}
}
