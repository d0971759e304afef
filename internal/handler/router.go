package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/userplane/internal/metrics"
	"github.com/hitoshi/userplane/internal/middleware"
)

// AuthRouterDeps はNewAuthRouterに必要な依存関係をまとめた構造体。
type AuthRouterDeps struct {
	AuthService    AuthServiceInterface
	Health         *HealthChecker
	Metrics        metrics.Recorder
	MetricsHandler http.Handler

	// ミドルウェア依存
	CORSAllowedOrigin string
	LoginLimiter      *middleware.IPRateLimiter
	GeneralLimiter    *middleware.IPRateLimiter
}

// NewAuthRouter は認証サービスの全ルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → CORS → RateLimit
//
// ログイン・登録は認証前エンドポイントのため専用の厳しいレート制限を適用する。
func NewAuthRouter(deps *AuthRouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.Metrics)

	// --- ヘルスチェック・メトリクス ---
	r.Get("/health/live", deps.Health.Live)
	r.Get("/health/ready", deps.Health.Ready)
	r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)

	// --- 認証前エンドポイント（専用レート制限） ---
	r.Group(func(r chi.Router) {
		r.Use(deps.LoginLimiter.Middleware())
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// --- トークン・アカウント操作 ---
	r.Group(func(r chi.Router) {
		r.Use(deps.GeneralLimiter.Middleware())
		r.Get("/validate", authHandler.Validate)
		r.Post("/logout", authHandler.Logout)

		r.Route("/accounts/{id}", func(r chi.Router) {
			r.Get("/", authHandler.GetAccount)
			r.Patch("/status", authHandler.SetStatus)
		})
	})

	return r
}

// PlatformRouterDeps はNewPlatformRouterに必要な依存関係をまとめた構造体。
type PlatformRouterDeps struct {
	ProfileService      ProfileServiceInterface
	NotificationService NotificationServiceInterface
	ReportService       ReportServiceInterface
	Health              *HealthChecker

	// ミドルウェア依存
	CORSAllowedOrigin string
	GeneralLimiter    *middleware.IPRateLimiter
}

// NewPlatformRouter は業務サービス（プロフィール・通知・レポート）の
// ルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// すべての業務ルートはゲートウェイが付与するアイデンティティヘッダーを要求する。
// ヘルスチェックのみチェーンの外に置く。
func NewPlatformRouter(deps *PlatformRouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	profileHandler := NewProfileHandler(deps.ProfileService)
	notificationHandler := NewNotificationHandler(deps.NotificationService)
	reportHandler := NewReportHandler(deps.ReportService)

	// --- ヘルスチェック ---
	r.Get("/health/live", deps.Health.Live)
	r.Get("/health/ready", deps.Health.Ready)

	// --- 業務ルート ---
	// ミドルウェアスタック: Identity → Logging → RateLimit
	// ログはアイデンティティ解決後に出力し、account_idを含める。
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewIdentityMiddleware())
		r.Use(middleware.NewLoggingMiddleware(slog.Default()))
		r.Use(deps.GeneralLimiter.Middleware())

		r.Route("/profiles/{id}", func(r chi.Router) {
			r.Get("/", profileHandler.Get)
			r.Put("/", profileHandler.Save)
		})

		r.Post("/notify", notificationHandler.Notify)
		r.Get("/notifications/{id}", notificationHandler.List)

		r.Get("/reports/{id}", reportHandler.Build)
	})

	return r
}
