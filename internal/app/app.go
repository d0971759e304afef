// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/userplane/internal/auth"
	"github.com/hitoshi/userplane/internal/config"
	"github.com/hitoshi/userplane/internal/database"
	"github.com/hitoshi/userplane/internal/gateway"
	"github.com/hitoshi/userplane/internal/handler"
	"github.com/hitoshi/userplane/internal/logger"
	"github.com/hitoshi/userplane/internal/metrics"
	"github.com/hitoshi/userplane/internal/middleware"
	"github.com/hitoshi/userplane/internal/platform"
	"github.com/hitoshi/userplane/internal/repository"
	"github.com/hitoshi/userplane/internal/worker/cleanup"
	"github.com/hitoshi/userplane/internal/worker/stats"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. 設定読み込み前は暫定レベルでログを使えるようにする
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("token_strategy", cfg.TokenStrategy),
	)

	switch cmd {
	case CommandPlatform:
		return runPlatform(cfg)
	case CommandGateway:
		return runGateway(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runAuth(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// newTokenStrategy は設定に応じたトークン発行戦略を構築する。
func newTokenStrategy(cfg *config.Config, db *sql.DB) (auth.TokenStrategy, error) {
	switch cfg.TokenStrategy {
	case config.StrategyStateful:
		sessionRepo := repository.NewPostgresSessionRepo(db)
		accountRepo := repository.NewPostgresAccountRepo(db)
		return auth.NewSessionStrategy(sessionRepo, accountRepo, cfg.SessionTTL), nil
	default:
		if err := cfg.RequireTokenSecret(); err != nil {
			return nil, err
		}
		return auth.NewJWTStrategy([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL), nil
	}
}

// runAuth は認証サービスモードで起動する。
// DB接続を開き、トークン発行戦略を構築し、HTTPサーバーを起動する。
func runAuth(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 1. リポジトリとトークン戦略の初期化
	accountRepo := repository.NewPostgresAccountRepo(db)

	strategy, err := newTokenStrategy(cfg, db)
	if err != nil {
		return err
	}

	authService := auth.NewService(accountRepo, strategy)

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. レート制限の初期化
	loginLimiter := middleware.NewIPRateLimiter(
		middleware.NewIPRateLimiterConfig(cfg.RateLimitLogin))
	defer loginLimiter.Stop()

	generalLimiter := middleware.NewIPRateLimiter(
		middleware.NewIPRateLimiterConfig(cfg.RateLimitGeneral))
	defer generalLimiter.Stop()

	// 4. ルーターの構築
	router := handler.NewAuthRouter(&handler.AuthRouterDeps{
		AuthService:    authService,
		Health:         handler.NewHealthChecker(db),
		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),

		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		LoginLimiter:      loginLimiter,
		GeneralLimiter:    generalLimiter,
	})

	return serveHTTP("auth service", cfg.ServerPort, router)
}

// runPlatform は業務サービスモードで起動する。
func runPlatform(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 1. リポジトリの初期化
	accountRepo := repository.NewPostgresAccountRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)

	// 2. ドメインサービスの初期化
	profileService := platform.NewProfileService(profileRepo)
	notificationService := platform.NewNotificationService(notificationRepo)
	reportService := platform.NewReportService(accountRepo, profileRepo, notificationRepo)

	// 3. レート制限の初期化
	generalLimiter := middleware.NewIPRateLimiter(
		middleware.NewIPRateLimiterConfig(cfg.RateLimitGeneral))
	defer generalLimiter.Stop()

	// 4. ルーターの構築
	router := handler.NewPlatformRouter(&handler.PlatformRouterDeps{
		ProfileService:      profileService,
		NotificationService: notificationService,
		ReportService:       reportService,
		Health:              handler.NewHealthChecker(db),

		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		GeneralLimiter:    generalLimiter,
	})

	return serveHTTP("platform service", cfg.ServerPort, router)
}

// runGateway はセッションゲートウェイモードで起動する。
// 自身は状態を持たず、下流の認証・業務サービスへリクエストを仲介する。
func runGateway(cfg *config.Config) error {
	if err := cfg.RequireGatewayTargets(); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	authClient := gateway.NewAuthClient(cfg.AuthURL, cfg.DownstreamTimeout, collector)
	platformClient := gateway.NewPlatformClient(cfg.PlatformURL, cfg.DownstreamTimeout, collector)

	gwHandler := gateway.NewHandler(authClient, platformClient, gateway.Config{
		AppName:        cfg.AppName,
		WelcomeMessage: cfg.WelcomeMessage,
		CookieSecure:   cfg.CookieSecure,
		CookieDomain:   cfg.CookieDomain,
	})

	router := gateway.NewRouter(gwHandler)

	return serveHTTP("gateway", cfg.ServerPort, router)
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションのクリーンアップと日次統計の集計を日次で実行する。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sessionRepo := repository.NewPostgresSessionRepo(db)
	accountRepo := repository.NewPostgresAccountRepo(db)

	cleanupJob := cleanup.NewCleanupJob(sessionRepo, cfg.SessionRetention, slog.Default())
	statsJob := stats.NewStatsJob(accountRepo, sessionRepo, slog.Default())

	runJobs := func(ctx context.Context) {
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}
		if _, err := statsJob.Run(ctx); err != nil {
			slog.Error("stats job failed", slog.String("error", err.Error()))
		}
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting")

	// 起動直後に1回実行し、以降は日次で実行する
	runJobs(ctx)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped gracefully")
			return nil
		case <-ticker.C:
			runJobs(ctx)
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health/live エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health/live", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// serveHTTP はHTTPサーバーを起動し、SIGINT/SIGTERMでグレースフルシャットダウンする。
func serveHTTP(name, port string, router http.Handler) error {
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting",
			slog.String("service", name),
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down server...", slog.String("service", name))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped gracefully", slog.String("service", name))
	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
