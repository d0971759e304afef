// Package config は環境変数ベースのアプリケーション設定を提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// トークン発行戦略の設定値。
const (
	StrategyStateless = "stateless"
	StrategyStateful  = "stateful"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Token
	TokenStrategy string        // stateless | stateful
	JWTSecret     string        // stateless戦略の署名鍵
	JWTIssuer     string        // stateless戦略のiss検証値
	TokenTTL      time.Duration // stateless戦略のトークン有効期間
	SessionTTL    time.Duration // stateful戦略のセッション有効期間

	// Worker
	SessionRetention time.Duration // 期限切れセッション行を削除まで保持する猶予期間

	// Gateway
	AuthURL           string        // 認証サービスのベースURL
	PlatformURL       string        // 業務サービスのベースURL
	DownstreamTimeout time.Duration // 下流HTTP呼び出しのタイムアウト

	// Rate Limit（req/min）
	RateLimitLogin   int
	RateLimitGeneral int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string

	// UI
	AppName        string
	WelcomeMessage string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 起動モードごとの必須項目の検証はRequire系メソッドで行う。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.TokenStrategy = getEnvString("TOKEN_STRATEGY", StrategyStateless)
	if cfg.TokenStrategy != StrategyStateless && cfg.TokenStrategy != StrategyStateful {
		return nil, fmt.Errorf("TOKEN_STRATEGY must be %q or %q, got %q",
			StrategyStateless, StrategyStateful, cfg.TokenStrategy)
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.JWTIssuer = getEnvString("JWT_ISSUER", "user-platform")
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 2*time.Hour)
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", 24*time.Hour)
	cfg.SessionRetention = getEnvDuration("SESSION_RETENTION", 0)

	cfg.AuthURL = os.Getenv("AUTH_URL")
	cfg.PlatformURL = os.Getenv("PLATFORM_URL")
	cfg.DownstreamTimeout = getEnvDuration("DOWNSTREAM_TIMEOUT", 5*time.Second)

	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	cfg.AppName = getEnvString("APP_NAME", "User Platform")
	cfg.WelcomeMessage = getEnvString("WELCOME_MESSAGE", "Welcome to the platform")

	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

// RequireDatabase はDBを利用する起動モードの必須項目を検証する。
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("required environment variable is not set: DATABASE_URL")
	}
	return nil
}

// RequireTokenSecret はstateless戦略の署名鍵を検証する。
// stateful戦略では署名鍵は不要。
func (c *Config) RequireTokenSecret() error {
	if c.TokenStrategy == StrategyStateless && c.JWTSecret == "" {
		return fmt.Errorf("required environment variable is not set: JWT_SECRET")
	}
	return nil
}

// RequireGatewayTargets はゲートウェイモードの下流URLを検証する。
func (c *Config) RequireGatewayTargets() error {
	var missing []string
	if c.AuthURL == "" {
		missing = append(missing, "AUTH_URL")
	}
	if c.PlatformURL == "" {
		missing = append(missing, "PLATFORM_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
