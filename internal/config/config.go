// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL      string        `env:"DATABASE_URL,required,notEmpty"`
	DBConnectRetries int           `env:"DB_CONNECT_RETRIES" envDefault:"5"`
	DBConnectDelay   time.Duration `env:"DB_CONNECT_DELAY" envDefault:"2s"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL    string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	SiteTitle  string `env:"SITE_TITLE" envDefault:"Mars Notes"`
	SiteDesc   string `env:"SITE_DESCRIPTION" envDefault:"Science news from the red planet"`

	// Session
	SessionMaxAge int `env:"SESSION_MAX_AGE" envDefault:"86400"`

	// Admin bootstrap
	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"mars2026"`

	// Object storage (S3互換)
	S3Key      string `env:"S3_KEY"`
	S3Secret   string `env:"S3_SECRET"`
	S3Endpoint string `env:"S3_ENDPOINT"`
	S3Bucket   string `env:"S3_BUCKET"`
	S3Region   string `env:"S3_REGION" envDefault:"nyc3"`
	S3CDNURL   string `env:"S3_CDN_URL"`

	// SMTP
	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM"`

	// Rate Limit (req/min per client IP)
	RateLimitPublic int `env:"RATE_LIMIT_PUBLIC" envDefault:"30"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Cookie（BASE_URLのスキームから決定する）
	CookieSecure bool `env:"-"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定、または値の形式が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	if cfg.DBConnectRetries < 1 {
		return nil, fmt.Errorf("DB_CONNECT_RETRIES must be at least 1, got %d", cfg.DBConnectRetries)
	}
	if cfg.RateLimitPublic < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_PUBLIC must be at least 1, got %d", cfg.RateLimitPublic)
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseLogLevel はLOG_LEVELの値（debug/info/warn/error）をslog.Levelに変換する。
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
