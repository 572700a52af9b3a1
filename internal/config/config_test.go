package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DEFAULT_TIMEZONE", "")
	t.Setenv("SESSION_TTL", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.DefaultTimezone != "America/Bogota" {
		t.Fatalf("expected default timezone, got %s", cfg.DefaultTimezone)
	}
	if cfg.DefaultBufferMin != 10 {
		t.Fatalf("expected default buffer, got %d", cfg.DefaultBufferMin)
	}
	if cfg.DefaultBookingWindowDays != 30 {
		t.Fatalf("expected default booking window, got %d", cfg.DefaultBookingWindowDays)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("expected default session ttl, got %s", cfg.SessionTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("expected no CORS origins by default, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("DEFAULT_MIN_NOTICE_HOURS", "4")
	t.Setenv("SESSION_TTL", "45m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected database url override, got %s", cfg.DatabaseURL)
	}
	if cfg.RedisAddr != "redis.internal:6380" {
		t.Fatalf("expected redis addr override, got %s", cfg.RedisAddr)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if cfg.DefaultMinNoticeHours != 4 {
		t.Fatalf("expected min notice override, got %d", cfg.DefaultMinNoticeHours)
	}
	if cfg.SessionTTL != 45*time.Minute {
		t.Fatalf("expected session ttl override, got %s", cfg.SessionTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("expected parsed CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestGetEnvAsIntIgnoresGarbage(t *testing.T) {
	t.Setenv("DEFAULT_BUFFER_MIN", "not-a-number")
	cfg := Load()
	if cfg.DefaultBufferMin != 10 {
		t.Fatalf("expected fallback buffer, got %d", cfg.DefaultBufferMin)
	}
}
