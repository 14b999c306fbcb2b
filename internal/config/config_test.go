package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "MONGO_URI", "MONGO_DB", "REDIS_URI", "PORT", "JWT_SECRET", "TOKEN_TTL_HOURS", "KAFKA_BROKERS", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.MongoDB != "ipadb" {
		t.Errorf("expected default db ipadb, got %s", cfg.MongoDB)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.HTTPPort)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("expected 24h ttl, got %v", cfg.TokenTTL)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("expected redis disabled, got %q", cfg.RedisAddr)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Errorf("expected no brokers, got %v", cfg.KafkaBrokers)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("expected info level, got %v", cfg.LogLevel)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("REDIS_URI", "redis://cache:6379")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TOKEN_TTL_HOURS", "2")

	cfg := Load()
	if cfg.RedisAddr != "cache:6379" {
		t.Errorf("expected prefix stripped, got %s", cfg.RedisAddr)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.LogLevel)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("expected 2h ttl, got %v", cfg.TokenTTL)
	}
}

func TestValidate(t *testing.T) {
	t.Run("production requires secret", func(t *testing.T) {
		cfg := &Config{Env: "production", MongoURI: "mongodb://x"}
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error for missing secret")
		}
	})

	t.Run("development falls back", func(t *testing.T) {
		cfg := &Config{Env: "development", MongoURI: "mongodb://x"}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.JWTSecret == "" {
			t.Fatal("expected fallback secret")
		}
	})
}
