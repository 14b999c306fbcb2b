package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env          string
	MongoURI     string
	MongoDB      string
	RedisAddr    string
	HTTPPort     string
	JWTSecret    string
	TokenTTL     time.Duration
	KafkaBrokers []string
	LogLevel     slog.Level
	CORSOrigins  string
}

// Load reads .env (when present) and then the process environment
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:          getEnv("APP_ENV", "development"),
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:      getEnv("MONGO_DB", "ipadb"),
		RedisAddr:    strings.TrimPrefix(getEnv("REDIS_URI", ""), "redis://"),
		HTTPPort:     getEnv("PORT", "8080"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		TokenTTL:     time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24)) * time.Hour,
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		LogLevel:     parseLevel(getEnv("LOG_LEVEL", "info")),
		CORSOrigins:  getEnv("CORS_ALLOWED_ORIGINS", "*"),
	}
}

// Validate checks settings that have no safe default
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if c.Env != "development" {
			return errors.New("JWT_SECRET must be set")
		}
		c.JWTSecret = "dev-secret-change-me"
	}
	if c.MongoURI == "" {
		return errors.New("MONGO_URI must be set")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
