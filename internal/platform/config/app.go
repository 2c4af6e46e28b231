package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AuthMode string

const (
	AuthModeJWT   AuthMode = "jwt"
	AuthModeHS256 AuthMode = "hs256"
	AuthModeDev   AuthMode = "dev"
)

type StorageBackend string

const (
	StorageMemory   StorageBackend = "memory"
	StoragePostgres StorageBackend = "postgres"
)

// AppConfig is everything `clubhouse serve` reads from the environment.
// Auth-mode specific settings are loaded separately (LoadJWTConfigFromEnv, LoadHS256ConfigFromEnv).
type AppConfig struct {
	Port       string
	AuthMode   AuthMode
	DevSubject string

	Storage          StorageBackend
	DatabaseURL      string
	DBMaxConns       int32
	DBMigrateOnStart bool

	LogLevel  string
	LogFormat string

	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string

	IdempotencyTTL time.Duration

	OTLPEndpoint string
	ServiceName  string
}

// LoadDotEnv loads DOTENV_PATH (default .env) into the process environment.
// Variables already set win; a missing file is not an error.
func LoadDotEnv() error {
	path := getenv("DOTENV_PATH", ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func LoadAppConfigFromEnv() (AppConfig, error) {
	cfg := AppConfig{
		Port:           getenv("PORT", "8080"),
		AuthMode:       AuthMode(strings.ToLower(getenv("AUTH_MODE", string(AuthModeJWT)))),
		DevSubject:     os.Getenv("DEV_SUBJECT"),
		Storage:        StorageBackend(strings.ToLower(getenv("STORAGE_BACKEND", string(StorageMemory)))),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxConns:     10,
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "json"),
		RateLimitRPS:   20,
		RateLimitBurst: 40,
		IdempotencyTTL: 24 * time.Hour,
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:    getenv("OTEL_SERVICE_NAME", "clubhouse-api"),
	}

	switch cfg.AuthMode {
	case AuthModeJWT, AuthModeHS256, AuthModeDev:
	default:
		return AppConfig{}, fmt.Errorf("AUTH_MODE must be one of jwt, hs256, dev (got %q)", cfg.AuthMode)
	}
	switch cfg.Storage {
	case StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return AppConfig{}, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return AppConfig{}, fmt.Errorf("STORAGE_BACKEND must be memory or postgres (got %q)", cfg.Storage)
	}

	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return AppConfig{}, fmt.Errorf("DB_MAX_CONNS must be a positive integer (got %q)", v)
		}
		cfg.DBMaxConns = int32(n)
	}
	if v := os.Getenv("DB_MIGRATE_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return AppConfig{}, fmt.Errorf("DB_MIGRATE_ON_START must be a boolean: %w", err)
		}
		cfg.DBMigrateOnStart = b
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return AppConfig{}, fmt.Errorf("RATE_LIMIT_RPS must be a non-negative number (got %q)", v)
		}
		cfg.RateLimitRPS = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return AppConfig{}, fmt.Errorf("RATE_LIMIT_BURST must be a positive integer (got %q)", v)
		}
		cfg.RateLimitBurst = n
	}
	if v := os.Getenv("IDEMPOTENCY_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return AppConfig{}, fmt.Errorf("IDEMPOTENCY_TTL must be a duration (e.g. 24h): %w", err)
		}
		cfg.IdempotencyTTL = d
	}
	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
