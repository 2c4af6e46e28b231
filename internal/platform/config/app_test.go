package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppConfigFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "AUTH_MODE", "STORAGE_BACKEND", "DB_MAX_CONNS", "RATE_LIMIT_RPS", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadAppConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadAppConfigFromEnv: %v", err)
	}
	if cfg.Port != "8080" || cfg.AuthMode != AuthModeJWT || cfg.Storage != StorageMemory {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DBMaxConns != 10 || cfg.RateLimitBurst != 40 || cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 0 {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSOrigins)
	}
}

func TestLoadAppConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("AUTH_MODE", "DEV")
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/clubhouse")
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("DB_MIGRATE_ON_START", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := LoadAppConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadAppConfigFromEnv: %v", err)
	}
	if cfg.AuthMode != AuthModeDev || cfg.Storage != StoragePostgres || cfg.DBMaxConns != 4 || !cfg.DBMigrateOnStart {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.CORSOrigins)
	}
}

func TestLoadAppConfigFromEnv_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"auth mode":        {"AUTH_MODE": "basic"},
		"storage":          {"STORAGE_BACKEND": "sqlite"},
		"postgres no url":  {"STORAGE_BACKEND": "postgres", "DATABASE_URL": ""},
		"max conns":        {"DB_MAX_CONNS": "zero"},
		"rate limit burst": {"RATE_LIMIT_BURST": "-1"},
		"idempotency ttl":  {"IDEMPOTENCY_TTL": "forever"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := LoadAppConfigFromEnv(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("CLUBHOUSE_DOTENV_PROBE=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOTENV_PATH", path)
	t.Setenv("CLUBHOUSE_DOTENV_PROBE", "")
	os.Unsetenv("CLUBHOUSE_DOTENV_PROBE")

	if err := LoadDotEnv(); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("CLUBHOUSE_DOTENV_PROBE"); got != "loaded" {
		t.Fatalf("expected probe to be loaded, got %q", got)
	}

	t.Setenv("DOTENV_PATH", filepath.Join(dir, "missing.env"))
	if err := LoadDotEnv(); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
}

func TestLoadHS256ConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_HS256_SECRET", "")
	if _, err := LoadHS256ConfigFromEnv(); err == nil {
		t.Fatalf("expected error without secret")
	}

	t.Setenv("JWT_HS256_SECRET", "s3cret")
	t.Setenv("JWT_CLOCK_SKEW", "5s")
	cfg, err := LoadHS256ConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadHS256ConfigFromEnv: %v", err)
	}
	if cfg.Secret != "s3cret" || cfg.ClockSkew != 5*time.Second {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
