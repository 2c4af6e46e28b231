package config

import (
	"fmt"
	"os"
	"time"
)

// JWTConfig configures JWT verification against a JWKS endpoint.
type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string

	ClockSkew              time.Duration
	JWKSRefreshInterval    time.Duration
	JWKSMinRefreshInterval time.Duration

	HTTPTimeout time.Duration
}

func LoadJWTConfigFromEnv() (JWTConfig, error) {
	issuer := os.Getenv("JWT_ISSUER")
	audience := os.Getenv("JWT_AUDIENCE")
	jwksURL := os.Getenv("JWT_JWKS_URL")
	if issuer == "" || audience == "" || jwksURL == "" {
		return JWTConfig{}, fmt.Errorf("missing required env vars: JWT_ISSUER, JWT_AUDIENCE, JWT_JWKS_URL")
	}

	// Reasonable defaults that make local/dev/test behavior predictable.
	cfg := JWTConfig{
		Issuer:   issuer,
		Audience: audience,
		JWKSURL:  jwksURL,
		// Refresh periodically to pick up key rotation even if an old key is still cached.
		JWKSRefreshInterval: 5 * time.Minute,
		// Bound refresh frequency when a token presents an unknown kid (avoid thundering herd).
		JWKSMinRefreshInterval: 10 * time.Second,
		HTTPTimeout:            5 * time.Second,
	}

	skew, err := clockSkewFromEnv()
	if err != nil {
		return JWTConfig{}, err
	}
	cfg.ClockSkew = skew
	if v := os.Getenv("JWT_JWKS_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return JWTConfig{}, fmt.Errorf("JWT_JWKS_REFRESH_INTERVAL must be a duration (e.g. 5m): %w", err)
		}
		cfg.JWKSRefreshInterval = d
	}
	if v := os.Getenv("JWT_JWKS_MIN_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return JWTConfig{}, fmt.Errorf("JWT_JWKS_MIN_REFRESH_INTERVAL must be a duration (e.g. 10s): %w", err)
		}
		cfg.JWKSMinRefreshInterval = d
	}

	return cfg, nil
}

// HS256Config configures shared-secret token verification for local development.
type HS256Config struct {
	Secret    string
	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

func LoadHS256ConfigFromEnv() (HS256Config, error) {
	secret := os.Getenv("JWT_HS256_SECRET")
	if secret == "" {
		return HS256Config{}, fmt.Errorf("missing required env var: JWT_HS256_SECRET")
	}
	skew, err := clockSkewFromEnv()
	if err != nil {
		return HS256Config{}, err
	}
	return HS256Config{
		Secret:    secret,
		Issuer:    os.Getenv("JWT_ISSUER"),
		Audience:  os.Getenv("JWT_AUDIENCE"),
		ClockSkew: skew,
	}, nil
}

func clockSkewFromEnv() (time.Duration, error) {
	v := os.Getenv("JWT_CLOCK_SKEW")
	if v == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("JWT_CLOCK_SKEW must be a duration (e.g. 30s): %w", err)
	}
	return d, nil
}
