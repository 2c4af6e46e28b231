package main

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/readers-guild/clubhouse-api/internal/platform/auth/jwtverifier"
)

// Dev-only token issuer. Serves a JWKS for RS256 and, when HS256_SECRET is set,
// also mints HS256 tokens for AUTH_MODE=hs256. Not an OIDC provider.

type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

type issuerConfig struct {
	issuer      string
	audience    string
	kid         string
	ttl         time.Duration
	hs256Secret string
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	port := getenv("PORT", "5556")
	cfg := issuerConfig{
		issuer:      getenv("ISSUER", "http://devjwt:5556"),
		audience:    getenv("AUDIENCE", "clubhouse-api"),
		kid:         getenv("KID", "dev-kid-1"),
		ttl:         getenvDuration("TTL", 30*time.Minute),
		hs256Secret: os.Getenv("HS256_SECRET"),
	}

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		log.Error("generate key", "err", err)
		os.Exit(1)
	}
	jwksJSON, err := marshalJWKS(priv.PublicKey, cfg.kid)
	if err != nil {
		log.Error("marshal jwks", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newMux(cfg, priv, jwksJSON),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("devjwt listening", "port", port, "iss", cfg.issuer, "aud", cfg.audience, "kid", cfg.kid, "ttl", cfg.ttl)
	if err := srv.ListenAndServe(); err != nil {
		log.Error("listen", "err", err)
		os.Exit(1)
	}
}

func newMux(cfg issuerConfig, priv *rsa.PrivateKey, jwksJSON []byte) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwksJSON)
	})

	// GET /token?sub=dev|alice[&alg=HS256]
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		sub := strings.TrimSpace(r.URL.Query().Get("sub"))
		if sub == "" {
			http.Error(w, "missing sub", http.StatusBadRequest)
			return
		}
		now := time.Now().UTC()

		var token string
		var err error
		switch strings.ToUpper(r.URL.Query().Get("alg")) {
		case "", "RS256":
			token, err = mintRS256JWT(priv, cfg.kid, cfg.issuer, cfg.audience, sub, now, cfg.ttl)
		case "HS256":
			if cfg.hs256Secret == "" {
				http.Error(w, "HS256_SECRET not configured", http.StatusBadRequest)
				return
			}
			token, err = jwtverifier.MintHS256(cfg.hs256Secret, cfg.issuer, cfg.audience, sub, now, cfg.ttl)
		default:
			http.Error(w, "unsupported alg", http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": token,
			"sub":   sub,
			"iss":   cfg.issuer,
			"aud":   cfg.audience,
			"exp":   now.Add(cfg.ttl).Unix(),
		})
	})
	return mux
}

func marshalJWKS(pub rsa.PublicKey, kid string) ([]byte, error) {
	enc := base64.RawURLEncoding
	return json.Marshal(jwks{Keys: []jwk{{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: kid,
		N:   enc.EncodeToString(pub.N.Bytes()),
		E:   enc.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}}})
}

func mintRS256JWT(priv *rsa.PrivateKey, kid, iss, aud, sub string, now time.Time, ttl time.Duration) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Issuer:    iss,
		Audience:  jwt.ClaimStrings{aud},
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		IssuedAt:  jwt.NewNumericDate(now),
	})
	tok.Header["kid"] = kid
	return tok.SignedString(priv)
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
