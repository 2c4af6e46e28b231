package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/readers-guild/clubhouse-api/internal/adapters/httpapi"
	postgres "github.com/readers-guild/clubhouse-api/internal/adapters/postgres"
	"github.com/readers-guild/clubhouse-api/internal/bootstrap"
	"github.com/readers-guild/clubhouse-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/readers-guild/clubhouse-api/internal/platform/clock"
	"github.com/readers-guild/clubhouse-api/internal/platform/config"
	"github.com/readers-guild/clubhouse-api/internal/platform/logging"
	"github.com/readers-guild/clubhouse-api/internal/platform/telemetry"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/idempotency"
)

const (
	shutdownTimeout     = 10 * time.Second
	maintenanceInterval = 10 * time.Minute
	limiterIdle         = 10 * time.Minute
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadAppConfigFromEnv()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = ":" + cfg.Port
			}
			return runServe(cmd.Context(), cfg, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :$PORT)")
	return cmd
}

func runServe(ctx context.Context, cfg config.AppConfig, addr string) error {
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracer shutdown", "err", err)
		}
	}()

	authMW, issuer, err := authMiddleware(cfg)
	if err != nil {
		return fmt.Errorf("invalid auth config: %w", err)
	}

	clk := platformclock.NewSystemClock()
	var repos bootstrap.Repositories
	switch cfg.Storage {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{MaxConns: cfg.DBMaxConns})
		if err != nil {
			return err
		}
		defer pool.Close()
		if cfg.DBMigrateOnStart {
			if err := postgres.Migrate(ctx, pool); err != nil {
				return err
			}
			log.Info("migrations applied")
		}
		repos = bootstrap.Postgres(pool, issuer)
	default:
		repos = bootstrap.Memory(cfg.IdempotencyTTL, clk)
	}

	api := bootstrap.NewServer(repos, clk)
	api.Logger = log

	var limiter *httpapi.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = httpapi.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		RateLimiter:    limiter,
		Logger:         log,
		CORSOrigins:    cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("api listening", "addr", addr, "auth_mode", cfg.AuthMode, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		purger, _ := repos.Idem.(idempotency.Purger)
		runMaintenance(gctx, log, clk, purger, cfg.IdempotencyTTL, limiter)
		return nil
	})
	return g.Wait()
}

// runMaintenance periodically drops expired idempotency records and idle rate-limit buckets.
func runMaintenance(ctx context.Context, log *slog.Logger, clk platformclock.SystemClock, purger idempotency.Purger, ttl time.Duration, limiter *httpapi.RateLimiter) {
	t := time.NewTicker(maintenanceInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if purger != nil && ttl > 0 {
			n, err := purger.Purge(ctx, clk.Now().Add(-ttl))
			if err != nil {
				log.Warn("idempotency purge failed", "err", err)
			} else if n > 0 {
				log.Debug("idempotency records purged", "count", n)
			}
		}
		if limiter != nil {
			limiter.Sweep(limiterIdle)
		}
	}
}

// authMiddleware returns the middleware for cfg.AuthMode and the issuer used to
// scope stored subjects.
func authMiddleware(cfg config.AppConfig) (func(http.Handler) http.Handler, string, error) {
	switch cfg.AuthMode {
	case config.AuthModeDev:
		sub := cfg.DevSubject
		if sub == "" {
			sub = "dev|local"
		}
		return httpapi.NewDevAuthMiddleware(sub), "dev", nil
	case config.AuthModeHS256:
		hc, err := config.LoadHS256ConfigFromEnv()
		if err != nil {
			return nil, "", err
		}
		v, err := jwtverifier.NewHS256(hc.Secret, hc.Issuer, hc.Audience, hc.ClockSkew, nil)
		if err != nil {
			return nil, "", err
		}
		issuer := hc.Issuer
		if issuer == "" {
			issuer = "hs256"
		}
		return httpapi.NewAuthMiddleware(v), issuer, nil
	default:
		jc, err := config.LoadJWTConfigFromEnv()
		if err != nil {
			return nil, "", err
		}
		return httpapi.NewAuthMiddleware(jwtverifier.New(jc)), jc.Issuer, nil
	}
}
