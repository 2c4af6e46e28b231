package main

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	postgres "github.com/readers-guild/clubhouse-api/internal/adapters/postgres"
)

func newMigrateCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
	}
	cmd.PersistentFlags().StringVar(&dsn, "database-url", "", "postgres DSN (default $DATABASE_URL)")

	withPool := func(ctx context.Context, fn func(context.Context, *pgxpool.Pool) error) error {
		if dsn == "" {
			dsn = os.Getenv("DATABASE_URL")
		}
		pool, err := postgres.NewPool(ctx, dsn, postgres.PoolOptions{MaxConns: 2})
		if err != nil {
			return err
		}
		defer pool.Close()
		return fn(ctx, pool)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), postgres.Migrate)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), postgres.MigrationStatus)
		},
	})
	return cmd
}
