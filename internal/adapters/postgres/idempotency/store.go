package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/readers-guild/clubhouse-api/internal/adapters/postgres"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/idempotency"
)

var errNilPool = errors.New("nil postgres pool")

// Store keeps replayable responses in idempotency_keys, scoped by token issuer
// so equal subjects from different issuers never share a replay.
type Store struct {
	pool   *pgxpool.Pool
	issuer string
}

func NewStore(pool *pgxpool.Pool, jwtIssuer string) *Store {
	return &Store{pool: pool, issuer: jwtIssuer}
}

func (s *Store) keyArgs(fp idempotency.Fingerprint) pgx.NamedArgs {
	return pgx.NamedArgs{
		"key":       string(fp.Key),
		"iss":       s.issuer,
		"sub":       string(fp.Subject),
		"method":    fp.Method,
		"route":     fp.Route,
		"body_hash": fp.BodyHash,
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errNilPool
	}
	var rec idempotency.Record
	err := postgres.Conn(ctx, s.pool).QueryRow(ctx, `
		SELECT status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE idempotency_key = @key AND subject_iss = @iss AND subject_sub = @sub
		  AND method = @method AND route = @route AND body_hash = @body_hash
	`, s.keyArgs(fp)).Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return idempotency.Record{}, false, nil
	case err != nil:
		return idempotency.Record{}, false, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return errNilPool
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	args := s.keyArgs(fp)
	args["status"] = rec.StatusCode
	args["content_type"] = rec.ContentType
	args["body"] = rec.Body
	args["created_at"] = createdAt.UTC()

	_, err := postgres.Conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO idempotency_keys (
			idempotency_key, subject_iss, subject_sub, method, route, body_hash,
			status_code, content_type, body, created_at
		) VALUES (@key, @iss, @sub, @method, @route, @body_hash, @status, @content_type, @body, @created_at)
		ON CONFLICT (idempotency_key, subject_iss, subject_sub, method, route, body_hash)
		DO UPDATE SET
			status_code = EXCLUDED.status_code,
			content_type = EXCLUDED.content_type,
			body = EXCLUDED.body,
			created_at = EXCLUDED.created_at
	`, args)
	return err
}

// Purge deletes records created before cutoff and reports how many were removed.
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.pool == nil {
		return 0, errNilPool
	}
	ct, err := postgres.Conn(ctx, s.pool).Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
