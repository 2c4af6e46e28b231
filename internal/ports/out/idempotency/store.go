package idempotency

import (
	"context"
	"time"

	"github.com/readers-guild/clubhouse-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a retried request: key + caller + route + canonical body hash.
// Route is the HTTP method plus the route pattern, e.g. "POST /clubs/{clubId}/membership-requests",
// with path parameters folded into BodyHash.
type Fingerprint struct {
	Key      Key
	Subject  domain.SubjectID
	Method   string
	Route    string
	BodyHash string
}

// Record is a stored response replayed for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	// Put stores rec for fp, replacing any earlier record.
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}

// Purger is implemented by stores that can drop records created before cutoff.
type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}
