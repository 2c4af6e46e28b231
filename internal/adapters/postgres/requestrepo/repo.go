package requestrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/readers-guild/clubhouse-api/internal/adapters/postgres"
	"github.com/readers-guild/clubhouse-api/internal/domain"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/requestrepo"
)

// Repo is a Postgres implementation of requestrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const requestColumns = `id, club_id, user_id, message, status, role, reviewer_id, review_message, viewed, requested_at, reviewed_at`

func (r *Repo) Create(ctx context.Context, req domain.MembershipRequest) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(req.ID))
	if err != nil {
		return fmt.Errorf("invalid membership request id: %w", err)
	}
	cid, err := uuid.Parse(string(req.ClubID))
	if err != nil {
		return fmt.Errorf("invalid club id: %w", err)
	}
	uid, err := uuid.Parse(string(req.UserID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	reviewer, err := reviewerUUID(req.ReviewerID)
	if err != nil {
		return err
	}
	_, err = postgres.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO membership_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		id,
		cid,
		uid,
		req.Message,
		string(req.Status),
		rolePtr(req.Role),
		reviewer,
		req.ReviewMessage,
		req.Viewed,
		req.RequestedAt.UTC(),
		utcPtr(req.ReviewedAt),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return requestrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, req domain.MembershipRequest) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(req.ID))
	if err != nil {
		return requestrepo.ErrNotFound
	}
	reviewer, err := reviewerUUID(req.ReviewerID)
	if err != nil {
		return err
	}
	ct, err := postgres.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE membership_requests
		SET status = $2,
		    role = $3,
		    reviewer_id = $4,
		    review_message = $5,
		    viewed = $6,
		    reviewed_at = $7
		WHERE id = $1
	`,
		id,
		string(req.Status),
		rolePtr(req.Role),
		reviewer,
		req.ReviewMessage,
		req.Viewed,
		utcPtr(req.ReviewedAt),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return requestrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.MembershipRequestID) (domain.MembershipRequest, error) {
	if r.pool == nil {
		return domain.MembershipRequest{}, errors.New("nil postgres pool")
	}
	rid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.MembershipRequest{}, requestrepo.ErrNotFound
	}
	row := postgres.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM membership_requests
		WHERE id = $1`+postgres.ForUpdate(ctx), rid)
	return scanRequest(row)
}

func (r *Repo) ListByClub(ctx context.Context, club domain.ClubID, page domain.PageRequest) (domain.Page[domain.MembershipRequest], error) {
	if r.pool == nil {
		return domain.Page[domain.MembershipRequest]{}, errors.New("nil postgres pool")
	}
	out := domain.Page[domain.MembershipRequest]{Number: page.Number, Size: page.Size, Items: []domain.MembershipRequest{}}
	cid, err := uuid.Parse(string(club))
	if err != nil {
		return out, nil
	}
	q := postgres.Conn(ctx, r.pool)
	if err := q.QueryRow(ctx, `SELECT count(*) FROM membership_requests WHERE club_id = $1`, cid).Scan(&out.Total); err != nil {
		return domain.Page[domain.MembershipRequest]{}, err
	}
	rows, err := q.Query(ctx, `
		SELECT `+requestColumns+`
		FROM membership_requests
		WHERE club_id = $1
		ORDER BY requested_at DESC, id ASC
		LIMIT $2 OFFSET $3
	`, cid, page.Size, page.Offset())
	if err != nil {
		return domain.Page[domain.MembershipRequest]{}, err
	}
	defer rows.Close()

	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return domain.Page[domain.MembershipRequest]{}, err
		}
		out.Items = append(out.Items, req)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.MembershipRequest]{}, err
	}
	return out, nil
}

func (r *Repo) ExistsInStatus(ctx context.Context, club domain.ClubID, user domain.UserID, status domain.RequestStatus) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	cid, err := uuid.Parse(string(club))
	if err != nil {
		return false, nil
	}
	uid, err := uuid.Parse(string(user))
	if err != nil {
		return false, nil
	}
	var ok bool
	err = postgres.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM membership_requests
			WHERE club_id = $1 AND user_id = $2 AND status = $3
		)
	`, cid, uid, string(status)).Scan(&ok)
	return ok, err
}

func scanRequest(row pgx.Row) (domain.MembershipRequest, error) {
	var (
		id, clubID, userID uuid.UUID
		message, status    string
		role               *string
		reviewerID         *uuid.UUID
		reviewMessage      *string
		viewed             bool
		requestedAt        time.Time
		reviewedAt         *time.Time
	)
	if err := row.Scan(&id, &clubID, &userID, &message, &status, &role, &reviewerID, &reviewMessage, &viewed, &requestedAt, &reviewedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MembershipRequest{}, requestrepo.ErrNotFound
		}
		return domain.MembershipRequest{}, err
	}
	out := domain.MembershipRequest{
		ID:            domain.MembershipRequestID(id.String()),
		ClubID:        domain.ClubID(clubID.String()),
		UserID:        domain.UserID(userID.String()),
		Message:       message,
		Status:        domain.RequestStatus(status),
		ReviewMessage: reviewMessage,
		Viewed:        viewed,
		RequestedAt:   requestedAt.UTC(),
		ReviewedAt:    utcPtr(reviewedAt),
	}
	if role != nil {
		out.Role = domain.Role(*role)
	}
	if reviewerID != nil {
		v := domain.UserID(reviewerID.String())
		out.ReviewerID = &v
	}
	return out, nil
}

func reviewerUUID(id *domain.UserID) (*uuid.UUID, error) {
	if id == nil {
		return nil, nil
	}
	v, err := uuid.Parse(string(*id))
	if err != nil {
		return nil, fmt.Errorf("invalid reviewer id: %w", err)
	}
	return &v, nil
}

func rolePtr(r domain.Role) *string {
	if r == "" {
		return nil
	}
	s := string(r)
	return &s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
