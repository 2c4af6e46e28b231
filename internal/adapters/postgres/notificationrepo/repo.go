package notificationrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/readers-guild/clubhouse-api/internal/adapters/postgres"
	"github.com/readers-guild/clubhouse-api/internal/domain"
)

// Repo is a Postgres implementation of notificationrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, n domain.Notification) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(n.ID))
	if err != nil {
		return fmt.Errorf("invalid notification id: %w", err)
	}
	src, err := uuid.Parse(string(n.SourceUserID))
	if err != nil {
		return fmt.Errorf("invalid source user id: %w", err)
	}
	dst, err := uuid.Parse(string(n.TargetUserID))
	if err != nil {
		return fmt.Errorf("invalid target user id: %w", err)
	}
	var club *uuid.UUID
	if n.ClubID != nil {
		cid, err := uuid.Parse(string(*n.ClubID))
		if err != nil {
			return fmt.Errorf("invalid club id: %w", err)
		}
		club = &cid
	}
	_, err = postgres.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO notifications (id, source_user_id, target_user_id, club_id, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, src, dst, club, string(n.Type), n.CreatedAt.UTC())
	return err
}

func (r *Repo) ListForUser(ctx context.Context, user domain.UserID, page domain.PageRequest) (domain.Page[domain.Notification], error) {
	if r.pool == nil {
		return domain.Page[domain.Notification]{}, errors.New("nil postgres pool")
	}
	out := domain.Page[domain.Notification]{Number: page.Number, Size: page.Size, Items: []domain.Notification{}}
	uid, err := uuid.Parse(string(user))
	if err != nil {
		return out, nil
	}
	q := postgres.Conn(ctx, r.pool)
	if err := q.QueryRow(ctx, `SELECT count(*) FROM notifications WHERE target_user_id = $1`, uid).Scan(&out.Total); err != nil {
		return domain.Page[domain.Notification]{}, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, source_user_id, target_user_id, club_id, type, created_at
		FROM notifications
		WHERE target_user_id = $1
		ORDER BY created_at DESC, id ASC
		LIMIT $2 OFFSET $3
	`, uid, page.Size, page.Offset())
	if err != nil {
		return domain.Page[domain.Notification]{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, src, dst uuid.UUID
			club         *uuid.UUID
			typ          string
			createdAt    time.Time
		)
		if err := rows.Scan(&id, &src, &dst, &club, &typ, &createdAt); err != nil {
			return domain.Page[domain.Notification]{}, err
		}
		n := domain.Notification{
			ID:           domain.NotificationID(id.String()),
			SourceUserID: domain.UserID(src.String()),
			TargetUserID: domain.UserID(dst.String()),
			Type:         domain.NotificationType(typ),
			CreatedAt:    createdAt.UTC(),
		}
		if club != nil {
			c := domain.ClubID(club.String())
			n.ClubID = &c
		}
		out.Items = append(out.Items, n)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Notification]{}, err
	}
	return out, nil
}
