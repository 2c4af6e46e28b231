package userrepo

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
	"github.com/readers-guild/clubhouse-api/internal/ports/out/userrepo"
)

// Repo is a Postgres implementation of userrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const selectUser = `
	SELECT id, subject, username, email, joined_at, departed_at
	FROM users
`

func (r *Repo) Create(ctx context.Context, u domain.User) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(u.ID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	_, err = postgres.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO users (id, subject, username, email, joined_at, departed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		id,
		string(u.Subject),
		u.Username,
		u.Email,
		u.JoinedAt.UTC(),
		u.DepartedAt,
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			switch pe.ConstraintName {
			case "users_subject_unique":
				return userrepo.ErrSubjectAlreadyBound
			case "users_username_unique":
				return userrepo.ErrUsernameTaken
			case "users_pkey":
				return userrepo.ErrAlreadyExists
			}
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	if r.pool == nil {
		return domain.User{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.User{}, userrepo.ErrNotFound
	}
	row := postgres.Conn(ctx, r.pool).QueryRow(ctx, selectUser+` WHERE id = $1`, uid)
	return scanUser(row)
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.SubjectID) (domain.User, error) {
	if r.pool == nil {
		return domain.User{}, errors.New("nil postgres pool")
	}
	row := postgres.Conn(ctx, r.pool).QueryRow(ctx, selectUser+` WHERE subject = $1`, string(subject))
	return scanUser(row)
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		id         uuid.UUID
		subject    string
		username   string
		email      string
		joinedAt   time.Time
		departedAt *time.Time
	)
	if err := row.Scan(&id, &subject, &username, &email, &joinedAt, &departedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, userrepo.ErrNotFound
		}
		return domain.User{}, err
	}
	u := domain.User{
		ID:       domain.UserID(id.String()),
		Subject:  domain.SubjectID(subject),
		Username: username,
		Email:    email,
		JoinedAt: joinedAt.UTC(),
	}
	if departedAt != nil {
		v := departedAt.UTC()
		u.DepartedAt = &v
	}
	return u, nil
}
