package membershiprepo

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
	"github.com/readers-guild/clubhouse-api/internal/ports/out/membershiprepo"
)

// Repo is a Postgres implementation of membershiprepo.Repository.
//
// The memberships_active_unique partial index backs the one-active-membership rule.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const membershipColumns = `id, club_id, user_id, role, is_owner, joined_at, departed_at`

func (r *Repo) Create(ctx context.Context, m domain.Membership) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return fmt.Errorf("invalid membership id: %w", err)
	}
	cid, uid, err := parsePair(m.ClubID, m.UserID)
	if err != nil {
		return err
	}
	_, err = postgres.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO memberships (`+membershipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		id,
		cid,
		uid,
		string(m.Role),
		m.IsOwner,
		m.JoinedAt.UTC(),
		utcPtr(m.DepartedAt),
	)
	return mapWriteError(err)
}

func (r *Repo) Save(ctx context.Context, m domain.Membership) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return membershiprepo.ErrNotFound
	}
	ct, err := postgres.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE memberships
		SET role = $2,
		    is_owner = $3,
		    departed_at = $4
		WHERE id = $1
	`, id, string(m.Role), m.IsOwner, utcPtr(m.DepartedAt))
	if err != nil {
		return mapWriteError(err)
	}
	if ct.RowsAffected() == 0 {
		return membershiprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) FindActive(ctx context.Context, club domain.ClubID, user domain.UserID) (domain.Membership, error) {
	return r.findOne(ctx, club, user, "")
}

func (r *Repo) FindActiveWithRole(ctx context.Context, club domain.ClubID, user domain.UserID, role domain.Role) (domain.Membership, error) {
	m, err := r.findOne(ctx, club, user, "")
	if err != nil {
		return domain.Membership{}, err
	}
	if m.Role != role {
		return domain.Membership{}, membershiprepo.ErrNotFound
	}
	return m, nil
}

func (r *Repo) FindActiveOwner(ctx context.Context, club domain.ClubID, user domain.UserID) (domain.Membership, error) {
	return r.findOne(ctx, club, user, " AND is_owner")
}

func (r *Repo) ListActive(ctx context.Context, club domain.ClubID, users []domain.UserID) ([]domain.Membership, error) {
	return r.listActive(ctx, club, users, "", "id ASC")
}

func (r *Repo) ListActiveOwners(ctx context.Context, club domain.ClubID, users []domain.UserID) ([]domain.Membership, error) {
	return r.listActive(ctx, club, users, " AND is_owner", "joined_at ASC, id ASC")
}

func (r *Repo) listActive(ctx context.Context, club domain.ClubID, users []domain.UserID, extra, order string) ([]domain.Membership, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	cid, err := uuid.Parse(string(club))
	if err != nil {
		return []domain.Membership{}, nil
	}
	uids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		if uid, err := uuid.Parse(string(u)); err == nil {
			uids = append(uids, uid)
		}
	}
	if len(uids) == 0 {
		return []domain.Membership{}, nil
	}

	rows, err := postgres.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE club_id = $1
		  AND user_id = ANY($2)
		  AND departed_at IS NULL`+extra+`
		ORDER BY `+order+postgres.ForUpdate(ctx), cid, uids)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *Repo) ListByClub(ctx context.Context, club domain.ClubID, page domain.PageRequest) (domain.Page[domain.Membership], error) {
	if r.pool == nil {
		return domain.Page[domain.Membership]{}, errors.New("nil postgres pool")
	}
	out := domain.Page[domain.Membership]{Number: page.Number, Size: page.Size, Items: []domain.Membership{}}
	cid, err := uuid.Parse(string(club))
	if err != nil {
		return out, nil
	}
	q := postgres.Conn(ctx, r.pool)
	if err := q.QueryRow(ctx, `
		SELECT count(*) FROM memberships WHERE club_id = $1 AND departed_at IS NULL
	`, cid).Scan(&out.Total); err != nil {
		return domain.Page[domain.Membership]{}, err
	}
	rows, err := q.Query(ctx, `
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE club_id = $1 AND departed_at IS NULL
		ORDER BY joined_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`, cid, page.Size, page.Offset())
	if err != nil {
		return domain.Page[domain.Membership]{}, err
	}
	items, err := collect(rows)
	if err != nil {
		return domain.Page[domain.Membership]{}, err
	}
	out.Items = items
	return out, nil
}

func (r *Repo) ExistsActive(ctx context.Context, club domain.ClubID, user domain.UserID) (bool, error) {
	return r.exists(ctx, club, user, " AND departed_at IS NULL")
}

func (r *Repo) ExistsAny(ctx context.Context, club domain.ClubID, user domain.UserID) (bool, error) {
	return r.exists(ctx, club, user, "")
}

func (r *Repo) ListActiveClubIDs(ctx context.Context, user domain.UserID) ([]domain.ClubID, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(user))
	if err != nil {
		return []domain.ClubID{}, nil
	}
	rows, err := postgres.Conn(ctx, r.pool).Query(ctx, `
		SELECT club_id FROM memberships
		WHERE user_id = $1 AND departed_at IS NULL
		ORDER BY club_id
	`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ClubID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, domain.ClubID(id.String()))
	}
	return out, rows.Err()
}

func (r *Repo) findOne(ctx context.Context, club domain.ClubID, user domain.UserID, extra string) (domain.Membership, error) {
	if r.pool == nil {
		return domain.Membership{}, errors.New("nil postgres pool")
	}
	cid, uid, err := parsePair(club, user)
	if err != nil {
		return domain.Membership{}, membershiprepo.ErrNotFound
	}
	row := postgres.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE club_id = $1 AND user_id = $2 AND departed_at IS NULL`+extra+postgres.ForUpdate(ctx), cid, uid)
	return scanMembership(row)
}

func (r *Repo) exists(ctx context.Context, club domain.ClubID, user domain.UserID, extra string) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	cid, uid, err := parsePair(club, user)
	if err != nil {
		return false, nil
	}
	var ok bool
	err = postgres.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM memberships WHERE club_id = $1 AND user_id = $2`+extra+`
		)
	`, cid, uid).Scan(&ok)
	return ok, err
}

func collect(rows pgx.Rows) ([]domain.Membership, error) {
	defer rows.Close()
	out := make([]domain.Membership, 0)
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanMembership(row pgx.Row) (domain.Membership, error) {
	var (
		id, clubID, userID uuid.UUID
		role               string
		isOwner            bool
		joinedAt           time.Time
		departedAt         *time.Time
	)
	if err := row.Scan(&id, &clubID, &userID, &role, &isOwner, &joinedAt, &departedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Membership{}, membershiprepo.ErrNotFound
		}
		return domain.Membership{}, err
	}
	return domain.Membership{
		ID:         domain.MembershipID(id.String()),
		ClubID:     domain.ClubID(clubID.String()),
		UserID:     domain.UserID(userID.String()),
		Role:       domain.Role(role),
		IsOwner:    isOwner,
		JoinedAt:   joinedAt.UTC(),
		DepartedAt: utcPtr(departedAt),
	}, nil
}

func parsePair(club domain.ClubID, user domain.UserID) (uuid.UUID, uuid.UUID, error) {
	cid, err := uuid.Parse(string(club))
	if err != nil {
		return uuid.UUID{}, uuid.UUID{}, fmt.Errorf("invalid club id: %w", err)
	}
	uid, err := uuid.Parse(string(user))
	if err != nil {
		return uuid.UUID{}, uuid.UUID{}, fmt.Errorf("invalid user id: %w", err)
	}
	return cid, uid, nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if postgres.IsUniqueViolation(err, "memberships_active_unique") {
		return membershiprepo.ErrAlreadyActive
	}
	return err
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
