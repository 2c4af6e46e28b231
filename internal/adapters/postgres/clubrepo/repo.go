package clubrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/readers-guild/clubhouse-api/internal/adapters/postgres"
	"github.com/readers-guild/clubhouse-api/internal/domain"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/clubrepo"
)

// Repo is a Postgres implementation of clubrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const clubColumns = `c.id, c.name, c.description, c.image_file_name, c.visibility, c.created_at, c.disbanded_at`

func (r *Repo) Create(ctx context.Context, c domain.Club) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(c.ID))
	if err != nil {
		return fmt.Errorf("invalid club id: %w", err)
	}
	_, err = postgres.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO clubs (id, name, description, image_file_name, visibility, created_at, disbanded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		id,
		c.Name,
		c.Description,
		c.ImageFileName,
		string(c.Visibility),
		c.CreatedAt.UTC(),
		utcPtr(c.DisbandedAt),
	)
	return mapWriteError(err)
}

func (r *Repo) Save(ctx context.Context, c domain.Club) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(c.ID))
	if err != nil {
		return clubrepo.ErrNotFound
	}
	ct, err := postgres.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE clubs
		SET name = $2,
		    description = $3,
		    image_file_name = $4,
		    visibility = $5,
		    disbanded_at = $6
		WHERE id = $1
	`,
		id,
		c.Name,
		c.Description,
		c.ImageFileName,
		string(c.Visibility),
		utcPtr(c.DisbandedAt),
	)
	if err != nil {
		return mapWriteError(err)
	}
	if ct.RowsAffected() == 0 {
		return clubrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ClubID) (domain.Club, error) {
	if r.pool == nil {
		return domain.Club{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Club{}, clubrepo.ErrNotFound
	}
	row := postgres.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+clubColumns+`
		FROM clubs c
		WHERE c.id = $1`+postgres.ForUpdate(ctx), uid)
	return scanClub(row)
}

func (r *Repo) GetByName(ctx context.Context, name string) (domain.Club, error) {
	if r.pool == nil {
		return domain.Club{}, errors.New("nil postgres pool")
	}
	row := postgres.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+clubColumns+`
		FROM clubs c
		WHERE c.name = $1`+postgres.ForUpdate(ctx), name)
	return scanClub(row)
}

func (r *Repo) GetByIDForAdmin(ctx context.Context, id domain.ClubID, user domain.UserID) (domain.Club, error) {
	if r.pool == nil {
		return domain.Club{}, errors.New("nil postgres pool")
	}
	cid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Club{}, clubrepo.ErrNotFound
	}
	uid, err := uuid.Parse(string(user))
	if err != nil {
		return domain.Club{}, clubrepo.ErrNotFound
	}
	lock := ""
	if postgres.InTx(ctx) {
		lock = " FOR UPDATE OF c"
	}
	row := postgres.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+clubColumns+`
		FROM clubs c
		JOIN memberships m ON m.club_id = c.id
		WHERE c.id = $1
		  AND m.user_id = $2
		  AND m.role = 'ADMIN'
		  AND m.departed_at IS NULL`+lock, cid, uid)
	return scanClub(row)
}

func (r *Repo) Search(ctx context.Context, term string, page domain.PageRequest) (domain.Page[domain.Club], error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(term))) + "%"
	return r.listPage(ctx, `
		FROM clubs c
		WHERE c.visibility <> 'PRIVATE'
		  AND c.disbanded_at IS NULL
		  AND lower(c.name) LIKE $1 ESCAPE '\'
	`, []any{pattern}, page)
}

func (r *Repo) ListDirectory(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Club], error) {
	return r.listPage(ctx, `
		FROM clubs c
		WHERE c.visibility = 'PUBLIC'
		  AND c.disbanded_at IS NULL
	`, nil, page)
}

func (r *Repo) ListForUser(ctx context.Context, user domain.UserID, page domain.PageRequest) (domain.Page[domain.Club], error) {
	uid, err := uuid.Parse(string(user))
	if err != nil {
		return domain.Page[domain.Club]{Number: page.Number, Size: page.Size, Items: []domain.Club{}}, nil
	}
	return r.listPage(ctx, `
		FROM clubs c
		JOIN memberships m ON m.club_id = c.id
		WHERE m.user_id = $1
		  AND m.departed_at IS NULL
	`, []any{uid}, page)
}

// listPage counts and then selects one page of clubs matching fromWhere.
// Placeholders in fromWhere are numbered from $1; limit and offset are appended after args.
func (r *Repo) listPage(ctx context.Context, fromWhere string, args []any, page domain.PageRequest) (domain.Page[domain.Club], error) {
	if r.pool == nil {
		return domain.Page[domain.Club]{}, errors.New("nil postgres pool")
	}
	q := postgres.Conn(ctx, r.pool)
	out := domain.Page[domain.Club]{Number: page.Number, Size: page.Size, Items: []domain.Club{}}

	if err := q.QueryRow(ctx, `SELECT count(*) `+fromWhere, args...).Scan(&out.Total); err != nil {
		return domain.Page[domain.Club]{}, err
	}

	n := len(args)
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT %s %s
		ORDER BY lower(c.name) ASC, c.id ASC
		LIMIT $%d OFFSET $%d
	`, clubColumns, fromWhere, n+1, n+2), append(append([]any{}, args...), page.Size, page.Offset())...)
	if err != nil {
		return domain.Page[domain.Club]{}, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanClub(rows)
		if err != nil {
			return domain.Page[domain.Club]{}, err
		}
		out.Items = append(out.Items, c)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Club]{}, err
	}
	return out, nil
}

func scanClub(row pgx.Row) (domain.Club, error) {
	var (
		id          uuid.UUID
		name        string
		description string
		image       *string
		visibility  string
		createdAt   time.Time
		disbandedAt *time.Time
	)
	if err := row.Scan(&id, &name, &description, &image, &visibility, &createdAt, &disbandedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Club{}, clubrepo.ErrNotFound
		}
		return domain.Club{}, err
	}
	return domain.Club{
		ID:            domain.ClubID(id.String()),
		Name:          name,
		Description:   description,
		ImageFileName: image,
		Visibility:    domain.Visibility(visibility),
		CreatedAt:     createdAt.UTC(),
		DisbandedAt:   utcPtr(disbandedAt),
	}, nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
		switch pe.ConstraintName {
		case "clubs_name_unique":
			return clubrepo.ErrNameTaken
		case "clubs_pkey":
			return clubrepo.ErrAlreadyExists
		}
	}
	return err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
