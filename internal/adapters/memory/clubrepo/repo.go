package clubrepo

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/readers-guild/clubhouse-api/internal/domain"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/clubrepo"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/membershiprepo"
)

// Repo is an in-memory implementation of clubrepo.Repository.
// It is safe for concurrent use.
//
// Membership-scoped queries (GetByIDForAdmin, ListForUser) delegate to the
// provided membership repository.
type Repo struct {
	mu sync.RWMutex

	byID       map[domain.ClubID]domain.Club
	idByName   map[string]domain.ClubID
	membership membershiprepo.Repository
}

func NewRepo(memberships membershiprepo.Repository) *Repo {
	return &Repo{
		byID:       make(map[domain.ClubID]domain.Club),
		idByName:   make(map[string]domain.ClubID),
		membership: memberships,
	}
}

func (r *Repo) Create(ctx context.Context, c domain.Club) error {
	_ = ctx
	if c.ID == "" {
		return clubrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[c.ID]; ok {
		return clubrepo.ErrAlreadyExists
	}
	if _, ok := r.idByName[c.Name]; ok {
		return clubrepo.ErrNameTaken
	}
	r.byID[c.ID] = cloneClub(c)
	r.idByName[c.Name] = c.ID
	return nil
}

func (r *Repo) Save(ctx context.Context, c domain.Club) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[c.ID]
	if !ok {
		return clubrepo.ErrNotFound
	}
	if c.Name != existing.Name {
		if _, taken := r.idByName[c.Name]; taken {
			return clubrepo.ErrNameTaken
		}
		delete(r.idByName, existing.Name)
		r.idByName[c.Name] = c.ID
	}
	c.CreatedAt = existing.CreatedAt
	r.byID[c.ID] = cloneClub(c)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ClubID) (domain.Club, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return domain.Club{}, clubrepo.ErrNotFound
	}
	return cloneClub(c), nil
}

func (r *Repo) GetByName(ctx context.Context, name string) (domain.Club, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByName[name]
	if !ok {
		return domain.Club{}, clubrepo.ErrNotFound
	}
	return cloneClub(r.byID[id]), nil
}

func (r *Repo) GetByIDForAdmin(ctx context.Context, id domain.ClubID, user domain.UserID) (domain.Club, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.Club{}, err
	}
	if _, err := r.membership.FindActiveWithRole(ctx, id, user, domain.RoleAdmin); err != nil {
		if errors.Is(err, membershiprepo.ErrNotFound) {
			return domain.Club{}, clubrepo.ErrNotFound
		}
		return domain.Club{}, err
	}
	return c, nil
}

func (r *Repo) Search(ctx context.Context, term string, page domain.PageRequest) (domain.Page[domain.Club], error) {
	_ = ctx
	needle := strings.ToLower(strings.TrimSpace(term))
	return r.list(page, func(c domain.Club) bool {
		return c.Visibility != domain.VisibilityPrivate &&
			!c.IsDisbanded() &&
			strings.Contains(strings.ToLower(c.Name), needle)
	}), nil
}

func (r *Repo) ListDirectory(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Club], error) {
	_ = ctx
	return r.list(page, func(c domain.Club) bool {
		return c.Visibility == domain.VisibilityPublic && !c.IsDisbanded()
	}), nil
}

func (r *Repo) ListForUser(ctx context.Context, user domain.UserID, page domain.PageRequest) (domain.Page[domain.Club], error) {
	ids, err := r.membership.ListActiveClubIDs(ctx, user)
	if err != nil {
		return domain.Page[domain.Club]{}, err
	}
	want := make(map[domain.ClubID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return r.list(page, func(c domain.Club) bool {
		_, ok := want[c.ID]
		return ok
	}), nil
}

func (r *Repo) list(page domain.PageRequest, keep func(domain.Club) bool) domain.Page[domain.Club] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Club, 0)
	for _, c := range r.byID {
		if keep(c) {
			all = append(all, cloneClub(c))
		}
	}
	sortClubsByName(all)
	return domain.SlicePage(all, page)
}

func sortClubsByName(cs []domain.Club) {
	sort.Slice(cs, func(i, j int) bool {
		ni := strings.ToLower(cs[i].Name)
		nj := strings.ToLower(cs[j].Name)
		if ni == nj {
			return cs[i].ID < cs[j].ID
		}
		return ni < nj
	})
}

func cloneClub(c domain.Club) domain.Club {
	out := c
	if c.ImageFileName != nil {
		v := *c.ImageFileName
		out.ImageFileName = &v
	}
	if c.DisbandedAt != nil {
		v := *c.DisbandedAt
		out.DisbandedAt = &v
	}
	return out
}
