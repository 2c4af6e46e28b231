package membershiprepo

import (
	"context"
	"sort"
	"sync"

	"github.com/readers-guild/clubhouse-api/internal/domain"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/membershiprepo"
)

type pairKey struct {
	club domain.ClubID
	user domain.UserID
}

// Repo is an in-memory implementation of membershiprepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID map[domain.MembershipID]domain.Membership
	// active indexes the single active membership of each (club, user) pair.
	active map[pairKey]domain.MembershipID
	// history holds every membership ID ever created for a pair.
	history map[pairKey][]domain.MembershipID
}

func NewRepo() *Repo {
	return &Repo{
		byID:    make(map[domain.MembershipID]domain.Membership),
		active:  make(map[pairKey]domain.MembershipID),
		history: make(map[pairKey][]domain.MembershipID),
	}
}

func (r *Repo) Create(ctx context.Context, m domain.Membership) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[m.ID]; ok || m.ID == "" {
		return membershiprepo.ErrAlreadyActive
	}
	k := pairKey{club: m.ClubID, user: m.UserID}
	if m.IsActive() {
		if _, ok := r.active[k]; ok {
			return membershiprepo.ErrAlreadyActive
		}
		r.active[k] = m.ID
	}
	r.byID[m.ID] = cloneMembership(m)
	r.history[k] = append(r.history[k], m.ID)
	return nil
}

func (r *Repo) Save(ctx context.Context, m domain.Membership) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[m.ID]
	if !ok {
		return membershiprepo.ErrNotFound
	}
	// Club and user bindings are immutable.
	m.ClubID = existing.ClubID
	m.UserID = existing.UserID
	m.JoinedAt = existing.JoinedAt

	k := pairKey{club: m.ClubID, user: m.UserID}
	switch {
	case existing.IsActive() && !m.IsActive():
		delete(r.active, k)
	case !existing.IsActive() && m.IsActive():
		if _, taken := r.active[k]; taken {
			return membershiprepo.ErrAlreadyActive
		}
		r.active[k] = m.ID
	}
	r.byID[m.ID] = cloneMembership(m)
	return nil
}

func (r *Repo) FindActive(ctx context.Context, club domain.ClubID, user domain.UserID) (domain.Membership, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findActiveLocked(club, user)
}

func (r *Repo) FindActiveWithRole(ctx context.Context, club domain.ClubID, user domain.UserID, role domain.Role) (domain.Membership, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, err := r.findActiveLocked(club, user)
	if err != nil {
		return domain.Membership{}, err
	}
	if m.Role != role {
		return domain.Membership{}, membershiprepo.ErrNotFound
	}
	return m, nil
}

func (r *Repo) FindActiveOwner(ctx context.Context, club domain.ClubID, user domain.UserID) (domain.Membership, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, err := r.findActiveLocked(club, user)
	if err != nil {
		return domain.Membership{}, err
	}
	if !m.IsOwner {
		return domain.Membership{}, membershiprepo.ErrNotFound
	}
	return m, nil
}

func (r *Repo) ListActive(ctx context.Context, club domain.ClubID, users []domain.UserID) ([]domain.Membership, error) {
	out := r.listActive(ctx, club, users, false)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repo) ListActiveOwners(ctx context.Context, club domain.ClubID, users []domain.UserID) ([]domain.Membership, error) {
	return r.listActive(ctx, club, users, true), nil
}

func (r *Repo) listActive(ctx context.Context, club domain.ClubID, users []domain.UserID, ownersOnly bool) []domain.Membership {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Membership, 0, len(users))
	seen := make(map[domain.UserID]struct{}, len(users))
	for _, u := range users {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		m, err := r.findActiveLocked(club, u)
		if err != nil || (ownersOnly && !m.IsOwner) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (r *Repo) ListByClub(ctx context.Context, club domain.ClubID, page domain.PageRequest) (domain.Page[domain.Membership], error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Membership, 0)
	for k, id := range r.active {
		if k.club != club {
			continue
		}
		all = append(all, cloneMembership(r.byID[id]))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].JoinedAt.Equal(all[j].JoinedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].JoinedAt.Before(all[j].JoinedAt)
	})
	return domain.SlicePage(all, page), nil
}

func (r *Repo) ExistsActive(ctx context.Context, club domain.ClubID, user domain.UserID) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.active[pairKey{club: club, user: user}]
	return ok, nil
}

func (r *Repo) ExistsAny(ctx context.Context, club domain.ClubID, user domain.UserID) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.history[pairKey{club: club, user: user}]) > 0, nil
}

func (r *Repo) ListActiveClubIDs(ctx context.Context, user domain.UserID) ([]domain.ClubID, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ClubID, 0)
	for k := range r.active {
		if k.user == user {
			out = append(out, k.club)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *Repo) findActiveLocked(club domain.ClubID, user domain.UserID) (domain.Membership, error) {
	id, ok := r.active[pairKey{club: club, user: user}]
	if !ok {
		return domain.Membership{}, membershiprepo.ErrNotFound
	}
	return cloneMembership(r.byID[id]), nil
}

func cloneMembership(m domain.Membership) domain.Membership {
	out := m
	if m.DepartedAt != nil {
		v := *m.DepartedAt
		out.DepartedAt = &v
	}
	return out
}
