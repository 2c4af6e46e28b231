package requestrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/readers-guild/clubhouse-api/internal/domain"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/requestrepo"
)

// Repo is an in-memory implementation of requestrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.MembershipRequestID]domain.MembershipRequest
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.MembershipRequestID]domain.MembershipRequest)}
}

func (r *Repo) Create(ctx context.Context, req domain.MembershipRequest) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[req.ID]; ok || req.ID == "" {
		return requestrepo.ErrAlreadyExists
	}
	r.byID[req.ID] = cloneRequest(req)
	return nil
}

func (r *Repo) Save(ctx context.Context, req domain.MembershipRequest) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[req.ID]
	if !ok {
		return requestrepo.ErrNotFound
	}
	req.ClubID = existing.ClubID
	req.UserID = existing.UserID
	req.RequestedAt = existing.RequestedAt
	r.byID[req.ID] = cloneRequest(req)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.MembershipRequestID) (domain.MembershipRequest, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.byID[id]
	if !ok {
		return domain.MembershipRequest{}, requestrepo.ErrNotFound
	}
	return cloneRequest(req), nil
}

func (r *Repo) ListByClub(ctx context.Context, club domain.ClubID, page domain.PageRequest) (domain.Page[domain.MembershipRequest], error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.MembershipRequest, 0)
	for _, req := range r.byID {
		if req.ClubID == club {
			all = append(all, cloneRequest(req))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].RequestedAt.Equal(all[j].RequestedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].RequestedAt.After(all[j].RequestedAt)
	})
	return domain.SlicePage(all, page), nil
}

func (r *Repo) ExistsInStatus(ctx context.Context, club domain.ClubID, user domain.UserID, status domain.RequestStatus) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, req := range r.byID {
		if req.ClubID == club && req.UserID == user && req.Status == status {
			return true, nil
		}
	}
	return false, nil
}

func cloneRequest(req domain.MembershipRequest) domain.MembershipRequest {
	out := req
	if req.ReviewerID != nil {
		v := *req.ReviewerID
		out.ReviewerID = &v
	}
	if req.ReviewMessage != nil {
		v := *req.ReviewMessage
		out.ReviewMessage = &v
	}
	if req.ReviewedAt != nil {
		v := *req.ReviewedAt
		out.ReviewedAt = &v
	}
	return out
}
