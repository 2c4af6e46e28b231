package userrepo

import (
	"context"
	"strings"
	"sync"

	"github.com/readers-guild/clubhouse-api/internal/domain"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/userrepo"
)

// Repo is an in-memory implementation of userrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID         map[domain.UserID]domain.User
	idBySub      map[domain.SubjectID]domain.UserID
	idByUsername map[string]domain.UserID
}

func NewRepo() *Repo {
	return &Repo{
		byID:         make(map[domain.UserID]domain.User),
		idBySub:      make(map[domain.SubjectID]domain.UserID),
		idByUsername: make(map[string]domain.UserID),
	}
}

func (r *Repo) Create(ctx context.Context, u domain.User) error {
	_ = ctx
	if u.ID == "" {
		return userrepo.ErrAlreadyExists // treat empty ID as invalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[u.ID]; ok {
		return userrepo.ErrAlreadyExists
	}
	if existingID, ok := r.idBySub[u.Subject]; ok && existingID != "" {
		return userrepo.ErrSubjectAlreadyBound
	}
	uname := strings.ToLower(u.Username)
	if _, ok := r.idByUsername[uname]; ok {
		return userrepo.ErrUsernameTaken
	}

	r.byID[u.ID] = cloneUser(u)
	r.idBySub[u.Subject] = u.ID
	r.idByUsername[uname] = u.ID
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, userrepo.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.SubjectID) (domain.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idBySub[subject]
	if !ok {
		return domain.User{}, userrepo.ErrNotFound
	}
	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, userrepo.ErrNotFound
	}
	return cloneUser(u), nil
}

func cloneUser(u domain.User) domain.User {
	out := u
	if u.DepartedAt != nil {
		v := *u.DepartedAt
		out.DepartedAt = &v
	}
	return out
}
