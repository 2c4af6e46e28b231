package notificationrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/readers-guild/clubhouse-api/internal/domain"
)

// Repo is an in-memory implementation of notificationrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu       sync.RWMutex
	byTarget map[domain.UserID][]domain.Notification
}

func NewRepo() *Repo {
	return &Repo{byTarget: make(map[domain.UserID][]domain.Notification)}
}

func (r *Repo) Create(ctx context.Context, n domain.Notification) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ClubID != nil {
		v := *n.ClubID
		n.ClubID = &v
	}
	r.byTarget[n.TargetUserID] = append(r.byTarget[n.TargetUserID], n)
	return nil
}

func (r *Repo) ListForUser(ctx context.Context, user domain.UserID, page domain.PageRequest) (domain.Page[domain.Notification], error) {
	_ = ctx
	r.mu.RLock()
	all := append([]domain.Notification(nil), r.byTarget[user]...)
	r.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return domain.SlicePage(all, page), nil
}
