// Package notifications serves a user's activity feed.
package notifications

import (
	"context"

	"github.com/readers-guild/clubhouse-api/internal/app/access"
	"github.com/readers-guild/clubhouse-api/internal/app/paging"
	"github.com/readers-guild/clubhouse-api/internal/domain"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/notificationrepo"
)

type Service struct {
	repo notificationrepo.Repository
}

func NewService(repo notificationrepo.Repository) *Service {
	return &Service{repo: repo}
}

// ListMine pages through notifications targeted at user, newest first.
func (s *Service) ListMine(ctx context.Context, user domain.Principal, page domain.PageRequest) (domain.Page[domain.Notification], error) {
	if err := access.RequirePrincipal(user); err != nil {
		return domain.Page[domain.Notification]{}, err
	}
	return paging.Fetch(ctx, page, func(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Notification], error) {
		return s.repo.ListForUser(ctx, user.UserID, req)
	})
}
