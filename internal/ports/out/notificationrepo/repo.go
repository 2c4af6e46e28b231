package notificationrepo

import (
	"context"

	"github.com/readers-guild/clubhouse-api/internal/domain"
)

// Repository stores user activity notifications.
type Repository interface {
	Create(ctx context.Context, n domain.Notification) error

	// ListForUser lists notifications targeted at user, newest first.
	ListForUser(ctx context.Context, user domain.UserID, page domain.PageRequest) (domain.Page[domain.Notification], error)
}
