package userrepo

import (
	"context"

	"github.com/readers-guild/clubhouse-api/internal/domain"
)

// Repository provides access to persisted users.
//
// Usernames are unique ignoring case.
type Repository interface {
	Create(ctx context.Context, u domain.User) error

	GetByID(ctx context.Context, id domain.UserID) (domain.User, error)
	GetBySubject(ctx context.Context, subject domain.SubjectID) (domain.User, error)
}
