package requestrepo

import (
	"context"

	"github.com/readers-guild/clubhouse-api/internal/domain"
)

// Repository provides access to persisted membership requests.
type Repository interface {
	Create(ctx context.Context, r domain.MembershipRequest) error
	// Save overwrites the review fields of an existing request.
	Save(ctx context.Context, r domain.MembershipRequest) error

	GetByID(ctx context.Context, id domain.MembershipRequestID) (domain.MembershipRequest, error)

	// ListByClub lists requests for club ordered by RequestedAt descending, then ID.
	ListByClub(ctx context.Context, club domain.ClubID, page domain.PageRequest) (domain.Page[domain.MembershipRequest], error)

	ExistsInStatus(ctx context.Context, club domain.ClubID, user domain.UserID, status domain.RequestStatus) (bool, error)
}
