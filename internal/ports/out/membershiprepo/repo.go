package membershiprepo

import (
	"context"

	"github.com/readers-guild/clubhouse-api/internal/domain"
)

// Repository provides access to persisted memberships.
//
// "Active" means DepartedAt is nil. Find* methods only ever return active memberships.
type Repository interface {
	// Create inserts m. It fails with ErrAlreadyActive when m is active and the
	// (club, user) pair already has an active membership.
	Create(ctx context.Context, m domain.Membership) error
	// Save overwrites role, ownership and departure of an existing membership.
	Save(ctx context.Context, m domain.Membership) error

	FindActive(ctx context.Context, club domain.ClubID, user domain.UserID) (domain.Membership, error)
	FindActiveWithRole(ctx context.Context, club domain.ClubID, user domain.UserID, role domain.Role) (domain.Membership, error)
	FindActiveOwner(ctx context.Context, club domain.ClubID, user domain.UserID) (domain.Membership, error)

	// ListActive returns the active memberships of club held by any of users,
	// ordered by ID. Inside a transaction one statement locks every returned row,
	// so callers touching several members never lock them in differing orders.
	ListActive(ctx context.Context, club domain.ClubID, users []domain.UserID) ([]domain.Membership, error)
	// ListActiveOwners returns the active owner memberships of club held by any of users.
	ListActiveOwners(ctx context.Context, club domain.ClubID, users []domain.UserID) ([]domain.Membership, error)

	// ListByClub lists the active memberships of club ordered by JoinedAt ascending, then ID.
	ListByClub(ctx context.Context, club domain.ClubID, page domain.PageRequest) (domain.Page[domain.Membership], error)

	ExistsActive(ctx context.Context, club domain.ClubID, user domain.UserID) (bool, error)
	// ExistsAny reports whether user ever held a membership in club, departed ones included.
	ExistsAny(ctx context.Context, club domain.ClubID, user domain.UserID) (bool, error)

	ListActiveClubIDs(ctx context.Context, user domain.UserID) ([]domain.ClubID, error)
}
