package clubrepo

import (
	"context"

	"github.com/readers-guild/clubhouse-api/internal/domain"
)

// Repository provides access to persisted clubs.
//
// Result ordering expectations:
// - Search/ListDirectory/ListForUser return clubs ordered by Name ascending (case-insensitive), then ID.
type Repository interface {
	Create(ctx context.Context, c domain.Club) error
	// Save overwrites the mutable fields of an existing club.
	Save(ctx context.Context, c domain.Club) error

	GetByID(ctx context.Context, id domain.ClubID) (domain.Club, error)
	GetByName(ctx context.Context, name string) (domain.Club, error)

	// GetByIDForAdmin returns the club only if user holds an active ADMIN membership in it.
	GetByIDForAdmin(ctx context.Context, id domain.ClubID, user domain.UserID) (domain.Club, error)

	// Search matches term as a case-insensitive substring of the name.
	// Private and disbanded clubs are excluded.
	Search(ctx context.Context, term string, page domain.PageRequest) (domain.Page[domain.Club], error)
	// ListDirectory lists public, non-disbanded clubs.
	ListDirectory(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Club], error)
	// ListForUser lists clubs in which user holds an active membership, disbanded included.
	ListForUser(ctx context.Context, user domain.UserID, page domain.PageRequest) (domain.Page[domain.Club], error)
}
