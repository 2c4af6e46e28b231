package domain

import "time"

type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// DefaultClubDescription is applied when a club is created without a description.
const DefaultClubDescription = "A book club for reading books!"

// reservedClubNames collide with route segments and cannot be used as club names.
var reservedClubNames = map[string]struct{}{
	"create":  {},
	"default": {},
}

// IsReservedClubName reports whether name matches a reserved name, ignoring case.
func IsReservedClubName(name string) bool {
	_, ok := reservedClubNames[foldName(name)]
	return ok
}

// Club is an interest group that users join.
type Club struct {
	ID          ClubID
	Name        string
	Description string
	// ImageFileName is an opaque reference; it is never resolved against storage here.
	ImageFileName *string
	Visibility    Visibility

	CreatedAt   time.Time
	DisbandedAt *time.Time
}

func (c Club) IsDisbanded() bool { return c.DisbandedAt != nil }
