package domain

import "time"

// Membership links a user to a club.
//
// At most one active membership (DepartedAt == nil) exists per (club, user).
// An owner always holds RoleAdmin.
type Membership struct {
	ID      MembershipID
	ClubID  ClubID
	UserID  UserID
	Role    Role
	IsOwner bool

	JoinedAt   time.Time
	DepartedAt *time.Time
}

func (m Membership) IsActive() bool { return m.DepartedAt == nil }

// TransientMembership describes a user with no active membership in club.
// It has no ID and must not be persisted.
func TransientMembership(club ClubID, user UserID) Membership {
	return Membership{
		ClubID: club,
		UserID: user,
		Role:   RoleNone,
	}
}
