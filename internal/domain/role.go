package domain

// Role is a member's privilege level within a club.
//
// Roles are totally ordered: NONE < USER < ADMIN. Ownership is not a role;
// it is carried separately on the membership.
type Role string

const (
	// RoleNone marks a known non-member. It is never persisted on an active membership.
	RoleNone  Role = "NONE"
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Rank returns the position of r in the role ordering. Unknown roles rank below NONE.
func (r Role) Rank() int {
	switch r {
	case RoleNone:
		return 0
	case RoleUser:
		return 1
	case RoleAdmin:
		return 2
	default:
		return -1
	}
}

// AtLeast reports whether r is ranked at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Rank() >= min.Rank() && r.Rank() >= 0
}

func (r Role) Valid() bool { return r.Rank() >= 0 }

// Assignable reports whether r can be held by an active membership.
func (r Role) Assignable() bool { return r == RoleUser || r == RoleAdmin }
