package domain

// SubjectID is the authenticated subject extracted from JWT claims (typically "sub").
// We model it as an opaque identifier: its format is controlled by the IdP.
type SubjectID string

// UserID is an internal identifier for a user record.
type UserID string

// ClubID is an internal identifier for a club record.
type ClubID string

// MembershipID is an internal identifier for a membership record.
type MembershipID string

// MembershipRequestID is an internal identifier for a join request.
type MembershipRequestID string

type NotificationID string
