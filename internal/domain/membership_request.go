package domain

import "time"

type RequestStatus string

const (
	RequestStatusOpen     RequestStatus = "OPEN"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// ReviewAction is an admin's decision on an open request.
type ReviewAction string

const (
	ReviewApprove ReviewAction = "APPROVE"
	ReviewReject  ReviewAction = "REJECT"
)

func (a ReviewAction) Valid() bool { return a == ReviewApprove || a == ReviewReject }

// MembershipRequest is a user's request to join a club.
//
// A request is created OPEN and transitions exactly once to APPROVED or REJECTED.
type MembershipRequest struct {
	ID      MembershipRequestID
	ClubID  ClubID
	UserID  UserID
	Message string
	Status  RequestStatus

	// Role is set on review; RoleNone when rejected, empty while open.
	Role          Role
	ReviewerID    *UserID
	ReviewMessage *string
	Viewed        bool

	RequestedAt time.Time
	ReviewedAt  *time.Time
}

func (r MembershipRequest) IsOpen() bool { return r.Status == RequestStatusOpen }
