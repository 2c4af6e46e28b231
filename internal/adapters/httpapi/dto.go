package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"

	"github.com/readers-guild/clubhouse-api/internal/app/clubs"
	"github.com/readers-guild/clubhouse-api/internal/domain"
)

type UserResponse struct {
	ID       string    `json:"id"`
	Subject  string    `json:"subject"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joinedAt"`
}

type ClubResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	ImageFileName *string    `json:"imageFileName"`
	Visibility    string     `json:"visibility"`
	CreatedAt     time.Time  `json:"createdAt"`
	DisbandedAt   *time.Time `json:"disbandedAt,omitempty"`
}

// MembershipResponse also describes transient (non-member) views, which have no ID
// and no join time.
type MembershipResponse struct {
	ID         string     `json:"id,omitempty"`
	ClubID     string     `json:"clubId"`
	UserID     string     `json:"userId"`
	Role       string     `json:"role"`
	IsOwner    bool       `json:"isOwner"`
	JoinedAt   *time.Time `json:"joinedAt,omitempty"`
	DepartedAt *time.Time `json:"departedAt,omitempty"`
}

type MembershipRequestResponse struct {
	ID            string     `json:"id"`
	ClubID        string     `json:"clubId"`
	UserID        string     `json:"userId"`
	Message       string     `json:"message"`
	Status        string     `json:"status"`
	Role          string     `json:"role,omitempty"`
	ReviewerID    *string    `json:"reviewerId,omitempty"`
	ReviewMessage *string    `json:"reviewMessage,omitempty"`
	RequestedAt   time.Time  `json:"requestedAt"`
	ReviewedAt    *time.Time `json:"reviewedAt,omitempty"`
}

type NotificationResponse struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	SourceUserID string    `json:"sourceUserId"`
	TargetUserID string    `json:"targetUserId"`
	ClubID       *string   `json:"clubId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type PageResponse[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type RoleResponse struct {
	Role string `json:"role"`
}

type PendingResponse struct {
	Pending bool `json:"pending"`
}

type ProvisionUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type CreateClubRequest struct {
	Name          string  `json:"name"`
	Description   *string `json:"description,omitempty"`
	ImageFileName *string `json:"imageFileName,omitempty"`
	Visibility    *string `json:"visibility,omitempty"`
}

// UpdateClubRequest distinguishes omitted fields from explicit nulls.
type UpdateClubRequest struct {
	Name          nullable.Nullable[string] `json:"name,omitempty"`
	Description   nullable.Nullable[string] `json:"description,omitempty"`
	ImageFileName nullable.Nullable[string] `json:"imageFileName,omitempty"`
	Visibility    nullable.Nullable[string] `json:"visibility,omitempty"`
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

type AddOwnerRequest struct {
	UserID string `json:"userId"`
}

type RequestMembershipRequest struct {
	Message string `json:"message"`
}

type ReviewRequest struct {
	Action  string `json:"action"`
	Role    string `json:"role,omitempty"`
	Message string `json:"message,omitempty"`
}

func userFromDomain(u domain.User) UserResponse {
	return UserResponse{
		ID:       string(u.ID),
		Subject:  string(u.Subject),
		Username: u.Username,
		Email:    u.Email,
		JoinedAt: u.JoinedAt,
	}
}

func clubFromDomain(c domain.Club) ClubResponse {
	return ClubResponse{
		ID:            string(c.ID),
		Name:          c.Name,
		Description:   c.Description,
		ImageFileName: c.ImageFileName,
		Visibility:    string(c.Visibility),
		CreatedAt:     c.CreatedAt,
		DisbandedAt:   c.DisbandedAt,
	}
}

func membershipFromDomain(m domain.Membership) MembershipResponse {
	out := MembershipResponse{
		ID:         string(m.ID),
		ClubID:     string(m.ClubID),
		UserID:     string(m.UserID),
		Role:       string(m.Role),
		IsOwner:    m.IsOwner,
		DepartedAt: m.DepartedAt,
	}
	if !m.JoinedAt.IsZero() {
		t := m.JoinedAt
		out.JoinedAt = &t
	}
	return out
}

func membershipRequestFromDomain(r domain.MembershipRequest) MembershipRequestResponse {
	out := MembershipRequestResponse{
		ID:            string(r.ID),
		ClubID:        string(r.ClubID),
		UserID:        string(r.UserID),
		Message:       r.Message,
		Status:        string(r.Status),
		Role:          string(r.Role),
		ReviewMessage: r.ReviewMessage,
		RequestedAt:   r.RequestedAt,
		ReviewedAt:    r.ReviewedAt,
	}
	if r.ReviewerID != nil {
		s := string(*r.ReviewerID)
		out.ReviewerID = &s
	}
	return out
}

func notificationFromDomain(n domain.Notification) NotificationResponse {
	out := NotificationResponse{
		ID:           string(n.ID),
		Type:         string(n.Type),
		SourceUserID: string(n.SourceUserID),
		TargetUserID: string(n.TargetUserID),
		CreatedAt:    n.CreatedAt,
	}
	if n.ClubID != nil {
		s := string(*n.ClubID)
		out.ClubID = &s
	}
	return out
}

func pageFromDomain[T, D any](p domain.Page[T], conv func(T) D) PageResponse[D] {
	items := make([]D, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, conv(it))
	}
	return PageResponse[D]{
		Items:      items,
		Page:       p.Number,
		Size:       p.Size,
		Total:      p.Total,
		TotalPages: p.TotalPages(),
	}
}

func createClubInputFromRequest(b CreateClubRequest) clubs.CreateInput {
	in := clubs.CreateInput{
		Name:          b.Name,
		ImageFileName: b.ImageFileName,
	}
	if b.Description != nil {
		in.Description = *b.Description
	}
	if b.Visibility != nil {
		in.Visibility = domain.Visibility(*b.Visibility)
	}
	return in
}

func updateClubInputFromRequest(b UpdateClubRequest) clubs.UpdateInput {
	return clubs.UpdateInput{
		Name:          optionalFromNullable(b.Name, func(s string) string { return s }),
		Description:   optionalFromNullable(b.Description, func(s string) string { return s }),
		ImageFileName: optionalFromNullable(b.ImageFileName, func(s string) string { return s }),
		Visibility:    optionalFromNullable(b.Visibility, func(s string) domain.Visibility { return domain.Visibility(s) }),
	}
}

func optionalFromNullable[T, U any](n nullable.Nullable[T], conv func(T) U) clubs.Optional[U] {
	if !n.IsSpecified() {
		return clubs.Unspecified[U]()
	}
	if n.IsNull() {
		return clubs.Null[U]()
	}
	v, err := n.Get()
	if err != nil {
		return clubs.Null[U]()
	}
	return clubs.Some(conv(v))
}
