package domain

import "time"

type NotificationType string

const (
	NotificationUserRegistered      NotificationType = "USER_REGISTERED"
	NotificationClubCreated         NotificationType = "CLUB_CREATED"
	NotificationClubUpdated         NotificationType = "CLUB_UPDATED"
	NotificationClubDisbanded       NotificationType = "CLUB_DISBANDED"
	NotificationMembershipRequested NotificationType = "MEMBERSHIP_REQUESTED"
	NotificationMembershipApproved  NotificationType = "MEMBERSHIP_APPROVED"
	NotificationMembershipRejected  NotificationType = "MEMBERSHIP_REJECTED"
)

// Notification records an event for a user's activity feed.
type Notification struct {
	ID           NotificationID
	SourceUserID UserID
	TargetUserID UserID
	ClubID       *ClubID
	Type         NotificationType
	CreatedAt    time.Time
}
