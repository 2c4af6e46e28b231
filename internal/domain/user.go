package domain

import "time"

// User is the user record bound to an IdP subject.
type User struct {
	ID       UserID
	Subject  SubjectID
	Username string
	Email    string

	JoinedAt   time.Time
	DepartedAt *time.Time
}

// Principal is the authenticated user on whose behalf an operation runs.
// The zero value means "no authenticated user".
type Principal struct {
	UserID   UserID
	Subject  SubjectID
	Username string
}

func (p Principal) IsZero() bool { return p.UserID == "" }

func (u User) Principal() Principal {
	return Principal{UserID: u.ID, Subject: u.Subject, Username: u.Username}
}
