package userrepo

import "errors"

var (
	// ErrNotFound indicates the requested user does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrSubjectAlreadyBound indicates a user already exists for the provided subject.
	ErrSubjectAlreadyBound = errors.New("user subject already bound")

	// ErrUsernameTaken indicates another user already uses the provided username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrAlreadyExists indicates a user already exists with the provided ID.
	ErrAlreadyExists = errors.New("user already exists")
)
