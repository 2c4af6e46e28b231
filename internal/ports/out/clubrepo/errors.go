package clubrepo

import "errors"

var (
	// ErrNotFound indicates the requested club does not exist.
	ErrNotFound = errors.New("club not found")

	// ErrNameTaken indicates another club already uses the provided name.
	ErrNameTaken = errors.New("club name already taken")

	// ErrAlreadyExists indicates a club already exists with the provided ID.
	ErrAlreadyExists = errors.New("club already exists")
)
