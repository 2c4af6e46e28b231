package membershiprepo

import "errors"

var (
	// ErrNotFound indicates no membership matched the query.
	ErrNotFound = errors.New("membership not found")

	// ErrAlreadyActive indicates an active membership already exists for the (club, user) pair.
	ErrAlreadyActive = errors.New("active membership already exists")
)
