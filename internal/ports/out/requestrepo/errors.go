package requestrepo

import "errors"

var (
	ErrNotFound      = errors.New("membership request not found")
	ErrAlreadyExists = errors.New("membership request already exists")
)
