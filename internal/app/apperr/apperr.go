// Package apperr defines the single error type returned by application services.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application failure. Adapters map kinds to transport status codes.
type Kind int

const (
	KindUnknown Kind = iota
	KindUserNotFound
	KindClubNotFound
	KindMembershipNotFound
	KindMembershipRequestNotFound
	KindUnauthorized
	KindBadAction
	KindPageSizeTooSmall
	KindPageSizeTooLarge
)

var kindCodes = map[Kind]string{
	KindUnknown:                   "INTERNAL",
	KindUserNotFound:              "USER_NOT_FOUND",
	KindClubNotFound:              "CLUB_NOT_FOUND",
	KindMembershipNotFound:        "MEMBERSHIP_NOT_FOUND",
	KindMembershipRequestNotFound: "MEMBERSHIP_REQUEST_NOT_FOUND",
	KindUnauthorized:              "UNAUTHORIZED",
	KindBadAction:                 "BAD_ACTION",
	KindPageSizeTooSmall:          "PAGE_SIZE_TOO_SMALL",
	KindPageSizeTooLarge:          "PAGE_SIZE_TOO_LARGE",
}

// Code returns the default wire code for k.
func (k Kind) Code() string {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return kindCodes[KindUnknown]
}

func (k Kind) String() string { return k.Code() }

// Error is an application-layer error that can be mapped to an HTTP response.
//
// Payload is only set for the page-size kinds and holds the page computed with
// the clamped size.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
	Payload any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// New returns an error of kind k with the kind's default code.
func New(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Code: k.Code(), Message: fmt.Sprintf(format, args...)}
}

// WithCode overrides the wire code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithDetails attaches field-level details.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

func UserNotFound() *Error {
	return New(KindUserNotFound, "no user is associated with the current request")
}

func ClubNotFound() *Error {
	return New(KindClubNotFound, "club not found")
}

func MembershipNotFound() *Error {
	return New(KindMembershipNotFound, "membership not found")
}

func MembershipRequestNotFound() *Error {
	return New(KindMembershipRequestNotFound, "membership request not found")
}

func Unauthorized(action string) *Error {
	return New(KindUnauthorized, "not authorized to %s", action)
}

func BadAction(format string, args ...any) *Error {
	return New(KindBadAction, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries an *Error of kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
