// Package access answers "may this user act on this club" from persisted memberships.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/readers-guild/clubhouse-api/internal/app/apperr"
	"github.com/readers-guild/clubhouse-api/internal/domain"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/membershiprepo"
)

// Guard checks club privileges. It holds no cache; every call reads the repository,
// so callers should pass the ctx of the transaction the check protects.
type Guard struct {
	memberships membershiprepo.Repository
}

func NewGuard(memberships membershiprepo.Repository) *Guard {
	return &Guard{memberships: memberships}
}

// IsAdmin reports whether user holds an active ADMIN membership in club.
func (g *Guard) IsAdmin(ctx context.Context, user domain.UserID, club domain.ClubID) (bool, error) {
	m, err := g.memberships.FindActive(ctx, club, user)
	ok, err := found(err)
	return ok && HoldsAdmin(m), err
}

// IsOwner reports whether user holds an active owner membership in club.
func (g *Guard) IsOwner(ctx context.Context, user domain.UserID, club domain.ClubID) (bool, error) {
	_, err := g.memberships.FindActiveOwner(ctx, club, user)
	return found(err)
}

func (g *Guard) RequireAdmin(ctx context.Context, user domain.UserID, club domain.ClubID, action string) error {
	ok, err := g.IsAdmin(ctx, user, club)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Unauthorized(action)
	}
	return nil
}

func (g *Guard) RequireOwner(ctx context.Context, user domain.UserID, club domain.ClubID, action string) error {
	ok, err := g.IsOwner(ctx, user, club)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Unauthorized(action)
	}
	return nil
}

// HoldsAdmin reports whether m grants admin rights in its club.
func HoldsAdmin(m domain.Membership) bool {
	return m.IsActive() && m.Role.AtLeast(domain.RoleAdmin)
}

// Pair holds the requester's and the target's active memberships in one club.
// A zero membership with its Has flag false means the user is not an active member.
type Pair struct {
	Requester    domain.Membership
	Target       domain.Membership
	HasRequester bool
	HasTarget    bool
}

// LoadPair reads both memberships with a single repository call. Inside a
// transaction the two rows are locked together in ID order.
func (g *Guard) LoadPair(ctx context.Context, club domain.ClubID, requester, target domain.UserID) (Pair, error) {
	ms, err := g.memberships.ListActive(ctx, club, []domain.UserID{requester, target})
	if err != nil {
		return Pair{}, fmt.Errorf("load memberships: %w", err)
	}
	var p Pair
	for _, m := range ms {
		switch m.UserID {
		case requester:
			p.Requester, p.HasRequester = m, true
		case target:
			p.Target, p.HasTarget = m, true
		}
	}
	return p, nil
}

// RequireAdmin fails with Unauthorized unless the requester holds admin rights.
func (p Pair) RequireAdmin(action string) error {
	if !p.HasRequester || !HoldsAdmin(p.Requester) {
		return apperr.Unauthorized(action)
	}
	return nil
}

// RequireOwner fails with Unauthorized unless the requester is an owner.
func (p Pair) RequireOwner(action string) error {
	if !p.HasRequester || !p.Requester.IsOwner {
		return apperr.Unauthorized(action)
	}
	return nil
}

func found(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, membershiprepo.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("load membership: %w", err)
	}
}

// RequirePrincipal fails with UserNotFound when p is the zero principal.
func RequirePrincipal(p domain.Principal) error {
	if p.IsZero() {
		return apperr.UserNotFound()
	}
	return nil
}
