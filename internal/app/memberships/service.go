// Package memberships manages roles, removal and ownership of club memberships.
package memberships

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/readers-guild/clubhouse-api/internal/app/access"
	"github.com/readers-guild/clubhouse-api/internal/app/apperr"
	"github.com/readers-guild/clubhouse-api/internal/app/paging"
	"github.com/readers-guild/clubhouse-api/internal/domain"
	clockport "github.com/readers-guild/clubhouse-api/internal/ports/out/clock"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/clubrepo"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/membershiprepo"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/txmanager"
)

type Service struct {
	clubs       clubrepo.Repository
	memberships membershiprepo.Repository
	tx          txmanager.Manager
	clk         clockport.Clock
	guard       *access.Guard
	tracer      trace.Tracer

	Logger *slog.Logger
}

func NewService(clubs clubrepo.Repository, memberships membershiprepo.Repository, tx txmanager.Manager, clk clockport.Clock) *Service {
	return &Service{
		clubs:       clubs,
		memberships: memberships,
		tx:          tx,
		clk:         clk,
		guard:       access.NewGuard(memberships),
		tracer:      otel.Tracer("clubhouse/memberships"),
		Logger:      slog.Default(),
	}
}

// UpdateRole changes target's role in club. Owners cannot be re-roled; revoke ownership first.
// Requester and target rows are locked together, as in RevokeOwnership.
func (s *Service) UpdateRole(ctx context.Context, requester domain.Principal, club domain.ClubID, target domain.UserID, role domain.Role) (out domain.Membership, err error) {
	ctx, span := s.start(ctx, "memberships.update_role", club, target)
	defer func() { endSpan(span, err) }()

	if err := access.RequirePrincipal(requester); err != nil {
		return domain.Membership{}, err
	}
	if requester.UserID == target {
		return domain.Membership{}, apperr.BadAction("cannot change your own role")
	}
	if !role.Assignable() {
		return domain.Membership{}, apperr.BadAction("role %q cannot be assigned", role).
			WithDetails(map[string]any{"role": "must be USER or ADMIN"})
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		pair, err := s.guard.LoadPair(ctx, club, requester.UserID, target)
		if err != nil {
			return err
		}
		if err := pair.RequireAdmin("change member roles"); err != nil {
			return err
		}
		if !pair.HasTarget {
			return apperr.MembershipNotFound()
		}
		m := pair.Target
		if m.IsOwner {
			return apperr.BadAction("cannot change the role of a club owner")
		}
		if m.Role == role {
			return apperr.BadAction("member already has role %s", role)
		}
		m.Role = role
		if err := s.memberships.Save(ctx, m); err != nil {
			return fmt.Errorf("save membership: %w", err)
		}
		out = m
		return nil
	})
	if err != nil {
		return domain.Membership{}, err
	}
	s.Logger.InfoContext(ctx, "membership role updated",
		slog.String("club_id", string(club)),
		slog.String("user_id", string(target)),
		slog.String("role", string(role)),
	)
	return out, nil
}

// RemoveMembership ends target's active membership. Owners cannot be removed.
func (s *Service) RemoveMembership(ctx context.Context, requester domain.Principal, club domain.ClubID, target domain.UserID) (out domain.Membership, err error) {
	ctx, span := s.start(ctx, "memberships.remove", club, target)
	defer func() { endSpan(span, err) }()

	if err := access.RequirePrincipal(requester); err != nil {
		return domain.Membership{}, err
	}
	if requester.UserID == target {
		return domain.Membership{}, apperr.BadAction("cannot remove yourself from a club")
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		pair, err := s.guard.LoadPair(ctx, club, requester.UserID, target)
		if err != nil {
			return err
		}
		if err := pair.RequireAdmin("remove members"); err != nil {
			return err
		}
		if !pair.HasTarget {
			return apperr.MembershipNotFound()
		}
		m := pair.Target
		if m.IsOwner {
			return apperr.BadAction("cannot remove a club owner")
		}
		now := s.clk.Now()
		m.DepartedAt = &now
		if err := s.memberships.Save(ctx, m); err != nil {
			return fmt.Errorf("save membership: %w", err)
		}
		out = m
		return nil
	})
	if err != nil {
		return domain.Membership{}, err
	}
	s.Logger.InfoContext(ctx, "membership removed",
		slog.String("club_id", string(club)),
		slog.String("user_id", string(target)),
	)
	return out, nil
}

// AddOwner grants ownership to an existing member, promoting them to ADMIN.
// The requester keeps their own ownership.
func (s *Service) AddOwner(ctx context.Context, requester domain.Principal, club domain.ClubID, newOwner domain.UserID) (out domain.Membership, err error) {
	ctx, span := s.start(ctx, "memberships.add_owner", club, newOwner)
	defer func() { endSpan(span, err) }()

	if err := access.RequirePrincipal(requester); err != nil {
		return domain.Membership{}, err
	}
	if requester.UserID == newOwner {
		return domain.Membership{}, apperr.BadAction("you are already an owner")
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		pair, err := s.guard.LoadPair(ctx, club, requester.UserID, newOwner)
		if err != nil {
			return err
		}
		if err := pair.RequireOwner("grant ownership"); err != nil {
			return err
		}
		if !pair.HasTarget {
			return apperr.MembershipNotFound()
		}
		m := pair.Target
		m.Role = domain.RoleAdmin
		m.IsOwner = true
		if err := s.memberships.Save(ctx, m); err != nil {
			return fmt.Errorf("save membership: %w", err)
		}
		out = m
		return nil
	})
	if err != nil {
		return domain.Membership{}, err
	}
	s.Logger.InfoContext(ctx, "club ownership granted",
		slog.String("club_id", string(club)),
		slog.String("user_id", string(newOwner)),
		slog.String("granted_by", string(requester.UserID)),
	)
	return out, nil
}

// RevokeOwnership removes target's ownership, leaving their role unchanged.
//
// Both owner rows are loaded in one query so that two owners revoking each other
// concurrently serialize on the same locks.
func (s *Service) RevokeOwnership(ctx context.Context, requester domain.Principal, club domain.ClubID, target domain.UserID) (out domain.Membership, err error) {
	ctx, span := s.start(ctx, "memberships.revoke_owner", club, target)
	defer func() { endSpan(span, err) }()

	if err := access.RequirePrincipal(requester); err != nil {
		return domain.Membership{}, err
	}
	if requester.UserID == target {
		return domain.Membership{}, apperr.BadAction("cannot revoke your own ownership")
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		owners, err := s.memberships.ListActiveOwners(ctx, club, []domain.UserID{requester.UserID, target})
		if err != nil {
			return fmt.Errorf("list owners: %w", err)
		}
		var (
			theirs    domain.Membership
			hasMine   bool
			hasTheirs bool
		)
		for _, m := range owners {
			switch m.UserID {
			case requester.UserID:
				hasMine = true
			case target:
				theirs, hasTheirs = m, true
			}
		}
		if !hasMine {
			return apperr.Unauthorized("revoke ownership")
		}
		if !hasTheirs {
			return apperr.MembershipNotFound()
		}
		theirs.IsOwner = false
		if err := s.memberships.Save(ctx, theirs); err != nil {
			return fmt.Errorf("save membership: %w", err)
		}
		out = theirs
		return nil
	})
	if err != nil {
		return domain.Membership{}, err
	}
	s.Logger.InfoContext(ctx, "club ownership revoked",
		slog.String("club_id", string(club)),
		slog.String("user_id", string(target)),
		slog.String("revoked_by", string(requester.UserID)),
	)
	return out, nil
}

// GetMembership returns user's active membership in club, or a transient NONE
// membership when there is none.
func (s *Service) GetMembership(ctx context.Context, user domain.Principal, club domain.ClubID) (domain.Membership, error) {
	if err := access.RequirePrincipal(user); err != nil {
		return domain.Membership{}, err
	}
	if _, err := s.clubs.GetByID(ctx, club); err != nil {
		if errors.Is(err, clubrepo.ErrNotFound) {
			return domain.Membership{}, apperr.ClubNotFound()
		}
		return domain.Membership{}, fmt.Errorf("load club: %w", err)
	}
	m, err := s.memberships.FindActive(ctx, club, user.UserID)
	if err != nil {
		if errors.Is(err, membershiprepo.ErrNotFound) {
			return domain.TransientMembership(club, user.UserID), nil
		}
		return domain.Membership{}, fmt.Errorf("load membership: %w", err)
	}
	return m, nil
}

func (s *Service) GetRole(ctx context.Context, user domain.Principal, club domain.ClubID) (domain.Role, error) {
	if err := access.RequirePrincipal(user); err != nil {
		return "", err
	}
	m, err := s.findActive(ctx, club, user.UserID)
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

// ListMemberships pages through club's active memberships in join order. Admins only.
func (s *Service) ListMemberships(ctx context.Context, requester domain.Principal, club domain.ClubID, page domain.PageRequest) (domain.Page[domain.Membership], error) {
	if err := access.RequirePrincipal(requester); err != nil {
		return domain.Page[domain.Membership]{}, err
	}
	if err := s.guard.RequireAdmin(ctx, requester.UserID, club, "list members"); err != nil {
		return domain.Page[domain.Membership]{}, err
	}
	return paging.Fetch(ctx, page, func(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Membership], error) {
		return s.memberships.ListByClub(ctx, club, req)
	})
}

func (s *Service) findActive(ctx context.Context, club domain.ClubID, user domain.UserID) (domain.Membership, error) {
	m, err := s.memberships.FindActive(ctx, club, user)
	if err != nil {
		if errors.Is(err, membershiprepo.ErrNotFound) {
			return domain.Membership{}, apperr.MembershipNotFound()
		}
		return domain.Membership{}, fmt.Errorf("load membership: %w", err)
	}
	return m, nil
}

func (s *Service) start(ctx context.Context, op string, club domain.ClubID, user domain.UserID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("club.id", string(club)),
		attribute.String("user.id", string(user)),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
