// Package requests runs the join-request workflow: request, list, review.
package requests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
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
	"github.com/readers-guild/clubhouse-api/internal/ports/out/notificationrepo"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/requestrepo"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/txmanager"
)

type Service struct {
	clubs         clubrepo.Repository
	memberships   membershiprepo.Repository
	requests      requestrepo.Repository
	notifications notificationrepo.Repository
	tx            txmanager.Manager
	clk           clockport.Clock
	guard         *access.Guard
	tracer        trace.Tracer

	newRequestID      func() domain.MembershipRequestID
	newMembershipID   func() domain.MembershipID
	newNotificationID func() domain.NotificationID

	Logger *slog.Logger
}

func NewService(
	clubs clubrepo.Repository,
	memberships membershiprepo.Repository,
	requests requestrepo.Repository,
	notifications notificationrepo.Repository,
	tx txmanager.Manager,
	clk clockport.Clock,
) *Service {
	return &Service{
		clubs:         clubs,
		memberships:   memberships,
		requests:      requests,
		notifications: notifications,
		tx:            tx,
		clk:           clk,
		guard:         access.NewGuard(memberships),
		tracer:        otel.Tracer("clubhouse/requests"),
		newRequestID: func() domain.MembershipRequestID {
			return domain.MembershipRequestID(uuid.NewString())
		},
		newMembershipID: func() domain.MembershipID {
			return domain.MembershipID(uuid.NewString())
		},
		newNotificationID: func() domain.NotificationID {
			return domain.NotificationID(uuid.NewString())
		},
		Logger: slog.Default(),
	}
}

// ReviewInput is an admin's decision on an open request.
type ReviewInput struct {
	Action domain.ReviewAction
	// Role is granted on approval. Defaults to USER.
	Role    domain.Role
	Message string
}

// RequestMembership files an OPEN request for user to join club. A user may have
// only one open request per club.
func (s *Service) RequestMembership(ctx context.Context, user domain.Principal, club domain.ClubID, message string) (out domain.MembershipRequest, err error) {
	ctx, span := s.start(ctx, "requests.request_membership", club, user.UserID)
	defer func() { endSpan(span, err) }()

	if err := access.RequirePrincipal(user); err != nil {
		return domain.MembershipRequest{}, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.requireClub(ctx, club); err != nil {
			return err
		}
		open, err := s.requests.ExistsInStatus(ctx, club, user.UserID, domain.RequestStatusOpen)
		if err != nil {
			return fmt.Errorf("check open requests: %w", err)
		}
		if open {
			return apperr.BadAction("a membership request is already pending for this club").
				WithCode("REQUEST_ALREADY_PENDING")
		}

		now := s.clk.Now()
		req := domain.MembershipRequest{
			ID:          s.newRequestID(),
			ClubID:      club,
			UserID:      user.UserID,
			Message:     strings.TrimSpace(message),
			Status:      domain.RequestStatusOpen,
			RequestedAt: now,
		}
		if err := s.requests.Create(ctx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if err := s.notify(ctx, domain.NotificationMembershipRequested, user.UserID, user.UserID, club); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return domain.MembershipRequest{}, err
	}
	s.Logger.InfoContext(ctx, "membership requested",
		slog.String("club_id", string(club)),
		slog.String("user_id", string(user.UserID)),
		slog.String("request_id", string(out.ID)),
	)
	return out, nil
}

func (s *Service) HasPendingRequest(ctx context.Context, user domain.Principal, club domain.ClubID) (bool, error) {
	if err := access.RequirePrincipal(user); err != nil {
		return false, err
	}
	ok, err := s.requests.ExistsInStatus(ctx, club, user.UserID, domain.RequestStatusOpen)
	if err != nil {
		return false, fmt.Errorf("check open requests: %w", err)
	}
	return ok, nil
}

// ListRequests pages through club's requests, newest first. Admins only.
func (s *Service) ListRequests(ctx context.Context, requester domain.Principal, club domain.ClubID, page domain.PageRequest) (domain.Page[domain.MembershipRequest], error) {
	if err := access.RequirePrincipal(requester); err != nil {
		return domain.Page[domain.MembershipRequest]{}, err
	}
	if err := s.requireClub(ctx, club); err != nil {
		return domain.Page[domain.MembershipRequest]{}, err
	}
	if err := s.guard.RequireAdmin(ctx, requester.UserID, club, "list membership requests"); err != nil {
		return domain.Page[domain.MembershipRequest]{}, err
	}
	return paging.Fetch(ctx, page, func(ctx context.Context, req domain.PageRequest) (domain.Page[domain.MembershipRequest], error) {
		return s.requests.ListByClub(ctx, club, req)
	})
}

// Review approves or rejects an open request. Approval creates an active, non-owner
// membership and is refused when the requester has ever been a member of the club.
func (s *Service) Review(ctx context.Context, reviewer domain.Principal, id domain.MembershipRequestID, in ReviewInput) (out domain.MembershipRequest, err error) {
	ctx, span := s.tracer.Start(ctx, "requests.review", trace.WithAttributes(
		attribute.String("request.id", string(id)),
		attribute.String("user.id", string(reviewer.UserID)),
		attribute.String("review.action", string(in.Action)),
	))
	defer func() { endSpan(span, err) }()

	if err := access.RequirePrincipal(reviewer); err != nil {
		return domain.MembershipRequest{}, err
	}
	if !in.Action.Valid() {
		return domain.MembershipRequest{}, apperr.BadAction("unknown review action %q", in.Action).
			WithDetails(map[string]any{"action": "must be APPROVE or REJECT"})
	}
	role := in.Role
	if in.Action == domain.ReviewApprove {
		if role == "" {
			role = domain.RoleUser
		}
		if !role.Assignable() {
			return domain.MembershipRequest{}, apperr.BadAction("role %q cannot be granted", role).
				WithDetails(map[string]any{"role": "must be USER or ADMIN"})
		}
	} else {
		role = domain.RoleNone
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		req, err := s.requests.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, requestrepo.ErrNotFound) {
				return apperr.MembershipRequestNotFound()
			}
			return fmt.Errorf("load request: %w", err)
		}
		span.SetAttributes(attribute.String("club.id", string(req.ClubID)))

		if err := s.guard.RequireAdmin(ctx, reviewer.UserID, req.ClubID, "review membership requests"); err != nil {
			return err
		}
		if !req.IsOpen() {
			return apperr.BadAction("membership request was already %s", strings.ToLower(string(req.Status))).
				WithCode("REQUEST_ALREADY_REVIEWED")
		}

		now := s.clk.Now()
		status := domain.RequestStatusRejected
		kind := domain.NotificationMembershipRejected
		if in.Action == domain.ReviewApprove {
			status = domain.RequestStatusApproved
			kind = domain.NotificationMembershipApproved

			seen, err := s.memberships.ExistsAny(ctx, req.ClubID, req.UserID)
			if err != nil {
				return fmt.Errorf("check memberships: %w", err)
			}
			if seen {
				return apperr.BadAction("user already has a membership record in this club").
					WithCode("MEMBERSHIP_EXISTS")
			}
			if err := s.memberships.Create(ctx, domain.Membership{
				ID:       s.newMembershipID(),
				ClubID:   req.ClubID,
				UserID:   req.UserID,
				Role:     role,
				JoinedAt: now,
			}); err != nil {
				if errors.Is(err, membershiprepo.ErrAlreadyActive) {
					return apperr.BadAction("user is already a member of this club").WithCode("MEMBERSHIP_EXISTS")
				}
				return fmt.Errorf("create membership: %w", err)
			}
		}

		reviewerID := reviewer.UserID
		req.Status = status
		req.Role = role
		req.ReviewerID = &reviewerID
		if msg := strings.TrimSpace(in.Message); msg != "" {
			req.ReviewMessage = &msg
		}
		req.ReviewedAt = &now
		if err := s.requests.Save(ctx, req); err != nil {
			return fmt.Errorf("save request: %w", err)
		}
		if err := s.notify(ctx, kind, reviewer.UserID, req.UserID, req.ClubID); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return domain.MembershipRequest{}, err
	}
	s.Logger.InfoContext(ctx, "membership request reviewed",
		slog.String("club_id", string(out.ClubID)),
		slog.String("user_id", string(out.UserID)),
		slog.String("request_id", string(out.ID)),
		slog.String("status", string(out.Status)),
	)
	return out, nil
}

func (s *Service) requireClub(ctx context.Context, club domain.ClubID) error {
	if _, err := s.clubs.GetByID(ctx, club); err != nil {
		if errors.Is(err, clubrepo.ErrNotFound) {
			return apperr.ClubNotFound()
		}
		return fmt.Errorf("load club: %w", err)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, typ domain.NotificationType, source, target domain.UserID, club domain.ClubID) error {
	c := club
	if err := s.notifications.Create(ctx, domain.Notification{
		ID:           s.newNotificationID(),
		SourceUserID: source,
		TargetUserID: target,
		ClubID:       &c,
		Type:         typ,
		CreatedAt:    s.clk.Now(),
	}); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
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
