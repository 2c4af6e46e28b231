// Package clubs implements the club lifecycle: create, update, disband and the
// visibility-filtered read paths.
package clubs

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
	"github.com/readers-guild/clubhouse-api/internal/ports/out/txmanager"
)

type Service struct {
	clubs         clubrepo.Repository
	memberships   membershiprepo.Repository
	notifications notificationrepo.Repository
	tx            txmanager.Manager
	clk           clockport.Clock
	tracer        trace.Tracer

	newClubID         func() domain.ClubID
	newMembershipID   func() domain.MembershipID
	newNotificationID func() domain.NotificationID

	Logger *slog.Logger
}

func NewService(
	clubs clubrepo.Repository,
	memberships membershiprepo.Repository,
	notifications notificationrepo.Repository,
	tx txmanager.Manager,
	clk clockport.Clock,
) *Service {
	return &Service{
		clubs:         clubs,
		memberships:   memberships,
		notifications: notifications,
		tx:            tx,
		clk:           clk,
		tracer:        otel.Tracer("clubhouse/clubs"),
		newClubID: func() domain.ClubID {
			return domain.ClubID(uuid.NewString())
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

// Create persists a new club and makes requester its owning ADMIN.
func (s *Service) Create(ctx context.Context, requester domain.Principal, in CreateInput) (out domain.Club, err error) {
	ctx, span := s.tracer.Start(ctx, "clubs.create", trace.WithAttributes(
		attribute.String("user.id", string(requester.UserID)),
	))
	defer func() { endSpan(span, err) }()

	if err := access.RequirePrincipal(requester); err != nil {
		return domain.Club{}, err
	}
	name, err := validateName(in.Name)
	if err != nil {
		return domain.Club{}, err
	}
	vis := in.Visibility
	if vis == "" {
		vis = domain.VisibilityPrivate
	}
	if !vis.Valid() {
		return domain.Club{}, invalidVisibility(vis)
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = domain.DefaultClubDescription
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ensureNameFree(ctx, name, ""); err != nil {
			return err
		}
		now := s.clk.Now()
		c := domain.Club{
			ID:            s.newClubID(),
			Name:          name,
			Description:   desc,
			ImageFileName: cloneStringPtr(in.ImageFileName),
			Visibility:    vis,
			CreatedAt:     now,
		}
		if err := s.clubs.Create(ctx, c); err != nil {
			if errors.Is(err, clubrepo.ErrNameTaken) {
				return nameTaken(name)
			}
			return fmt.Errorf("create club: %w", err)
		}
		if err := s.memberships.Create(ctx, domain.Membership{
			ID:       s.newMembershipID(),
			ClubID:   c.ID,
			UserID:   requester.UserID,
			Role:     domain.RoleAdmin,
			IsOwner:  true,
			JoinedAt: now,
		}); err != nil {
			return fmt.Errorf("create owner membership: %w", err)
		}
		if err := s.notify(ctx, domain.NotificationClubCreated, requester.UserID, c.ID); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return domain.Club{}, err
	}
	span.SetAttributes(attribute.String("club.id", string(out.ID)))
	s.Logger.InfoContext(ctx, "club created",
		slog.String("club_id", string(out.ID)),
		slog.String("user_id", string(requester.UserID)),
	)
	return out, nil
}

// Update applies in to a club requester administers. Disbanded clubs are immutable.
func (s *Service) Update(ctx context.Context, requester domain.Principal, id domain.ClubID, in UpdateInput) (out domain.Club, err error) {
	ctx, span := s.start(ctx, "clubs.update", id, requester.UserID)
	defer func() { endSpan(span, err) }()

	if err := access.RequirePrincipal(requester); err != nil {
		return domain.Club{}, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.clubs.GetByIDForAdmin(ctx, id, requester.UserID)
		if err != nil {
			if errors.Is(err, clubrepo.ErrNotFound) {
				return apperr.ClubNotFound()
			}
			return fmt.Errorf("load club: %w", err)
		}
		if c.IsDisbanded() {
			return apperr.BadAction("club has been disbanded").WithCode("CLUB_DISBANDED")
		}

		if in.Name.IsSpecified() {
			if in.Name.IsNull() {
				return apperr.BadAction("invalid name").WithDetails(map[string]any{"name": "cannot be null"})
			}
			name, err := validateName(in.Name.Value())
			if err != nil {
				return err
			}
			if name != c.Name {
				if err := s.ensureNameFree(ctx, name, c.ID); err != nil {
					return err
				}
				c.Name = name
			}
		}
		if in.Description.IsSpecified() {
			desc := strings.TrimSpace(in.Description.Value())
			if in.Description.IsNull() || desc == "" {
				desc = domain.DefaultClubDescription
			}
			c.Description = desc
		}
		if in.ImageFileName.IsSpecified() {
			if in.ImageFileName.IsNull() {
				c.ImageFileName = nil
			} else {
				v := strings.TrimSpace(in.ImageFileName.Value())
				c.ImageFileName = &v
			}
		}
		if in.Visibility.IsSpecified() {
			if in.Visibility.IsNull() {
				return apperr.BadAction("invalid visibility").WithDetails(map[string]any{"visibility": "cannot be null"})
			}
			if v := in.Visibility.Value(); !v.Valid() {
				return invalidVisibility(v)
			}
			c.Visibility = in.Visibility.Value()
		}

		if err := s.clubs.Save(ctx, c); err != nil {
			if errors.Is(err, clubrepo.ErrNameTaken) {
				return nameTaken(c.Name)
			}
			return fmt.Errorf("save club: %w", err)
		}
		if err := s.notify(ctx, domain.NotificationClubUpdated, requester.UserID, c.ID); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return domain.Club{}, err
	}
	return out, nil
}

// Disband marks a club as disbanded. Only an owner may disband; memberships are kept.
func (s *Service) Disband(ctx context.Context, requester domain.Principal, id domain.ClubID) (out domain.Club, err error) {
	ctx, span := s.start(ctx, "clubs.disband", id, requester.UserID)
	defer func() { endSpan(span, err) }()

	if err := access.RequirePrincipal(requester); err != nil {
		return domain.Club{}, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		m, err := s.memberships.FindActive(ctx, id, requester.UserID)
		if err != nil {
			if errors.Is(err, membershiprepo.ErrNotFound) {
				return apperr.MembershipNotFound()
			}
			return fmt.Errorf("load membership: %w", err)
		}
		if !m.IsOwner {
			return apperr.Unauthorized("disband this club")
		}
		c, err := s.clubs.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, clubrepo.ErrNotFound) {
				return apperr.ClubNotFound()
			}
			return fmt.Errorf("load club: %w", err)
		}
		if c.IsDisbanded() {
			return apperr.BadAction("club has already been disbanded").WithCode("CLUB_DISBANDED")
		}
		now := s.clk.Now()
		c.DisbandedAt = &now
		if err := s.clubs.Save(ctx, c); err != nil {
			return fmt.Errorf("save club: %w", err)
		}
		if err := s.notify(ctx, domain.NotificationClubDisbanded, requester.UserID, c.ID); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return domain.Club{}, err
	}
	s.Logger.InfoContext(ctx, "club disbanded",
		slog.String("club_id", string(id)),
		slog.String("user_id", string(requester.UserID)),
	)
	return out, nil
}

// DisbandByName resolves a club by its normalized name and disbands it.
func (s *Service) DisbandByName(ctx context.Context, requester domain.Principal, name string) (domain.Club, error) {
	if err := access.RequirePrincipal(requester); err != nil {
		return domain.Club{}, err
	}
	c, err := s.clubs.GetByName(ctx, domain.NormalizeHumanName(name))
	if err != nil {
		if errors.Is(err, clubrepo.ErrNotFound) {
			return domain.Club{}, apperr.ClubNotFound()
		}
		return domain.Club{}, fmt.Errorf("load club: %w", err)
	}
	return s.Disband(ctx, requester, c.ID)
}

// FindVisible returns the club when it is public or user is an active member.
// A private club the user cannot see fails with MembershipNotFound.
func (s *Service) FindVisible(ctx context.Context, user domain.Principal, id domain.ClubID) (domain.Club, error) {
	c, err := s.clubs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, clubrepo.ErrNotFound) {
			return domain.Club{}, apperr.ClubNotFound()
		}
		return domain.Club{}, fmt.Errorf("load club: %w", err)
	}
	return s.visible(ctx, user, c)
}

func (s *Service) FindVisibleByName(ctx context.Context, user domain.Principal, name string) (domain.Club, error) {
	c, err := s.clubs.GetByName(ctx, domain.NormalizeHumanName(name))
	if err != nil {
		if errors.Is(err, clubrepo.ErrNotFound) {
			return domain.Club{}, apperr.ClubNotFound()
		}
		return domain.Club{}, fmt.Errorf("load club: %w", err)
	}
	return s.visible(ctx, user, c)
}

// FindAllForUser pages through the clubs user is an active member of.
func (s *Service) FindAllForUser(ctx context.Context, user domain.Principal, page domain.PageRequest) (domain.Page[domain.Club], error) {
	if err := access.RequirePrincipal(user); err != nil {
		return domain.Page[domain.Club]{}, err
	}
	return paging.Fetch(ctx, page, func(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Club], error) {
		return s.clubs.ListForUser(ctx, user.UserID, req)
	})
}

// Search matches term against names of public, active clubs.
func (s *Service) Search(ctx context.Context, term string, page domain.PageRequest) (domain.Page[domain.Club], error) {
	q := strings.TrimSpace(term)
	if q == "" {
		return domain.Page[domain.Club]{}, apperr.BadAction("invalid search query").
			WithDetails(map[string]any{"q": "must be non-empty"})
	}
	return paging.Fetch(ctx, page, func(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Club], error) {
		return s.clubs.Search(ctx, q, req)
	})
}

// ListDirectory pages through public, active clubs.
func (s *Service) ListDirectory(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Club], error) {
	return paging.Fetch(ctx, page, func(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Club], error) {
		return s.clubs.ListDirectory(ctx, req)
	})
}

func (s *Service) visible(ctx context.Context, user domain.Principal, c domain.Club) (domain.Club, error) {
	if c.Visibility != domain.VisibilityPrivate {
		return c, nil
	}
	if user.IsZero() {
		return domain.Club{}, apperr.MembershipNotFound()
	}
	ok, err := s.memberships.ExistsActive(ctx, c.ID, user.UserID)
	if err != nil {
		return domain.Club{}, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return domain.Club{}, apperr.MembershipNotFound()
	}
	return c, nil
}

func (s *Service) ensureNameFree(ctx context.Context, name string, self domain.ClubID) error {
	existing, err := s.clubs.GetByName(ctx, name)
	switch {
	case errors.Is(err, clubrepo.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("load club by name: %w", err)
	case existing.ID == self:
		return nil
	default:
		return nameTaken(name)
	}
}

func (s *Service) notify(ctx context.Context, typ domain.NotificationType, user domain.UserID, club domain.ClubID) error {
	c := club
	if err := s.notifications.Create(ctx, domain.Notification{
		ID:           s.newNotificationID(),
		SourceUserID: user,
		TargetUserID: user,
		ClubID:       &c,
		Type:         typ,
		CreatedAt:    s.clk.Now(),
	}); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

func validateName(raw string) (string, error) {
	name := domain.NormalizeHumanName(raw)
	if name == "" {
		return "", apperr.BadAction("invalid name").WithDetails(map[string]any{"name": "must be non-empty"})
	}
	if domain.IsReservedClubName(name) {
		return "", apperr.BadAction("club name %q is reserved", name).WithCode("CLUB_NAME_RESERVED")
	}
	return name, nil
}

func nameTaken(name string) error {
	return apperr.BadAction("club name %q is already taken", name).WithCode("CLUB_NAME_TAKEN")
}

func invalidVisibility(v domain.Visibility) error {
	return apperr.BadAction("invalid visibility %q", v).
		WithDetails(map[string]any{"visibility": "must be PUBLIC or PRIVATE"})
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
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
