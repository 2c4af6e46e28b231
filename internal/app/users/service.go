// Package users binds identity-provider subjects to user records.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/readers-guild/clubhouse-api/internal/app/apperr"
	"github.com/readers-guild/clubhouse-api/internal/domain"
	clockport "github.com/readers-guild/clubhouse-api/internal/ports/out/clock"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/notificationrepo"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/txmanager"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/userrepo"
)

const maxUsernameLen = 64

type Service struct {
	users         userrepo.Repository
	notifications notificationrepo.Repository
	tx            txmanager.Manager
	clk           clockport.Clock

	newUserID         func() domain.UserID
	newNotificationID func() domain.NotificationID

	Logger *slog.Logger
}

func NewService(users userrepo.Repository, notifications notificationrepo.Repository, tx txmanager.Manager, clk clockport.Clock) *Service {
	return &Service{
		users:         users,
		notifications: notifications,
		tx:            tx,
		clk:           clk,
		newUserID: func() domain.UserID {
			return domain.UserID(uuid.NewString())
		},
		newNotificationID: func() domain.NotificationID {
			return domain.NotificationID(uuid.NewString())
		},
		Logger: slog.Default(),
	}
}

type ProvisionInput struct {
	Username string
	Email    string
}

// Provision creates the user record for subject.
func (s *Service) Provision(ctx context.Context, subject domain.SubjectID, in ProvisionInput) (domain.User, error) {
	if strings.TrimSpace(string(subject)) == "" {
		return domain.User{}, apperr.UserNotFound()
	}
	username := domain.NormalizeHumanName(in.Username)
	if username == "" {
		return domain.User{}, validation("username", "must be non-empty")
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return domain.User{}, validation("username", fmt.Sprintf("must be at most %d characters", maxUsernameLen))
	}
	email := strings.TrimSpace(in.Email)
	if err := validateEmail(email); err != nil {
		return domain.User{}, validation("email", err.Error())
	}

	var out domain.User
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		// Ensure no existing binding.
		if _, err := s.users.GetBySubject(ctx, subject); err == nil {
			return alreadyExists()
		} else if !errors.Is(err, userrepo.ErrNotFound) {
			return fmt.Errorf("load user: %w", err)
		}

		now := s.clk.Now()
		u := domain.User{
			ID:       s.newUserID(),
			Subject:  subject,
			Username: username,
			Email:    email,
			JoinedAt: now,
		}
		if err := s.users.Create(ctx, u); err != nil {
			switch {
			case errors.Is(err, userrepo.ErrSubjectAlreadyBound):
				return alreadyExists()
			case errors.Is(err, userrepo.ErrUsernameTaken):
				return apperr.BadAction("username %q is already taken", username).WithCode("USERNAME_TAKEN")
			}
			return fmt.Errorf("create user: %w", err)
		}
		if err := s.notifications.Create(ctx, domain.Notification{
			ID:           s.newNotificationID(),
			SourceUserID: u.ID,
			TargetUserID: u.ID,
			Type:         domain.NotificationUserRegistered,
			CreatedAt:    now,
		}); err != nil {
			return fmt.Errorf("record notification: %w", err)
		}
		out = u
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	s.Logger.InfoContext(ctx, "user provisioned",
		slog.String("user_id", string(out.ID)),
		slog.String("subject", string(subject)),
	)
	return out, nil
}

// Resolve maps an authenticated subject to its principal. A subject with no user
// record fails with UserNotFound.
func (s *Service) Resolve(ctx context.Context, subject domain.SubjectID) (domain.Principal, error) {
	u, err := s.Get(ctx, subject)
	if err != nil {
		return domain.Principal{}, err
	}
	return u.Principal(), nil
}

func (s *Service) Get(ctx context.Context, subject domain.SubjectID) (domain.User, error) {
	u, err := s.users.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, apperr.UserNotFound().WithCode("USER_NOT_PROVISIONED")
		}
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	if u.DepartedAt != nil {
		return domain.User{}, apperr.UserNotFound()
	}
	return u, nil
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("must be non-empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return err
	}
	// Ensure no "Name <email@x>" format sneaks in.
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}

func validation(field, reason string) error {
	return apperr.BadAction("invalid %s", field).
		WithCode("VALIDATION_ERROR").
		WithDetails(map[string]any{field: reason})
}

func alreadyExists() error {
	return apperr.BadAction("a user already exists for the authenticated subject").WithCode("USER_ALREADY_EXISTS")
}
