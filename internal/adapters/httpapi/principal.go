package httpapi

import (
	"context"

	"github.com/readers-guild/clubhouse-api/internal/app/apperr"
	"github.com/readers-guild/clubhouse-api/internal/domain"
)

type subjectKey struct{}

// WithSubject stores the verified token subject on ctx.
func WithSubject(ctx context.Context, sub domain.SubjectID) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

// SubjectFromContext reports ok=false when no non-empty subject was stored.
func SubjectFromContext(ctx context.Context) (domain.SubjectID, bool) {
	v, ok := ctx.Value(subjectKey{}).(domain.SubjectID)
	return v, ok && v != ""
}

// SubjectResolver maps an authenticated subject to its user principal.
type SubjectResolver interface {
	Resolve(ctx context.Context, subject domain.SubjectID) (domain.Principal, error)
}

// PrincipalProvider implements identity.Provider on top of the auth middleware's
// request subject.
type PrincipalProvider struct {
	Users SubjectResolver
}

// CurrentPrincipal returns ok=false when the request has no subject or the subject
// has no provisioned user.
func (p PrincipalProvider) CurrentPrincipal(ctx context.Context) (domain.Principal, bool, error) {
	sub, ok := SubjectFromContext(ctx)
	if !ok {
		return domain.Principal{}, false, nil
	}
	pr, err := p.Users.Resolve(ctx, sub)
	if err != nil {
		if apperr.IsKind(err, apperr.KindUserNotFound) {
			return domain.Principal{}, false, nil
		}
		return domain.Principal{}, false, err
	}
	return pr, true, nil
}
