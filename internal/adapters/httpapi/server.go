package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/readers-guild/clubhouse-api/internal/app/clubs"
	"github.com/readers-guild/clubhouse-api/internal/app/memberships"
	"github.com/readers-guild/clubhouse-api/internal/app/notifications"
	"github.com/readers-guild/clubhouse-api/internal/app/paging"
	"github.com/readers-guild/clubhouse-api/internal/app/requests"
	"github.com/readers-guild/clubhouse-api/internal/app/users"
	"github.com/readers-guild/clubhouse-api/internal/domain"
	clockport "github.com/readers-guild/clubhouse-api/internal/ports/out/clock"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/idempotency"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/identity"
)

// Services groups the application services the HTTP adapter delegates to.
type Services struct {
	Users         *users.Service
	Clubs         *clubs.Service
	Memberships   *memberships.Service
	Requests      *requests.Service
	Notifications *notifications.Service
}

// Server holds the HTTP handlers. Handlers resolve the principal and pass it
// explicitly to the app layer.
type Server struct {
	Services

	Identity identity.Provider
	Idem     idempotency.Store
	Clock    clockport.Clock
	Logger   *slog.Logger
}

func NewServer(svc Services, idem idempotency.Store, clk clockport.Clock) *Server {
	return &Server{
		Services: svc,
		Identity: PrincipalProvider{Users: svc.Users},
		Idem:     idem,
		Clock:    clk,
		Logger:   slog.Default(),
	}
}

// requirePrincipal writes a 401 and returns ok=false when the caller has no
// provisioned user.
func (s *Server) requirePrincipal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	if _, ok := SubjectFromContext(r.Context()); !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "missing subject", nil)
		return domain.Principal{}, false
	}
	p, ok, err := s.Identity.CurrentPrincipal(r.Context())
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return domain.Principal{}, false
	}
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "USER_NOT_PROVISIONED", "No user exists for the authenticated subject.", nil)
		return domain.Principal{}, false
	}
	return p, true
}

// optionalPrincipal returns the zero principal for unprovisioned callers.
func (s *Server) optionalPrincipal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, _, err := s.Identity.CurrentPrincipal(r.Context())
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return domain.Principal{}, false
	}
	return p, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "missing request body", nil)
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body", map[string]any{"reason": err.Error()})
		return false
	}
	return true
}

func writePage[T, D any](s *Server, w http.ResponseWriter, r *http.Request, p domain.Page[T], err error, conv func(T) D) {
	if err != nil {
		if fallback, ok := paging.PayloadPage[T](err); ok {
			writeAppErrorWithPage(w, r, s.Logger, err, pageFromDomain(fallback, conv))
			return
		}
		writeAppError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pageFromDomain(p, conv))
}

// --- users ---

func (s *Server) provisionMe(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "missing subject", nil)
		return
	}
	var body ProvisionUserRequest
	if !decodeBody(w, r, &body) {
		return
	}
	u, err := s.Users.Provision(r.Context(), sub, users.ProvisionInput{
		Username: body.Username,
		Email:    body.Email,
	})
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, userFromDomain(u))
}

func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "missing subject", nil)
		return
	}
	u, err := s.Users.Get(r.Context(), sub)
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, userFromDomain(u))
}

// --- clubs ---

func (s *Server) createClub(w http.ResponseWriter, r *http.Request) {
	me, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	var body CreateClubRequest
	if !decodeBody(w, r, &body) {
		return
	}
	s.serveIdempotent(w, r, me.Subject, "/clubs", body, func(ctx context.Context) (int, any, error) {
		c, err := s.Clubs.Create(ctx, me, createClubInputFromRequest(body))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, clubFromDomain(c), nil
	})
}

func (s *Server) listClubs(w http.ResponseWriter, r *http.Request) {
	pr, err := pageRequestFromQuery(r)
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	p, err := s.Clubs.ListDirectory(r.Context(), pr)
	writePage(s, w, r, p, err, clubFromDomain)
}

func (s *Server) listMyClubs(w http.ResponseWriter, r *http.Request) {
	me, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	pr, err := pageRequestFromQuery(r)
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	p, err := s.Clubs.FindAllForUser(r.Context(), me, pr)
	writePage(s, w, r, p, err, clubFromDomain)
}

func (s *Server) searchClubs(w http.ResponseWriter, r *http.Request) {
	term, err := stringQuery(r, "q")
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	pr, err := pageRequestFromQuery(r)
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	p, err := s.Clubs.Search(r.Context(), term, pr)
	writePage(s, w, r, p, err, clubFromDomain)
}

func (s *Server) getClubByName(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "name")
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	me, ok := s.optionalPrincipal(w, r)
	if !ok {
		return
	}
	c, err := s.Clubs.FindVisibleByName(r.Context(), me, name)
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, clubFromDomain(c))
}

func (s *Server) getClub(w http.ResponseWriter, r *http.Request) {
	clubID, err := pathParam(r, "clubId")
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	me, ok := s.optionalPrincipal(w, r)
	if !ok {
		return
	}
	c, err := s.Clubs.FindVisible(r.Context(), me, domain.ClubID(clubID))
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, clubFromDomain(c))
}

func (s *Server) updateClub(w http.ResponseWriter, r *http.Request) {
	clubID, err := pathParam(r, "clubId")
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	me, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	var body UpdateClubRequest
	if !decodeBody(w, r, &body) {
		return
	}
	c, err := s.Clubs.Update(r.Context(), me, domain.ClubID(clubID), updateClubInputFromRequest(body))
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, clubFromDomain(c))
}

func (s *Server) disbandClub(w http.ResponseWriter, r *http.Request) {
	clubID, err := pathParam(r, "clubId")
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	me, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	c, err := s.Clubs.Disband(r.Context(), me, domain.ClubID(clubID))
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, clubFromDomain(c))
}

func (s *Server) disbandClubByName(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "name")
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	me, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	c, err := s.Clubs.DisbandByName(r.Context(), me, name)
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, clubFromDomain(c))
}

// --- memberships ---

func (s *Server) listMemberships(w http.ResponseWriter, r *http.Request) {
	clubID, err := pathParam(r, "clubId")
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	me, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	pr, err := pageRequestFromQuery(r)
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	p, err := s.Memberships.ListMemberships(r.Context(), me, domain.ClubID(clubID), pr)
	writePage(s, w, r, p, err, membershipFromDomain)
}

func (s *Server) getMyMembership(w http.ResponseWriter, r *http.Request) {
	clubID, err := pathParam(r, "clubId")
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	me, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	m, err := s.Memberships.GetMembership(r.Context(), me, domain.ClubID(clubID))
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipFromDomain(m))
}

func (s *Server) getMyRole(w http.ResponseWriter, r *http.Request) {
	clubID, err := pathParam(r, "clubId")
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	me, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	role, err := s.Memberships.GetRole(r.Context(), me, domain.ClubID(clubID))
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, RoleResponse{Role: string(role)})
}

// membershipTarget reads {clubId} and {userId} and resolves the caller.
func (s *Server) membershipTarget(w http.ResponseWriter, r *http.Request) (domain.Principal, domain.ClubID, domain.UserID, bool) {
	clubID, err := pathParam(r, "clubId")
	if err != nil {
		writeParamError(w, r, err)
		return domain.Principal{}, "", "", false
	}
	userID, err := pathParam(r, "userId")
	if err != nil {
		writeParamError(w, r, err)
		return domain.Principal{}, "", "", false
	}
	me, ok := s.requirePrincipal(w, r)
	if !ok {
		return domain.Principal{}, "", "", false
	}
	return me, domain.ClubID(clubID), domain.UserID(userID), true
}

func (s *Server) updateRole(w http.ResponseWriter, r *http.Request) {
	me, club, target, ok := s.membershipTarget(w, r)
	if !ok {
		return
	}
	var body UpdateRoleRequest
	if !decodeBody(w, r, &body) {
		return
	}
	m, err := s.Memberships.UpdateRole(r.Context(), me, club, target, domain.Role(body.Role))
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipFromDomain(m))
}

func (s *Server) removeMembership(w http.ResponseWriter, r *http.Request) {
	me, club, target, ok := s.membershipTarget(w, r)
	if !ok {
		return
	}
	m, err := s.Memberships.RemoveMembership(r.Context(), me, club, target)
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipFromDomain(m))
}

func (s *Server) addOwner(w http.ResponseWriter, r *http.Request) {
	clubID, err := pathParam(r, "clubId")
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	me, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	var body AddOwnerRequest
	if !decodeBody(w, r, &body) {
		return
	}
	m, err := s.Memberships.AddOwner(r.Context(), me, domain.ClubID(clubID), domain.UserID(body.UserID))
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipFromDomain(m))
}

func (s *Server) revokeOwnership(w http.ResponseWriter, r *http.Request) {
	me, club, target, ok := s.membershipTarget(w, r)
	if !ok {
		return
	}
	m, err := s.Memberships.RevokeOwnership(r.Context(), me, club, target)
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipFromDomain(m))
}

// --- membership requests ---

func (s *Server) requestMembership(w http.ResponseWriter, r *http.Request) {
	clubID, err := pathParam(r, "clubId")
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	me, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	var body RequestMembershipRequest
	if !decodeBody(w, r, &body) {
		return
	}
	hashInput := struct {
		ClubID string `json:"clubId"`
		RequestMembershipRequest
	}{clubID, body}
	s.serveIdempotent(w, r, me.Subject, "/clubs/{clubId}/membership-requests", hashInput, func(ctx context.Context) (int, any, error) {
		req, err := s.Requests.RequestMembership(ctx, me, domain.ClubID(clubID), body.Message)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, membershipRequestFromDomain(req), nil
	})
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	clubID, err := pathParam(r, "clubId")
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	me, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	pr, err := pageRequestFromQuery(r)
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	p, err := s.Requests.ListRequests(r.Context(), me, domain.ClubID(clubID), pr)
	writePage(s, w, r, p, err, membershipRequestFromDomain)
}

func (s *Server) hasPendingRequest(w http.ResponseWriter, r *http.Request) {
	clubID, err := pathParam(r, "clubId")
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	me, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	pending, err := s.Requests.HasPendingRequest(r.Context(), me, domain.ClubID(clubID))
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, PendingResponse{Pending: pending})
}

func (s *Server) reviewRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathParam(r, "requestId")
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	me, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	var body ReviewRequest
	if !decodeBody(w, r, &body) {
		return
	}
	req, err := s.Requests.Review(r.Context(), me, domain.MembershipRequestID(requestID), requests.ReviewInput{
		Action:  domain.ReviewAction(body.Action),
		Role:    domain.Role(body.Role),
		Message: body.Message,
	})
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipRequestFromDomain(req))
}

// --- notifications ---

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	me, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	pr, err := pageRequestFromQuery(r)
	if err != nil {
		writeParamError(w, r, err)
		return
	}
	p, err := s.Notifications.ListMine(r.Context(), me, pr)
	writePage(s, w, r, p, err, notificationFromDomain)
}
