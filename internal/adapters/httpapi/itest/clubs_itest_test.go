package itest

import (
	"net/http"
	"testing"

	"github.com/readers-guild/clubhouse-api/internal/adapters/httpapi"
)

type actor struct {
	subject string
	user    httpapi.UserResponse
}

func provisionActor(t *testing.T, srv *testServer, name string) actor {
	t.Helper()
	subject := "itest|" + uniq(name)
	username := uniq(name)
	status, body, _ := srv.doJSON(t, http.MethodPost, "/users/me", subject, map[string]any{
		"username": username,
		"email":    username + "@example.com",
	})
	requireStatus(t, status, body, http.StatusCreated)
	return actor{subject: subject, user: mustUnmarshal[httpapi.UserResponse](t, body)}
}

func TestClubMembership_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			srv := newTestServer(t, b)

			// Missing auth header => 401
			{
				status, body, hdr := srv.doJSON(t, http.MethodGet, "/clubs", "", nil)
				requireErrorCode(t, status, body, http.StatusUnauthorized, "UNAUTHENTICATED")
				requireHeaderPresent(t, hdr, "Content-Type")
			}

			a := provisionActor(t, srv, "alice")
			bob := provisionActor(t, srv, "bob")
			clubName := uniq("Readers")

			// A creates the club and becomes its ADMIN owner.
			var club httpapi.ClubResponse
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/clubs", a.subject, map[string]any{"name": clubName})
				requireStatus(t, status, body, http.StatusCreated)
				club = mustUnmarshal[httpapi.ClubResponse](t, body)
			}
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/clubs/"+club.ID+"/memberships/me", a.subject, nil)
				requireStatus(t, status, body, http.StatusOK)
				m := mustUnmarshal[httpapi.MembershipResponse](t, body)
				if m.Role != "ADMIN" || !m.IsOwner {
					t.Fatalf("expected ADMIN owner, got %+v", m)
				}
			}

			// B asks to join; the request is OPEN.
			var req httpapi.MembershipRequestResponse
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/clubs/"+club.ID+"/membership-requests", bob.subject, map[string]any{"message": "hi"})
				requireStatus(t, status, body, http.StatusCreated)
				req = mustUnmarshal[httpapi.MembershipRequestResponse](t, body)
				if req.Status != "OPEN" {
					t.Fatalf("status=%q want OPEN", req.Status)
				}
			}

			// B cannot review their own request.
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/membership-requests/"+req.ID+"/review", bob.subject, map[string]any{"action": "APPROVE"})
				requireErrorCode(t, status, body, http.StatusForbidden, "UNAUTHORIZED")
			}

			// A approves as USER.
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/membership-requests/"+req.ID+"/review", a.subject, map[string]any{"action": "APPROVE", "role": "USER"})
				requireStatus(t, status, body, http.StatusOK)
				got := mustUnmarshal[httpapi.MembershipRequestResponse](t, body)
				if got.Status != "APPROVED" || got.Role != "USER" {
					t.Fatalf("unexpected review result: %+v", got)
				}
			}
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/clubs/"+club.ID+"/memberships/me/role", bob.subject, nil)
				requireStatus(t, status, body, http.StatusOK)
				if got := mustUnmarshal[httpapi.RoleResponse](t, body); got.Role != "USER" {
					t.Fatalf("role=%q want USER", got.Role)
				}
			}

			// A adds B as owner: B becomes ADMIN + owner.
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/clubs/"+club.ID+"/owners", a.subject, map[string]any{"userId": bob.user.ID})
				requireStatus(t, status, body, http.StatusOK)
				m := mustUnmarshal[httpapi.MembershipResponse](t, body)
				if m.Role != "ADMIN" || !m.IsOwner {
					t.Fatalf("expected ADMIN owner, got %+v", m)
				}
			}

			// Self-revocation is always blocked, even with another owner present.
			{
				status, body, _ := srv.doJSON(t, http.MethodDelete, "/clubs/"+club.ID+"/owners/"+a.user.ID, a.subject, nil)
				requireErrorCode(t, status, body, http.StatusBadRequest, "BAD_ACTION")
			}

			// Owners cannot be demoted.
			{
				status, body, _ := srv.doJSON(t, http.MethodPatch, "/clubs/"+club.ID+"/memberships/"+bob.user.ID, a.subject, map[string]any{"role": "USER"})
				requireErrorCode(t, status, body, http.StatusBadRequest, "BAD_ACTION")
			}

			// B revokes A's ownership; A stays ADMIN.
			{
				status, body, _ := srv.doJSON(t, http.MethodDelete, "/clubs/"+club.ID+"/owners/"+a.user.ID, bob.subject, nil)
				requireStatus(t, status, body, http.StatusOK)
				m := mustUnmarshal[httpapi.MembershipResponse](t, body)
				if m.IsOwner || m.Role != "ADMIN" {
					t.Fatalf("unexpected membership after revoke: %+v", m)
				}
			}

			// A is no longer an owner and cannot disband.
			{
				status, body, _ := srv.doJSON(t, http.MethodDelete, "/clubs/"+club.ID, a.subject, nil)
				requireErrorCode(t, status, body, http.StatusForbidden, "UNAUTHORIZED")
			}
			{
				status, body, _ := srv.doJSON(t, http.MethodDelete, "/clubs/"+club.ID, bob.subject, nil)
				requireStatus(t, status, body, http.StatusOK)
			}
			{
				status, body, _ := srv.doJSON(t, http.MethodPatch, "/clubs/"+club.ID, bob.subject, map[string]any{"description": "too late"})
				requireErrorCode(t, status, body, http.StatusBadRequest, "CLUB_DISBANDED")
			}
		})
	}
}

func TestPaging_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			srv := newTestServer(t, b)
			a := provisionActor(t, srv, "pager")

			for i := 0; i < 12; i++ {
				status, body, _ := srv.doJSON(t, http.MethodPost, "/clubs", a.subject, map[string]any{"name": uniq("Club")})
				requireStatus(t, status, body, http.StatusCreated)
			}

			status, body, _ := srv.doJSON(t, http.MethodGet, "/clubs/mine?size=-1", a.subject, nil)
			requireErrorCode(t, status, body, http.StatusBadRequest, "PAGE_SIZE_TOO_SMALL")
			got := mustUnmarshal[struct {
				Page httpapi.PageResponse[httpapi.ClubResponse] `json:"page"`
			}](t, body)
			if len(got.Page.Items) != 10 || got.Page.Total != 12 {
				t.Fatalf("fallback page: items=%d total=%d", len(got.Page.Items), got.Page.Total)
			}

			status, body, _ = srv.doJSON(t, http.MethodGet, "/clubs/mine?page=1&size=10", a.subject, nil)
			requireStatus(t, status, body, http.StatusOK)
			if p := mustUnmarshal[httpapi.PageResponse[httpapi.ClubResponse]](t, body); len(p.Items) != 2 || p.TotalPages != 2 {
				t.Fatalf("second page: items=%d totalPages=%d", len(p.Items), p.TotalPages)
			}
		})
	}
}

func TestIdempotentRequest_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			srv := newTestServer(t, b)
			owner := provisionActor(t, srv, "owner")
			reader := provisionActor(t, srv, "reader")

			status, body, _ := srv.doJSON(t, http.MethodPost, "/clubs", owner.subject, map[string]any{"name": uniq("Open"), "visibility": "PUBLIC"})
			requireStatus(t, status, body, http.StatusCreated)
			club := mustUnmarshal[httpapi.ClubResponse](t, body)

			path := "/clubs/" + club.ID + "/membership-requests"
			key := uniq("key")
			first := srv.doJSONWithHeaders(t, http.MethodPost, path, reader.subject, map[string]any{"message": "hello"}, map[string]string{"Idempotency-Key": key})
			requireStatus(t, first.status, first.body, http.StatusCreated)
			second := srv.doJSONWithHeaders(t, http.MethodPost, path, reader.subject, map[string]any{"message": "hello"}, map[string]string{"Idempotency-Key": key})
			requireStatus(t, second.status, second.body, http.StatusCreated)

			r1 := mustUnmarshal[httpapi.MembershipRequestResponse](t, first.body)
			r2 := mustUnmarshal[httpapi.MembershipRequestResponse](t, second.body)
			if r1.ID != r2.ID {
				t.Fatalf("replay returned a different request: %s vs %s", r1.ID, r2.ID)
			}

			// Same key, different club body => key reuse.
			third := srv.doJSONWithHeaders(t, http.MethodPost, path, reader.subject, map[string]any{"message": "different"}, map[string]string{"Idempotency-Key": key})
			requireErrorCode(t, third.status, third.body, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE")
		})
	}
}
