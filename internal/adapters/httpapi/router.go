package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures optional router middleware. Nil fields are skipped.
type RouterOptions struct {
	AuthMiddleware func(http.Handler) http.Handler
	RateLimiter    *RateLimiter
	Logger         *slog.Logger
	CORSOrigins    []string
}

// NewRouter builds the router without auth. Handlers that need a subject answer 401.
func NewRouter(api *Server) http.Handler {
	return NewRouterWithOptions(api, RouterOptions{})
}

func NewRouterWithOptions(api *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.Logger != nil {
		r.Use(accessLog(opts.Logger))
	}
	r.Use(middleware.Recoverer)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", idempotencyKeyHeader, "X-Debug-Subject"},
			ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	if opts.RateLimiter != nil {
		r.Use(opts.RateLimiter.Middleware)
	}
	if opts.AuthMiddleware != nil {
		r.Use(opts.AuthMiddleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/users/me", func(r chi.Router) {
		r.Get("/", api.getMe)
		r.Post("/", api.provisionMe)
	})

	r.Route("/clubs", func(r chi.Router) {
		r.Get("/", api.listClubs)
		r.Post("/", api.createClub)
		r.Get("/mine", api.listMyClubs)
		r.Get("/search", api.searchClubs)
		r.Get("/by-name/{name}", api.getClubByName)
		r.Delete("/by-name/{name}", api.disbandClubByName)

		r.Route("/{clubId}", func(r chi.Router) {
			r.Get("/", api.getClub)
			r.Patch("/", api.updateClub)
			r.Delete("/", api.disbandClub)

			r.Get("/memberships", api.listMemberships)
			r.Get("/memberships/me", api.getMyMembership)
			r.Get("/memberships/me/role", api.getMyRole)
			r.Patch("/memberships/{userId}", api.updateRole)
			r.Delete("/memberships/{userId}", api.removeMembership)

			r.Post("/owners", api.addOwner)
			r.Delete("/owners/{userId}", api.revokeOwnership)

			r.Post("/membership-requests", api.requestMembership)
			r.Get("/membership-requests", api.listRequests)
			r.Get("/membership-requests/pending", api.hasPendingRequest)
		})
	})

	r.Post("/membership-requests/{requestId}/review", api.reviewRequest)
	r.Get("/notifications", api.listNotifications)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r
}
