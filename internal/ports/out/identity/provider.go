package identity

import (
	"context"

	"github.com/readers-guild/clubhouse-api/internal/domain"
)

// Provider resolves the authenticated principal for a request.
//
// ok=false means the request carries no authenticated user. App services never
// call a Provider; adapters resolve the principal and pass it explicitly.
type Provider interface {
	CurrentPrincipal(ctx context.Context) (p domain.Principal, ok bool, err error)
}
