package requestrepo

import (
	"testing"

	"github.com/readers-guild/clubhouse-api/internal/adapters/contracttest"
	pgclubrepo "github.com/readers-guild/clubhouse-api/internal/adapters/postgres/clubrepo"
	"github.com/readers-guild/clubhouse-api/internal/adapters/postgres/testutil"
	clubrepoport "github.com/readers-guild/clubhouse-api/internal/ports/out/clubrepo"
	requestrepoport "github.com/readers-guild/clubhouse-api/internal/ports/out/requestrepo"
)

func TestContract_PostgresRequestRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunRequestRepo(t, func(t *testing.T) (requestrepoport.Repository, clubrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), pgclubrepo.NewRepo(pool), nil
	})
}
