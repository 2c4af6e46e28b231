package membershiprepo

import (
	"testing"

	"github.com/readers-guild/clubhouse-api/internal/adapters/contracttest"
	pgclubrepo "github.com/readers-guild/clubhouse-api/internal/adapters/postgres/clubrepo"
	"github.com/readers-guild/clubhouse-api/internal/adapters/postgres/testutil"
	clubrepoport "github.com/readers-guild/clubhouse-api/internal/ports/out/clubrepo"
	membershiprepoport "github.com/readers-guild/clubhouse-api/internal/ports/out/membershiprepo"
)

func TestContract_PostgresMembershipRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunMembershipRepo(t, func(t *testing.T) (membershiprepoport.Repository, clubrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), pgclubrepo.NewRepo(pool), nil
	})
}
