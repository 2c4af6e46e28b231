// Package bootstrap assembles repositories and services for a storage backend.
package bootstrap

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/readers-guild/clubhouse-api/internal/adapters/httpapi"
	memclubrepo "github.com/readers-guild/clubhouse-api/internal/adapters/memory/clubrepo"
	memidempotency "github.com/readers-guild/clubhouse-api/internal/adapters/memory/idempotency"
	memmembershiprepo "github.com/readers-guild/clubhouse-api/internal/adapters/memory/membershiprepo"
	memnotificationrepo "github.com/readers-guild/clubhouse-api/internal/adapters/memory/notificationrepo"
	memrequestrepo "github.com/readers-guild/clubhouse-api/internal/adapters/memory/requestrepo"
	memtx "github.com/readers-guild/clubhouse-api/internal/adapters/memory/txmanager"
	memuserrepo "github.com/readers-guild/clubhouse-api/internal/adapters/memory/userrepo"
	postgres "github.com/readers-guild/clubhouse-api/internal/adapters/postgres"
	pgclubrepo "github.com/readers-guild/clubhouse-api/internal/adapters/postgres/clubrepo"
	pgidempotency "github.com/readers-guild/clubhouse-api/internal/adapters/postgres/idempotency"
	pgmembershiprepo "github.com/readers-guild/clubhouse-api/internal/adapters/postgres/membershiprepo"
	pgnotificationrepo "github.com/readers-guild/clubhouse-api/internal/adapters/postgres/notificationrepo"
	pgrequestrepo "github.com/readers-guild/clubhouse-api/internal/adapters/postgres/requestrepo"
	pguserrepo "github.com/readers-guild/clubhouse-api/internal/adapters/postgres/userrepo"
	"github.com/readers-guild/clubhouse-api/internal/app/clubs"
	"github.com/readers-guild/clubhouse-api/internal/app/memberships"
	"github.com/readers-guild/clubhouse-api/internal/app/notifications"
	"github.com/readers-guild/clubhouse-api/internal/app/requests"
	"github.com/readers-guild/clubhouse-api/internal/app/users"
	clockport "github.com/readers-guild/clubhouse-api/internal/ports/out/clock"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/clubrepo"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/idempotency"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/membershiprepo"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/notificationrepo"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/requestrepo"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/txmanager"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/userrepo"
)

// Repositories is one storage backend's implementation of every outbound port.
type Repositories struct {
	Users         userrepo.Repository
	Clubs         clubrepo.Repository
	Memberships   membershiprepo.Repository
	Requests      requestrepo.Repository
	Notifications notificationrepo.Repository
	Tx            txmanager.Manager
	Idem          idempotency.Store
}

// Memory returns process-local repositories. idemTTL bounds replay records; zero keeps them forever.
func Memory(idemTTL time.Duration, clk clockport.Clock) Repositories {
	ms := memmembershiprepo.NewRepo()
	return Repositories{
		Users:         memuserrepo.NewRepo(),
		Clubs:         memclubrepo.NewRepo(ms),
		Memberships:   ms,
		Requests:      memrequestrepo.NewRepo(),
		Notifications: memnotificationrepo.NewRepo(),
		Tx:            memtx.NewManager(),
		Idem:          memidempotency.NewStoreWithTTL(idemTTL, clk.Now),
	}
}

// Postgres returns pool-backed repositories. issuer scopes idempotency records so
// subjects from different identity providers never collide.
func Postgres(pool *pgxpool.Pool, issuer string) Repositories {
	return Repositories{
		Users:         pguserrepo.NewRepo(pool),
		Clubs:         pgclubrepo.NewRepo(pool),
		Memberships:   pgmembershiprepo.NewRepo(pool),
		Requests:      pgrequestrepo.NewRepo(pool),
		Notifications: pgnotificationrepo.NewRepo(pool),
		Tx:            postgres.NewTxManager(pool),
		Idem:          pgidempotency.NewStore(pool, issuer),
	}
}

func NewServices(r Repositories, clk clockport.Clock) httpapi.Services {
	return httpapi.Services{
		Users:         users.NewService(r.Users, r.Notifications, r.Tx, clk),
		Clubs:         clubs.NewService(r.Clubs, r.Memberships, r.Notifications, r.Tx, clk),
		Memberships:   memberships.NewService(r.Clubs, r.Memberships, r.Tx, clk),
		Requests:      requests.NewService(r.Clubs, r.Memberships, r.Requests, r.Notifications, r.Tx, clk),
		Notifications: notifications.NewService(r.Notifications),
	}
}

// NewServer wires services and the idempotency store into an HTTP server.
func NewServer(r Repositories, clk clockport.Clock) *httpapi.Server {
	return httpapi.NewServer(NewServices(r, clk), r.Idem, clk)
}
