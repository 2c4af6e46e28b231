package memberships

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memclock "github.com/readers-guild/clubhouse-api/internal/adapters/memory/clock"
	memclubrepo "github.com/readers-guild/clubhouse-api/internal/adapters/memory/clubrepo"
	memmembershiprepo "github.com/readers-guild/clubhouse-api/internal/adapters/memory/membershiprepo"
	memtx "github.com/readers-guild/clubhouse-api/internal/adapters/memory/txmanager"
	"github.com/readers-guild/clubhouse-api/internal/app/apperr"
	"github.com/readers-guild/clubhouse-api/internal/app/paging"
	"github.com/readers-guild/clubhouse-api/internal/domain"
)

const clubID = domain.ClubID("club-1")

type fixture struct {
	svc         *Service
	memberships *memmembershiprepo.Repo
	clk         *memclock.ManualClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	memberships := memmembershiprepo.NewRepo()
	clubs := memclubrepo.NewRepo(memberships)
	clk := memclock.NewManualClock(time.Unix(1000, 0).UTC())
	require.NoError(t, clubs.Create(context.Background(), domain.Club{
		ID: clubID, Name: "Readers", Visibility: domain.VisibilityPublic, CreatedAt: clk.Now(),
	}))
	return &fixture{
		svc:         NewService(clubs, memberships, memtx.NewManager(), clk),
		memberships: memberships,
		clk:         clk,
	}
}

func (f *fixture) seed(t *testing.T, user domain.UserID, role domain.Role, owner bool) {
	t.Helper()
	require.NoError(t, f.memberships.Create(context.Background(), domain.Membership{
		ID:       domain.MembershipID("m-" + string(user)),
		ClubID:   clubID,
		UserID:   user,
		Role:     role,
		IsOwner:  owner,
		JoinedAt: f.clk.Now(),
	}))
	f.clk.Advance(time.Second)
}

func principal(id domain.UserID) domain.Principal {
	return domain.Principal{UserID: id, Subject: domain.SubjectID("sub-" + string(id))}
}

func requireKind(t *testing.T, err error, k apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, k, apperr.KindOf(err), "err=%v", err)
}

func TestUpdateRole(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.seed(t, "owner", domain.RoleAdmin, true)
	f.seed(t, "admin", domain.RoleAdmin, false)
	f.seed(t, "reader", domain.RoleUser, false)

	_, err := f.svc.UpdateRole(ctx, principal("admin"), clubID, "admin", domain.RoleUser)
	requireKind(t, err, apperr.KindBadAction)

	_, err = f.svc.UpdateRole(ctx, principal("reader"), clubID, "admin", domain.RoleUser)
	requireKind(t, err, apperr.KindUnauthorized)

	_, err = f.svc.UpdateRole(ctx, principal("admin"), clubID, "stranger", domain.RoleAdmin)
	requireKind(t, err, apperr.KindMembershipNotFound)

	_, err = f.svc.UpdateRole(ctx, principal("admin"), clubID, "owner", domain.RoleUser)
	requireKind(t, err, apperr.KindBadAction)

	_, err = f.svc.UpdateRole(ctx, principal("admin"), clubID, "reader", domain.RoleUser)
	requireKind(t, err, apperr.KindBadAction)

	_, err = f.svc.UpdateRole(ctx, principal("admin"), clubID, "reader", domain.RoleNone)
	requireKind(t, err, apperr.KindBadAction)

	_, err = f.svc.UpdateRole(ctx, domain.Principal{}, clubID, "reader", domain.RoleAdmin)
	requireKind(t, err, apperr.KindUserNotFound)

	m, err := f.svc.UpdateRole(ctx, principal("admin"), clubID, "reader", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, m.Role)

	stored, err := f.memberships.FindActive(ctx, clubID, "reader")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, stored.Role)
}

func TestRemoveMembership(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.seed(t, "owner", domain.RoleAdmin, true)
	f.seed(t, "admin", domain.RoleAdmin, false)
	f.seed(t, "reader", domain.RoleUser, false)

	_, err := f.svc.RemoveMembership(ctx, principal("admin"), clubID, "admin")
	requireKind(t, err, apperr.KindBadAction)

	_, err = f.svc.RemoveMembership(ctx, principal("reader"), clubID, "admin")
	requireKind(t, err, apperr.KindUnauthorized)

	_, err = f.svc.RemoveMembership(ctx, principal("admin"), clubID, "owner")
	requireKind(t, err, apperr.KindBadAction)

	_, err = f.svc.RemoveMembership(ctx, principal("admin"), clubID, "stranger")
	requireKind(t, err, apperr.KindMembershipNotFound)

	m, err := f.svc.RemoveMembership(ctx, principal("admin"), clubID, "reader")
	require.NoError(t, err)
	require.NotNil(t, m.DepartedAt)
	assert.True(t, m.DepartedAt.Equal(f.clk.Now()))

	active, err := f.memberships.ExistsActive(ctx, clubID, "reader")
	require.NoError(t, err)
	assert.False(t, active)

	_, err = f.svc.RemoveMembership(ctx, principal("admin"), clubID, "reader")
	requireKind(t, err, apperr.KindMembershipNotFound)
}

func TestAddOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.seed(t, "owner", domain.RoleAdmin, true)
	f.seed(t, "admin", domain.RoleAdmin, false)
	f.seed(t, "reader", domain.RoleUser, false)

	_, err := f.svc.AddOwner(ctx, principal("owner"), clubID, "owner")
	requireKind(t, err, apperr.KindBadAction)

	_, err = f.svc.AddOwner(ctx, principal("admin"), clubID, "reader")
	requireKind(t, err, apperr.KindUnauthorized)

	_, err = f.svc.AddOwner(ctx, principal("owner"), clubID, "stranger")
	requireKind(t, err, apperr.KindMembershipNotFound)

	m, err := f.svc.AddOwner(ctx, principal("owner"), clubID, "reader")
	require.NoError(t, err)
	assert.True(t, m.IsOwner)
	assert.Equal(t, domain.RoleAdmin, m.Role)

	self, err := f.memberships.FindActiveOwner(ctx, clubID, "owner")
	require.NoError(t, err)
	assert.True(t, self.IsOwner, "granting ownership must not drop the requester's")
}

func TestUpdateRoleAndRemove_RequireAdmin(t *testing.T) {
	t.Parallel()

	// "reader" holds USER, "stranger" has no membership at all (NONE).
	for _, requester := range []domain.UserID{"reader", "stranger"} {
		t.Run(string(requester), func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			f := newFixture(t)
			f.seed(t, "owner", domain.RoleAdmin, true)
			f.seed(t, "reader", domain.RoleUser, false)
			f.seed(t, "target", domain.RoleUser, false)

			_, err := f.svc.UpdateRole(ctx, principal(requester), clubID, "target", domain.RoleAdmin)
			requireKind(t, err, apperr.KindUnauthorized)

			_, err = f.svc.RemoveMembership(ctx, principal(requester), clubID, "target")
			requireKind(t, err, apperr.KindUnauthorized)

			stored, err := f.memberships.FindActive(ctx, clubID, "target")
			require.NoError(t, err)
			assert.Equal(t, domain.RoleUser, stored.Role)
			assert.Nil(t, stored.DepartedAt)
		})
	}
}

func TestAddOwner_Twice(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.seed(t, "owner", domain.RoleAdmin, true)
	f.seed(t, "reader", domain.RoleUser, false)

	for i := 0; i < 2; i++ {
		m, err := f.svc.AddOwner(ctx, principal("owner"), clubID, "reader")
		require.NoError(t, err)
		assert.True(t, m.IsOwner)
	}

	page, err := f.memberships.ListByClub(ctx, clubID, domain.PageRequest{Size: paging.MaxSize})
	require.NoError(t, err)
	var readers []domain.Membership
	for _, m := range page.Items {
		if m.UserID == "reader" {
			readers = append(readers, m)
		}
	}
	require.Len(t, readers, 1)
	assert.True(t, readers[0].IsOwner)
	assert.Equal(t, domain.RoleAdmin, readers[0].Role)
}

func TestRevokeOwnership(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.seed(t, "owner", domain.RoleAdmin, true)
	f.seed(t, "co-owner", domain.RoleAdmin, true)
	f.seed(t, "admin", domain.RoleAdmin, false)

	_, err := f.svc.RevokeOwnership(ctx, principal("owner"), clubID, "owner")
	requireKind(t, err, apperr.KindBadAction)

	_, err = f.svc.RevokeOwnership(ctx, principal("admin"), clubID, "owner")
	requireKind(t, err, apperr.KindUnauthorized)

	_, err = f.svc.RevokeOwnership(ctx, principal("owner"), clubID, "admin")
	requireKind(t, err, apperr.KindMembershipNotFound)

	m, err := f.svc.RevokeOwnership(ctx, principal("owner"), clubID, "co-owner")
	require.NoError(t, err)
	assert.False(t, m.IsOwner)
	assert.Equal(t, domain.RoleAdmin, m.Role, "revoking ownership keeps the role")

	// The former co-owner can no longer revoke anyone.
	_, err = f.svc.RevokeOwnership(ctx, principal("co-owner"), clubID, "owner")
	requireKind(t, err, apperr.KindUnauthorized)
}

func TestRevokeOwnership_MutualRevokeLeavesOneOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.seed(t, "a", domain.RoleAdmin, true)
	f.seed(t, "b", domain.RoleAdmin, true)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = f.svc.RevokeOwnership(ctx, principal("a"), clubID, "b")
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.svc.RevokeOwnership(ctx, principal("b"), clubID, "a")
	}()
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			requireKind(t, err, apperr.KindUnauthorized)
		}
	}
	assert.Equal(t, 1, succeeded)

	owners, err := f.memberships.ListActiveOwners(ctx, clubID, []domain.UserID{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, owners, 1)
}

func TestGetMembershipAndRole(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.seed(t, "reader", domain.RoleUser, false)

	m, err := f.svc.GetMembership(ctx, principal("reader"), clubID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, m.Role)

	m, err = f.svc.GetMembership(ctx, principal("stranger"), clubID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleNone, m.Role)
	assert.False(t, m.IsOwner)
	assert.Empty(t, m.ID)

	_, err = f.svc.GetMembership(ctx, principal("reader"), "missing-club")
	requireKind(t, err, apperr.KindClubNotFound)

	role, err := f.svc.GetRole(ctx, principal("reader"), clubID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, role)

	_, err = f.svc.GetRole(ctx, principal("stranger"), clubID)
	requireKind(t, err, apperr.KindMembershipNotFound)
}

func TestListMemberships(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.seed(t, "owner", domain.RoleAdmin, true)
	f.seed(t, "r1", domain.RoleUser, false)
	f.seed(t, "r2", domain.RoleUser, false)

	_, err := f.svc.ListMemberships(ctx, principal("r1"), clubID, domain.PageRequest{Size: 10})
	requireKind(t, err, apperr.KindUnauthorized)

	page, err := f.svc.ListMemberships(ctx, principal("owner"), clubID, domain.PageRequest{Number: 0, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, domain.UserID("owner"), page.Items[0].UserID)
	assert.Equal(t, domain.UserID("r1"), page.Items[1].UserID)

	_, err = f.svc.ListMemberships(ctx, principal("owner"), clubID, domain.PageRequest{Size: 0})
	requireKind(t, err, apperr.KindPageSizeTooSmall)
	fallback, ok := paging.PayloadPage[domain.Membership](err)
	require.True(t, ok)
	assert.Len(t, fallback.Items, 3)
}
