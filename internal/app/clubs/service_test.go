package clubs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memclock "github.com/readers-guild/clubhouse-api/internal/adapters/memory/clock"
	memclubrepo "github.com/readers-guild/clubhouse-api/internal/adapters/memory/clubrepo"
	memmembershiprepo "github.com/readers-guild/clubhouse-api/internal/adapters/memory/membershiprepo"
	memnotificationrepo "github.com/readers-guild/clubhouse-api/internal/adapters/memory/notificationrepo"
	memtx "github.com/readers-guild/clubhouse-api/internal/adapters/memory/txmanager"
	"github.com/readers-guild/clubhouse-api/internal/app/apperr"
	"github.com/readers-guild/clubhouse-api/internal/domain"
)

type fixture struct {
	svc           *Service
	clubs         *memclubrepo.Repo
	memberships   *memmembershiprepo.Repo
	notifications *memnotificationrepo.Repo
	clk           *memclock.ManualClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	memberships := memmembershiprepo.NewRepo()
	clubs := memclubrepo.NewRepo(memberships)
	notifications := memnotificationrepo.NewRepo()
	clk := memclock.NewManualClock(time.Unix(1000, 0).UTC())
	return &fixture{
		svc:           NewService(clubs, memberships, notifications, memtx.NewManager(), clk),
		clubs:         clubs,
		memberships:   memberships,
		notifications: notifications,
		clk:           clk,
	}
}

func principal(id domain.UserID) domain.Principal {
	return domain.Principal{UserID: id, Subject: domain.SubjectID("sub-" + string(id))}
}

func requireKind(t *testing.T, err error, k apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, k, apperr.KindOf(err), "err=%v", err)
}

func TestCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	c, err := f.svc.Create(ctx, principal("alice"), CreateInput{Name: "  Night   Owls "})
	require.NoError(t, err)
	assert.Equal(t, "Night Owls", c.Name)
	assert.Equal(t, domain.DefaultClubDescription, c.Description)
	assert.Equal(t, domain.VisibilityPrivate, c.Visibility)
	assert.Nil(t, c.DisbandedAt)

	m, err := f.memberships.FindActive(ctx, c.ID, "alice")
	require.NoError(t, err)
	assert.True(t, m.IsOwner)
	assert.Equal(t, domain.RoleAdmin, m.Role)

	feed, err := f.notifications.ListForUser(ctx, "alice", domain.PageRequest{Size: 10})
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, domain.NotificationClubCreated, feed.Items[0].Type)
}

func TestCreate_Rejections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Create(ctx, principal("alice"), CreateInput{Name: "Night Owls"})
	require.NoError(t, err)

	cases := []struct {
		name string
		p    domain.Principal
		in   CreateInput
		kind apperr.Kind
	}{
		{"no principal", domain.Principal{}, CreateInput{Name: "Other"}, apperr.KindUserNotFound},
		{"reserved lower", principal("bob"), CreateInput{Name: "create"}, apperr.KindBadAction},
		{"reserved mixed case", principal("bob"), CreateInput{Name: "DeFault"}, apperr.KindBadAction},
		{"blank", principal("bob"), CreateInput{Name: "   "}, apperr.KindBadAction},
		{"duplicate", principal("bob"), CreateInput{Name: "Night Owls"}, apperr.KindBadAction},
		{"bad visibility", principal("bob"), CreateInput{Name: "Other", Visibility: "SECRET"}, apperr.KindBadAction},
	}
	for _, tc := range cases {
		_, err := f.svc.Create(ctx, tc.p, tc.in)
		requireKind(t, err, tc.kind)
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	c, err := f.svc.Create(ctx, principal("alice"), CreateInput{Name: "Night Owls", Description: "late readers"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, principal("alice"), CreateInput{Name: "Early Birds"})
	require.NoError(t, err)
	require.NoError(t, f.memberships.Create(ctx, domain.Membership{
		ID: "m-bob", ClubID: c.ID, UserID: "bob", Role: domain.RoleUser, JoinedAt: f.clk.Now(),
	}))

	_, err = f.svc.Update(ctx, principal("bob"), c.ID, UpdateInput{Name: Some("Bob's Club")})
	requireKind(t, err, apperr.KindClubNotFound)

	_, err = f.svc.Update(ctx, principal("alice"), c.ID, UpdateInput{Name: Some("default")})
	requireKind(t, err, apperr.KindBadAction)

	_, err = f.svc.Update(ctx, principal("alice"), c.ID, UpdateInput{Name: Null[string]()})
	requireKind(t, err, apperr.KindBadAction)

	_, err = f.svc.Update(ctx, principal("alice"), c.ID, UpdateInput{Name: Some("Early Birds")})
	requireKind(t, err, apperr.KindBadAction)

	updated, err := f.svc.Update(ctx, principal("alice"), c.ID, UpdateInput{
		Name:          Some("Night Owls Society"),
		ImageFileName: Some("owl.png"),
		Visibility:    Some(domain.VisibilityPublic),
	})
	require.NoError(t, err)
	assert.Equal(t, "Night Owls Society", updated.Name)
	assert.Equal(t, "late readers", updated.Description)
	require.NotNil(t, updated.ImageFileName)
	assert.Equal(t, "owl.png", *updated.ImageFileName)
	assert.Equal(t, domain.VisibilityPublic, updated.Visibility)

	updated, err = f.svc.Update(ctx, principal("alice"), c.ID, UpdateInput{
		Description:   Null[string](),
		ImageFileName: Null[string](),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultClubDescription, updated.Description)
	assert.Nil(t, updated.ImageFileName)

	stored, err := f.clubs.GetByName(ctx, "Night Owls Society")
	require.NoError(t, err)
	assert.Equal(t, c.ID, stored.ID)
}

func TestDisband(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	c, err := f.svc.Create(ctx, principal("alice"), CreateInput{Name: "Night Owls", Visibility: domain.VisibilityPublic})
	require.NoError(t, err)
	require.NoError(t, f.memberships.Create(ctx, domain.Membership{
		ID: "m-bob", ClubID: c.ID, UserID: "bob", Role: domain.RoleAdmin, JoinedAt: f.clk.Now(),
	}))

	_, err = f.svc.Disband(ctx, principal("carol"), c.ID)
	requireKind(t, err, apperr.KindMembershipNotFound)

	_, err = f.svc.Disband(ctx, principal("bob"), c.ID)
	requireKind(t, err, apperr.KindUnauthorized)

	f.clk.Advance(time.Hour)
	d, err := f.svc.Disband(ctx, principal("alice"), c.ID)
	require.NoError(t, err)
	require.NotNil(t, d.DisbandedAt)
	assert.True(t, d.DisbandedAt.Equal(f.clk.Now()))

	_, err = f.svc.Disband(ctx, principal("alice"), c.ID)
	requireKind(t, err, apperr.KindBadAction)

	_, err = f.svc.Update(ctx, principal("alice"), c.ID, UpdateInput{Name: Some("Revived")})
	requireKind(t, err, apperr.KindBadAction)

	// Memberships survive disbandment.
	ok, err := f.memberships.ExistsActive(ctx, c.ID, "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	dir, err := f.svc.ListDirectory(ctx, domain.PageRequest{Size: 10})
	require.NoError(t, err)
	assert.Empty(t, dir.Items)

	mine, err := f.svc.FindAllForUser(ctx, principal("alice"), domain.PageRequest{Size: 10})
	require.NoError(t, err)
	assert.Len(t, mine.Items, 1)
}

func TestFindVisible(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	pub, err := f.svc.Create(ctx, principal("alice"), CreateInput{Name: "Open Shelf", Visibility: domain.VisibilityPublic})
	require.NoError(t, err)
	priv, err := f.svc.Create(ctx, principal("alice"), CreateInput{Name: "Secret Shelf", Visibility: domain.VisibilityPrivate})
	require.NoError(t, err)

	got, err := f.svc.FindVisible(ctx, principal("bob"), pub.ID)
	require.NoError(t, err)
	assert.Equal(t, pub.ID, got.ID)

	_, err = f.svc.FindVisible(ctx, principal("bob"), priv.ID)
	requireKind(t, err, apperr.KindMembershipNotFound)

	_, err = f.svc.FindVisibleByName(ctx, principal("bob"), "Secret Shelf")
	requireKind(t, err, apperr.KindMembershipNotFound)

	got, err = f.svc.FindVisibleByName(ctx, principal("alice"), "Secret Shelf")
	require.NoError(t, err)
	assert.Equal(t, priv.ID, got.ID)

	_, err = f.svc.FindVisible(ctx, principal("alice"), "missing")
	requireKind(t, err, apperr.KindClubNotFound)
}

func TestSearchAndDirectory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	for _, in := range []CreateInput{
		{Name: "Mystery Readers", Visibility: domain.VisibilityPublic},
		{Name: "History Buffs", Visibility: domain.VisibilityPublic},
		{Name: "Mystery Insiders", Visibility: domain.VisibilityPrivate},
	} {
		_, err := f.svc.Create(ctx, principal("alice"), in)
		require.NoError(t, err)
	}

	res, err := f.svc.Search(ctx, "STERY", domain.PageRequest{Size: 10})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Mystery Readers", res.Items[0].Name)

	_, err = f.svc.Search(ctx, "  ", domain.PageRequest{Size: 10})
	requireKind(t, err, apperr.KindBadAction)

	dir, err := f.svc.ListDirectory(ctx, domain.PageRequest{Size: 10})
	require.NoError(t, err)
	require.Len(t, dir.Items, 2)
	assert.Equal(t, "History Buffs", dir.Items[0].Name)

	_, err = f.svc.ListDirectory(ctx, domain.PageRequest{Size: 0})
	requireKind(t, err, apperr.KindPageSizeTooSmall)
}

func TestDisbandByName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	c, err := f.svc.Create(ctx, principal("alice"), CreateInput{Name: "Night Owls", Visibility: domain.VisibilityPublic})
	require.NoError(t, err)

	_, err = f.svc.DisbandByName(ctx, principal("alice"), "Day Owls")
	requireKind(t, err, apperr.KindClubNotFound)

	_, err = f.svc.DisbandByName(ctx, principal("bob"), "Night Owls")
	requireKind(t, err, apperr.KindMembershipNotFound)

	d, err := f.svc.DisbandByName(ctx, principal("alice"), "  Night   Owls ")
	require.NoError(t, err)
	assert.Equal(t, c.ID, d.ID)
	require.NotNil(t, d.DisbandedAt)
}
