package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/readers-guild/clubhouse-api/internal/domain"
	clubrepoport "github.com/readers-guild/clubhouse-api/internal/ports/out/clubrepo"
	idempotencyport "github.com/readers-guild/clubhouse-api/internal/ports/out/idempotency"
	membershiprepoport "github.com/readers-guild/clubhouse-api/internal/ports/out/membershiprepo"
	notificationrepoport "github.com/readers-guild/clubhouse-api/internal/ports/out/notificationrepo"
	requestrepoport "github.com/readers-guild/clubhouse-api/internal/ports/out/requestrepo"
	userrepoport "github.com/readers-guild/clubhouse-api/internal/ports/out/userrepo"
)

type CleanupFunc = func()

type UserRepoFactory func(t *testing.T) (userrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)
type NotificationRepoFactory func(t *testing.T) (notificationrepoport.Repository, CleanupFunc)

// ClubRepoFactory returns a club repository together with the membership
// repository its membership-scoped queries read from.
type ClubRepoFactory func(t *testing.T) (clubrepoport.Repository, membershiprepoport.Repository, CleanupFunc)

// MembershipRepoFactory returns a membership repository and a club repository used to seed clubs.
type MembershipRepoFactory func(t *testing.T) (membershiprepoport.Repository, clubrepoport.Repository, CleanupFunc)

// RequestRepoFactory returns a request repository and a club repository used to seed clubs.
type RequestRepoFactory func(t *testing.T) (requestrepoport.Repository, clubrepoport.Repository, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Subject:  domain.SubjectID("sub-1"),
		Method:   "POST",
		Route:    "/clubs",
		BodyHash: "",
	}
	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Now().UTC(),
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// A different body hash is a different fingerprint.
	other := fp
	other.BodyHash = "other"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get other fingerprint: ok=%v err=%v", ok, err)
	}
}

func RunUserRepo(t *testing.T, newRepo UserRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	suffix := uuid.NewString()[:8]
	aID := domain.UserID(uuid.NewString())
	sub := domain.SubjectID("sub-a-" + suffix)
	if err := repo.Create(ctx, domain.User{
		ID:       aID,
		Subject:  sub,
		Username: "alice-" + suffix,
		Email:    "alice@example.com",
		JoinedAt: now,
	}); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if got, err := repo.GetByID(ctx, aID); err != nil || got.Subject != sub {
		t.Fatalf("GetByID: got=%+v err=%v", got, err)
	}
	if got, err := repo.GetBySubject(ctx, sub); err != nil || got.ID != aID {
		t.Fatalf("GetBySubject: got=%+v err=%v", got, err)
	}

	// Subject uniqueness.
	err := repo.Create(ctx, domain.User{
		ID:       domain.UserID(uuid.NewString()),
		Subject:  sub,
		Username: "alice2-" + suffix,
		Email:    "alice2@example.com",
		JoinedAt: now,
	})
	if !errors.Is(err, userrepoport.ErrSubjectAlreadyBound) {
		t.Fatalf("expected ErrSubjectAlreadyBound, got %v", err)
	}

	// Username uniqueness ignores case.
	err = repo.Create(ctx, domain.User{
		ID:       domain.UserID(uuid.NewString()),
		Subject:  domain.SubjectID("sub-b-" + suffix),
		Username: "ALICE-" + suffix,
		Email:    "bob@example.com",
		JoinedAt: now,
	})
	if !errors.Is(err, userrepoport.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	if _, err := repo.GetBySubject(ctx, domain.SubjectID("missing-"+suffix)); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func RunClubRepo(t *testing.T, newRepos ClubRepoFactory) {
	t.Helper()
	ctx := context.Background()

	clubs, memberships, cleanup := newRepos(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(3000, 0).UTC()
	tag := uuid.NewString()[:8]

	public := seedClub(t, clubs, "Alpha Readers "+tag, domain.VisibilityPublic, now)
	private := seedClub(t, clubs, "Beta Readers "+tag, domain.VisibilityPrivate, now)
	disbanded := seedClub(t, clubs, "Gamma Readers "+tag, domain.VisibilityPublic, now)
	d := now.Add(time.Hour)
	disbanded.DisbandedAt = &d
	if err := clubs.Save(ctx, disbanded); err != nil {
		t.Fatalf("Save disbanded: %v", err)
	}

	// Name uniqueness.
	if err := clubs.Create(ctx, domain.Club{
		ID:         domain.ClubID(uuid.NewString()),
		Name:       public.Name,
		Visibility: domain.VisibilityPublic,
		CreatedAt:  now,
	}); !errors.Is(err, clubrepoport.ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}

	got, err := clubs.GetByName(ctx, private.Name)
	if err != nil || got.ID != private.ID || got.Visibility != domain.VisibilityPrivate {
		t.Fatalf("GetByName: got=%+v err=%v", got, err)
	}
	if _, err := clubs.GetByID(ctx, domain.ClubID(uuid.NewString())); !errors.Is(err, clubrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Search excludes private and disbanded clubs and ignores case.
	res, err := clubs.Search(ctx, "READERS "+tag, domain.PageRequest{Number: 0, Size: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].ID != public.ID || res.Total != 1 {
		t.Fatalf("unexpected search result: %#v", res)
	}

	// Admin-scoped lookup.
	admin := domain.UserID(uuid.NewString())
	user := domain.UserID(uuid.NewString())
	seedMembership(t, memberships, public.ID, admin, domain.RoleAdmin, true, now)
	seedMembership(t, memberships, public.ID, user, domain.RoleUser, false, now)
	seedMembership(t, memberships, private.ID, user, domain.RoleUser, false, now)

	if _, err := clubs.GetByIDForAdmin(ctx, public.ID, admin); err != nil {
		t.Fatalf("GetByIDForAdmin(admin): %v", err)
	}
	if _, err := clubs.GetByIDForAdmin(ctx, public.ID, user); !errors.Is(err, clubrepoport.ErrNotFound) {
		t.Fatalf("GetByIDForAdmin(user): expected ErrNotFound, got %v", err)
	}

	mine, err := clubs.ListForUser(ctx, user, domain.PageRequest{Number: 0, Size: 10})
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(mine.Items) != 2 || mine.Items[0].ID != public.ID || mine.Items[1].ID != private.ID {
		t.Fatalf("unexpected clubs for user: %#v", mine)
	}

	// Mutable fields round-trip.
	img := "cover.png"
	public.Description = "updated"
	public.ImageFileName = &img
	public.Visibility = domain.VisibilityPrivate
	if err := clubs.Save(ctx, public); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = clubs.GetByID(ctx, public.ID)
	if err != nil || got.Description != "updated" || got.ImageFileName == nil || *got.ImageFileName != img || got.Visibility != domain.VisibilityPrivate {
		t.Fatalf("GetByID after Save: got=%+v err=%v", got, err)
	}
}

func RunMembershipRepo(t *testing.T, newRepos MembershipRepoFactory) {
	t.Helper()
	ctx := context.Background()

	memberships, clubs, cleanup := newRepos(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(4000, 0).UTC()
	club := seedClub(t, clubs, "Delta Readers "+uuid.NewString()[:8], domain.VisibilityPublic, now)
	owner := domain.UserID(uuid.NewString())
	admin := domain.UserID(uuid.NewString())
	user := domain.UserID(uuid.NewString())

	seedMembership(t, memberships, club.ID, owner, domain.RoleAdmin, true, now)
	seedMembership(t, memberships, club.ID, admin, domain.RoleAdmin, false, now.Add(time.Minute))
	um := seedMembership(t, memberships, club.ID, user, domain.RoleUser, false, now.Add(2*time.Minute))

	// One active membership per pair.
	if err := memberships.Create(ctx, domain.Membership{
		ID:       domain.MembershipID(uuid.NewString()),
		ClubID:   club.ID,
		UserID:   user,
		Role:     domain.RoleUser,
		JoinedAt: now,
	}); !errors.Is(err, membershiprepoport.ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}

	if _, err := memberships.FindActiveWithRole(ctx, club.ID, admin, domain.RoleAdmin); err != nil {
		t.Fatalf("FindActiveWithRole(admin): %v", err)
	}
	if _, err := memberships.FindActiveWithRole(ctx, club.ID, user, domain.RoleAdmin); !errors.Is(err, membershiprepoport.ErrNotFound) {
		t.Fatalf("FindActiveWithRole(user, ADMIN): expected ErrNotFound, got %v", err)
	}
	if _, err := memberships.FindActiveOwner(ctx, club.ID, owner); err != nil {
		t.Fatalf("FindActiveOwner(owner): %v", err)
	}
	if _, err := memberships.FindActiveOwner(ctx, club.ID, admin); !errors.Is(err, membershiprepoport.ErrNotFound) {
		t.Fatalf("FindActiveOwner(admin): expected ErrNotFound, got %v", err)
	}

	owners, err := memberships.ListActiveOwners(ctx, club.ID, []domain.UserID{owner, admin, user})
	if err != nil {
		t.Fatalf("ListActiveOwners: %v", err)
	}
	if len(owners) != 1 || owners[0].UserID != owner {
		t.Fatalf("unexpected owners: %#v", owners)
	}

	active, err := memberships.ListActive(ctx, club.ID, []domain.UserID{user, owner, user, domain.UserID(uuid.NewString())})
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 2 || active[0].ID >= active[1].ID {
		t.Fatalf("ListActive: expected two rows ordered by id, got %#v", active)
	}

	page, err := memberships.ListByClub(ctx, club.ID, domain.PageRequest{Number: 0, Size: 2})
	if err != nil {
		t.Fatalf("ListByClub: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 || page.Items[0].UserID != owner || page.Items[1].UserID != admin {
		t.Fatalf("unexpected membership page: %#v", page)
	}

	// Departure frees the pair but keeps history.
	departed := now.Add(time.Hour)
	um.DepartedAt = &departed
	if err := memberships.Save(ctx, um); err != nil {
		t.Fatalf("Save departure: %v", err)
	}
	if ok, err := memberships.ExistsActive(ctx, club.ID, user); err != nil || ok {
		t.Fatalf("ExistsActive after departure: ok=%v err=%v", ok, err)
	}
	if ok, err := memberships.ExistsAny(ctx, club.ID, user); err != nil || !ok {
		t.Fatalf("ExistsAny after departure: ok=%v err=%v", ok, err)
	}
	if _, err := memberships.FindActive(ctx, club.ID, user); !errors.Is(err, membershiprepoport.ErrNotFound) {
		t.Fatalf("FindActive after departure: expected ErrNotFound, got %v", err)
	}

	ids, err := memberships.ListActiveClubIDs(ctx, owner)
	if err != nil || len(ids) != 1 || ids[0] != club.ID {
		t.Fatalf("ListActiveClubIDs: ids=%v err=%v", ids, err)
	}
	if ids, err := memberships.ListActiveClubIDs(ctx, user); err != nil || len(ids) != 0 {
		t.Fatalf("ListActiveClubIDs(departed): ids=%v err=%v", ids, err)
	}

	// Role and ownership updates round-trip.
	am, err := memberships.FindActive(ctx, club.ID, admin)
	if err != nil {
		t.Fatalf("FindActive(admin): %v", err)
	}
	am.IsOwner = true
	if err := memberships.Save(ctx, am); err != nil {
		t.Fatalf("Save ownership: %v", err)
	}
	if _, err := memberships.FindActiveOwner(ctx, club.ID, admin); err != nil {
		t.Fatalf("FindActiveOwner after grant: %v", err)
	}
}

func RunRequestRepo(t *testing.T, newRepos RequestRepoFactory) {
	t.Helper()
	ctx := context.Background()

	requests, clubs, cleanup := newRepos(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(5000, 0).UTC()
	club := seedClub(t, clubs, "Epsilon Readers "+uuid.NewString()[:8], domain.VisibilityPublic, now)
	alice := domain.UserID(uuid.NewString())
	bob := domain.UserID(uuid.NewString())

	older := domain.MembershipRequest{
		ID:          domain.MembershipRequestID(uuid.NewString()),
		ClubID:      club.ID,
		UserID:      alice,
		Message:     "let me in",
		Status:      domain.RequestStatusOpen,
		RequestedAt: now,
	}
	newer := domain.MembershipRequest{
		ID:          domain.MembershipRequestID(uuid.NewString()),
		ClubID:      club.ID,
		UserID:      bob,
		Message:     "me too",
		Status:      domain.RequestStatusOpen,
		RequestedAt: now.Add(time.Minute),
	}
	for _, r := range []domain.MembershipRequest{older, newer} {
		if err := requests.Create(ctx, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	if ok, err := requests.ExistsInStatus(ctx, club.ID, alice, domain.RequestStatusOpen); err != nil || !ok {
		t.Fatalf("ExistsInStatus(open): ok=%v err=%v", ok, err)
	}

	page, err := requests.ListByClub(ctx, club.ID, domain.PageRequest{Number: 0, Size: 10})
	if err != nil {
		t.Fatalf("ListByClub: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 || page.Items[0].ID != newer.ID {
		t.Fatalf("expected newest first, got %#v", page)
	}

	reviewed := now.Add(time.Hour)
	reviewer := domain.UserID(uuid.NewString())
	msg := "welcome"
	older.Status = domain.RequestStatusApproved
	older.Role = domain.RoleUser
	older.ReviewerID = &reviewer
	older.ReviewMessage = &msg
	older.ReviewedAt = &reviewed
	if err := requests.Save(ctx, older); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := requests.GetByID(ctx, older.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.RequestStatusApproved || got.Role != domain.RoleUser || got.ReviewerID == nil || *got.ReviewerID != reviewer || got.ReviewedAt == nil {
		t.Fatalf("unexpected reviewed request: %+v", got)
	}
	if ok, err := requests.ExistsInStatus(ctx, club.ID, alice, domain.RequestStatusOpen); err != nil || ok {
		t.Fatalf("ExistsInStatus(open) after review: ok=%v err=%v", ok, err)
	}
	if _, err := requests.GetByID(ctx, domain.MembershipRequestID(uuid.NewString())); !errors.Is(err, requestrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func RunNotificationRepo(t *testing.T, newRepo NotificationRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(6000, 0).UTC()
	user := domain.UserID(uuid.NewString())
	other := domain.UserID(uuid.NewString())
	for i, typ := range []domain.NotificationType{domain.NotificationUserRegistered, domain.NotificationClubCreated} {
		if err := repo.Create(ctx, domain.Notification{
			ID:           domain.NotificationID(uuid.NewString()),
			SourceUserID: user,
			TargetUserID: user,
			Type:         typ,
			CreatedAt:    now.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := repo.Create(ctx, domain.Notification{
		ID:           domain.NotificationID(uuid.NewString()),
		SourceUserID: other,
		TargetUserID: other,
		Type:         domain.NotificationUserRegistered,
		CreatedAt:    now,
	}); err != nil {
		t.Fatalf("Create other: %v", err)
	}

	page, err := repo.ListForUser(ctx, user, domain.PageRequest{Number: 0, Size: 10})
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 || page.Items[0].Type != domain.NotificationClubCreated {
		t.Fatalf("expected newest first for user only, got %#v", page)
	}
}

func seedClub(t *testing.T, clubs clubrepoport.Repository, name string, vis domain.Visibility, now time.Time) domain.Club {
	t.Helper()
	c := domain.Club{
		ID:          domain.ClubID(uuid.NewString()),
		Name:        name,
		Description: domain.DefaultClubDescription,
		Visibility:  vis,
		CreatedAt:   now,
	}
	if err := clubs.Create(context.Background(), c); err != nil {
		t.Fatalf("seed club %q: %v", name, err)
	}
	return c
}

func seedMembership(t *testing.T, memberships membershiprepoport.Repository, club domain.ClubID, user domain.UserID, role domain.Role, owner bool, joined time.Time) domain.Membership {
	t.Helper()
	m := domain.Membership{
		ID:       domain.MembershipID(uuid.NewString()),
		ClubID:   club,
		UserID:   user,
		Role:     role,
		IsOwner:  owner,
		JoinedAt: joined,
	}
	if err := memberships.Create(context.Background(), m); err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	return m
}
