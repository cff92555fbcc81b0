package postgres

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "deskrent/internal/app/outbox"
	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainprofiles "deskrent/internal/domain/profiles"
	domainrentals "deskrent/internal/domain/rentals"
	domainreviews "deskrent/internal/domain/reviews"
	domainuser "deskrent/internal/domain/user"
	infraoutbox "deskrent/internal/infra/outbox"
)

var testNow = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "", containsPattern(""))
	assert.Equal(t, "%berlin%", containsPattern("berlin"))
	assert.Equal(t, `%100\%\_desk\\%`, containsPattern(`100%_desk\`))
}

// newTestPool migrates a throwaway schema on the server named by POSTGRES_TEST_DSN.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	admin, err := Connect(ctx, dsn)
	require.NoError(t, err)
	schemaName := "deskrent_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schemaName)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schemaName+" CASCADE")
		admin.Close()
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schemaName
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))
	return pool
}

func inUnit(t *testing.T, f Factory, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	t.Helper()
	unit, ctx, finish, err := uow.Begin(context.Background(), f, uow.TxOptions{})
	require.NoError(t, err)
	return finish(fn(ctx, unit))
}

type seeded struct {
	owner   *domainuser.User
	renter  *domainuser.User
	profile *domainprofiles.Profile
	listing *domainlistings.Listing
	request *domainrentals.Request
}

func seed(t *testing.T, f Factory) seeded {
	t.Helper()
	owner, err := domainuser.NewUser(domainuser.CreateParams{
		ID: "owner-1", Email: "Owner.One@mail.io", FullName: "Owner One", PasswordHash: "hash",
		AccountType: domainuser.AccountOwner, CreatedAt: testNow,
	})
	require.NoError(t, err)
	renter, err := domainuser.NewUser(domainuser.CreateParams{
		ID: "renter-1", Email: "renter@mail.io", FullName: "Renter One", PasswordHash: "hash", CreatedAt: testNow,
	})
	require.NoError(t, err)
	profile, err := domainprofiles.NewProfile(domainprofiles.CreateParams{
		ID: "profile-1", UserID: owner.ID, Now: testNow,
		Details: domainprofiles.Details{BusinessName: "Studio One", Location: "Berlin", Description: "Desks", PhoneNumber: "+49"},
	})
	require.NoError(t, err)
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID: "listing-1", ProfileID: profile.ID, OwnerUserID: owner.ID, Now: testNow,
		Attributes: domainlistings.Attributes{
			Title: "Window desk", SpaceType: "Hot Desk", Location: "Berlin Mitte", Description: "Bright", RateCents: 1999,
		},
	})
	require.NoError(t, err)
	listing.AddImage(domainlistings.Image{ID: "img-1", URL: "https://cdn.test/a.png", ObjectKey: "a.png", CreatedAt: testNow}, testNow)
	request, err := domainrentals.NewRequest(domainrentals.CreateParams{
		ID: "request-1", Listing: listing, RenterID: renter.ID, CreatedAt: testNow,
	})
	require.NoError(t, err)

	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		require.NoError(t, unit.Users().Save(ctx, owner))
		require.NoError(t, unit.Users().Save(ctx, renter))
		require.NoError(t, unit.Profiles().Save(ctx, profile))
		require.NoError(t, unit.Listings().Save(ctx, listing))
		return unit.Rentals().Save(ctx, request)
	}))
	return seeded{owner: owner, renter: renter, profile: profile, listing: listing, request: request}
}

func TestRepositoriesRoundTrip(t *testing.T) {
	f := Factory{Pool: newTestPool(t)}
	s := seed(t, f)

	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		usr, err := unit.Users().ByEmail(ctx, "ownerone@MAIL.io")
		require.NoError(t, err)
		assert.Equal(t, s.owner.ID, usr.ID)
		assert.Equal(t, int64(1), usr.Version)

		listing, err := unit.Listings().ByID(ctx, s.listing.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1999), listing.RateCents)
		require.Len(t, listing.Images, 1)
		assert.Equal(t, "a.png", listing.Images[0].ObjectKey)

		result, err := unit.Listings().Search(ctx, domainlistings.SearchParams{Location: "MITTE", SpaceType: "desk"})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Total)

		mine, err := unit.Rentals().ListByRenter(ctx, s.renter.ID)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, domainrentals.StatusPending, mine[0].Status)
		return nil
	}))
}

func TestUniqueConstraintsMapToDomainErrors(t *testing.T) {
	f := Factory{Pool: newTestPool(t)}
	s := seed(t, f)

	dup, err := domainuser.NewUser(domainuser.CreateParams{
		ID: "owner-2", Email: "ownerone@mail.io", FullName: "Dup", PasswordHash: "hash", CreatedAt: testNow,
	})
	require.NoError(t, err)
	err = inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Users().Save(ctx, dup)
	})
	assert.ErrorIs(t, err, domainuser.ErrEmailAlreadyUsed)

	second, err := domainprofiles.NewProfile(domainprofiles.CreateParams{
		ID: "profile-2", UserID: s.owner.ID, Now: testNow,
		Details: domainprofiles.Details{BusinessName: "Studio Two", Location: "Berlin", Description: "Desks", PhoneNumber: "+49"},
	})
	require.NoError(t, err)
	err = inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Profiles().Save(ctx, second)
	})
	assert.ErrorIs(t, err, domainprofiles.ErrAlreadyExists)
}

func TestStaleVersionIsRejected(t *testing.T) {
	f := Factory{Pool: newTestPool(t)}
	s := seed(t, f)

	stale := *s.request
	require.NoError(t, s.request.ChangeStatus(domainrentals.StatusApproved, testNow))
	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Rentals().Save(ctx, s.request)
	}))

	require.NoError(t, stale.ChangeStatus(domainrentals.StatusRejected, testNow))
	err := inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Rentals().Save(ctx, &stale)
	})
	assert.ErrorIs(t, err, uow.ErrConcurrentUpdate)
}

func TestReviewInsertOnlyAndCascade(t *testing.T) {
	f := Factory{Pool: newTestPool(t)}
	s := seed(t, f)

	review, err := domainreviews.Submit(domainreviews.SubmitParams{
		ID: "review-1", RequestID: s.request.ID, ReviewerID: s.renter.ID, ProfileID: s.profile.ID,
		ListingID: s.listing.ID, Rating: 4, Feedback: "Good", CreatedAt: testNow,
	})
	require.NoError(t, err)
	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Reviews().Save(ctx, review)
	}))

	again := *review
	again.ID = "review-2"
	err = inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Reviews().Save(ctx, &again)
	})
	assert.ErrorIs(t, err, domainreviews.ErrDuplicate)

	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Listings().Delete(ctx, s.listing.ID)
	}))
	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		_, err := unit.Rentals().ByID(ctx, s.request.ID)
		assert.ErrorIs(t, err, domainrentals.ErrNotFound)
		_, err = unit.Reviews().ByRequest(ctx, s.request.ID)
		assert.ErrorIs(t, err, domainreviews.ErrNotFound)
		assert.ErrorIs(t, unit.Listings().Delete(ctx, s.listing.ID), domainlistings.ErrNotFound)
		return nil
	}))
}

func TestOutboxCommitsWithUnit(t *testing.T) {
	pool := newTestPool(t)
	f := Factory{Pool: pool}
	box := NewOutboxStore(pool)
	record := appoutbox.EventRecord{
		ID: "evt-1", Name: "review.submitted", Payload: []byte(`{}`), OccurredAt: testNow,
		Aggregate: "review-1", Headers: map[string]string{"content-type": "application/json"},
	}

	err := inUnit(t, f, func(ctx context.Context, _ uow.UnitOfWork) error {
		require.NoError(t, box.Add(ctx, record))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	doc, err := box.Claim(context.Background(), "w1")
	require.NoError(t, err)
	assert.Nil(t, doc, "rolled back events must not be visible")

	require.NoError(t, inUnit(t, f, func(ctx context.Context, _ uow.UnitOfWork) error {
		return box.Add(ctx, record)
	}))
	doc, err = box.Claim(context.Background(), "w1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, infraoutbox.StateClaimed, doc.State)
	assert.Equal(t, "application/json", doc.Headers["content-type"])

	require.NoError(t, box.MarkFailed(context.Background(), doc.ID, testNow, "broker down"))
	doc, err = box.Claim(context.Background(), "w2")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, 1, doc.Attempts)
	assert.Equal(t, "broker down", doc.LastError)

	require.NoError(t, box.MarkSent(context.Background(), doc.ID))
	doc, err = box.Claim(context.Background(), "w2")
	require.NoError(t, err)
	assert.Nil(t, doc)
}
