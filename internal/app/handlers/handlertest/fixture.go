// Package handlertest seeds an in-memory store for use case tests.
package handlertest

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"deskrent/internal/app/outbox"
	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainprofiles "deskrent/internal/domain/profiles"
	domainrentals "deskrent/internal/domain/rentals"
	domainuser "deskrent/internal/domain/user"
	"deskrent/internal/infra/storage/memory"
)

var Now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

type Fixture struct {
	Store   *memory.Store
	Outbox  *memory.Outbox
	Encoder outbox.EventEncoder
}

func New() *Fixture {
	store := memory.NewStore()
	return &Fixture{Store: store, Outbox: memory.NewOutbox(store), Encoder: outbox.JSONEventEncoder{}}
}

func (f *Fixture) Clock() time.Time { return Now }

// Tx runs fn in a committed read-write unit.
func (f *Fixture) Tx(t testing.TB, fn func(ctx context.Context, unit uow.UnitOfWork)) {
	t.Helper()
	ctx := context.Background()
	unit, err := f.Store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	fn(ctx, unit)
	require.NoError(t, unit.Commit(ctx))
}

func (f *Fixture) Renter(t testing.TB, id string) *domainuser.User {
	t.Helper()
	usr, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(id),
		Email:        id + "@renters.test",
		FullName:     "Renter " + id,
		PasswordHash: "hash",
		CreatedAt:    Now,
	})
	require.NoError(t, err)
	f.Tx(t, func(ctx context.Context, unit uow.UnitOfWork) {
		require.NoError(t, unit.Users().Save(ctx, usr))
	})
	return usr
}

// Owner creates an owner account together with its business profile.
func (f *Fixture) Owner(t testing.TB, id string) (*domainuser.User, *domainprofiles.Profile) {
	t.Helper()
	usr, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(id),
		Email:        id + "@owners.test",
		FullName:     "Owner " + id,
		PasswordHash: "hash",
		AccountType:  domainuser.AccountOwner,
		CreatedAt:    Now,
	})
	require.NoError(t, err)
	profile, err := domainprofiles.NewProfile(domainprofiles.CreateParams{
		ID:     domainprofiles.ID("profile-" + id),
		UserID: usr.ID,
		Details: domainprofiles.Details{
			BusinessName: "Studio " + id,
			Location:     "Berlin",
			Workspace:    "Loft",
			Description:  "Quiet desks",
			PhoneNumber:  "+49 30 1234",
		},
		Now: Now,
	})
	require.NoError(t, err)
	profile.ClearEvents()
	f.Tx(t, func(ctx context.Context, unit uow.UnitOfWork) {
		require.NoError(t, unit.Users().Save(ctx, usr))
		require.NoError(t, unit.Profiles().Save(ctx, profile))
	})
	return usr, profile
}

func (f *Fixture) Listing(t testing.TB, id string, owner *domainuser.User, profile *domainprofiles.Profile) *domainlistings.Listing {
	t.Helper()
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:          domainlistings.ListingID(id),
		ProfileID:   profile.ID,
		OwnerUserID: owner.ID,
		Attributes: domainlistings.Attributes{
			Title:       "Desk " + id,
			SpaceType:   "hot desk",
			Location:    "Berlin Mitte",
			Description: "Near the station",
			RateCents:   2500,
		},
		Now: Now,
	})
	require.NoError(t, err)
	listing.ClearEvents()
	f.Tx(t, func(ctx context.Context, unit uow.UnitOfWork) {
		require.NoError(t, unit.Listings().Save(ctx, listing))
	})
	return listing
}

// Request stores a rental request already moved to status.
func (f *Fixture) Request(t testing.TB, id string, listing *domainlistings.Listing, renter *domainuser.User, status domainrentals.Status) *domainrentals.Request {
	t.Helper()
	req, err := domainrentals.NewRequest(domainrentals.CreateParams{
		ID:        domainrentals.RequestID(id),
		Listing:   listing,
		RenterID:  renter.ID,
		CreatedAt: Now,
	})
	require.NoError(t, err)
	if status != domainrentals.StatusPending {
		require.NoError(t, req.ChangeStatus(status, Now))
	}
	req.ClearEvents()
	f.Tx(t, func(ctx context.Context, unit uow.UnitOfWork) {
		require.NoError(t, unit.Rentals().Save(ctx, req))
	})
	return req
}

// Read runs fn in a read-only unit.
func (f *Fixture) Read(t testing.TB, fn func(ctx context.Context, unit uow.UnitOfWork)) {
	t.Helper()
	ctx := context.Background()
	unit, err := f.Store.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer unit.Rollback(ctx)
	fn(ctx, unit)
}

// EventNames lists the committed outbox event names in order.
func (f *Fixture) EventNames() []string {
	var names []string
	for _, doc := range f.Outbox.Events() {
		names = append(names, doc.Name)
	}
	return names
}

// Storage is an in-memory policies.ObjectStorage.
type Storage struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Deleted []string
	Fail    error
}

func NewStorage() *Storage {
	return &Storage{Objects: map[string][]byte{}}
}

func (s *Storage) Upload(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	if s.Fail != nil {
		return "", s.Fail
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[key] = buf.Bytes()
	return "https://cdn.test/" + key, nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, key)
	s.Deleted = append(s.Deleted, key)
	return nil
}
