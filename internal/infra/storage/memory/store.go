package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "deskrent/internal/app/outbox"
	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainprofiles "deskrent/internal/domain/profiles"
	domainrentals "deskrent/internal/domain/rentals"
	domainreviews "deskrent/internal/domain/reviews"
	domainuser "deskrent/internal/domain/user"
)

var (
	ErrUnitClosed = errors.New("memory: unit of work already finished")
	ErrReadOnly   = errors.New("memory: unit of work is read-only")
)

// Store keeps every aggregate in process memory.
//
// Read-write units are serialized: Begin takes the writer slot and Commit or Rollback
// releases it. Writes are staged on the unit and become visible only on Commit, so a
// rolled back unit leaves nothing behind. Read-only units never wait.
type Store struct {
	writer chan struct{}

	mu       sync.RWMutex
	users    table[domainuser.ID, *domainuser.User]
	profiles table[domainprofiles.ID, *domainprofiles.Profile]
	listings table[domainlistings.ListingID, *domainlistings.Listing]
	rentals  table[domainrentals.RequestID, *domainrentals.Request]
	reviews  table[domainreviews.ReviewID, *domainreviews.Review]
	outbox   []*outboxEntry
}

func NewStore() *Store {
	return &Store{
		writer:   make(chan struct{}, 1),
		users:    make(table[domainuser.ID, *domainuser.User]),
		profiles: make(table[domainprofiles.ID, *domainprofiles.Profile]),
		listings: make(table[domainlistings.ListingID, *domainlistings.Listing]),
		rentals:  make(table[domainrentals.RequestID, *domainrentals.Request]),
		reviews:  make(table[domainreviews.ReviewID, *domainreviews.Review]),
	}
}

func (s *Store) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if !opts.ReadOnly {
		select {
		case s.writer <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &Unit{
		store:    s,
		readOnly: opts.ReadOnly,
		users:    newStaged(s.users, cloneUser),
		profiles: newStaged(s.profiles, cloneProfile),
		listings: newStaged(s.listings, cloneListing),
		rentals:  newStaged(s.rentals, cloneRequest),
		reviews:  newStaged(s.reviews, cloneReview),
	}, nil
}

// Ping reports readiness; the in-memory store is always ready.
func (s *Store) Ping(context.Context) error { return nil }

// Unit is a uow.UnitOfWork over a Store.
type Unit struct {
	store    *Store
	readOnly bool
	done     bool

	users    *staged[domainuser.ID, *domainuser.User]
	profiles *staged[domainprofiles.ID, *domainprofiles.Profile]
	listings *staged[domainlistings.ListingID, *domainlistings.Listing]
	rentals  *staged[domainrentals.RequestID, *domainrentals.Request]
	reviews  *staged[domainreviews.ReviewID, *domainreviews.Review]
	events   []appoutbox.EventRecord
}

func (u *Unit) Users() domainuser.Repository               { return userRepo{u} }
func (u *Unit) Profiles() domainprofiles.Repository        { return profileRepo{u} }
func (u *Unit) Listings() domainlistings.ListingRepository { return listingRepo{u} }
func (u *Unit) Rentals() domainrentals.Repository          { return rentalRepo{u} }
func (u *Unit) Reviews() domainreviews.Repository          { return reviewRepo{u} }

func (u *Unit) Commit(context.Context) error {
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	if u.readOnly {
		return nil
	}
	defer u.release()

	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.users.apply()
	u.profiles.apply()
	u.listings.apply()
	u.rentals.apply()
	u.reviews.apply()
	for _, rec := range u.events {
		u.store.outbox = append(u.store.outbox, newOutboxEntry(rec))
	}
	return nil
}

func (u *Unit) Rollback(context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if !u.readOnly {
		u.release()
	}
	return nil
}

func (u *Unit) release() {
	<-u.store.writer
}

func (u *Unit) writable() error {
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (u *Unit) rlock() func() {
	u.store.mu.RLock()
	return u.store.mu.RUnlock
}

var _ uow.UoWFactory = (*Store)(nil)
var _ uow.UnitOfWork = (*Unit)(nil)
