package uow

import (
	"context"
	"errors"

	domainlistings "deskrent/internal/domain/listings"
	domainprofiles "deskrent/internal/domain/profiles"
	domainrentals "deskrent/internal/domain/rentals"
	domainreviews "deskrent/internal/domain/reviews"
	domainuser "deskrent/internal/domain/user"
)

// ErrConcurrentUpdate is returned by Save when the stored version moved underneath the caller.
var ErrConcurrentUpdate = errors.New("uow: concurrent update detected")

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Users() domainuser.Repository
	Profiles() domainprofiles.Repository
	Listings() domainlistings.ListingRepository
	Rentals() domainrentals.Repository
	Reviews() domainreviews.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}
