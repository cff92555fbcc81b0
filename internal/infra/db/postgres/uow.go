package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainprofiles "deskrent/internal/domain/profiles"
	domainrentals "deskrent/internal/domain/rentals"
	domainreviews "deskrent/internal/domain/reviews"
	domainuser "deskrent/internal/domain/user"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing pool")

// Factory wires pgx transactions into the generic UnitOfWork interface.
type Factory struct {
	Pool *pgxpool.Pool
}

// Begin opens a read committed transaction. Writers serialize on the rows they load with
// ByIDForUpdate and every Save checks the version it read.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Pool == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := f.Pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, err
	}
	return &Unit{tx: tx}, nil
}

func (f Factory) Ping(ctx context.Context) error {
	if f.Pool == nil {
		return ErrUnitOfWorkNotConfigured
	}
	return f.Pool.Ping(ctx)
}

type Unit struct {
	tx pgx.Tx
}

func (u *Unit) Users() domainuser.Repository               { return userRepo{u.tx} }
func (u *Unit) Profiles() domainprofiles.Repository        { return profileRepo{u.tx} }
func (u *Unit) Listings() domainlistings.ListingRepository { return listingRepo{u.tx} }
func (u *Unit) Rentals() domainrentals.Repository          { return rentalRepo{u.tx} }
func (u *Unit) Reviews() domainreviews.Repository          { return reviewRepo{u.tx} }

func (u *Unit) Commit(ctx context.Context) error {
	return u.tx.Commit(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// InjectContext makes the transaction available to stores outside the unit, such as the outbox.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, txKey{}, u.tx)
}

type txKey struct{}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)
