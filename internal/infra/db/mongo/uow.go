package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainprofiles "deskrent/internal/domain/profiles"
	domainrentals "deskrent/internal/domain/rentals"
	domainreviews "deskrent/internal/domain/reviews"
	domainuser "deskrent/internal/domain/user"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction. Read-only units run the same snapshot
// transaction and are rolled back by their owner.
func (f Factory) Begin(ctx context.Context, _ uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(readconcern.Snapshot()).SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{db: f.DB, session: session}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session
}

func (u *Unit) Users() domainuser.Repository {
	return userRepo{col: u.db.Collection(colUsers)}
}

func (u *Unit) Profiles() domainprofiles.Repository {
	return profileRepo{col: u.db.Collection(colProfiles)}
}

func (u *Unit) Listings() domainlistings.ListingRepository {
	return listingRepo{db: u.db, col: u.db.Collection(colListings)}
}

func (u *Unit) Rentals() domainrentals.Repository {
	return rentalRepo{col: u.db.Collection(colRentals)}
}

func (u *Unit) Reviews() domainreviews.Repository {
	return reviewRepo{col: u.db.Collection(colReviews)}
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if err := u.session.CommitTransaction(ctx); err != nil {
		return translateTxnError(err)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

const transientTxnLabel = "TransientTransactionError"

// translateTxnError reports write conflicts between transactions as concurrent updates.
func translateTxnError(err error) error {
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) && labeled.HasErrorLabel(transientTxnLabel) {
		return uow.ErrConcurrentUpdate
	}
	return err
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)
