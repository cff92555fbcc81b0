package rentals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskrent/internal/app/guard"
	"deskrent/internal/app/handlers/handlertest"
	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainrentals "deskrent/internal/domain/rentals"
	domainuser "deskrent/internal/domain/user"
)

func TestCreateRentalRequestStartsPending(t *testing.T) {
	fx := handlertest.New()
	owner, profile := fx.Owner(t, "owner")
	listing := fx.Listing(t, "listing-1", owner, profile)
	fx.Renter(t, "renter")
	h := &CreateRentalRequestHandler{UoWFactory: fx.Store, Outbox: fx.Outbox, Encoder: fx.Encoder, Now: fx.Clock}

	res, err := h.Handle(context.Background(), CreateRentalRequestCommand{ListingID: string(listing.ID), RenterID: "renter", Message: " next week "})
	require.NoError(t, err)
	assert.Equal(t, string(domainrentals.StatusPending), res.Status)
	assert.Equal(t, "next week", res.Message)
	assert.False(t, res.IsReview)
	assert.Equal(t, []string{"rental.created"}, fx.EventNames())
}

func TestCreateRentalRequestGuards(t *testing.T) {
	fx := handlertest.New()
	owner, profile := fx.Owner(t, "owner")
	listing := fx.Listing(t, "listing-1", owner, profile)
	fx.Renter(t, "renter")
	h := &CreateRentalRequestHandler{UoWFactory: fx.Store, Outbox: fx.Outbox, Encoder: fx.Encoder, Now: fx.Clock}

	_, err := h.Handle(context.Background(), CreateRentalRequestCommand{ListingID: string(listing.ID), RenterID: "owner"})
	assert.ErrorIs(t, err, guard.ErrNotARenter)

	_, err = h.Handle(context.Background(), CreateRentalRequestCommand{ListingID: "missing", RenterID: "renter"})
	assert.ErrorIs(t, err, domainlistings.ErrNotFound)

	_, err = h.Handle(context.Background(), CreateRentalRequestCommand{ListingID: string(listing.ID), RenterID: "ghost"})
	assert.ErrorIs(t, err, domainuser.ErrNotFound)

	// an owner who switched back to renting still cannot request their own listing
	fx.Tx(t, func(ctx context.Context, unit uow.UnitOfWork) {
		usr, err := unit.Users().ByID(ctx, owner.ID)
		require.NoError(t, err)
		require.NoError(t, usr.SwitchAccountType(domainuser.AccountRenter, true, handlertest.Now))
		require.NoError(t, unit.Users().Save(ctx, usr))
	})
	_, err = h.Handle(context.Background(), CreateRentalRequestCommand{ListingID: string(listing.ID), RenterID: "owner"})
	assert.ErrorIs(t, err, domainrentals.ErrSelfDealing)
	assert.Empty(t, fx.EventNames())
}

func TestUpdateRentalRequestStatusTransitions(t *testing.T) {
	fx := handlertest.New()
	owner, profile := fx.Owner(t, "owner")
	listing := fx.Listing(t, "listing-1", owner, profile)
	renter := fx.Renter(t, "renter")
	fx.Request(t, "req-1", listing, renter, domainrentals.StatusPending)
	h := &UpdateRentalRequestStatusHandler{UoWFactory: fx.Store, Outbox: fx.Outbox, Encoder: fx.Encoder, Now: fx.Clock}
	ctx := context.Background()

	res, err := h.Handle(ctx, UpdateRentalRequestStatusCommand{RequestID: "req-1", ActorID: "owner", Status: "rejected"})
	require.NoError(t, err)
	assert.Equal(t, "rejected", res.Status)

	msg := "see you monday"
	res, err = h.Handle(ctx, UpdateRentalRequestStatusCommand{RequestID: "req-1", ActorID: "owner", Status: "approved", Message: &msg})
	require.NoError(t, err)
	assert.Equal(t, "approved", res.Status)
	assert.Equal(t, msg, res.Message)

	for _, status := range []string{"pending", "rejected", "approved"} {
		_, err = h.Handle(ctx, UpdateRentalRequestStatusCommand{RequestID: "req-1", ActorID: "owner", Status: status})
		assert.ErrorIs(t, err, domainrentals.ErrAlreadyApproved, status)
	}
	assert.Equal(t, []string{"rental.status_changed", "rental.status_changed"}, fx.EventNames())
}

func TestUpdateRentalRequestStatusRejectsBadInput(t *testing.T) {
	fx := handlertest.New()
	owner, profile := fx.Owner(t, "owner")
	listing := fx.Listing(t, "listing-1", owner, profile)
	renter := fx.Renter(t, "renter")
	fx.Request(t, "req-1", listing, renter, domainrentals.StatusPending)
	h := &UpdateRentalRequestStatusHandler{UoWFactory: fx.Store, Outbox: fx.Outbox, Encoder: fx.Encoder, Now: fx.Clock}
	ctx := context.Background()

	_, err := h.Handle(ctx, UpdateRentalRequestStatusCommand{RequestID: "req-1", ActorID: "owner"})
	assert.ErrorIs(t, err, domainrentals.ErrMissingStatus)
	_, err = h.Handle(ctx, UpdateRentalRequestStatusCommand{RequestID: "req-1", ActorID: "owner", Status: "cancelled"})
	assert.ErrorIs(t, err, domainrentals.ErrInvalidStatus)
	_, err = h.Handle(ctx, UpdateRentalRequestStatusCommand{RequestID: "req-1", ActorID: "renter", Status: "approved"})
	assert.ErrorIs(t, err, guard.ErrForbidden)
	_, err = h.Handle(ctx, UpdateRentalRequestStatusCommand{RequestID: "nope", ActorID: "owner", Status: "approved"})
	assert.ErrorIs(t, err, domainrentals.ErrNotFound)

	fx.Read(t, func(ctx context.Context, unit uow.UnitOfWork) {
		req, err := unit.Rentals().ByID(ctx, "req-1")
		require.NoError(t, err)
		assert.Equal(t, domainrentals.StatusPending, req.Status)
	})
}

func TestListRentalRequests(t *testing.T) {
	fx := handlertest.New()
	owner, profile := fx.Owner(t, "owner")
	listing := fx.Listing(t, "listing-1", owner, profile)
	renter := fx.Renter(t, "renter")
	other := fx.Renter(t, "other")
	fx.Request(t, "req-1", listing, renter, domainrentals.StatusApproved)
	fx.Request(t, "req-2", listing, renter, domainrentals.StatusPending)
	fx.Request(t, "req-3", listing, other, domainrentals.StatusPending)
	ctx := context.Background()

	mine, err := (&ListMyRentalRequestsHandler{UoWFactory: fx.Store}).Handle(ctx, ListMyRentalRequestsQuery{RenterID: "renter"})
	require.NoError(t, err)
	assert.Len(t, mine.Items, 2)

	byListing := &ListListingRentalRequestsHandler{UoWFactory: fx.Store}
	all, err := byListing.Handle(ctx, ListListingRentalRequestsQuery{ListingID: string(listing.ID), ActorID: "owner"})
	require.NoError(t, err)
	assert.Len(t, all.Items, 3)

	pending, err := byListing.Handle(ctx, ListListingRentalRequestsQuery{ListingID: string(listing.ID), ActorID: "owner", Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, pending.Items, 2)

	_, err = byListing.Handle(ctx, ListListingRentalRequestsQuery{ListingID: string(listing.ID), ActorID: "renter"})
	assert.ErrorIs(t, err, guard.ErrForbidden)
}
