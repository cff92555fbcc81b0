package wiring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskrent/internal/app/commands"
	"deskrent/internal/app/dto"
	"deskrent/internal/app/guard"
	listingapp "deskrent/internal/app/handlers/listings"
	profileapp "deskrent/internal/app/handlers/profiles"
	rentalapp "deskrent/internal/app/handlers/rentals"
	"deskrent/internal/app/queries"
	domainprofiles "deskrent/internal/domain/profiles"
	"deskrent/internal/infra/storage/memory"
)

func newBuses() Buses {
	store := memory.NewStore()
	return Build(Dependencies{
		UoWFactory:  store,
		Outbox:      memory.NewOutbox(store),
		Idempotency: memory.NewIdempotencyStore(time.Hour),
	})
}

func TestBuildRequiresDependencies(t *testing.T) {
	store := memory.NewStore()
	assert.Panics(t, func() { Build(Dependencies{}) })
	assert.Panics(t, func() { Build(Dependencies{UoWFactory: store}) })
	assert.Panics(t, func() { Build(Dependencies{UoWFactory: store, Outbox: memory.NewOutbox(store)}) })
}

func TestAnonymousMessagesAreRejected(t *testing.T) {
	buses := newBuses()
	ctx := context.Background()

	_, err := commands.Dispatch[listingapp.CreateListingCommand, dto.Listing](ctx, buses.Commands, listingapp.CreateListingCommand{Title: "Desk"})
	assert.ErrorIs(t, err, guard.ErrUnauthenticated)

	_, err = queries.Ask[profileapp.GetMyProfileQuery, dto.BusinessProfile](ctx, buses.Queries, profileapp.GetMyProfileQuery{})
	assert.ErrorIs(t, err, guard.ErrUnauthenticated)

	_, err = queries.Ask[rentalapp.ListMyRentalRequestsQuery, dto.RentalRequestCollection](ctx, buses.Queries, rentalapp.ListMyRentalRequestsQuery{})
	assert.ErrorIs(t, err, guard.ErrUnauthenticated)
}

func TestQueriesReachHandlers(t *testing.T) {
	buses := newBuses()

	_, err := queries.Ask[profileapp.GetMyProfileQuery, dto.BusinessProfile](context.Background(), buses.Queries, profileapp.GetMyProfileQuery{UserID: "u-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainprofiles.ErrNotFound)

	mine, err := queries.Ask[rentalapp.ListMyRentalRequestsQuery, dto.RentalRequestCollection](context.Background(), buses.Queries, rentalapp.ListMyRentalRequestsQuery{RenterID: "u-1"})
	require.NoError(t, err)
	assert.Empty(t, mine.Items)
}
