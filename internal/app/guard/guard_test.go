package guard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	domainlistings "deskrent/internal/domain/listings"
	domainprofiles "deskrent/internal/domain/profiles"
	domainrentals "deskrent/internal/domain/rentals"
	domainuser "deskrent/internal/domain/user"
)

type actorCmd struct{ actor string }

func (actorCmd) Key() string     { return "test.actor" }
func (c actorCmd) Actor() string { return c.actor }

type anonymousCmd struct{}

func (anonymousCmd) Key() string { return "test.anonymous" }

func TestRoleChecks(t *testing.T) {
	renter := &domainuser.User{ID: "u-1", AccountType: domainuser.AccountRenter}
	owner := &domainuser.User{ID: "u-2", AccountType: domainuser.AccountOwner}

	assert.NoError(t, RequireRenter(renter))
	assert.ErrorIs(t, RequireRenter(owner), ErrNotARenter)
	assert.ErrorIs(t, RequireRenter(nil), ErrUnauthenticated)

	assert.NoError(t, RequireOwner(owner))
	assert.ErrorIs(t, RequireOwner(renter), ErrNotAnOwner)
}

func TestOwnershipChecks(t *testing.T) {
	listing := &domainlistings.Listing{ID: "l-1", OwnerUserID: "owner"}
	assert.NoError(t, RequireListingOwner(listing, "owner"))
	assert.ErrorIs(t, RequireListingOwner(listing, "other"), ErrForbidden)
	assert.ErrorIs(t, RequireListingOwner(listing, ""), ErrForbidden)
	assert.ErrorIs(t, RequireListingOwner(nil, "owner"), ErrForbidden)

	profile := &domainprofiles.Profile{ID: "p-1", UserID: "owner"}
	assert.NoError(t, RequireProfileOwner(profile, "owner"))
	assert.ErrorIs(t, RequireProfileOwner(profile, "renter"), ErrForbidden)

	request := &domainrentals.Request{ID: "r-1", RenterID: "renter"}
	assert.NoError(t, RequireRequestRenter(request, "renter"))
	assert.ErrorIs(t, RequireRequestRenter(request, "owner"), ErrForbidden)
}

func TestActorAuthorizer(t *testing.T) {
	a := ActorAuthorizer{}
	ctx := context.Background()
	assert.NoError(t, a.Authorize(ctx, actorCmd{actor: "u-1"}))
	assert.ErrorIs(t, a.Authorize(ctx, actorCmd{actor: " "}), ErrUnauthenticated)
	assert.NoError(t, a.Authorize(ctx, anonymousCmd{}))
}
