// Package guard holds the ownership and role checks shared by the use cases.
// A failed check never mutates state.
package guard

import (
	"context"
	"errors"
	"strings"

	"deskrent/internal/app/commands"
	domainlistings "deskrent/internal/domain/listings"
	domainprofiles "deskrent/internal/domain/profiles"
	domainrentals "deskrent/internal/domain/rentals"
	domainuser "deskrent/internal/domain/user"
)

var (
	ErrUnauthenticated = errors.New("guard: authentication required")
	ErrForbidden       = errors.New("guard: permission denied")
	ErrNotARenter      = errors.New("guard: only renter accounts can do this")
	ErrNotAnOwner      = errors.New("guard: only owner accounts can do this")
)

func RequireRenter(u *domainuser.User) error {
	if u == nil {
		return ErrUnauthenticated
	}
	if !u.IsRenter() {
		return ErrNotARenter
	}
	return nil
}

func RequireOwner(u *domainuser.User) error {
	if u == nil {
		return ErrUnauthenticated
	}
	if !u.IsOwner() {
		return ErrNotAnOwner
	}
	return nil
}

// RequireListingOwner checks actor against Listing.owner.user.
func RequireListingOwner(listing *domainlistings.Listing, actor domainuser.ID) error {
	if listing == nil || actor == "" || listing.OwnerUserID != actor {
		return ErrForbidden
	}
	return nil
}

// RequireProfileOwner checks actor against Profile.user.
func RequireProfileOwner(profile *domainprofiles.Profile, actor domainuser.ID) error {
	if profile == nil || actor == "" || profile.UserID != actor {
		return ErrForbidden
	}
	return nil
}

// RequireRequestRenter checks actor against Request.rental_user.
func RequireRequestRenter(request *domainrentals.Request, actor domainuser.ID) error {
	if request == nil || actor == "" || request.RenterID != actor {
		return ErrForbidden
	}
	return nil
}

// ActorAuthorizer rejects commands issued on behalf of a user when no user is attached.
type ActorAuthorizer struct{}

func (ActorAuthorizer) Authorize(_ context.Context, message any) error {
	cmd, ok := message.(commands.ActorCommand)
	if !ok {
		return nil
	}
	if strings.TrimSpace(cmd.Actor()) == "" {
		return ErrUnauthenticated
	}
	return nil
}
