package listings

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"deskrent/internal/app/commands"
	"deskrent/internal/app/dto"
	"deskrent/internal/app/guard"
	"deskrent/internal/app/handlers/support"
	"deskrent/internal/app/outbox"
	"deskrent/internal/app/policies"
	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainprofiles "deskrent/internal/domain/profiles"
	domainuser "deskrent/internal/domain/user"
)

const (
	createListingKey = "listings.create"
	updateListingKey = "listings.update"
	deleteListingKey = "listings.delete"
)

var ErrProfileRequired = errors.New("listings: create a business profile before publishing a listing")

type CreateListingCommand struct {
	OwnerID      string
	Title        string
	SpaceType    string
	Size         string
	Availability string
	RateCents    int64
	Location     string
	Description  string
}

func (c CreateListingCommand) Key() string   { return createListingKey }
func (c CreateListingCommand) Actor() string { return c.OwnerID }

// CreateListingHandler publishes a listing under the owner's business profile.
type CreateListingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (res dto.Listing, err error) {
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.Listing{}, err
	}
	defer func() { err = finish(err) }()

	owner, err := unit.Users().ByID(ctx, domainuser.ID(cmd.OwnerID))
	if err != nil {
		return dto.Listing{}, err
	}
	if err := guard.RequireOwner(owner); err != nil {
		return dto.Listing{}, err
	}
	profile, err := unit.Profiles().ByUser(ctx, owner.ID)
	if err != nil {
		if errors.Is(err, domainprofiles.ErrNotFound) {
			return dto.Listing{}, ErrProfileRequired
		}
		return dto.Listing{}, err
	}

	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:          domainlistings.ListingID(uuid.NewString()),
		ProfileID:   profile.ID,
		OwnerUserID: owner.ID,
		Attributes: domainlistings.Attributes{
			Title:        cmd.Title,
			SpaceType:    cmd.SpaceType,
			Size:         cmd.Size,
			Availability: cmd.Availability,
			RateCents:    cmd.RateCents,
			Location:     cmd.Location,
			Description:  cmd.Description,
		},
		Now: support.Clock(h.Now),
	})
	if err != nil {
		return dto.Listing{}, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return dto.Listing{}, err
	}
	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return dto.Listing{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("listing created", "listing_id", listing.ID, "profile_id", profile.ID)
	}
	return dto.MapListing(listing), nil
}

type UpdateListingCommand struct {
	ActorID   string
	ListingID string
	Changes   domainlistings.UpdateParams
}

func (c UpdateListingCommand) Key() string   { return updateListingKey }
func (c UpdateListingCommand) Actor() string { return c.ActorID }

type UpdateListingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *UpdateListingHandler) Handle(ctx context.Context, cmd UpdateListingCommand) (res dto.Listing, err error) {
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.Listing{}, err
	}
	defer func() { err = finish(err) }()

	listing, err := unit.Listings().ByIDForUpdate(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return dto.Listing{}, err
	}
	if err := guard.RequireListingOwner(listing, domainuser.ID(cmd.ActorID)); err != nil {
		return dto.Listing{}, err
	}
	if err := listing.Update(cmd.Changes, support.Clock(h.Now)); err != nil {
		return dto.Listing{}, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return dto.Listing{}, err
	}
	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return dto.Listing{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("listing updated", "listing_id", listing.ID)
	}
	return dto.MapListing(listing), nil
}

type DeleteListingCommand struct {
	ActorID   string
	ListingID string
}

func (c DeleteListingCommand) Key() string   { return deleteListingKey }
func (c DeleteListingCommand) Actor() string { return c.ActorID }

type DeleteListingResult struct {
	ListingID string `json:"listing_id"`
	Deleted   bool   `json:"deleted"`
}

// DeleteListingHandler removes a listing together with its requests and reviews. Stored images
// are dropped once the unit commits.
type DeleteListingHandler struct {
	UoWFactory uow.UoWFactory
	Storage    policies.ObjectStorage
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *DeleteListingHandler) Handle(ctx context.Context, cmd DeleteListingCommand) (res DeleteListingResult, err error) {
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return DeleteListingResult{}, err
	}
	defer func() { err = finish(err) }()

	listing, err := unit.Listings().ByIDForUpdate(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return DeleteListingResult{}, err
	}
	if err := guard.RequireListingOwner(listing, domainuser.ID(cmd.ActorID)); err != nil {
		return DeleteListingResult{}, err
	}
	listing.MarkDeleted(support.Clock(h.Now))
	if err := unit.Listings().Delete(ctx, listing.ID); err != nil {
		return DeleteListingResult{}, err
	}
	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return DeleteListingResult{}, err
	}
	for _, img := range listing.Images {
		key := img.ObjectKey
		uow.AfterCommit(ctx, func(ctx context.Context) {
			removeObject(ctx, h.Storage, h.Logger, key)
		})
	}
	if h.Logger != nil {
		h.Logger.Info("listing deleted", "listing_id", listing.ID, "images", len(listing.Images))
	}
	return DeleteListingResult{ListingID: string(listing.ID), Deleted: true}, nil
}

// removeObject drops a stored image; failures only leave an orphan object behind.
func removeObject(ctx context.Context, storage policies.ObjectStorage, logger *slog.Logger, key string) {
	if storage == nil || key == "" {
		return
	}
	if err := storage.Delete(ctx, key); err != nil && logger != nil {
		logger.Warn("stored object not removed", "key", key, "error", err)
	}
}

var _ commands.Handler[CreateListingCommand, dto.Listing] = (*CreateListingHandler)(nil)
var _ commands.Handler[UpdateListingCommand, dto.Listing] = (*UpdateListingHandler)(nil)
var _ commands.Handler[DeleteListingCommand, DeleteListingResult] = (*DeleteListingHandler)(nil)
