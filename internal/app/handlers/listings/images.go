package listings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"deskrent/internal/app/commands"
	"deskrent/internal/app/dto"
	"deskrent/internal/app/guard"
	"deskrent/internal/app/handlers/support"
	"deskrent/internal/app/policies"
	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainuser "deskrent/internal/domain/user"
)

const (
	uploadListingImageKey = "listings.images.upload"
	removeListingImageKey = "listings.images.remove"
)

var (
	ErrStorageUnavailable = errors.New("listings: image storage unavailable")
	ErrImageRequired      = errors.New("listings: image content is required")
)

type UploadListingImageCommand struct {
	ActorID     string
	ListingID   string
	FileName    string
	ContentType string
	Reader      io.Reader
}

func (c UploadListingImageCommand) Key() string   { return uploadListingImageKey }
func (c UploadListingImageCommand) Actor() string { return c.ActorID }

func (c UploadListingImageCommand) Validate() error {
	if c.Reader == nil {
		return ErrImageRequired
	}
	return nil
}

type UploadListingImageHandler struct {
	UoWFactory uow.UoWFactory
	Storage    policies.ObjectStorage
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *UploadListingImageHandler) Handle(ctx context.Context, cmd UploadListingImageCommand) (res dto.Listing, err error) {
	if h.Storage == nil {
		return dto.Listing{}, ErrStorageUnavailable
	}
	if err := cmd.Validate(); err != nil {
		return dto.Listing{}, err
	}
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

	objectKey := support.ObjectKey("listings/"+string(listing.ID), cmd.FileName)
	publicURL, err := h.Storage.Upload(ctx, objectKey, cmd.Reader, cmd.ContentType)
	if err != nil {
		return dto.Listing{}, fmt.Errorf("upload image: %w", err)
	}
	now := support.Clock(h.Now)
	listing.AddImage(domainlistings.Image{
		ID:        domainlistings.ImageID(uuid.NewString()),
		URL:       publicURL,
		ObjectKey: objectKey,
	}, now)
	if err := unit.Listings().Save(ctx, listing); err != nil {
		removeObject(ctx, h.Storage, h.Logger, objectKey)
		return dto.Listing{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("listing image added", "listing_id", listing.ID, "object_key", objectKey)
	}
	return dto.MapListing(listing), nil
}

type RemoveListingImageCommand struct {
	ActorID   string
	ListingID string
	ImageID   string
}

func (c RemoveListingImageCommand) Key() string   { return removeListingImageKey }
func (c RemoveListingImageCommand) Actor() string { return c.ActorID }

type RemoveListingImageHandler struct {
	UoWFactory uow.UoWFactory
	Storage    policies.ObjectStorage
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *RemoveListingImageHandler) Handle(ctx context.Context, cmd RemoveListingImageCommand) (res dto.Listing, err error) {
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
	removed, err := listing.RemoveImage(domainlistings.ImageID(cmd.ImageID), support.Clock(h.Now))
	if err != nil {
		return dto.Listing{}, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return dto.Listing{}, err
	}
	uow.AfterCommit(ctx, func(ctx context.Context) {
		removeObject(ctx, h.Storage, h.Logger, removed.ObjectKey)
	})
	if h.Logger != nil {
		h.Logger.Info("listing image removed", "listing_id", listing.ID, "image_id", removed.ID)
	}
	return dto.MapListing(listing), nil
}

var _ commands.Handler[UploadListingImageCommand, dto.Listing] = (*UploadListingImageHandler)(nil)
var _ commands.Handler[RemoveListingImageCommand, dto.Listing] = (*RemoveListingImageHandler)(nil)
