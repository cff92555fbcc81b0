package rentals

import (
	"context"
	"log/slog"
	"time"

	"deskrent/internal/app/commands"
	"deskrent/internal/app/dto"
	"deskrent/internal/app/guard"
	"deskrent/internal/app/handlers/support"
	"deskrent/internal/app/outbox"
	"deskrent/internal/app/uow"
	domainrentals "deskrent/internal/domain/rentals"
	domainuser "deskrent/internal/domain/user"
)

const updateRentalRequestStatusKey = "rentals.status.update"

type UpdateRentalRequestStatusCommand struct {
	RequestID string
	ActorID   string
	Status    string
	// Message, when set, replaces the request note in the same write.
	Message *string
}

func (c UpdateRentalRequestStatusCommand) Key() string   { return updateRentalRequestStatusKey }
func (c UpdateRentalRequestStatusCommand) Actor() string { return c.ActorID }

func (c UpdateRentalRequestStatusCommand) Validate() error {
	_, err := domainrentals.ParseStatus(c.Status)
	return err
}

// UpdateRentalRequestStatusHandler lets the listing owner approve, reject or reopen a request.
type UpdateRentalRequestStatusHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *UpdateRentalRequestStatusHandler) Handle(ctx context.Context, cmd UpdateRentalRequestStatusCommand) (res dto.RentalRequest, err error) {
	status, err := domainrentals.ParseStatus(cmd.Status)
	if err != nil {
		return dto.RentalRequest{}, err
	}

	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.RentalRequest{}, err
	}
	defer func() { err = finish(err) }()

	request, err := unit.Rentals().ByIDForUpdate(ctx, domainrentals.RequestID(cmd.RequestID))
	if err != nil {
		return dto.RentalRequest{}, err
	}
	listing, err := unit.Listings().ByID(ctx, request.ListingID)
	if err != nil {
		return dto.RentalRequest{}, err
	}
	if err := guard.RequireListingOwner(listing, domainuser.ID(cmd.ActorID)); err != nil {
		return dto.RentalRequest{}, err
	}

	now := support.Clock(h.Now)
	if cmd.Message != nil {
		if err := request.UpdateMessage(*cmd.Message, now); err != nil {
			return dto.RentalRequest{}, err
		}
	}
	if err := request.ChangeStatus(status, now); err != nil {
		return dto.RentalRequest{}, err
	}
	if err := unit.Rentals().Save(ctx, request); err != nil {
		return dto.RentalRequest{}, err
	}
	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, request); err != nil {
		return dto.RentalRequest{}, err
	}

	if h.Logger != nil {
		h.Logger.Info("rental request status changed", "request_id", request.ID, "listing_id", listing.ID, "status", request.Status)
	}
	return dto.MapRentalRequest(request), nil
}

var _ commands.Handler[UpdateRentalRequestStatusCommand, dto.RentalRequest] = (*UpdateRentalRequestStatusHandler)(nil)
