package rentals

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"deskrent/internal/app/commands"
	"deskrent/internal/app/dto"
	"deskrent/internal/app/guard"
	"deskrent/internal/app/handlers/support"
	"deskrent/internal/app/middleware"
	"deskrent/internal/app/outbox"
	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainrentals "deskrent/internal/domain/rentals"
	domainuser "deskrent/internal/domain/user"
)

const createRentalRequestKey = "rentals.create"

type CreateRentalRequestCommand struct {
	ListingID string
	RenterID  string
	Message   string
	// RequestKey is the client Idempotency-Key, optional.
	RequestKey string
}

func (c CreateRentalRequestCommand) Key() string            { return createRentalRequestKey }
func (c CreateRentalRequestCommand) Actor() string          { return c.RenterID }
func (c CreateRentalRequestCommand) IdempotencyKey() string { return c.RequestKey }
func (c CreateRentalRequestCommand) ResultPrototype() any   { return &dto.RentalRequest{} }

func (c CreateRentalRequestCommand) Validate() error {
	if strings.TrimSpace(c.ListingID) == "" {
		return domainlistings.ErrNotFound
	}
	return nil
}

// CreateRentalRequestHandler opens a pending request from a renter against a listing.
type CreateRentalRequestHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *CreateRentalRequestHandler) Handle(ctx context.Context, cmd CreateRentalRequestCommand) (res dto.RentalRequest, err error) {
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.RentalRequest{}, err
	}
	defer func() { err = finish(err) }()

	renter, err := unit.Users().ByID(ctx, domainuser.ID(cmd.RenterID))
	if err != nil {
		return dto.RentalRequest{}, err
	}
	if err := guard.RequireRenter(renter); err != nil {
		return dto.RentalRequest{}, err
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return dto.RentalRequest{}, err
	}

	request, err := domainrentals.NewRequest(domainrentals.CreateParams{
		ID:        domainrentals.RequestID(uuid.NewString()),
		Listing:   listing,
		RenterID:  renter.ID,
		Message:   cmd.Message,
		CreatedAt: support.Clock(h.Now),
	})
	if err != nil {
		return dto.RentalRequest{}, err
	}
	if err := unit.Rentals().Save(ctx, request); err != nil {
		return dto.RentalRequest{}, err
	}
	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, request); err != nil {
		return dto.RentalRequest{}, err
	}

	if h.Logger != nil {
		h.Logger.Info("rental request created", "request_id", request.ID, "listing_id", listing.ID, "renter_id", renter.ID)
	}
	return dto.MapRentalRequest(request), nil
}

var _ commands.Handler[CreateRentalRequestCommand, dto.RentalRequest] = (*CreateRentalRequestHandler)(nil)
var _ middleware.IdempotentCommand = CreateRentalRequestCommand{}
