package rentals

import (
	"context"
	"log/slog"
	"sort"

	"deskrent/internal/app/dto"
	"deskrent/internal/app/guard"
	"deskrent/internal/app/queries"
	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainrentals "deskrent/internal/domain/rentals"
	domainuser "deskrent/internal/domain/user"
)

const (
	listMyRentalRequestsKey      = "rentals.mine.list"
	listListingRentalRequestsKey = "rentals.listing.list"
)

// ListMyRentalRequestsQuery returns the requests the renter has filed.
type ListMyRentalRequestsQuery struct {
	RenterID string
}

func (q ListMyRentalRequestsQuery) Key() string   { return listMyRentalRequestsKey }
func (q ListMyRentalRequestsQuery) Actor() string { return q.RenterID }

type ListMyRentalRequestsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListMyRentalRequestsHandler) Handle(ctx context.Context, q ListMyRentalRequestsQuery) (res dto.RentalRequestCollection, err error) {
	if q.RenterID == "" {
		return dto.RentalRequestCollection{}, guard.ErrUnauthenticated
	}
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.RentalRequestCollection{}, err
	}
	defer func() { err = finish(err) }()

	items, err := unit.Rentals().ListByRenter(ctx, domainuser.ID(q.RenterID))
	if err != nil {
		return dto.RentalRequestCollection{}, err
	}
	sortNewestFirst(items)
	return dto.MapRentalRequests(items), nil
}

// ListListingRentalRequestsQuery returns the requests filed against a listing; owner only.
type ListListingRentalRequestsQuery struct {
	ListingID string
	ActorID   string
	Status    string
}

func (q ListListingRentalRequestsQuery) Key() string   { return listListingRentalRequestsKey }
func (q ListListingRentalRequestsQuery) Actor() string { return q.ActorID }

type ListListingRentalRequestsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListListingRentalRequestsHandler) Handle(ctx context.Context, q ListListingRentalRequestsQuery) (res dto.RentalRequestCollection, err error) {
	var statusFilter domainrentals.Status
	if q.Status != "" {
		statusFilter, err = domainrentals.ParseStatus(q.Status)
		if err != nil {
			return dto.RentalRequestCollection{}, err
		}
	}
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.RentalRequestCollection{}, err
	}
	defer func() { err = finish(err) }()

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.RentalRequestCollection{}, err
	}
	if err := guard.RequireListingOwner(listing, domainuser.ID(q.ActorID)); err != nil {
		return dto.RentalRequestCollection{}, err
	}
	items, err := unit.Rentals().ListByListing(ctx, listing.ID)
	if err != nil {
		return dto.RentalRequestCollection{}, err
	}
	if statusFilter != "" {
		filtered := items[:0]
		for _, r := range items {
			if r.Status == statusFilter {
				filtered = append(filtered, r)
			}
		}
		items = filtered
	}
	sortNewestFirst(items)

	if h.Logger != nil {
		h.Logger.Debug("listing rental requests listed", "listing_id", listing.ID, "count", len(items))
	}
	return dto.MapRentalRequests(items), nil
}

func sortNewestFirst(items []*domainrentals.Request) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

var _ queries.Handler[ListMyRentalRequestsQuery, dto.RentalRequestCollection] = (*ListMyRentalRequestsHandler)(nil)
var _ queries.Handler[ListListingRentalRequestsQuery, dto.RentalRequestCollection] = (*ListListingRentalRequestsHandler)(nil)
