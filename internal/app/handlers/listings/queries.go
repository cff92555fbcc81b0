package listings

import (
	"context"
	"log/slog"

	"deskrent/internal/app/dto"
	"deskrent/internal/app/queries"
	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainprofiles "deskrent/internal/domain/profiles"
)

const (
	getListingKey     = "listings.get"
	searchListingsKey = "listings.search"
	detailReviewLimit = 20
)

type GetListingQuery struct {
	ListingID string
}

func (q GetListingQuery) Key() string { return getListingKey }

// GetListingHandler returns a listing with its most recent reviews.
type GetListingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (res dto.ListingDetail, err error) {
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.ListingDetail{}, err
	}
	defer func() { err = finish(err) }()

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.ListingDetail{}, err
	}
	reviews, err := unit.Reviews().ListByListing(ctx, listing.ID, detailReviewLimit, 0)
	if err != nil {
		return dto.ListingDetail{}, err
	}
	return dto.ListingDetail{Listing: dto.MapListing(listing), Reviews: dto.MapReviews(reviews)}, nil
}

type SearchListingsQuery struct {
	ProfileID string
	Location  string
	SpaceType string
	Limit     int
	Offset    int
}

func (q SearchListingsQuery) Key() string { return searchListingsKey }

type SearchListingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *SearchListingsHandler) Handle(ctx context.Context, q SearchListingsQuery) (res dto.ListingCollection, err error) {
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.ListingCollection{}, err
	}
	defer func() { err = finish(err) }()

	params := domainlistings.SearchParams{
		ProfileID: domainprofiles.ID(q.ProfileID),
		Location:  q.Location,
		SpaceType: q.SpaceType,
		Limit:     q.Limit,
		Offset:    q.Offset,
	}.Normalized()
	result, err := unit.Listings().Search(ctx, params)
	if err != nil {
		return dto.ListingCollection{}, err
	}
	items := make([]dto.Listing, 0, len(result.Items))
	for _, l := range result.Items {
		items = append(items, dto.MapListing(l))
	}
	if h.Logger != nil {
		h.Logger.Debug("listings searched", "location", params.Location, "space_type", params.SpaceType, "count", len(items), "total", result.Total)
	}
	return dto.ListingCollection{Items: items, Total: result.Total}, nil
}

var _ queries.Handler[GetListingQuery, dto.ListingDetail] = (*GetListingHandler)(nil)
var _ queries.Handler[SearchListingsQuery, dto.ListingCollection] = (*SearchListingsHandler)(nil)
