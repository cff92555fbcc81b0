package reviews

import (
	"context"
	"log/slog"

	"deskrent/internal/app/dto"
	"deskrent/internal/app/handlers/support"
	"deskrent/internal/app/queries"
	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainprofiles "deskrent/internal/domain/profiles"
)

const (
	listListingReviewsKey = "reviews.listing.list"
	listProfileReviewsKey = "reviews.profile.list"
)

type ListListingReviewsQuery struct {
	ListingID string
	Limit     int
	Offset    int
}

func (q ListListingReviewsQuery) Key() string { return listListingReviewsKey }

type ListListingReviewsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListListingReviewsHandler) Handle(ctx context.Context, q ListListingReviewsQuery) (res dto.ReviewCollection, err error) {
	limit, offset := support.NormalizePage(q.Limit, q.Offset)
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	defer func() { err = finish(err) }()

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	items, err := unit.Reviews().ListByListing(ctx, listing.ID, limit, offset)
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	if h.Logger != nil {
		h.Logger.Debug("listing reviews listed", "listing_id", listing.ID, "count", len(items))
	}
	return dto.ReviewCollection{Items: dto.MapReviews(items), Total: listing.Rating.TotalReviews}, nil
}

type ListProfileReviewsQuery struct {
	ProfileID string
	Limit     int
	Offset    int
}

func (q ListProfileReviewsQuery) Key() string { return listProfileReviewsKey }

type ListProfileReviewsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListProfileReviewsHandler) Handle(ctx context.Context, q ListProfileReviewsQuery) (res dto.ReviewCollection, err error) {
	limit, offset := support.NormalizePage(q.Limit, q.Offset)
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	defer func() { err = finish(err) }()

	profile, err := unit.Profiles().ByID(ctx, domainprofiles.ID(q.ProfileID))
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	items, err := unit.Reviews().ListByProfile(ctx, profile.ID, limit, offset)
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	return dto.ReviewCollection{Items: dto.MapReviews(items), Total: profile.Rating.TotalReviews}, nil
}

var _ queries.Handler[ListListingReviewsQuery, dto.ReviewCollection] = (*ListListingReviewsHandler)(nil)
var _ queries.Handler[ListProfileReviewsQuery, dto.ReviewCollection] = (*ListProfileReviewsHandler)(nil)
