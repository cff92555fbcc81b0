// Package ratings exposes read accessors for the rating aggregates.
package ratings

import (
	"context"

	"deskrent/internal/app/dto"
	"deskrent/internal/app/queries"
	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainprofiles "deskrent/internal/domain/profiles"
)

const (
	getListingRatingKey = "ratings.listing.get"
	getProfileRatingKey = "ratings.profile.get"
)

type GetListingRatingQuery struct {
	ListingID string
}

func (q GetListingRatingQuery) Key() string { return getListingRatingKey }

type GetListingRatingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetListingRatingHandler) Handle(ctx context.Context, q GetListingRatingQuery) (res dto.Rating, err error) {
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Rating{}, err
	}
	defer func() { err = finish(err) }()

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Rating{}, err
	}
	return dto.MapRating(listing.Rating), nil
}

type GetProfileRatingQuery struct {
	ProfileID string
}

func (q GetProfileRatingQuery) Key() string { return getProfileRatingKey }

type GetProfileRatingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetProfileRatingHandler) Handle(ctx context.Context, q GetProfileRatingQuery) (res dto.Rating, err error) {
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Rating{}, err
	}
	defer func() { err = finish(err) }()

	profile, err := unit.Profiles().ByID(ctx, domainprofiles.ID(q.ProfileID))
	if err != nil {
		return dto.Rating{}, err
	}
	return dto.MapRating(profile.Rating), nil
}

var _ queries.Handler[GetListingRatingQuery, dto.Rating] = (*GetListingRatingHandler)(nil)
var _ queries.Handler[GetProfileRatingQuery, dto.Rating] = (*GetProfileRatingHandler)(nil)
