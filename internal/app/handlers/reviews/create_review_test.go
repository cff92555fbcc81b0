package reviews

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskrent/internal/app/guard"
	"deskrent/internal/app/handlers/handlertest"
	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainprofiles "deskrent/internal/domain/profiles"
	domainrentals "deskrent/internal/domain/rentals"
	domainreviews "deskrent/internal/domain/reviews"
	domainuser "deskrent/internal/domain/user"
)

type reviewSetup struct {
	fx      *handlertest.Fixture
	handler *CreateReviewHandler
	owner   *domainuser.User
	profile *domainprofiles.Profile
	listing *domainlistings.Listing
	renter  *domainuser.User
}

func newReviewSetup(t *testing.T) reviewSetup {
	t.Helper()
	fx := handlertest.New()
	owner, profile := fx.Owner(t, "owner")
	listing := fx.Listing(t, "listing-1", owner, profile)
	renter := fx.Renter(t, "renter")
	return reviewSetup{
		fx:      fx,
		handler: &CreateReviewHandler{UoWFactory: fx.Store, Outbox: fx.Outbox, Encoder: fx.Encoder, Now: fx.Clock},
		owner:   owner,
		profile: profile,
		listing: listing,
		renter:  renter,
	}
}

func (s reviewSetup) state(t *testing.T, requestID string) (*domainrentals.Request, *domainlistings.Listing, *domainprofiles.Profile) {
	t.Helper()
	var (
		req     *domainrentals.Request
		listing *domainlistings.Listing
		profile *domainprofiles.Profile
	)
	s.fx.Read(t, func(ctx context.Context, unit uow.UnitOfWork) {
		var err error
		req, err = unit.Rentals().ByID(ctx, domainrentals.RequestID(requestID))
		require.NoError(t, err)
		listing, err = unit.Listings().ByID(ctx, s.listing.ID)
		require.NoError(t, err)
		profile, err = unit.Profiles().ByID(ctx, s.profile.ID)
		require.NoError(t, err)
	})
	return req, listing, profile
}

func TestCreateReviewUpdatesEverythingTogether(t *testing.T) {
	s := newReviewSetup(t)
	s.fx.Request(t, "req-1", s.listing, s.renter, domainrentals.StatusApproved)

	res, err := s.handler.Handle(context.Background(), CreateReviewCommand{RequestID: "req-1", RenterID: "renter", Rating: 4, Feedback: " great desk "})
	require.NoError(t, err)
	assert.Equal(t, "great desk", res.Feedback)
	assert.Equal(t, string(s.listing.ID), res.ListingID)
	assert.Equal(t, string(s.profile.ID), res.ProfileID)

	req, listing, profile := s.state(t, "req-1")
	assert.True(t, req.IsReview)
	assert.Equal(t, 1, listing.Rating.TotalReviews)
	assert.Equal(t, 4.0, listing.Rating.Rating)
	assert.Equal(t, 1, profile.Rating.TotalReviews)
	assert.Equal(t, 4.0, profile.Rating.Rating)

	assert.Equal(t, []string{"review.submitted", "rental.reviewed", "profile.rating_applied", "listing.rating_applied"}, s.fx.EventNames())
}

func TestCreateReviewFollowsRatingRecurrence(t *testing.T) {
	s := newReviewSetup(t)
	for i, value := range []int{4, 2, 5} {
		id := []string{"req-a", "req-b", "req-c"}[i]
		s.fx.Request(t, id, s.listing, s.renter, domainrentals.StatusApproved)
		_, err := s.handler.Handle(context.Background(), CreateReviewCommand{RequestID: id, RenterID: "renter", Rating: value, Feedback: "ok"})
		require.NoError(t, err)
	}

	_, listing, profile := s.state(t, "req-c")
	assert.Equal(t, 3, listing.Rating.TotalReviews)
	assert.InDelta(t, 8.0/3.0, listing.Rating.TotalRatings, 1e-9)
	assert.Equal(t, 2.67, listing.Rating.Rating)
	assert.Equal(t, listing.Rating, profile.Rating)
}

func TestCreateReviewRejectsIneligibleRequests(t *testing.T) {
	s := newReviewSetup(t)
	s.fx.Request(t, "pending", s.listing, s.renter, domainrentals.StatusPending)
	s.fx.Request(t, "rejected", s.listing, s.renter, domainrentals.StatusRejected)
	s.fx.Request(t, "approved", s.listing, s.renter, domainrentals.StatusApproved)
	other := s.fx.Renter(t, "other")

	cases := []struct {
		name string
		cmd  CreateReviewCommand
		want error
	}{
		{"pending", CreateReviewCommand{RequestID: "pending", RenterID: "renter", Rating: 5, Feedback: "x"}, domainrentals.ErrNotApproved},
		{"rejected", CreateReviewCommand{RequestID: "rejected", RenterID: "renter", Rating: 5, Feedback: "x"}, domainrentals.ErrNotApproved},
		{"someone else", CreateReviewCommand{RequestID: "approved", RenterID: string(other.ID), Rating: 5, Feedback: "x"}, guard.ErrForbidden},
		{"listing owner", CreateReviewCommand{RequestID: "approved", RenterID: string(s.owner.ID), Rating: 5, Feedback: "x"}, guard.ErrForbidden},
		{"rating too high", CreateReviewCommand{RequestID: "approved", RenterID: "renter", Rating: 6, Feedback: "x"}, domainreviews.ErrInvalidRating},
		{"rating zero", CreateReviewCommand{RequestID: "approved", RenterID: "renter", Rating: 0, Feedback: "x"}, domainreviews.ErrInvalidRating},
		{"empty feedback", CreateReviewCommand{RequestID: "approved", RenterID: "renter", Rating: 3, Feedback: "  "}, domainreviews.ErrFeedbackRequired},
		{"unknown request", CreateReviewCommand{RequestID: "missing", RenterID: "renter", Rating: 3, Feedback: "x"}, domainrentals.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.handler.Handle(context.Background(), tc.cmd)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	req, listing, profile := s.state(t, "approved")
	assert.False(t, req.IsReview)
	assert.Zero(t, listing.Rating.TotalReviews)
	assert.Zero(t, profile.Rating.TotalReviews)
	assert.Empty(t, s.fx.EventNames())
}

func TestCreateReviewOnlyOncePerRequest(t *testing.T) {
	s := newReviewSetup(t)
	s.fx.Request(t, "req-1", s.listing, s.renter, domainrentals.StatusApproved)
	cmd := CreateReviewCommand{RequestID: "req-1", RenterID: "renter", Rating: 5, Feedback: "fine"}

	_, err := s.handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	_, err = s.handler.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, domainrentals.ErrAlreadyReviewed)

	_, listing, _ := s.state(t, "req-1")
	assert.Equal(t, 1, listing.Rating.TotalReviews)
}

func TestConcurrentReviewsOnSameRequest(t *testing.T) {
	s := newReviewSetup(t)
	s.fx.Request(t, "req-1", s.listing, s.renter, domainrentals.StatusApproved)

	const attempts = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(value int) {
			defer wg.Done()
			_, err := s.handler.Handle(context.Background(), CreateReviewCommand{RequestID: "req-1", RenterID: "renter", Rating: value, Feedback: "race"})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}(i%5 + 1)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, domainrentals.ErrAlreadyReviewed), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	req, listing, profile := s.state(t, "req-1")
	assert.True(t, req.IsReview)
	assert.Equal(t, 1, listing.Rating.TotalReviews)
	assert.Equal(t, 1, profile.Rating.TotalReviews)
}

// failingSaves wraps a factory so profile or listing saves fail inside the unit.
type failingSaves struct {
	uow.UoWFactory
	profileErr error
	listingErr error
}

func (f failingSaves) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	unit, err := f.UoWFactory.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	return failingUnit{UnitOfWork: unit, saves: f}, nil
}

type failingUnit struct {
	uow.UnitOfWork
	saves failingSaves
}

func (u failingUnit) Profiles() domainprofiles.Repository {
	return failingProfiles{Repository: u.UnitOfWork.Profiles(), err: u.saves.profileErr}
}

func (u failingUnit) Listings() domainlistings.ListingRepository {
	return failingListings{ListingRepository: u.UnitOfWork.Listings(), err: u.saves.listingErr}
}

type failingProfiles struct {
	domainprofiles.Repository
	err error
}

func (r failingProfiles) Save(ctx context.Context, p *domainprofiles.Profile) error {
	if r.err != nil {
		return r.err
	}
	return r.Repository.Save(ctx, p)
}

type failingListings struct {
	domainlistings.ListingRepository
	err error
}

func (r failingListings) Save(ctx context.Context, l *domainlistings.Listing) error {
	if r.err != nil {
		return r.err
	}
	return r.ListingRepository.Save(ctx, l)
}

func TestCreateReviewRollsBackOnPartialFailure(t *testing.T) {
	errDisk := errors.New("disk full")
	cases := []struct {
		name    string
		factory func(base uow.UoWFactory) uow.UoWFactory
	}{
		{"profile save fails", func(base uow.UoWFactory) uow.UoWFactory {
			return failingSaves{UoWFactory: base, profileErr: errDisk}
		}},
		{"listing save fails", func(base uow.UoWFactory) uow.UoWFactory {
			return failingSaves{UoWFactory: base, listingErr: errDisk}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newReviewSetup(t)
			s.fx.Request(t, "req-1", s.listing, s.renter, domainrentals.StatusApproved)
			broken := &CreateReviewHandler{UoWFactory: tc.factory(s.fx.Store), Outbox: s.fx.Outbox, Encoder: s.fx.Encoder, Now: s.fx.Clock}
			cmd := CreateReviewCommand{RequestID: "req-1", RenterID: "renter", Rating: 4, Feedback: "good"}

			_, err := broken.Handle(context.Background(), cmd)
			require.ErrorIs(t, err, errDisk)

			req, listing, profile := s.state(t, "req-1")
			assert.False(t, req.IsReview)
			assert.Zero(t, listing.Rating.TotalReviews)
			assert.Zero(t, listing.Rating.TotalRatings)
			assert.Zero(t, profile.Rating.TotalReviews)
			assert.Zero(t, profile.Rating.TotalRatings)
			s.fx.Read(t, func(ctx context.Context, unit uow.UnitOfWork) {
				_, err := unit.Reviews().ByRequest(ctx, "req-1")
				assert.ErrorIs(t, err, domainreviews.ErrNotFound)
			})
			assert.Empty(t, s.fx.EventNames())

			_, err = s.handler.Handle(context.Background(), cmd)
			require.NoError(t, err)
			req, listing, profile = s.state(t, "req-1")
			assert.True(t, req.IsReview)
			assert.Equal(t, 1, listing.Rating.TotalReviews)
			assert.Equal(t, 1, profile.Rating.TotalReviews)
		})
	}
}
