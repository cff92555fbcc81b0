package reviews

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
	"deskrent/internal/app/middleware"
	"deskrent/internal/app/outbox"
	"deskrent/internal/app/uow"
	domainrating "deskrent/internal/domain/rating"
	domainrentals "deskrent/internal/domain/rentals"
	domainreviews "deskrent/internal/domain/reviews"
	domainuser "deskrent/internal/domain/user"
)

const createReviewKey = "reviews.create"

// CreateReviewCommand turns an approved, unreviewed rental request into a review.
type CreateReviewCommand struct {
	RequestID  string
	RenterID   string
	Rating     int
	Feedback   string
	RequestKey string
}

func (c CreateReviewCommand) Key() string            { return createReviewKey }
func (c CreateReviewCommand) Actor() string          { return c.RenterID }
func (c CreateReviewCommand) IdempotencyKey() string { return c.RequestKey }
func (c CreateReviewCommand) ResultPrototype() any   { return &dto.Review{} }

func (c CreateReviewCommand) Validate() error {
	if err := domainrating.Validate(c.Rating); err != nil {
		return domainreviews.ErrInvalidRating
	}
	return nil
}

// CreateReviewHandler runs the whole review workflow in one unit of work: the review row,
// the is_review flip and both rating aggregates commit together or not at all.
// Rows are locked in the order request, profile, listing.
type CreateReviewHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *CreateReviewHandler) Handle(ctx context.Context, cmd CreateReviewCommand) (res dto.Review, err error) {
	if err := cmd.Validate(); err != nil {
		return dto.Review{}, err
	}
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.Review{}, err
	}
	defer func() { err = finish(err) }()

	request, err := unit.Rentals().ByIDForUpdate(ctx, domainrentals.RequestID(cmd.RequestID))
	if err != nil {
		return dto.Review{}, err
	}
	if err := guard.RequireRequestRenter(request, domainuser.ID(cmd.RenterID)); err != nil {
		return dto.Review{}, err
	}
	if err := request.EligibleForReview(); err != nil {
		return dto.Review{}, err
	}

	listing, err := unit.Listings().ByID(ctx, request.ListingID)
	if err != nil {
		return dto.Review{}, err
	}
	now := support.Clock(h.Now)

	review, err := domainreviews.Submit(domainreviews.SubmitParams{
		ID:         domainreviews.ReviewID(uuid.NewString()),
		RequestID:  request.ID,
		ReviewerID: request.RenterID,
		ProfileID:  listing.ProfileID,
		ListingID:  listing.ID,
		Rating:     cmd.Rating,
		Feedback:   cmd.Feedback,
		CreatedAt:  now,
	})
	if err != nil {
		return dto.Review{}, err
	}
	if err := unit.Reviews().Save(ctx, review); err != nil {
		if errors.Is(err, domainreviews.ErrDuplicate) {
			return dto.Review{}, domainrentals.ErrAlreadyReviewed
		}
		return dto.Review{}, err
	}

	if err := request.MarkReviewed(now); err != nil {
		return dto.Review{}, err
	}
	if err := unit.Rentals().Save(ctx, request); err != nil {
		return dto.Review{}, err
	}

	profile, err := unit.Profiles().ByIDForUpdate(ctx, listing.ProfileID)
	if err != nil {
		return dto.Review{}, err
	}
	profile.ApplyReview(review.Rating, now)
	if err := unit.Profiles().Save(ctx, profile); err != nil {
		return dto.Review{}, err
	}

	listing, err = unit.Listings().ByIDForUpdate(ctx, listing.ID)
	if err != nil {
		return dto.Review{}, err
	}
	listing.ApplyReview(review.Rating, now)
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return dto.Review{}, err
	}

	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, review, request, profile, listing); err != nil {
		return dto.Review{}, err
	}

	if h.Logger != nil {
		h.Logger.Info("review submitted",
			"request_id", request.ID,
			"listing_id", listing.ID,
			"profile_id", profile.ID,
			"rating", review.Rating,
			"listing_rating", listing.Rating.Rating,
			"profile_rating", profile.Rating.Rating,
		)
	}
	return dto.MapReview(review), nil
}

var _ commands.Handler[CreateReviewCommand, dto.Review] = (*CreateReviewHandler)(nil)
var _ middleware.IdempotentCommand = CreateReviewCommand{}
