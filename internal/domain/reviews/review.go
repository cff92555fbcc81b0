package reviews

import (
	"context"
	"errors"
	"strings"
	"time"

	"deskrent/internal/domain/listings"
	"deskrent/internal/domain/profiles"
	"deskrent/internal/domain/rating"
	"deskrent/internal/domain/rentals"
	"deskrent/internal/domain/shared/events"
	"deskrent/internal/domain/user"
)

var (
	ErrInvalidRating    = errors.New("reviews: rating must be between 1 and 5")
	ErrFeedbackRequired = errors.New("reviews: feedback is required")
	ErrNotFound         = errors.New("reviews: not found")
	ErrDuplicate        = errors.New("reviews: request already has a review")
)

type ReviewID string

// Review is append-only: there is no update or delete path.
type Review struct {
	ID         ReviewID
	RequestID  rentals.RequestID
	ReviewerID user.ID
	ProfileID  profiles.ID
	ListingID  listings.ListingID
	Rating     int
	Feedback   string
	CreatedAt  time.Time
	events.EventRecorder
}

type Repository interface {
	ByRequest(ctx context.Context, requestID rentals.RequestID) (*Review, error)
	// Save inserts the review and fails with ErrDuplicate when the request already has one.
	Save(ctx context.Context, review *Review) error
	ListByListing(ctx context.Context, listingID listings.ListingID, limit, offset int) ([]*Review, error)
	ListByProfile(ctx context.Context, profileID profiles.ID, limit, offset int) ([]*Review, error)
}

type SubmitParams struct {
	ID         ReviewID
	RequestID  rentals.RequestID
	ReviewerID user.ID
	ProfileID  profiles.ID
	ListingID  listings.ListingID
	Rating     int
	Feedback   string
	CreatedAt  time.Time
}

func Submit(params SubmitParams) (*Review, error) {
	if err := rating.Validate(params.Rating); err != nil {
		return nil, ErrInvalidRating
	}
	feedback := strings.TrimSpace(params.Feedback)
	if feedback == "" {
		return nil, ErrFeedbackRequired
	}
	review := &Review{
		ID:         params.ID,
		RequestID:  params.RequestID,
		ReviewerID: params.ReviewerID,
		ProfileID:  params.ProfileID,
		ListingID:  params.ListingID,
		Rating:     params.Rating,
		Feedback:   feedback,
		CreatedAt:  params.CreatedAt.UTC(),
	}
	review.Record(ReviewSubmitted{
		ReviewID:  review.ID,
		RequestID: review.RequestID,
		ListingID: review.ListingID,
		ProfileID: review.ProfileID,
		Rating:    review.Rating,
		At:        review.CreatedAt,
	})
	return review, nil
}
