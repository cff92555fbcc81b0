package dto

import (
	"time"

	domainreviews "deskrent/internal/domain/reviews"
)

// Review represents a public review payload.
type Review struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	ListingID  string    `json:"listing_id"`
	ProfileID  string    `json:"profile_id"`
	ReviewerID string    `json:"reviewer_id"`
	Rating     int       `json:"rating"`
	Feedback   string    `json:"feedback"`
	CreatedAt  time.Time `json:"created_at"`
}

type ReviewCollection struct {
	Items []Review `json:"items"`
	Total int      `json:"total"`
}

func MapReview(review *domainreviews.Review) Review {
	if review == nil {
		return Review{}
	}
	return Review{
		ID:         string(review.ID),
		RequestID:  string(review.RequestID),
		ListingID:  string(review.ListingID),
		ProfileID:  string(review.ProfileID),
		ReviewerID: string(review.ReviewerID),
		Rating:     review.Rating,
		Feedback:   review.Feedback,
		CreatedAt:  review.CreatedAt,
	}
}

func MapReviews(items []*domainreviews.Review) []Review {
	out := make([]Review, 0, len(items))
	for _, r := range items {
		out = append(out, MapReview(r))
	}
	return out
}
