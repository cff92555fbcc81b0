package reviews

import (
	"time"

	"deskrent/internal/domain/listings"
	"deskrent/internal/domain/profiles"
	"deskrent/internal/domain/rentals"
)

type ReviewSubmitted struct {
	ReviewID  ReviewID           `json:"review_id"`
	RequestID rentals.RequestID  `json:"request_id"`
	ListingID listings.ListingID `json:"listing_id"`
	ProfileID profiles.ID        `json:"profile_id"`
	Rating    int                `json:"rating"`
	At        time.Time          `json:"at"`
}

func (e ReviewSubmitted) EventName() string     { return "review.submitted" }
func (e ReviewSubmitted) AggregateID() string   { return string(e.ReviewID) }
func (e ReviewSubmitted) OccurredAt() time.Time { return e.At }
