package listings

import (
	"time"

	"deskrent/internal/domain/profiles"
)

type ListingCreatedEvent struct {
	ListingID ListingID   `json:"listing_id"`
	ProfileID profiles.ID `json:"profile_id"`
	At        time.Time   `json:"at"`
}

func (e ListingCreatedEvent) EventName() string     { return "listing.created" }
func (e ListingCreatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingCreatedEvent) OccurredAt() time.Time { return e.At }

type ListingUpdatedEvent struct {
	ListingID ListingID `json:"listing_id"`
	At        time.Time `json:"at"`
}

func (e ListingUpdatedEvent) EventName() string     { return "listing.updated" }
func (e ListingUpdatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingUpdatedEvent) OccurredAt() time.Time { return e.At }

type ListingDeletedEvent struct {
	ListingID ListingID `json:"listing_id"`
	At        time.Time `json:"at"`
}

func (e ListingDeletedEvent) EventName() string     { return "listing.deleted" }
func (e ListingDeletedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingDeletedEvent) OccurredAt() time.Time { return e.At }

type RatingAppliedEvent struct {
	ListingID    ListingID `json:"listing_id"`
	Value        int       `json:"value"`
	TotalReviews int       `json:"total_reviews"`
	Rating       float64   `json:"rating"`
	At           time.Time `json:"at"`
}

func (e RatingAppliedEvent) EventName() string     { return "listing.rating_applied" }
func (e RatingAppliedEvent) AggregateID() string   { return string(e.ListingID) }
func (e RatingAppliedEvent) OccurredAt() time.Time { return e.At }
