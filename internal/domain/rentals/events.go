package rentals

import (
	"time"

	"deskrent/internal/domain/listings"
	"deskrent/internal/domain/user"
)

type RequestCreated struct {
	RequestID RequestID          `json:"request_id"`
	ListingID listings.ListingID `json:"listing_id"`
	RenterID  user.ID            `json:"renter_id"`
	At        time.Time          `json:"at"`
}

func (e RequestCreated) EventName() string     { return "rental.created" }
func (e RequestCreated) AggregateID() string   { return string(e.RequestID) }
func (e RequestCreated) OccurredAt() time.Time { return e.At }

type StatusChanged struct {
	RequestID RequestID          `json:"request_id"`
	ListingID listings.ListingID `json:"listing_id"`
	From      Status             `json:"from"`
	To        Status             `json:"to"`
	At        time.Time          `json:"at"`
}

func (e StatusChanged) EventName() string     { return "rental.status_changed" }
func (e StatusChanged) AggregateID() string   { return string(e.RequestID) }
func (e StatusChanged) OccurredAt() time.Time { return e.At }

type RequestReviewed struct {
	RequestID RequestID          `json:"request_id"`
	ListingID listings.ListingID `json:"listing_id"`
	At        time.Time          `json:"at"`
}

func (e RequestReviewed) EventName() string     { return "rental.reviewed" }
func (e RequestReviewed) AggregateID() string   { return string(e.RequestID) }
func (e RequestReviewed) OccurredAt() time.Time { return e.At }
