package dto

import (
	"time"

	domainrentals "deskrent/internal/domain/rentals"
)

type RentalRequest struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listing_id"`
	RenterID  string    `json:"renter_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	IsReview  bool      `json:"is_review"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RentalRequestCollection struct {
	Items []RentalRequest `json:"items"`
}

func MapRentalRequest(r *domainrentals.Request) RentalRequest {
	if r == nil {
		return RentalRequest{}
	}
	return RentalRequest{
		ID:        string(r.ID),
		ListingID: string(r.ListingID),
		RenterID:  string(r.RenterID),
		Status:    string(r.Status),
		Message:   r.Message,
		IsReview:  r.IsReview,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func MapRentalRequests(items []*domainrentals.Request) RentalRequestCollection {
	out := make([]RentalRequest, 0, len(items))
	for _, r := range items {
		out = append(out, MapRentalRequest(r))
	}
	return RentalRequestCollection{Items: out}
}
