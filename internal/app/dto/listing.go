package dto

import (
	"time"

	domainlistings "deskrent/internal/domain/listings"
)

type ListingImage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Listing struct {
	ID           string         `json:"id"`
	ProfileID    string         `json:"profile_id"`
	OwnerUserID  string         `json:"owner_user_id"`
	Title        string         `json:"title"`
	SpaceType    string         `json:"space_type"`
	Size         string         `json:"size"`
	Availability string         `json:"availability"`
	RentalRate   float64        `json:"rental_rate"`
	Location     string         `json:"location"`
	Description  string         `json:"description"`
	Images       []ListingImage `json:"images"`
	Rating       Rating         `json:"rating"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type ListingCollection struct {
	Items []Listing `json:"items"`
	Total int       `json:"total"`
}

// ListingDetail is a listing together with its most recent reviews.
type ListingDetail struct {
	Listing
	Reviews []Review `json:"reviews"`
}

func MapListing(l *domainlistings.Listing) Listing {
	if l == nil {
		return Listing{}
	}
	images := make([]ListingImage, 0, len(l.Images))
	for _, img := range l.Images {
		images = append(images, ListingImage{ID: string(img.ID), URL: img.URL})
	}
	return Listing{
		ID:           string(l.ID),
		ProfileID:    string(l.ProfileID),
		OwnerUserID:  string(l.OwnerUserID),
		Title:        l.Title,
		SpaceType:    l.SpaceType,
		Size:         l.Size,
		Availability: l.Availability,
		RentalRate:   CentsToAmount(l.RateCents),
		Location:     l.Location,
		Description:  l.Description,
		Images:       images,
		Rating:       MapRating(l.Rating),
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func CentsToAmount(cents int64) float64 {
	return float64(cents) / 100
}
