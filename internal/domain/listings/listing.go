package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"deskrent/internal/domain/profiles"
	"deskrent/internal/domain/rating"
	"deskrent/internal/domain/shared/events"
	"deskrent/internal/domain/user"
)

var (
	ErrNotFound            = errors.New("listings: not found")
	ErrTitleRequired       = errors.New("listings: title is required")
	ErrSpaceTypeRequired   = errors.New("listings: space type is required")
	ErrLocationRequired    = errors.New("listings: location is required")
	ErrDescriptionRequired = errors.New("listings: description is required")
	ErrRentalRate          = errors.New("listings: rental rate must be non-negative")
	ErrImageNotFound       = errors.New("listings: image not found")
	ErrOwnerRequired       = errors.New("listings: owner profile is required")
)

type ListingID string
type ImageID string

type Image struct {
	ID        ImageID
	URL       string
	ObjectKey string
	CreatedAt time.Time
}

// Listing is a rentable space published by a business profile.
type Listing struct {
	ID          ListingID
	ProfileID   profiles.ID
	OwnerUserID user.ID
	Title       string
	SpaceType   string
	Size        string
	// Availability is free text such as "weekdays 9-18".
	Availability string
	RateCents    int64
	Location     string
	Description  string
	Images       []Image
	Rating       rating.Aggregate
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64
	events.EventRecorder
}

type ListingRepository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	// ByIDForUpdate loads the listing and holds it against concurrent writers until the unit ends.
	ByIDForUpdate(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id ListingID) error
	ListByProfile(ctx context.Context, profileID profiles.ID) ([]*Listing, error)
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
}

type Attributes struct {
	Title        string
	SpaceType    string
	Size         string
	Availability string
	RateCents    int64
	Location     string
	Description  string
}

func (a Attributes) normalized() Attributes {
	return Attributes{
		Title:        strings.TrimSpace(a.Title),
		SpaceType:    strings.TrimSpace(a.SpaceType),
		Size:         strings.TrimSpace(a.Size),
		Availability: strings.TrimSpace(a.Availability),
		RateCents:    a.RateCents,
		Location:     strings.TrimSpace(a.Location),
		Description:  strings.TrimSpace(a.Description),
	}
}

func (a Attributes) validate() error {
	if a.Title == "" {
		return ErrTitleRequired
	}
	if a.SpaceType == "" {
		return ErrSpaceTypeRequired
	}
	if a.Location == "" {
		return ErrLocationRequired
	}
	if a.Description == "" {
		return ErrDescriptionRequired
	}
	if a.RateCents < 0 {
		return ErrRentalRate
	}
	return nil
}

type CreateListingParams struct {
	ID          ListingID
	ProfileID   profiles.ID
	OwnerUserID user.ID
	Attributes  Attributes
	Now         time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("listings: id is required")
	}
	if strings.TrimSpace(string(params.ProfileID)) == "" || strings.TrimSpace(string(params.OwnerUserID)) == "" {
		return nil, ErrOwnerRequired
	}
	attrs := params.Attributes.normalized()
	if err := attrs.validate(); err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	listing := &Listing{
		ID:          params.ID,
		ProfileID:   params.ProfileID,
		OwnerUserID: params.OwnerUserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	listing.setAttributes(attrs)
	listing.Record(ListingCreatedEvent{ListingID: listing.ID, ProfileID: listing.ProfileID, At: now})
	return listing, nil
}

// UpdateParams carries a partial update; nil fields are left untouched.
type UpdateParams struct {
	Title        *string
	SpaceType    *string
	Size         *string
	Availability *string
	RateCents    *int64
	Location     *string
	Description  *string
}

func (l *Listing) Update(params UpdateParams, now time.Time) error {
	next := l.attributes()
	if params.Title != nil {
		next.Title = *params.Title
	}
	if params.SpaceType != nil {
		next.SpaceType = *params.SpaceType
	}
	if params.Size != nil {
		next.Size = *params.Size
	}
	if params.Availability != nil {
		next.Availability = *params.Availability
	}
	if params.RateCents != nil {
		next.RateCents = *params.RateCents
	}
	if params.Location != nil {
		next.Location = *params.Location
	}
	if params.Description != nil {
		next.Description = *params.Description
	}
	next = next.normalized()
	if err := next.validate(); err != nil {
		return err
	}
	l.setAttributes(next)
	l.UpdatedAt = now.UTC()
	l.Record(ListingUpdatedEvent{ListingID: l.ID, At: l.UpdatedAt})
	return nil
}

func (l *Listing) AddImage(img Image, now time.Time) {
	if img.CreatedAt.IsZero() {
		img.CreatedAt = now.UTC()
	}
	l.Images = append(l.Images, img)
	l.UpdatedAt = now.UTC()
}

// RemoveImage detaches the image and returns it so the caller can drop the stored object.
func (l *Listing) RemoveImage(id ImageID, now time.Time) (Image, error) {
	for i, img := range l.Images {
		if img.ID != id {
			continue
		}
		l.Images = append(l.Images[:i:i], l.Images[i+1:]...)
		l.UpdatedAt = now.UTC()
		return img, nil
	}
	return Image{}, ErrImageNotFound
}

// ApplyReview folds a review value into the listing aggregate.
func (l *Listing) ApplyReview(value int, now time.Time) {
	l.Rating.Apply(value)
	l.UpdatedAt = now.UTC()
	l.Record(RatingAppliedEvent{
		ListingID:    l.ID,
		Value:        value,
		TotalReviews: l.Rating.TotalReviews,
		Rating:       l.Rating.Rating,
		At:           l.UpdatedAt,
	})
}

// MarkDeleted records the removal; the repository performs the delete.
func (l *Listing) MarkDeleted(now time.Time) {
	l.Record(ListingDeletedEvent{ListingID: l.ID, At: now.UTC()})
}

func (l *Listing) attributes() Attributes {
	return Attributes{
		Title:        l.Title,
		SpaceType:    l.SpaceType,
		Size:         l.Size,
		Availability: l.Availability,
		RateCents:    l.RateCents,
		Location:     l.Location,
		Description:  l.Description,
	}
}

func (l *Listing) setAttributes(a Attributes) {
	l.Title = a.Title
	l.SpaceType = a.SpaceType
	l.Size = a.Size
	l.Availability = a.Availability
	l.RateCents = a.RateCents
	l.Location = a.Location
	l.Description = a.Description
}
