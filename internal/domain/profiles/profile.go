package profiles

import (
	"context"
	"errors"
	"strings"
	"time"

	"deskrent/internal/domain/rating"
	"deskrent/internal/domain/shared/events"
	"deskrent/internal/domain/user"
)

var (
	ErrNotFound             = errors.New("profiles: not found")
	ErrAlreadyExists        = errors.New("profiles: user already has a business profile")
	ErrBusinessNameTooShort = errors.New("profiles: business name must be at least 3 characters")
	ErrLocationRequired     = errors.New("profiles: location is required")
	ErrWorkspaceRequired    = errors.New("profiles: workspace is required")
	ErrDescriptionRequired  = errors.New("profiles: description is required")
	ErrPhoneRequired        = errors.New("profiles: phone number is required")
)

const minBusinessNameLength = 3

type ID string

// Profile is the public business identity of an owner, one per user.
type Profile struct {
	ID            ID
	UserID        user.ID
	BusinessName  string
	Location      string
	Workspace     string
	LogoURL       string
	LogoKey       string
	Website       string
	Description   string
	BusinessEmail string
	PhoneNumber   string
	Rating        rating.Aggregate
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Profile, error)
	// ByIDForUpdate loads the profile and holds it against concurrent writers until the unit ends.
	ByIDForUpdate(ctx context.Context, id ID) (*Profile, error)
	ByUser(ctx context.Context, userID user.ID) (*Profile, error)
	Save(ctx context.Context, profile *Profile) error
}

type Details struct {
	BusinessName  string
	Location      string
	Workspace     string
	Website       string
	Description   string
	BusinessEmail string
	PhoneNumber   string
}

func (d Details) normalized() Details {
	return Details{
		BusinessName:  strings.TrimSpace(d.BusinessName),
		Location:      strings.TrimSpace(d.Location),
		Workspace:     strings.TrimSpace(d.Workspace),
		Website:       strings.TrimSpace(d.Website),
		Description:   strings.TrimSpace(d.Description),
		BusinessEmail: strings.TrimSpace(d.BusinessEmail),
		PhoneNumber:   strings.TrimSpace(d.PhoneNumber),
	}
}

func (d Details) validate() error {
	if len([]rune(d.BusinessName)) < minBusinessNameLength {
		return ErrBusinessNameTooShort
	}
	if d.Location == "" {
		return ErrLocationRequired
	}
	if d.Workspace == "" {
		return ErrWorkspaceRequired
	}
	if d.Description == "" {
		return ErrDescriptionRequired
	}
	if d.PhoneNumber == "" {
		return ErrPhoneRequired
	}
	return nil
}

type CreateParams struct {
	ID      ID
	UserID  user.ID
	Details Details
	Now     time.Time
}

func NewProfile(params CreateParams) (*Profile, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("profiles: id is required")
	}
	if strings.TrimSpace(string(params.UserID)) == "" {
		return nil, errors.New("profiles: user is required")
	}
	details := params.Details.normalized()
	if err := details.validate(); err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	p := &Profile{
		ID:        params.ID,
		UserID:    params.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.setDetails(details)
	p.Record(ProfileCreated{ProfileID: p.ID, UserID: p.UserID, At: now})
	return p, nil
}

// UpdateParams carries a partial update; nil fields are left untouched.
type UpdateParams struct {
	BusinessName  *string
	Location      *string
	Workspace     *string
	Website       *string
	Description   *string
	BusinessEmail *string
	PhoneNumber   *string
}

func (p *Profile) Update(params UpdateParams, now time.Time) error {
	next := p.details()
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&next.BusinessName, params.BusinessName)
	apply(&next.Location, params.Location)
	apply(&next.Workspace, params.Workspace)
	apply(&next.Website, params.Website)
	apply(&next.Description, params.Description)
	apply(&next.BusinessEmail, params.BusinessEmail)
	apply(&next.PhoneNumber, params.PhoneNumber)
	next = next.normalized()
	if err := next.validate(); err != nil {
		return err
	}
	p.setDetails(next)
	p.UpdatedAt = now.UTC()
	p.Record(ProfileUpdated{ProfileID: p.ID, At: p.UpdatedAt})
	return nil
}

// ReplaceLogo swaps the logo and returns the storage key of the previous one, if any.
func (p *Profile) ReplaceLogo(url, key string, now time.Time) string {
	previous := p.LogoKey
	p.LogoURL = strings.TrimSpace(url)
	p.LogoKey = strings.TrimSpace(key)
	p.UpdatedAt = now.UTC()
	return previous
}

// ApplyReview folds a review value into the profile aggregate.
func (p *Profile) ApplyReview(value int, now time.Time) {
	p.Rating.Apply(value)
	p.UpdatedAt = now.UTC()
	p.Record(RatingApplied{
		ProfileID:    p.ID,
		Value:        value,
		TotalReviews: p.Rating.TotalReviews,
		Rating:       p.Rating.Rating,
		At:           p.UpdatedAt,
	})
}

func (p *Profile) details() Details {
	return Details{
		BusinessName:  p.BusinessName,
		Location:      p.Location,
		Workspace:     p.Workspace,
		Website:       p.Website,
		Description:   p.Description,
		BusinessEmail: p.BusinessEmail,
		PhoneNumber:   p.PhoneNumber,
	}
}

func (p *Profile) setDetails(d Details) {
	p.BusinessName = d.BusinessName
	p.Location = d.Location
	p.Workspace = d.Workspace
	p.Website = d.Website
	p.Description = d.Description
	p.BusinessEmail = d.BusinessEmail
	p.PhoneNumber = d.PhoneNumber
}
