package dto

import (
	"time"

	domainprofiles "deskrent/internal/domain/profiles"
)

type BusinessProfile struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	BusinessName  string    `json:"business_name"`
	Location      string    `json:"location"`
	Workspace     string    `json:"workspace"`
	LogoURL       string    `json:"business_logo,omitempty"`
	Website       string    `json:"business_website,omitempty"`
	Description   string    `json:"description"`
	BusinessEmail string    `json:"business_email,omitempty"`
	PhoneNumber   string    `json:"phone_number"`
	Rating        Rating    `json:"rating"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func MapProfile(p *domainprofiles.Profile) BusinessProfile {
	if p == nil {
		return BusinessProfile{}
	}
	return BusinessProfile{
		ID:            string(p.ID),
		UserID:        string(p.UserID),
		BusinessName:  p.BusinessName,
		Location:      p.Location,
		Workspace:     p.Workspace,
		LogoURL:       p.LogoURL,
		Website:       p.Website,
		Description:   p.Description,
		BusinessEmail: p.BusinessEmail,
		PhoneNumber:   p.PhoneNumber,
		Rating:        MapRating(p.Rating),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
