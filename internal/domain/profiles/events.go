package profiles

import (
	"time"

	"deskrent/internal/domain/user"
)

type ProfileCreated struct {
	ProfileID ID        `json:"profile_id"`
	UserID    user.ID   `json:"user_id"`
	At        time.Time `json:"at"`
}

func (e ProfileCreated) EventName() string     { return "profile.created" }
func (e ProfileCreated) AggregateID() string   { return string(e.ProfileID) }
func (e ProfileCreated) OccurredAt() time.Time { return e.At }

type ProfileUpdated struct {
	ProfileID ID        `json:"profile_id"`
	At        time.Time `json:"at"`
}

func (e ProfileUpdated) EventName() string     { return "profile.updated" }
func (e ProfileUpdated) AggregateID() string   { return string(e.ProfileID) }
func (e ProfileUpdated) OccurredAt() time.Time { return e.At }

type RatingApplied struct {
	ProfileID    ID        `json:"profile_id"`
	Value        int       `json:"value"`
	TotalReviews int       `json:"total_reviews"`
	Rating       float64   `json:"rating"`
	At           time.Time `json:"at"`
}

func (e RatingApplied) EventName() string     { return "profile.rating_applied" }
func (e RatingApplied) AggregateID() string   { return string(e.ProfileID) }
func (e RatingApplied) OccurredAt() time.Time { return e.At }
