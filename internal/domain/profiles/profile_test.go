package profiles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func validDetails() Details {
	return Details{
		BusinessName: "Cowork Hub",
		Location:     "Paris",
		Workspace:    "Open space",
		Description:  "Desks near the station",
		PhoneNumber:  "+33 1 23 45 67 89",
	}
}

func TestNewProfile(t *testing.T) {
	p, err := NewProfile(CreateParams{ID: "p-1", UserID: "u-1", Details: validDetails(), Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, "Cowork Hub", p.BusinessName)
	assert.Equal(t, 0.0, p.Rating.Average())
	require.Len(t, p.PendingEvents(), 1)
	assert.Equal(t, "profile.created", p.PendingEvents()[0].EventName())
}

func TestNewProfileRejectsShortName(t *testing.T) {
	d := validDetails()
	d.BusinessName = " ab "
	_, err := NewProfile(CreateParams{ID: "p-1", UserID: "u-1", Details: d, Now: testNow})
	assert.ErrorIs(t, err, ErrBusinessNameTooShort)
}

func TestUpdateIsPartial(t *testing.T) {
	p, err := NewProfile(CreateParams{ID: "p-1", UserID: "u-1", Details: validDetails(), Now: testNow})
	require.NoError(t, err)

	location := "Lyon"
	require.NoError(t, p.Update(UpdateParams{Location: &location}, testNow.Add(time.Hour)))
	assert.Equal(t, "Lyon", p.Location)
	assert.Equal(t, "Cowork Hub", p.BusinessName)

	empty := ""
	err = p.Update(UpdateParams{Workspace: &empty}, testNow)
	assert.ErrorIs(t, err, ErrWorkspaceRequired)
	assert.Equal(t, "Open space", p.Workspace)
}

func TestApplyReviewUsesAccumulator(t *testing.T) {
	p, err := NewProfile(CreateParams{ID: "p-1", UserID: "u-1", Details: validDetails(), Now: testNow})
	require.NoError(t, err)
	p.ClearEvents()

	p.ApplyReview(5, testNow)
	p.ApplyReview(3, testNow)

	assert.Equal(t, 2, p.Rating.TotalReviews)
	assert.Equal(t, 4.0, p.Rating.Rating)
	require.Len(t, p.PendingEvents(), 2)
	applied, ok := p.PendingEvents()[1].(RatingApplied)
	require.True(t, ok)
	assert.Equal(t, 2, applied.TotalReviews)
}

func TestReplaceLogoReturnsPreviousKey(t *testing.T) {
	p, err := NewProfile(CreateParams{ID: "p-1", UserID: "u-1", Details: validDetails(), Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, "", p.ReplaceLogo("http://cdn/a.png", "logos/a.png", testNow))
	assert.Equal(t, "logos/a.png", p.ReplaceLogo("http://cdn/b.png", "logos/b.png", testNow))
	assert.Equal(t, "http://cdn/b.png", p.LogoURL)
}
