package rentals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskrent/internal/domain/listings"
)

var testNow = time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

func testListing() *listings.Listing {
	return &listings.Listing{ID: "l-1", ProfileID: "p-1", OwnerUserID: "owner-1"}
}

func newPending(t *testing.T) *Request {
	t.Helper()
	r, err := NewRequest(CreateParams{ID: "r-1", Listing: testListing(), RenterID: "renter-1", CreatedAt: testNow})
	require.NoError(t, err)
	return r
}

func TestNewRequestStartsPending(t *testing.T) {
	r := newPending(t)
	assert.Equal(t, StatusPending, r.Status)
	assert.False(t, r.IsReview)
	require.Len(t, r.PendingEvents(), 1)
	assert.Equal(t, "rental.created", r.PendingEvents()[0].EventName())
}

func TestNewRequestRejectsSelfDealing(t *testing.T) {
	_, err := NewRequest(CreateParams{ID: "r-1", Listing: testListing(), RenterID: "owner-1", CreatedAt: testNow})
	assert.ErrorIs(t, err, ErrSelfDealing)
}

func TestParseStatus(t *testing.T) {
	_, err := ParseStatus("  ")
	assert.ErrorIs(t, err, ErrMissingStatus)
	_, err = ParseStatus("cancelled")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	s, err := ParseStatus("Approved")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, s)
}

func TestApprovedIsLocked(t *testing.T) {
	r := newPending(t)
	require.NoError(t, r.ChangeStatus(StatusApproved, testNow))

	assert.ErrorIs(t, r.ChangeStatus(StatusApproved, testNow), ErrAlreadyApproved)
	assert.ErrorIs(t, r.ChangeStatus(StatusRejected, testNow), ErrAlreadyApproved)
	assert.ErrorIs(t, r.UpdateMessage("late", testNow), ErrAlreadyApproved)
	assert.Equal(t, StatusApproved, r.Status)
}

func TestRejectedCanBeReopened(t *testing.T) {
	r := newPending(t)
	require.NoError(t, r.ChangeStatus(StatusRejected, testNow))
	require.NoError(t, r.ChangeStatus(StatusPending, testNow))
	require.NoError(t, r.ChangeStatus(StatusApproved, testNow))
	assert.Equal(t, StatusApproved, r.Status)
}

func TestChangeStatusRequiresValue(t *testing.T) {
	r := newPending(t)
	assert.ErrorIs(t, r.ChangeStatus("", testNow), ErrMissingStatus)
	assert.ErrorIs(t, r.ChangeStatus("archived", testNow), ErrInvalidStatus)
}

func TestReviewGate(t *testing.T) {
	r := newPending(t)
	assert.ErrorIs(t, r.EligibleForReview(), ErrNotApproved)
	assert.ErrorIs(t, r.MarkReviewed(testNow), ErrNotApproved)
	assert.False(t, r.IsReview)

	require.NoError(t, r.ChangeStatus(StatusApproved, testNow))
	require.NoError(t, r.MarkReviewed(testNow))
	assert.True(t, r.IsReview)

	assert.ErrorIs(t, r.MarkReviewed(testNow), ErrAlreadyReviewed)
	assert.True(t, r.IsReview)
}
