package rentals

import (
	"context"
	"errors"
	"strings"
	"time"

	"deskrent/internal/domain/listings"
	"deskrent/internal/domain/shared/events"
	"deskrent/internal/domain/user"
)

var (
	ErrNotFound        = errors.New("rentals: request not found")
	ErrSelfDealing     = errors.New("rentals: cannot request your own listing")
	ErrAlreadyApproved = errors.New("rentals: request already approved")
	ErrMissingStatus   = errors.New("rentals: status is required")
	ErrInvalidStatus   = errors.New("rentals: invalid status")
	ErrNotApproved     = errors.New("rentals: request has not been approved")
	ErrAlreadyReviewed = errors.New("rentals: request already reviewed")
)

type RequestID string

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a caller-supplied status value.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", ErrMissingStatus
	case string(StatusPending):
		return StatusPending, nil
	case string(StatusApproved):
		return StatusApproved, nil
	case string(StatusRejected):
		return StatusRejected, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Request is a renter's ask to use a listing.
type Request struct {
	ID        RequestID
	ListingID listings.ListingID
	RenterID  user.ID
	Status    Status
	Message   string
	IsReview  bool
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id RequestID) (*Request, error)
	// ByIDForUpdate loads the request and holds it against concurrent writers until the unit ends.
	ByIDForUpdate(ctx context.Context, id RequestID) (*Request, error)
	Save(ctx context.Context, request *Request) error
	ListByRenter(ctx context.Context, renterID user.ID) ([]*Request, error)
	ListByListing(ctx context.Context, listingID listings.ListingID) ([]*Request, error)
}

type CreateParams struct {
	ID        RequestID
	Listing   *listings.Listing
	RenterID  user.ID
	Message   string
	CreatedAt time.Time
}

// NewRequest opens a pending request. Any status the caller may have sent is ignored.
func NewRequest(params CreateParams) (*Request, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("rentals: id is required")
	}
	if params.Listing == nil {
		return nil, listings.ErrNotFound
	}
	if strings.TrimSpace(string(params.RenterID)) == "" {
		return nil, errors.New("rentals: renter is required")
	}
	if params.Listing.OwnerUserID == params.RenterID {
		return nil, ErrSelfDealing
	}
	now := params.CreatedAt.UTC()
	r := &Request{
		ID:        params.ID,
		ListingID: params.Listing.ID,
		RenterID:  params.RenterID,
		Status:    StatusPending,
		Message:   strings.TrimSpace(params.Message),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.Record(RequestCreated{RequestID: r.ID, ListingID: r.ListingID, RenterID: r.RenterID, At: now})
	return r, nil
}

// ChangeStatus moves the request to status. Approved requests are locked; pending and rejected are not.
func (r *Request) ChangeStatus(status Status, now time.Time) error {
	if status == "" {
		return ErrMissingStatus
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}
	if r.Status == StatusApproved {
		return ErrAlreadyApproved
	}
	previous := r.Status
	r.Status = status
	r.UpdatedAt = now.UTC()
	r.Record(StatusChanged{RequestID: r.ID, ListingID: r.ListingID, From: previous, To: status, At: r.UpdatedAt})
	return nil
}

// UpdateMessage changes the free-text note. It follows the same lock as the status.
func (r *Request) UpdateMessage(message string, now time.Time) error {
	if r.Status == StatusApproved {
		return ErrAlreadyApproved
	}
	r.Message = strings.TrimSpace(message)
	r.UpdatedAt = now.UTC()
	return nil
}

// EligibleForReview reports whether a review may be created for the request.
func (r *Request) EligibleForReview() error {
	if r.Status != StatusApproved {
		return ErrNotApproved
	}
	if r.IsReview {
		return ErrAlreadyReviewed
	}
	return nil
}

// MarkReviewed flips IsReview once; it re-checks the eligibility gate.
func (r *Request) MarkReviewed(now time.Time) error {
	if err := r.EligibleForReview(); err != nil {
		return err
	}
	r.IsReview = true
	r.UpdatedAt = now.UTC()
	r.Record(RequestReviewed{RequestID: r.ID, ListingID: r.ListingID, At: r.UpdatedAt})
	return nil
}
