package memory

import (
	"context"
	"sort"

	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainprofiles "deskrent/internal/domain/profiles"
	domainrentals "deskrent/internal/domain/rentals"
	domainreviews "deskrent/internal/domain/reviews"
	"deskrent/internal/domain/shared/events"
	domainuser "deskrent/internal/domain/user"
)

type userRepo struct{ u *Unit }

func (r userRepo) ByID(_ context.Context, id domainuser.ID) (*domainuser.User, error) {
	defer r.u.rlock()()
	usr, ok := r.u.users.get(id)
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return usr, nil
}

func (r userRepo) ByEmail(_ context.Context, email string) (*domainuser.User, error) {
	defer r.u.rlock()()
	normalized := domainuser.NormalizeEmail(email)
	var found *domainuser.User
	r.u.users.scan(func(_ domainuser.ID, usr *domainuser.User) {
		if found == nil && usr.NormalizedEmail == normalized {
			found = usr
		}
	})
	if found == nil {
		return nil, domainuser.ErrNotFound
	}
	return cloneUser(found), nil
}

func (r userRepo) Save(_ context.Context, usr *domainuser.User) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	defer r.u.rlock()()
	taken := false
	r.u.users.scan(func(id domainuser.ID, other *domainuser.User) {
		if id != usr.ID && other.NormalizedEmail == usr.NormalizedEmail {
			taken = true
		}
	})
	if taken {
		return domainuser.ErrEmailAlreadyUsed
	}
	var stored int64
	current, ok := r.u.users.peek(usr.ID)
	if ok {
		stored = current.Version
	}
	if err := checkVersion(ok, stored, usr.Version); err != nil {
		return err
	}
	usr.Version++
	r.u.users.put(usr.ID, usr)
	return nil
}

type profileRepo struct{ u *Unit }

func (r profileRepo) ByID(_ context.Context, id domainprofiles.ID) (*domainprofiles.Profile, error) {
	defer r.u.rlock()()
	profile, ok := r.u.profiles.get(id)
	if !ok {
		return nil, domainprofiles.ErrNotFound
	}
	return profile, nil
}

// ByIDForUpdate needs no row lock: read-write units already run one at a time.
func (r profileRepo) ByIDForUpdate(ctx context.Context, id domainprofiles.ID) (*domainprofiles.Profile, error) {
	return r.ByID(ctx, id)
}

func (r profileRepo) ByUser(_ context.Context, userID domainuser.ID) (*domainprofiles.Profile, error) {
	defer r.u.rlock()()
	var found *domainprofiles.Profile
	r.u.profiles.scan(func(_ domainprofiles.ID, p *domainprofiles.Profile) {
		if found == nil && p.UserID == userID {
			found = p
		}
	})
	if found == nil {
		return nil, domainprofiles.ErrNotFound
	}
	return cloneProfile(found), nil
}

func (r profileRepo) Save(_ context.Context, profile *domainprofiles.Profile) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	defer r.u.rlock()()
	duplicate := false
	r.u.profiles.scan(func(id domainprofiles.ID, other *domainprofiles.Profile) {
		if id != profile.ID && other.UserID == profile.UserID {
			duplicate = true
		}
	})
	if duplicate {
		return domainprofiles.ErrAlreadyExists
	}
	var stored int64
	current, ok := r.u.profiles.peek(profile.ID)
	if ok {
		stored = current.Version
	}
	if err := checkVersion(ok, stored, profile.Version); err != nil {
		return err
	}
	profile.Version++
	r.u.profiles.put(profile.ID, profile)
	return nil
}

type listingRepo struct{ u *Unit }

func (r listingRepo) ByID(_ context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	defer r.u.rlock()()
	listing, ok := r.u.listings.get(id)
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	return listing, nil
}

func (r listingRepo) ByIDForUpdate(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	return r.ByID(ctx, id)
}

func (r listingRepo) Save(_ context.Context, listing *domainlistings.Listing) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	defer r.u.rlock()()
	var stored int64
	current, ok := r.u.listings.peek(listing.ID)
	if ok {
		stored = current.Version
	}
	if err := checkVersion(ok, stored, listing.Version); err != nil {
		return err
	}
	listing.Version++
	r.u.listings.put(listing.ID, listing)
	return nil
}

// Delete removes the listing together with its rental requests and reviews.
func (r listingRepo) Delete(_ context.Context, id domainlistings.ListingID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	defer r.u.rlock()()
	if _, ok := r.u.listings.peek(id); !ok {
		return domainlistings.ErrNotFound
	}
	r.u.listings.del(id)

	var requestIDs []domainrentals.RequestID
	r.u.rentals.scan(func(rid domainrentals.RequestID, req *domainrentals.Request) {
		if req.ListingID == id {
			requestIDs = append(requestIDs, rid)
		}
	})
	for _, rid := range requestIDs {
		r.u.rentals.del(rid)
	}
	var reviewIDs []domainreviews.ReviewID
	r.u.reviews.scan(func(rid domainreviews.ReviewID, rev *domainreviews.Review) {
		if rev.ListingID == id {
			reviewIDs = append(reviewIDs, rid)
		}
	})
	for _, rid := range reviewIDs {
		r.u.reviews.del(rid)
	}
	return nil
}

func (r listingRepo) ListByProfile(_ context.Context, profileID domainprofiles.ID) ([]*domainlistings.Listing, error) {
	defer r.u.rlock()()
	var out []*domainlistings.Listing
	r.u.listings.scan(func(_ domainlistings.ListingID, l *domainlistings.Listing) {
		if l.ProfileID == profileID {
			out = append(out, cloneListing(l))
		}
	})
	sortListings(out)
	return out, nil
}

func (r listingRepo) Search(_ context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	params = params.Normalized()
	defer r.u.rlock()()
	var matched []*domainlistings.Listing
	r.u.listings.scan(func(_ domainlistings.ListingID, l *domainlistings.Listing) {
		if params.Matches(l) {
			matched = append(matched, l)
		}
	})
	sortListings(matched)
	result := domainlistings.SearchResult{Total: len(matched)}
	for _, l := range window(matched, params.Limit, params.Offset) {
		result.Items = append(result.Items, cloneListing(l))
	}
	return result, nil
}

type rentalRepo struct{ u *Unit }

func (r rentalRepo) ByID(_ context.Context, id domainrentals.RequestID) (*domainrentals.Request, error) {
	defer r.u.rlock()()
	req, ok := r.u.rentals.get(id)
	if !ok {
		return nil, domainrentals.ErrNotFound
	}
	return req, nil
}

func (r rentalRepo) ByIDForUpdate(ctx context.Context, id domainrentals.RequestID) (*domainrentals.Request, error) {
	return r.ByID(ctx, id)
}

func (r rentalRepo) Save(_ context.Context, req *domainrentals.Request) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	defer r.u.rlock()()
	var stored int64
	current, ok := r.u.rentals.peek(req.ID)
	if ok {
		stored = current.Version
	}
	if err := checkVersion(ok, stored, req.Version); err != nil {
		return err
	}
	req.Version++
	r.u.rentals.put(req.ID, req)
	return nil
}

func (r rentalRepo) ListByRenter(_ context.Context, renterID domainuser.ID) ([]*domainrentals.Request, error) {
	return r.list(func(req *domainrentals.Request) bool { return req.RenterID == renterID }), nil
}

func (r rentalRepo) ListByListing(_ context.Context, listingID domainlistings.ListingID) ([]*domainrentals.Request, error) {
	return r.list(func(req *domainrentals.Request) bool { return req.ListingID == listingID }), nil
}

func (r rentalRepo) list(match func(*domainrentals.Request) bool) []*domainrentals.Request {
	defer r.u.rlock()()
	var out []*domainrentals.Request
	r.u.rentals.scan(func(_ domainrentals.RequestID, req *domainrentals.Request) {
		if match(req) {
			out = append(out, cloneRequest(req))
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

type reviewRepo struct{ u *Unit }

func (r reviewRepo) ByRequest(_ context.Context, requestID domainrentals.RequestID) (*domainreviews.Review, error) {
	defer r.u.rlock()()
	var found *domainreviews.Review
	r.u.reviews.scan(func(_ domainreviews.ReviewID, rev *domainreviews.Review) {
		if found == nil && rev.RequestID == requestID {
			found = rev
		}
	})
	if found == nil {
		return nil, domainreviews.ErrNotFound
	}
	return cloneReview(found), nil
}

func (r reviewRepo) Save(_ context.Context, review *domainreviews.Review) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	defer r.u.rlock()()
	duplicate := false
	r.u.reviews.scan(func(id domainreviews.ReviewID, other *domainreviews.Review) {
		if id == review.ID || other.RequestID == review.RequestID {
			duplicate = true
		}
	})
	if duplicate {
		return domainreviews.ErrDuplicate
	}
	r.u.reviews.put(review.ID, review)
	return nil
}

func (r reviewRepo) ListByListing(_ context.Context, listingID domainlistings.ListingID, limit, offset int) ([]*domainreviews.Review, error) {
	return r.list(func(rev *domainreviews.Review) bool { return rev.ListingID == listingID }, limit, offset), nil
}

func (r reviewRepo) ListByProfile(_ context.Context, profileID domainprofiles.ID, limit, offset int) ([]*domainreviews.Review, error) {
	return r.list(func(rev *domainreviews.Review) bool { return rev.ProfileID == profileID }, limit, offset), nil
}

func (r reviewRepo) list(match func(*domainreviews.Review) bool, limit, offset int) []*domainreviews.Review {
	defer r.u.rlock()()
	var matched []*domainreviews.Review
	r.u.reviews.scan(func(_ domainreviews.ReviewID, rev *domainreviews.Review) {
		if match(rev) {
			matched = append(matched, rev)
		}
	})
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	var out []*domainreviews.Review
	for _, rev := range window(matched, limit, offset) {
		out = append(out, cloneReview(rev))
	}
	return out
}

func checkVersion(exists bool, stored, incoming int64) error {
	if !exists {
		if incoming != 0 {
			return uow.ErrConcurrentUpdate
		}
		return nil
	}
	if stored != incoming {
		return uow.ErrConcurrentUpdate
	}
	return nil
}

func window[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func sortListings(items []*domainlistings.Listing) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

func cloneUser(u *domainuser.User) *domainuser.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func cloneProfile(p *domainprofiles.Profile) *domainprofiles.Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneListing(l *domainlistings.Listing) *domainlistings.Listing {
	if l == nil {
		return nil
	}
	c := *l
	c.Images = append([]domainlistings.Image(nil), l.Images...)
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneRequest(r *domainrentals.Request) *domainrentals.Request {
	if r == nil {
		return nil
	}
	c := *r
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneReview(r *domainreviews.Review) *domainreviews.Review {
	if r == nil {
		return nil
	}
	c := *r
	c.EventRecorder = events.EventRecorder{}
	return &c
}
