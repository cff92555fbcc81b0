package mongo

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainprofiles "deskrent/internal/domain/profiles"
	"deskrent/internal/domain/rating"
	domainrentals "deskrent/internal/domain/rentals"
	domainreviews "deskrent/internal/domain/reviews"
	domainuser "deskrent/internal/domain/user"
)

const (
	idxUserEmail     = "users_normalized_email"
	idxProfileUser   = "business_profiles_user_id"
	idxReviewRequest = "reviews_request_id"
)

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}

// saveVersioned inserts a new document (version 0) or replaces the stored one when its
// version still matches. Duplicate keys on a named unique index map through uniques.
func saveVersioned(ctx context.Context, col *mongo.Collection, id string, version int64, doc any, uniques map[string]error) error {
	if version == 0 {
		if _, err := col.InsertOne(ctx, doc); err != nil {
			return translateWriteError(err, uniques)
		}
		return nil
	}
	res, err := col.ReplaceOne(ctx, bson.M{"_id": id, "version": version}, doc)
	if err != nil {
		return translateWriteError(err, uniques)
	}
	if res.MatchedCount == 0 {
		return uow.ErrConcurrentUpdate
	}
	return nil
}

func translateWriteError(err error, uniques map[string]error) error {
	if mongo.IsDuplicateKeyError(err) {
		for index, mapped := range uniques {
			if strings.Contains(err.Error(), index) {
				return mapped
			}
		}
		return uow.ErrConcurrentUpdate
	}
	return translateTxnError(err)
}

// lockDocument writes to the document inside the transaction so a concurrent transaction
// touching it fails with a write conflict instead of working on a stale copy.
func lockDocument(ctx context.Context, col *mongo.Collection, id string) error {
	res, err := col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"locked_at": time.Now().UTC()}})
	if err != nil {
		return translateTxnError(err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func findOne(ctx context.Context, col *mongo.Collection, filter any, out any, notFound error) error {
	if err := col.FindOne(ctx, filter).Decode(out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return notFound
		}
		return translateTxnError(err)
	}
	return nil
}

type ratingDocument struct {
	TotalReviews int     `bson:"total_reviews"`
	TotalRatings float64 `bson:"total_ratings"`
	Rating       float64 `bson:"rating"`
}

func newRatingDocument(a rating.Aggregate) ratingDocument {
	return ratingDocument{TotalReviews: a.TotalReviews, TotalRatings: a.TotalRatings, Rating: a.Rating}
}

func (d ratingDocument) toAggregate() rating.Aggregate {
	return rating.Restore(d.TotalReviews, d.TotalRatings, d.Rating)
}

type userRepo struct{ col *mongo.Collection }

type userDocument struct {
	ID              string    `bson:"_id"`
	Email           string    `bson:"email"`
	NormalizedEmail string    `bson:"normalized_email"`
	FullName        string    `bson:"full_name"`
	Profession      string    `bson:"profession"`
	PhoneNumber     string    `bson:"phone_number"`
	PasswordHash    string    `bson:"password_hash"`
	AccountType     string    `bson:"account_type"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
	Version         int64     `bson:"version"`
}

func (r userRepo) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	var doc userDocument
	if err := findOne(ctx, r.col, bson.M{"_id": string(id)}, &doc, domainuser.ErrNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r userRepo) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	var doc userDocument
	filter := bson.M{"normalized_email": domainuser.NormalizeEmail(email)}
	if err := findOne(ctx, r.col, filter, &doc, domainuser.ErrNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r userRepo) Save(ctx context.Context, u *domainuser.User) error {
	doc := userDocument{
		ID:              string(u.ID),
		Email:           u.Email,
		NormalizedEmail: u.NormalizedEmail,
		FullName:        u.FullName,
		Profession:      u.Profession,
		PhoneNumber:     u.PhoneNumber,
		PasswordHash:    u.PasswordHash,
		AccountType:     string(u.AccountType),
		CreatedAt:       u.CreatedAt.UTC(),
		UpdatedAt:       u.UpdatedAt.UTC(),
		Version:         u.Version + 1,
	}
	err := saveVersioned(ctx, r.col, doc.ID, u.Version, doc, map[string]error{idxUserEmail: domainuser.ErrEmailAlreadyUsed})
	if err != nil {
		return err
	}
	u.Version = doc.Version
	return nil
}

func (d userDocument) toAggregate() *domainuser.User {
	return &domainuser.User{
		ID:              domainuser.ID(d.ID),
		Email:           d.Email,
		NormalizedEmail: d.NormalizedEmail,
		FullName:        d.FullName,
		Profession:      d.Profession,
		PhoneNumber:     d.PhoneNumber,
		PasswordHash:    d.PasswordHash,
		AccountType:     domainuser.AccountType(d.AccountType),
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
		Version:         d.Version,
	}
}

type profileRepo struct{ col *mongo.Collection }

type profileDocument struct {
	ID            string         `bson:"_id"`
	UserID        string         `bson:"user_id"`
	BusinessName  string         `bson:"business_name"`
	Location      string         `bson:"location"`
	Workspace     string         `bson:"workspace"`
	LogoURL       string         `bson:"logo_url"`
	LogoKey       string         `bson:"logo_key"`
	Website       string         `bson:"website"`
	Description   string         `bson:"description"`
	BusinessEmail string         `bson:"business_email"`
	PhoneNumber   string         `bson:"phone_number"`
	Rating        ratingDocument `bson:"rating"`
	CreatedAt     time.Time      `bson:"created_at"`
	UpdatedAt     time.Time      `bson:"updated_at"`
	Version       int64          `bson:"version"`
}

func (r profileRepo) ByID(ctx context.Context, id domainprofiles.ID) (*domainprofiles.Profile, error) {
	var doc profileDocument
	if err := findOne(ctx, r.col, bson.M{"_id": string(id)}, &doc, domainprofiles.ErrNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r profileRepo) ByIDForUpdate(ctx context.Context, id domainprofiles.ID) (*domainprofiles.Profile, error) {
	if err := lockDocument(ctx, r.col, string(id)); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainprofiles.ErrNotFound
		}
		return nil, err
	}
	return r.ByID(ctx, id)
}

func (r profileRepo) ByUser(ctx context.Context, userID domainuser.ID) (*domainprofiles.Profile, error) {
	var doc profileDocument
	if err := findOne(ctx, r.col, bson.M{"user_id": string(userID)}, &doc, domainprofiles.ErrNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r profileRepo) Save(ctx context.Context, p *domainprofiles.Profile) error {
	doc := profileDocument{
		ID:            string(p.ID),
		UserID:        string(p.UserID),
		BusinessName:  p.BusinessName,
		Location:      p.Location,
		Workspace:     p.Workspace,
		LogoURL:       p.LogoURL,
		LogoKey:       p.LogoKey,
		Website:       p.Website,
		Description:   p.Description,
		BusinessEmail: p.BusinessEmail,
		PhoneNumber:   p.PhoneNumber,
		Rating:        newRatingDocument(p.Rating),
		CreatedAt:     p.CreatedAt.UTC(),
		UpdatedAt:     p.UpdatedAt.UTC(),
		Version:       p.Version + 1,
	}
	err := saveVersioned(ctx, r.col, doc.ID, p.Version, doc, map[string]error{idxProfileUser: domainprofiles.ErrAlreadyExists})
	if err != nil {
		return err
	}
	p.Version = doc.Version
	return nil
}

func (d profileDocument) toAggregate() *domainprofiles.Profile {
	return &domainprofiles.Profile{
		ID:            domainprofiles.ID(d.ID),
		UserID:        domainuser.ID(d.UserID),
		BusinessName:  d.BusinessName,
		Location:      d.Location,
		Workspace:     d.Workspace,
		LogoURL:       d.LogoURL,
		LogoKey:       d.LogoKey,
		Website:       d.Website,
		Description:   d.Description,
		BusinessEmail: d.BusinessEmail,
		PhoneNumber:   d.PhoneNumber,
		Rating:        d.Rating.toAggregate(),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
		Version:       d.Version,
	}
}

type listingRepo struct {
	db  *mongo.Database
	col *mongo.Collection
}

type imageDocument struct {
	ID        string    `bson:"id"`
	URL       string    `bson:"url"`
	ObjectKey string    `bson:"object_key"`
	CreatedAt time.Time `bson:"created_at"`
}

type listingDocument struct {
	ID           string          `bson:"_id"`
	ProfileID    string          `bson:"profile_id"`
	OwnerUserID  string          `bson:"owner_user_id"`
	Title        string          `bson:"title"`
	SpaceType    string          `bson:"space_type"`
	Size         string          `bson:"size"`
	Availability string          `bson:"availability"`
	RateCents    int64           `bson:"rate_cents"`
	Location     string          `bson:"location"`
	Description  string          `bson:"description"`
	Images       []imageDocument `bson:"images"`
	Rating       ratingDocument  `bson:"rating"`
	CreatedAt    time.Time       `bson:"created_at"`
	UpdatedAt    time.Time       `bson:"updated_at"`
	Version      int64           `bson:"version"`
}

func (r listingRepo) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := findOne(ctx, r.col, bson.M{"_id": string(id)}, &doc, domainlistings.ErrNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r listingRepo) ByIDForUpdate(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	if err := lockDocument(ctx, r.col, string(id)); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, err
	}
	return r.ByID(ctx, id)
}

func (r listingRepo) Save(ctx context.Context, l *domainlistings.Listing) error {
	doc := newListingDocument(l)
	doc.Version = l.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, l.Version, doc, nil); err != nil {
		return err
	}
	l.Version = doc.Version
	return nil
}

// Delete removes the listing together with its rental requests and reviews.
func (r listingRepo) Delete(ctx context.Context, id domainlistings.ListingID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return translateTxnError(err)
	}
	if res.DeletedCount == 0 {
		return domainlistings.ErrNotFound
	}
	byListing := bson.M{"listing_id": string(id)}
	if _, err := r.db.Collection(colRentals).DeleteMany(ctx, byListing); err != nil {
		return translateTxnError(err)
	}
	if _, err := r.db.Collection(colReviews).DeleteMany(ctx, byListing); err != nil {
		return translateTxnError(err)
	}
	return nil
}

func (r listingRepo) ListByProfile(ctx context.Context, profileID domainprofiles.ID) ([]*domainlistings.Listing, error) {
	cur, err := r.col.Find(ctx, bson.M{"profile_id": string(profileID)}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, err
	}
	return decodeListings(ctx, cur)
}

func (r listingRepo) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	params = params.Normalized()
	filter := searchFilter(params)
	var result domainlistings.SearchResult
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return result, err
	}
	result.Total = int(total)
	if total == 0 {
		return result, nil
	}
	opts := options.Find().SetSort(newestFirst).SetSkip(int64(params.Offset)).SetLimit(int64(params.Limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return result, err
	}
	items, err := decodeListings(ctx, cur)
	if err != nil {
		return result, err
	}
	result.Items = items
	return result, nil
}

// searchFilter expects normalized params and matches location and space type case-insensitively anywhere.
func searchFilter(params domainlistings.SearchParams) bson.M {
	filter := bson.M{}
	if params.ProfileID != "" {
		filter["profile_id"] = string(params.ProfileID)
	}
	if params.Location != "" {
		filter["location"] = bson.M{"$regex": regexp.QuoteMeta(params.Location), "$options": "i"}
	}
	if params.SpaceType != "" {
		filter["space_type"] = bson.M{"$regex": regexp.QuoteMeta(params.SpaceType), "$options": "i"}
	}
	return filter
}

func decodeListings(ctx context.Context, cur *mongo.Cursor) ([]*domainlistings.Listing, error) {
	var docs []listingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainlistings.Listing, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	images := make([]imageDocument, 0, len(l.Images))
	for _, img := range l.Images {
		images = append(images, imageDocument{ID: string(img.ID), URL: img.URL, ObjectKey: img.ObjectKey, CreatedAt: img.CreatedAt.UTC()})
	}
	return listingDocument{
		ID:           string(l.ID),
		ProfileID:    string(l.ProfileID),
		OwnerUserID:  string(l.OwnerUserID),
		Title:        l.Title,
		SpaceType:    l.SpaceType,
		Size:         l.Size,
		Availability: l.Availability,
		RateCents:    l.RateCents,
		Location:     l.Location,
		Description:  l.Description,
		Images:       images,
		Rating:       newRatingDocument(l.Rating),
		CreatedAt:    l.CreatedAt.UTC(),
		UpdatedAt:    l.UpdatedAt.UTC(),
		Version:      l.Version,
	}
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	var images []domainlistings.Image
	for _, img := range d.Images {
		images = append(images, domainlistings.Image{
			ID:        domainlistings.ImageID(img.ID),
			URL:       img.URL,
			ObjectKey: img.ObjectKey,
			CreatedAt: img.CreatedAt.UTC(),
		})
	}
	return &domainlistings.Listing{
		ID:           domainlistings.ListingID(d.ID),
		ProfileID:    domainprofiles.ID(d.ProfileID),
		OwnerUserID:  domainuser.ID(d.OwnerUserID),
		Title:        d.Title,
		SpaceType:    d.SpaceType,
		Size:         d.Size,
		Availability: d.Availability,
		RateCents:    d.RateCents,
		Location:     d.Location,
		Description:  d.Description,
		Images:       images,
		Rating:       d.Rating.toAggregate(),
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
		Version:      d.Version,
	}
}

type rentalRepo struct{ col *mongo.Collection }

type requestDocument struct {
	ID        string    `bson:"_id"`
	ListingID string    `bson:"listing_id"`
	RenterID  string    `bson:"renter_id"`
	Status    string    `bson:"status"`
	Message   string    `bson:"message"`
	IsReview  bool      `bson:"is_review"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
	Version   int64     `bson:"version"`
}

func (r rentalRepo) ByID(ctx context.Context, id domainrentals.RequestID) (*domainrentals.Request, error) {
	var doc requestDocument
	if err := findOne(ctx, r.col, bson.M{"_id": string(id)}, &doc, domainrentals.ErrNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r rentalRepo) ByIDForUpdate(ctx context.Context, id domainrentals.RequestID) (*domainrentals.Request, error) {
	if err := lockDocument(ctx, r.col, string(id)); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainrentals.ErrNotFound
		}
		return nil, err
	}
	return r.ByID(ctx, id)
}

func (r rentalRepo) Save(ctx context.Context, req *domainrentals.Request) error {
	doc := requestDocument{
		ID:        string(req.ID),
		ListingID: string(req.ListingID),
		RenterID:  string(req.RenterID),
		Status:    string(req.Status),
		Message:   req.Message,
		IsReview:  req.IsReview,
		CreatedAt: req.CreatedAt.UTC(),
		UpdatedAt: req.UpdatedAt.UTC(),
		Version:   req.Version + 1,
	}
	if err := saveVersioned(ctx, r.col, doc.ID, req.Version, doc, nil); err != nil {
		return err
	}
	req.Version = doc.Version
	return nil
}

func (r rentalRepo) ListByRenter(ctx context.Context, renterID domainuser.ID) ([]*domainrentals.Request, error) {
	return r.list(ctx, bson.M{"renter_id": string(renterID)})
}

func (r rentalRepo) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainrentals.Request, error) {
	return r.list(ctx, bson.M{"listing_id": string(listingID)})
}

func (r rentalRepo) list(ctx context.Context, filter bson.M) ([]*domainrentals.Request, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, err
	}
	var docs []requestDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainrentals.Request, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func (d requestDocument) toAggregate() *domainrentals.Request {
	return &domainrentals.Request{
		ID:        domainrentals.RequestID(d.ID),
		ListingID: domainlistings.ListingID(d.ListingID),
		RenterID:  domainuser.ID(d.RenterID),
		Status:    domainrentals.Status(d.Status),
		Message:   d.Message,
		IsReview:  d.IsReview,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
		Version:   d.Version,
	}
}

type reviewRepo struct{ col *mongo.Collection }

type reviewDocument struct {
	ID         string    `bson:"_id"`
	RequestID  string    `bson:"request_id"`
	ReviewerID string    `bson:"reviewer_id"`
	ProfileID  string    `bson:"profile_id"`
	ListingID  string    `bson:"listing_id"`
	Rating     int       `bson:"rating"`
	Feedback   string    `bson:"feedback"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (r reviewRepo) ByRequest(ctx context.Context, requestID domainrentals.RequestID) (*domainreviews.Review, error) {
	var doc reviewDocument
	if err := findOne(ctx, r.col, bson.M{"request_id": string(requestID)}, &doc, domainreviews.ErrNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r reviewRepo) Save(ctx context.Context, rev *domainreviews.Review) error {
	doc := reviewDocument{
		ID:         string(rev.ID),
		RequestID:  string(rev.RequestID),
		ReviewerID: string(rev.ReviewerID),
		ProfileID:  string(rev.ProfileID),
		ListingID:  string(rev.ListingID),
		Rating:     rev.Rating,
		Feedback:   rev.Feedback,
		CreatedAt:  rev.CreatedAt.UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainreviews.ErrDuplicate
		}
		return translateTxnError(err)
	}
	return nil
}

func (r reviewRepo) ListByListing(ctx context.Context, listingID domainlistings.ListingID, limit, offset int) ([]*domainreviews.Review, error) {
	return r.list(ctx, bson.M{"listing_id": string(listingID)}, limit, offset)
}

func (r reviewRepo) ListByProfile(ctx context.Context, profileID domainprofiles.ID, limit, offset int) ([]*domainreviews.Review, error) {
	return r.list(ctx, bson.M{"profile_id": string(profileID)}, limit, offset)
}

func (r reviewRepo) list(ctx context.Context, filter bson.M, limit, offset int) ([]*domainreviews.Review, error) {
	opts := options.Find().SetSort(newestFirst)
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []reviewDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainreviews.Review, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func (d reviewDocument) toAggregate() *domainreviews.Review {
	return &domainreviews.Review{
		ID:         domainreviews.ReviewID(d.ID),
		RequestID:  domainrentals.RequestID(d.RequestID),
		ReviewerID: domainuser.ID(d.ReviewerID),
		ProfileID:  domainprofiles.ID(d.ProfileID),
		ListingID:  domainlistings.ListingID(d.ListingID),
		Rating:     d.Rating,
		Feedback:   d.Feedback,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}
