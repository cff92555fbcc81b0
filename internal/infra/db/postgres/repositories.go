package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainprofiles "deskrent/internal/domain/profiles"
	"deskrent/internal/domain/rating"
	domainrentals "deskrent/internal/domain/rentals"
	domainreviews "deskrent/internal/domain/reviews"
	domainuser "deskrent/internal/domain/user"
)

const uniqueViolation = "23505"

// saveVersioned inserts a new aggregate (version 0) or updates the stored row whose version
// still equals the one the caller loaded. The update statement takes the expected version as
// its last parameter.
func saveVersioned(ctx context.Context, tx pgx.Tx, version int64, insert, update string, uniques map[string]error, args ...any) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if version == 0 {
		tag, err = tx.Exec(ctx, insert, args...)
	} else {
		tag, err = tx.Exec(ctx, update, append(args, version)...)
	}
	if err != nil {
		return translate(err, uniques)
	}
	if tag.RowsAffected() == 0 {
		return uow.ErrConcurrentUpdate
	}
	return nil
}

// translate maps unique violations onto domain errors by constraint name. A clash on the
// primary key means another unit inserted the same aggregate first.
func translate(err error, uniques map[string]error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if mapped, ok := uniques[pgErr.ConstraintName]; ok {
			return mapped
		}
		return uow.ErrConcurrentUpdate
	}
	return err
}

type userRepo struct{ tx pgx.Tx }

const userColumns = `id, email, normalized_email, full_name, profession, phone_number, password_hash,
	account_type, created_at, updated_at, version`

func (r userRepo) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, string(id))
	return scanUser(row)
}

func (r userRepo) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE normalized_email = $1`,
		domainuser.NormalizeEmail(email))
	return scanUser(row)
}

func (r userRepo) Save(ctx context.Context, usr *domainuser.User) error {
	err := saveVersioned(ctx, r.tx, usr.Version,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)`,
		`UPDATE users SET email = $2, normalized_email = $3, full_name = $4, profession = $5,
			phone_number = $6, password_hash = $7, account_type = $8, created_at = $9, updated_at = $10,
			version = version + 1
		WHERE id = $1 AND version = $11`,
		map[string]error{"users_normalized_email_key": domainuser.ErrEmailAlreadyUsed},
		string(usr.ID), usr.Email, usr.NormalizedEmail, usr.FullName, usr.Profession, usr.PhoneNumber,
		usr.PasswordHash, string(usr.AccountType), usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	usr.Version++
	return nil
}

func scanUser(row pgx.Row) (*domainuser.User, error) {
	var (
		usr         domainuser.User
		id, account string
	)
	err := row.Scan(&id, &usr.Email, &usr.NormalizedEmail, &usr.FullName, &usr.Profession, &usr.PhoneNumber,
		&usr.PasswordHash, &account, &usr.CreatedAt, &usr.UpdatedAt, &usr.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainuser.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: scan user: %w", err)
	}
	usr.ID = domainuser.ID(id)
	usr.AccountType = domainuser.AccountType(account)
	usr.CreatedAt = usr.CreatedAt.UTC()
	usr.UpdatedAt = usr.UpdatedAt.UTC()
	return &usr, nil
}

type profileRepo struct{ tx pgx.Tx }

const profileColumns = `id, user_id, business_name, location, workspace, logo_url, logo_key, website,
	description, business_email, phone_number, total_reviews, total_ratings, rating, created_at, updated_at, version`

func (r profileRepo) ByID(ctx context.Context, id domainprofiles.ID) (*domainprofiles.Profile, error) {
	return scanProfile(r.tx.QueryRow(ctx, `SELECT `+profileColumns+` FROM business_profiles WHERE id = $1`, string(id)))
}

func (r profileRepo) ByIDForUpdate(ctx context.Context, id domainprofiles.ID) (*domainprofiles.Profile, error) {
	return scanProfile(r.tx.QueryRow(ctx, `SELECT `+profileColumns+` FROM business_profiles WHERE id = $1 FOR UPDATE`, string(id)))
}

func (r profileRepo) ByUser(ctx context.Context, userID domainuser.ID) (*domainprofiles.Profile, error) {
	return scanProfile(r.tx.QueryRow(ctx, `SELECT `+profileColumns+` FROM business_profiles WHERE user_id = $1`, string(userID)))
}

func (r profileRepo) Save(ctx context.Context, p *domainprofiles.Profile) error {
	err := saveVersioned(ctx, r.tx, p.Version,
		`INSERT INTO business_profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1)`,
		`UPDATE business_profiles SET user_id = $2, business_name = $3, location = $4, workspace = $5,
			logo_url = $6, logo_key = $7, website = $8, description = $9, business_email = $10,
			phone_number = $11, total_reviews = $12, total_ratings = $13, rating = $14,
			created_at = $15, updated_at = $16, version = version + 1
		WHERE id = $1 AND version = $17`,
		map[string]error{"business_profiles_user_id_key": domainprofiles.ErrAlreadyExists},
		string(p.ID), string(p.UserID), p.BusinessName, p.Location, p.Workspace, p.LogoURL, p.LogoKey,
		p.Website, p.Description, p.BusinessEmail, p.PhoneNumber,
		p.Rating.TotalReviews, p.Rating.TotalRatings, p.Rating.Rating,
		p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	p.Version++
	return nil
}

func scanProfile(row pgx.Row) (*domainprofiles.Profile, error) {
	var (
		p                         domainprofiles.Profile
		id, userID                string
		totalReviews              int
		totalRatings, ratingValue float64
	)
	err := row.Scan(&id, &userID, &p.BusinessName, &p.Location, &p.Workspace, &p.LogoURL, &p.LogoKey,
		&p.Website, &p.Description, &p.BusinessEmail, &p.PhoneNumber,
		&totalReviews, &totalRatings, &ratingValue, &p.CreatedAt, &p.UpdatedAt, &p.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainprofiles.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: scan profile: %w", err)
	}
	p.ID = domainprofiles.ID(id)
	p.UserID = domainuser.ID(userID)
	p.Rating = rating.Restore(totalReviews, totalRatings, ratingValue)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

type listingRepo struct{ tx pgx.Tx }

const listingColumns = `id, profile_id, owner_user_id, title, space_type, size, availability, rate_cents,
	location, description, images, total_reviews, total_ratings, rating, created_at, updated_at, version`

type imageRow struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	ObjectKey string    `json:"object_key"`
	CreatedAt time.Time `json:"created_at"`
}

func (r listingRepo) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	return scanListing(r.tx.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, string(id)))
}

func (r listingRepo) ByIDForUpdate(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	return scanListing(r.tx.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1 FOR UPDATE`, string(id)))
}

func (r listingRepo) Save(ctx context.Context, l *domainlistings.Listing) error {
	images := make([]imageRow, 0, len(l.Images))
	for _, img := range l.Images {
		images = append(images, imageRow{ID: string(img.ID), URL: img.URL, ObjectKey: img.ObjectKey, CreatedAt: img.CreatedAt.UTC()})
	}
	rawImages, err := json.Marshal(images)
	if err != nil {
		return err
	}
	err = saveVersioned(ctx, r.tx, l.Version,
		`INSERT INTO listings (`+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1)`,
		`UPDATE listings SET profile_id = $2, owner_user_id = $3, title = $4, space_type = $5, size = $6,
			availability = $7, rate_cents = $8, location = $9, description = $10, images = $11,
			total_reviews = $12, total_ratings = $13, rating = $14, created_at = $15, updated_at = $16,
			version = version + 1
		WHERE id = $1 AND version = $17`,
		nil,
		string(l.ID), string(l.ProfileID), string(l.OwnerUserID), l.Title, l.SpaceType, l.Size,
		l.Availability, l.RateCents, l.Location, l.Description, rawImages,
		l.Rating.TotalReviews, l.Rating.TotalRatings, l.Rating.Rating,
		l.CreatedAt.UTC(), l.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	l.Version++
	return nil
}

// Delete removes the listing; rental requests and reviews go with it through ON DELETE CASCADE.
func (r listingRepo) Delete(ctx context.Context, id domainlistings.ListingID) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM listings WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainlistings.ErrNotFound
	}
	return nil
}

func (r listingRepo) ListByProfile(ctx context.Context, profileID domainprofiles.ID) ([]*domainlistings.Listing, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+listingColumns+` FROM listings WHERE profile_id = $1
		ORDER BY created_at DESC, id ASC`, string(profileID))
	if err != nil {
		return nil, err
	}
	return collectListings(rows)
}

func (r listingRepo) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	params = params.Normalized()
	filter := `WHERE ($1 = '' OR profile_id = $1)
		AND ($2 = '' OR lower(location) LIKE $2 ESCAPE '\')
		AND ($3 = '' OR lower(space_type) LIKE $3 ESCAPE '\')`
	args := []any{string(params.ProfileID), containsPattern(params.Location), containsPattern(params.SpaceType)}

	var result domainlistings.SearchResult
	if err := r.tx.QueryRow(ctx, `SELECT count(*) FROM listings `+filter, args...).Scan(&result.Total); err != nil {
		return result, fmt.Errorf("postgres: count listings: %w", err)
	}
	if result.Total == 0 {
		return result, nil
	}
	rows, err := r.tx.Query(ctx, `SELECT `+listingColumns+` FROM listings `+filter+`
		ORDER BY created_at DESC, id ASC LIMIT $4 OFFSET $5`,
		append(args, params.Limit, params.Offset)...)
	if err != nil {
		return result, err
	}
	items, err := collectListings(rows)
	if err != nil {
		return result, err
	}
	result.Items = items
	return result, nil
}

// containsPattern builds a LIKE pattern matching term anywhere, with wildcards in term escaped.
// An empty term disables the filter.
func containsPattern(term string) string {
	if term == "" {
		return ""
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
	return "%" + escaped + "%"
}

func collectListings(rows pgx.Rows) ([]*domainlistings.Listing, error) {
	defer rows.Close()
	var out []*domainlistings.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate listings: %w", err)
	}
	return out, nil
}

func scanListing(row pgx.Row) (*domainlistings.Listing, error) {
	var (
		l                         domainlistings.Listing
		id, profileID, ownerID    string
		rawImages                 []byte
		totalReviews              int
		totalRatings, ratingValue float64
	)
	err := row.Scan(&id, &profileID, &ownerID, &l.Title, &l.SpaceType, &l.Size, &l.Availability, &l.RateCents,
		&l.Location, &l.Description, &rawImages, &totalReviews, &totalRatings, &ratingValue,
		&l.CreatedAt, &l.UpdatedAt, &l.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: scan listing: %w", err)
	}
	var images []imageRow
	if len(rawImages) > 0 {
		if err := json.Unmarshal(rawImages, &images); err != nil {
			return nil, fmt.Errorf("postgres: decode listing images: %w", err)
		}
	}
	for _, img := range images {
		l.Images = append(l.Images, domainlistings.Image{
			ID:        domainlistings.ImageID(img.ID),
			URL:       img.URL,
			ObjectKey: img.ObjectKey,
			CreatedAt: img.CreatedAt.UTC(),
		})
	}
	l.ID = domainlistings.ListingID(id)
	l.ProfileID = domainprofiles.ID(profileID)
	l.OwnerUserID = domainuser.ID(ownerID)
	l.Rating = rating.Restore(totalReviews, totalRatings, ratingValue)
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return &l, nil
}

type rentalRepo struct{ tx pgx.Tx }

const rentalColumns = `id, listing_id, renter_id, status, message, is_review, created_at, updated_at, version`

func (r rentalRepo) ByID(ctx context.Context, id domainrentals.RequestID) (*domainrentals.Request, error) {
	return scanRequest(r.tx.QueryRow(ctx, `SELECT `+rentalColumns+` FROM rental_requests WHERE id = $1`, string(id)))
}

func (r rentalRepo) ByIDForUpdate(ctx context.Context, id domainrentals.RequestID) (*domainrentals.Request, error) {
	return scanRequest(r.tx.QueryRow(ctx, `SELECT `+rentalColumns+` FROM rental_requests WHERE id = $1 FOR UPDATE`, string(id)))
}

func (r rentalRepo) Save(ctx context.Context, req *domainrentals.Request) error {
	err := saveVersioned(ctx, r.tx, req.Version,
		`INSERT INTO rental_requests (`+rentalColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)`,
		`UPDATE rental_requests SET listing_id = $2, renter_id = $3, status = $4, message = $5,
			is_review = $6, created_at = $7, updated_at = $8, version = version + 1
		WHERE id = $1 AND version = $9`,
		nil,
		string(req.ID), string(req.ListingID), string(req.RenterID), string(req.Status), req.Message,
		req.IsReview, req.CreatedAt.UTC(), req.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	req.Version++
	return nil
}

func (r rentalRepo) ListByRenter(ctx context.Context, renterID domainuser.ID) ([]*domainrentals.Request, error) {
	return r.list(ctx, `renter_id = $1`, string(renterID))
}

func (r rentalRepo) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainrentals.Request, error) {
	return r.list(ctx, `listing_id = $1`, string(listingID))
}

func (r rentalRepo) list(ctx context.Context, where string, arg string) ([]*domainrentals.Request, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+rentalColumns+` FROM rental_requests WHERE `+where+`
		ORDER BY created_at DESC, id ASC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domainrentals.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate rental requests: %w", err)
	}
	return out, nil
}

func scanRequest(row pgx.Row) (*domainrentals.Request, error) {
	var (
		req                         domainrentals.Request
		id, listingID, renterID, st string
	)
	err := row.Scan(&id, &listingID, &renterID, &st, &req.Message, &req.IsReview,
		&req.CreatedAt, &req.UpdatedAt, &req.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainrentals.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: scan rental request: %w", err)
	}
	req.ID = domainrentals.RequestID(id)
	req.ListingID = domainlistings.ListingID(listingID)
	req.RenterID = domainuser.ID(renterID)
	req.Status = domainrentals.Status(st)
	req.CreatedAt = req.CreatedAt.UTC()
	req.UpdatedAt = req.UpdatedAt.UTC()
	return &req, nil
}

type reviewRepo struct{ tx pgx.Tx }

const reviewColumns = `id, request_id, reviewer_id, profile_id, listing_id, rating, feedback, created_at`

func (r reviewRepo) ByRequest(ctx context.Context, requestID domainrentals.RequestID) (*domainreviews.Review, error) {
	return scanReview(r.tx.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE request_id = $1`, string(requestID)))
}

func (r reviewRepo) Save(ctx context.Context, rev *domainreviews.Review) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO reviews (`+reviewColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(rev.ID), string(rev.RequestID), string(rev.ReviewerID), string(rev.ProfileID),
		string(rev.ListingID), rev.Rating, rev.Feedback, rev.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domainreviews.ErrDuplicate
	}
	return err
}

func (r reviewRepo) ListByListing(ctx context.Context, listingID domainlistings.ListingID, limit, offset int) ([]*domainreviews.Review, error) {
	return r.list(ctx, `listing_id = $1`, string(listingID), limit, offset)
}

func (r reviewRepo) ListByProfile(ctx context.Context, profileID domainprofiles.ID, limit, offset int) ([]*domainreviews.Review, error) {
	return r.list(ctx, `profile_id = $1`, string(profileID), limit, offset)
}

// list pages with LIMIT ALL when limit is not positive.
func (r reviewRepo) list(ctx context.Context, where, arg string, limit, offset int) ([]*domainreviews.Review, error) {
	if offset < 0 {
		offset = 0
	}
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := r.tx.Query(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE `+where+`
		ORDER BY created_at DESC, id ASC LIMIT $2 OFFSET $3`, arg, lim, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domainreviews.Review
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate reviews: %w", err)
	}
	return out, nil
}

func scanReview(row pgx.Row) (*domainreviews.Review, error) {
	var (
		rev                                        domainreviews.Review
		id, requestID, reviewerID, profile, listed string
		value                                      int16
	)
	err := row.Scan(&id, &requestID, &reviewerID, &profile, &listed, &value, &rev.Feedback, &rev.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainreviews.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: scan review: %w", err)
	}
	rev.ID = domainreviews.ReviewID(id)
	rev.RequestID = domainrentals.RequestID(requestID)
	rev.ReviewerID = domainuser.ID(reviewerID)
	rev.ProfileID = domainprofiles.ID(profile)
	rev.ListingID = domainlistings.ListingID(listed)
	rev.Rating = int(value)
	rev.CreatedAt = rev.CreatedAt.UTC()
	return &rev, nil
}
