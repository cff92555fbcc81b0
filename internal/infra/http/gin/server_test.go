package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"deskrent/internal/app/dto"
	"deskrent/internal/app/guard"
	"deskrent/internal/app/handlers/handlertest"
	listingapp "deskrent/internal/app/handlers/listings"
	"deskrent/internal/app/middleware"
	authsvc "deskrent/internal/app/services/auth"
	"deskrent/internal/app/uow"
	"deskrent/internal/app/wiring"
	domainrentals "deskrent/internal/domain/rentals"
	"deskrent/internal/infra/obs"
	"deskrent/internal/infra/security"
	"deskrent/internal/infra/storage/memory"
)

type testAPI struct {
	t       *testing.T
	router  http.Handler
	storage *handlertest.Storage
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	storage := handlertest.NewStorage()
	buses := wiring.Build(wiring.Dependencies{
		UoWFactory:  store,
		Outbox:      memory.NewOutbox(store),
		Idempotency: memory.NewIdempotencyStore(time.Hour),
		Storage:     storage,
	})
	tokens, err := security.NewJWTIssuer("test-secret", time.Hour, "deskrent")
	require.NoError(t, err)
	authService := &authsvc.Service{
		UoWFactory: store,
		Passwords:  security.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:     tokens,
	}

	router := NewRouter(obs.Middleware{}, obs.HealthHandlers{
		Checks: map[string]obs.Checker{"store": store.Ping},
	}, Handlers{
		Auth:           AuthHandler{Service: authService},
		Account:        AccountHandler{Commands: buses.Commands},
		Profile:        ProfileHandler{Commands: buses.Commands, Queries: buses.Queries},
		Listing:        ListingHandler{Commands: buses.Commands, Queries: buses.Queries},
		Rental:         RentalHandler{Commands: buses.Commands, Queries: buses.Queries},
		AuthMiddleware: AuthMiddleware{Service: authService}.Handle,
	})
	return &testAPI{t: t, router: router, storage: storage}
}

func (a *testAPI) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) upload(path, token string, content []byte) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "photo.png")
	require.NoError(a.t, err)
	_, err = part.Write(content)
	require.NoError(a.t, err)
	require.NoError(a.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *testAPI) register(email string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": email, "full_name": "Test User", "password": "correct-horse",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[dto.AuthResponse](a.t, rec).Token
}

// ownerWithListing registers an owner, opens the business profile and publishes one listing.
func (a *testAPI) ownerWithListing() (string, dto.BusinessProfile, dto.Listing) {
	a.t.Helper()
	token := a.register("owner@deskrent.test")
	rec := a.do(http.MethodPost, "/api/v1/profiles", token, gin.H{
		"business_name": "Canal Studio",
		"location":      "Berlin",
		"workspace":     "Loft",
		"description":   "Quiet desks by the canal",
		"phone_number":  "+49 30 1234",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	profile := decode[dto.BusinessProfile](a.t, rec)

	rec = a.do(http.MethodPost, "/api/v1/listings", token, gin.H{
		"title":       "Window desk",
		"space_type":  "Hot desk",
		"rental_rate": 25.5,
		"location":    "Berlin Kreuzberg",
		"description": "Desk next to the window",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return token, profile, decode[dto.Listing](a.t, rec)
}

func TestReviewWorkflowOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	ownerToken, profile, listing := api.ownerWithListing()
	assert.Equal(t, 25.5, listing.RentalRate)
	assert.Equal(t, profile.ID, listing.ProfileID)

	renterToken := api.register("renter@deskrent.test")

	rec := api.do(http.MethodPost, "/api/v1/rental-requests", renterToken, gin.H{"listing_id": listing.ID, "message": "Next week?"}, "Idempotency-Key", "req-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	request := decode[dto.RentalRequest](t, rec)
	assert.Equal(t, string(domainrentals.StatusPending), request.Status)

	replay := api.do(http.MethodPost, "/api/v1/rental-requests", renterToken, gin.H{"listing_id": listing.ID}, "Idempotency-Key", "req-1")
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, request.ID, decode[dto.RentalRequest](t, replay).ID)

	mine := decode[dto.RentalRequestCollection](t, api.do(http.MethodGet, "/api/v1/rental-requests/mine", renterToken, nil))
	require.Len(t, mine.Items, 1)

	statusPath := "/api/v1/rental-requests/" + request.ID + "/status"
	reviewPath := "/api/v1/rental-requests/" + request.ID + "/review"

	rec = api.do(http.MethodPost, reviewPath, renterToken, gin.H{"rating": 4, "feedback": "Great"})
	assert.Equal(t, http.StatusConflict, rec.Code, "review before approval")

	rec = api.do(http.MethodPatch, statusPath, renterToken, gin.H{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPatch, statusPath, ownerToken, gin.H{"status": "approved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, string(domainrentals.StatusApproved), decode[dto.RentalRequest](t, rec).Status)

	rec = api.do(http.MethodPatch, statusPath, ownerToken, gin.H{"status": "pending"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, reviewPath, renterToken, gin.H{"rating": 6, "feedback": "Too good"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, reviewPath, renterToken, gin.H{"rating": 4, "feedback": "Great light"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	review := decode[dto.Review](t, rec)
	assert.Equal(t, listing.ID, review.ListingID)
	assert.Equal(t, profile.ID, review.ProfileID)

	rec = api.do(http.MethodPost, reviewPath, renterToken, gin.H{"rating": 5, "feedback": "Again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	want := dto.Rating{Rating: 4, TotalReviews: 1, TotalRatings: 4}
	assert.Equal(t, want, decode[dto.Rating](t, api.do(http.MethodGet, "/api/v1/listings/"+listing.ID+"/rating", "", nil)))
	assert.Equal(t, want, decode[dto.Rating](t, api.do(http.MethodGet, "/api/v1/profiles/"+profile.ID+"/rating", "", nil)))

	reviews := decode[dto.ReviewCollection](t, api.do(http.MethodGet, "/api/v1/profiles/"+profile.ID+"/reviews", "", nil))
	require.Len(t, reviews.Items, 1)
	assert.Equal(t, review.ID, reviews.Items[0].ID)

	detail := decode[dto.ListingDetail](t, api.do(http.MethodGet, "/api/v1/listings/"+listing.ID, "", nil))
	assert.Len(t, detail.Reviews, 1)
	assert.Equal(t, 4.0, detail.Rating.Rating)

	requests := decode[dto.RentalRequestCollection](t, api.do(http.MethodGet, "/api/v1/listings/"+listing.ID+"/rental-requests?status=approved", ownerToken, nil))
	require.Len(t, requests.Items, 1)
	assert.True(t, requests.Items[0].IsReview)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/v1/listings/"+listing.ID+"/rental-requests", renterToken, nil).Code)
}

func TestOwnerCannotRequestOwnListing(t *testing.T) {
	api := newTestAPI(t)
	ownerToken, _, listing := api.ownerWithListing()

	rec := api.do(http.MethodPost, "/api/v1/rental-requests", ownerToken, gin.H{"listing_id": listing.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	mine := decode[dto.RentalRequestCollection](t, api.do(http.MethodGet, "/api/v1/rental-requests/mine", ownerToken, nil))
	assert.Empty(t, mine.Items)
}

func TestAuthEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("jane@deskrent.test")

	rec := api.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "JANE@deskrent.test", "full_name": "Jane", "password": "correct-horse"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "short@deskrent.test", "full_name": "Short", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "jane@deskrent.test", "password": "wrong-horse"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "jane@deskrent.test", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[dto.AuthResponse](t, rec).Token)

	me := decode[dto.UserProfile](t, api.do(http.MethodGet, "/api/v1/auth/me", token, nil))
	assert.Equal(t, "jane@deskrent.test", me.Email)
	assert.Equal(t, "renter", me.AccountType)

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/auth/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/auth/me", "not-a-token", nil).Code)

	rec = api.do(http.MethodPatch, "/api/v1/me/account-type", token, gin.H{"account_type": "owner"})
	assert.Equal(t, http.StatusConflict, rec.Code, "switching needs a business profile")
}

func TestListingEndpoints(t *testing.T) {
	api := newTestAPI(t)
	ownerToken, _, listing := api.ownerWithListing()
	otherToken := api.register("other@deskrent.test")
	listingPath := "/api/v1/listings/" + listing.ID

	rec := api.do(http.MethodPatch, listingPath, otherToken, gin.H{"title": "Hijacked"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPatch, listingPath, ownerToken, gin.H{"rental_rate": 30, "title": "Corner desk"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[dto.Listing](t, rec)
	assert.Equal(t, 30.0, updated.RentalRate)
	assert.Equal(t, "Corner desk", updated.Title)

	rec = api.do(http.MethodPatch, listingPath, ownerToken, gin.H{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	found := decode[dto.ListingCollection](t, api.do(http.MethodGet, "/api/v1/listings?location=kreuz&space_type=HOT", "", nil))
	assert.Equal(t, 1, found.Total)
	none := decode[dto.ListingCollection](t, api.do(http.MethodGet, "/api/v1/listings?location=munich", "", nil))
	assert.Equal(t, 0, none.Total)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
	rec = api.upload(listingPath+"/images", ownerToken, png)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	withImage := decode[dto.Listing](t, rec)
	require.Len(t, withImage.Images, 1)
	assert.Len(t, api.storage.Objects, 1)

	rec = api.upload(listingPath+"/images", ownerToken, []byte("plain text, not an image"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodDelete, listingPath+"/images/"+withImage.Images[0].ID, ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode[dto.Listing](t, rec).Images)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, listingPath, otherToken, nil).Code)
	rec = api.do(http.MethodDelete, listingPath, ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[listingapp.DeleteListingResult](t, rec).Deleted)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, listingPath, "", nil).Code)
}

func TestProfileEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("owner@deskrent.test")

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/profiles/me", token, nil).Code)

	rec := api.do(http.MethodPost, "/api/v1/profiles", token, gin.H{"business_name": "AB", "location": "Berlin", "workspace": "Loft", "description": "Desks", "phone_number": "+49"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := gin.H{"business_name": "Canal Studio", "location": "Berlin", "workspace": "Loft", "description": "Desks", "phone_number": "+49"}
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/profiles", token, body).Code)
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/api/v1/profiles", token, body).Code)

	me := decode[dto.UserProfile](t, api.do(http.MethodGet, "/api/v1/auth/me", token, nil))
	assert.Equal(t, "owner", me.AccountType)

	rec = api.do(http.MethodPatch, "/api/v1/profiles/me", token, gin.H{"business_website": "https://canal.studio"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "https://canal.studio", decode[dto.BusinessProfile](t, rec).Website)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
	rec = api.upload("/api/v1/profiles/me/logo", token, png)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode[dto.BusinessProfile](t, rec).LogoURL)

	rec = api.do(http.MethodPatch, "/api/v1/me/account-type", token, gin.H{"account_type": "renter"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "renter", decode[dto.UserProfile](t, rec).AccountType)
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/livez", "", nil).Code)
	rec := api.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(obs.RequestIDHeader))
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{guard.ErrUnauthenticated, http.StatusUnauthorized},
		{guard.ErrNotAnOwner, http.StatusForbidden},
		{domainrentals.ErrAlreadyApproved, http.StatusConflict},
		{uow.ErrConcurrentUpdate, http.StatusConflict},
		{middleware.ErrIdempotencyInProgress, http.StatusConflict},
		{domainrentals.ErrInvalidStatus, http.StatusBadRequest},
		{listingapp.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{errors.Join(errors.New("wrapped"), domainrentals.ErrNotFound), http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc", extractBearerToken("Bearer abc"))
	assert.Equal(t, "abc", extractBearerToken("bearer  abc "))
	assert.Empty(t, extractBearerToken("Basic abc"))
	assert.Empty(t, extractBearerToken("Bearer"))
	assert.Equal(t, int64(2550), amountToCents(25.5))
	assert.Equal(t, int64(1999), amountToCents(19.99))
}
