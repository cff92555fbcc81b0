package ginserver

import (
	"bytes"
	"log/slog"
	"math"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"deskrent/internal/app/commands"
	"deskrent/internal/app/dto"
	listingapp "deskrent/internal/app/handlers/listings"
	ratingapp "deskrent/internal/app/handlers/ratings"
	rentalapp "deskrent/internal/app/handlers/rentals"
	reviewapp "deskrent/internal/app/handlers/reviews"
	"deskrent/internal/app/queries"
	domainlistings "deskrent/internal/domain/listings"
)

type ListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type listingRequest struct {
	Title        string  `json:"title"`
	SpaceType    string  `json:"space_type"`
	Size         string  `json:"size"`
	Availability string  `json:"availability"`
	RentalRate   float64 `json:"rental_rate"`
	Location     string  `json:"location"`
	Description  string  `json:"description"`
}

type listingPatchRequest struct {
	Title        *string  `json:"title"`
	SpaceType    *string  `json:"space_type"`
	Size         *string  `json:"size"`
	Availability *string  `json:"availability"`
	RentalRate   *float64 `json:"rental_rate"`
	Location     *string  `json:"location"`
	Description  *string  `json:"description"`
}

func (h ListingHandler) Search(c *gin.Context) {
	query := listingapp.SearchListingsQuery{
		ProfileID: strings.TrimSpace(c.Query("profile_id")),
		Location:  c.Query("location"),
		SpaceType: c.Query("space_type"),
		Limit:     parsePositiveInt(c.Query("limit"), 20),
		Offset:    parsePositiveInt(c.Query("offset"), 0),
	}
	result, err := queries.Ask[listingapp.SearchListingsQuery, dto.ListingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Create(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	cmd := listingapp.CreateListingCommand{
		OwnerID:      p.ID,
		Title:        req.Title,
		SpaceType:    req.SpaceType,
		Size:         req.Size,
		Availability: req.Availability,
		RateCents:    amountToCents(req.RentalRate),
		Location:     req.Location,
		Description:  req.Description,
	}
	listing, err := commands.Dispatch[listingapp.CreateListingCommand, dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Header("Location", "/api/v1/listings/"+listing.ID)
	c.JSON(http.StatusCreated, listing)
}

func (h ListingHandler) Get(c *gin.Context) {
	detail, err := queries.Ask[listingapp.GetListingQuery, dto.ListingDetail](c.Request.Context(), h.Queries, listingapp.GetListingQuery{ListingID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h ListingHandler) Update(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req listingPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	changes := domainlistings.UpdateParams{
		Title:        req.Title,
		SpaceType:    req.SpaceType,
		Size:         req.Size,
		Availability: req.Availability,
		Location:     req.Location,
		Description:  req.Description,
	}
	if req.RentalRate != nil {
		cents := amountToCents(*req.RentalRate)
		changes.RateCents = &cents
	}
	cmd := listingapp.UpdateListingCommand{ActorID: p.ID, ListingID: c.Param("id"), Changes: changes}
	listing, err := commands.Dispatch[listingapp.UpdateListingCommand, dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h ListingHandler) Delete(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	cmd := listingapp.DeleteListingCommand{ActorID: p.ID, ListingID: c.Param("id")}
	result, err := commands.Dispatch[listingapp.DeleteListingCommand, listingapp.DeleteListingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) UploadImage(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	upload, err := readImageUpload(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := listingapp.UploadListingImageCommand{
		ActorID:     p.ID,
		ListingID:   c.Param("id"),
		FileName:    upload.FileName,
		ContentType: upload.ContentType,
		Reader:      bytes.NewReader(upload.Data),
	}
	listing, err := commands.Dispatch[listingapp.UploadListingImageCommand, dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

func (h ListingHandler) RemoveImage(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	cmd := listingapp.RemoveListingImageCommand{ActorID: p.ID, ListingID: c.Param("id"), ImageID: c.Param("imageID")}
	listing, err := commands.Dispatch[listingapp.RemoveListingImageCommand, dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h ListingHandler) Rating(c *gin.Context) {
	result, err := queries.Ask[ratingapp.GetListingRatingQuery, dto.Rating](c.Request.Context(), h.Queries, ratingapp.GetListingRatingQuery{ListingID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Reviews(c *gin.Context) {
	query := reviewapp.ListListingReviewsQuery{
		ListingID: c.Param("id"),
		Limit:     parsePositiveInt(c.Query("limit"), 20),
		Offset:    parsePositiveInt(c.Query("offset"), 0),
	}
	result, err := queries.Ask[reviewapp.ListListingReviewsQuery, dto.ReviewCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RentalRequests lists the requests filed against a listing; owner only.
func (h ListingHandler) RentalRequests(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	query := rentalapp.ListListingRentalRequestsQuery{
		ListingID: c.Param("id"),
		ActorID:   p.ID,
		Status:    strings.TrimSpace(c.Query("status")),
	}
	result, err := queries.Ask[rentalapp.ListListingRentalRequestsQuery, dto.RentalRequestCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func amountToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

var _ ListingHTTP = ListingHandler{}
