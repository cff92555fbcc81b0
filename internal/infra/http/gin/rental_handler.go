package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"deskrent/internal/app/commands"
	"deskrent/internal/app/dto"
	rentalapp "deskrent/internal/app/handlers/rentals"
	reviewapp "deskrent/internal/app/handlers/reviews"
	"deskrent/internal/app/queries"
)

const idempotencyKeyHeader = "Idempotency-Key"

type RentalHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createRentalRequest struct {
	ListingID string `json:"listing_id"`
	Message   string `json:"message"`
}

type updateStatusRequest struct {
	Status  string  `json:"status"`
	Message *string `json:"message"`
}

type createReviewRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

func (h RentalHandler) Create(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req createRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if strings.TrimSpace(req.ListingID) == "" {
		badRequest(c, "listing_id is required")
		return
	}
	cmd := rentalapp.CreateRentalRequestCommand{
		ListingID:  strings.TrimSpace(req.ListingID),
		RenterID:   p.ID,
		Message:    req.Message,
		RequestKey: strings.TrimSpace(c.GetHeader(idempotencyKeyHeader)),
	}
	result, err := commands.Dispatch[rentalapp.CreateRentalRequestCommand, dto.RentalRequest](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h RentalHandler) Mine(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	result, err := queries.Ask[rentalapp.ListMyRentalRequestsQuery, dto.RentalRequestCollection](c.Request.Context(), h.Queries, rentalapp.ListMyRentalRequestsQuery{RenterID: p.ID})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RentalHandler) UpdateStatus(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	cmd := rentalapp.UpdateRentalRequestStatusCommand{
		RequestID: c.Param("id"),
		ActorID:   p.ID,
		Status:    req.Status,
		Message:   req.Message,
	}
	result, err := commands.Dispatch[rentalapp.UpdateRentalRequestStatusCommand, dto.RentalRequest](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Review files the renter's review of an approved request and updates both ratings.
func (h RentalHandler) Review(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	cmd := reviewapp.CreateReviewCommand{
		RequestID:  c.Param("id"),
		RenterID:   p.ID,
		Rating:     req.Rating,
		Feedback:   req.Feedback,
		RequestKey: strings.TrimSpace(c.GetHeader(idempotencyKeyHeader)),
	}
	review, err := commands.Dispatch[reviewapp.CreateReviewCommand, dto.Review](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

var _ RentalHTTP = RentalHandler{}
