package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"deskrent/internal/app/guard"
	listingapp "deskrent/internal/app/handlers/listings"
	profileapp "deskrent/internal/app/handlers/profiles"
	"deskrent/internal/app/middleware"
	"deskrent/internal/app/services/auth"
	"deskrent/internal/app/uow"
	domainlistings "deskrent/internal/domain/listings"
	domainprofiles "deskrent/internal/domain/profiles"
	"deskrent/internal/domain/rating"
	domainrentals "deskrent/internal/domain/rentals"
	domainreviews "deskrent/internal/domain/reviews"
	domainuser "deskrent/internal/domain/user"
)

var statusByError = []struct {
	err    error
	status int
}{
	{guard.ErrUnauthenticated, http.StatusUnauthorized},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized},
	{auth.ErrTokenRequired, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},

	{guard.ErrForbidden, http.StatusForbidden},
	{guard.ErrNotARenter, http.StatusForbidden},
	{guard.ErrNotAnOwner, http.StatusForbidden},

	{domainlistings.ErrNotFound, http.StatusNotFound},
	{domainlistings.ErrImageNotFound, http.StatusNotFound},
	{domainprofiles.ErrNotFound, http.StatusNotFound},
	{domainrentals.ErrNotFound, http.StatusNotFound},
	{domainreviews.ErrNotFound, http.StatusNotFound},
	{domainuser.ErrNotFound, http.StatusNotFound},

	{domainrentals.ErrAlreadyApproved, http.StatusConflict},
	{domainrentals.ErrAlreadyReviewed, http.StatusConflict},
	{domainrentals.ErrNotApproved, http.StatusConflict},
	{domainrentals.ErrSelfDealing, http.StatusConflict},
	{domainreviews.ErrDuplicate, http.StatusConflict},
	{domainprofiles.ErrAlreadyExists, http.StatusConflict},
	{domainuser.ErrEmailAlreadyUsed, http.StatusConflict},
	{domainuser.ErrProfileRequired, http.StatusConflict},
	{listingapp.ErrProfileRequired, http.StatusConflict},
	{uow.ErrConcurrentUpdate, http.StatusConflict},
	{middleware.ErrIdempotencyInProgress, http.StatusConflict},

	{auth.ErrPasswordTooShort, http.StatusBadRequest},
	{domainuser.ErrEmailRequired, http.StatusBadRequest},
	{domainuser.ErrNameRequired, http.StatusBadRequest},
	{domainuser.ErrInvalidAccountType, http.StatusBadRequest},
	{domainprofiles.ErrBusinessNameTooShort, http.StatusBadRequest},
	{domainprofiles.ErrLocationRequired, http.StatusBadRequest},
	{domainprofiles.ErrWorkspaceRequired, http.StatusBadRequest},
	{domainprofiles.ErrDescriptionRequired, http.StatusBadRequest},
	{domainprofiles.ErrPhoneRequired, http.StatusBadRequest},
	{domainlistings.ErrTitleRequired, http.StatusBadRequest},
	{domainlistings.ErrSpaceTypeRequired, http.StatusBadRequest},
	{domainlistings.ErrLocationRequired, http.StatusBadRequest},
	{domainlistings.ErrDescriptionRequired, http.StatusBadRequest},
	{domainlistings.ErrRentalRate, http.StatusBadRequest},
	{domainrentals.ErrMissingStatus, http.StatusBadRequest},
	{domainrentals.ErrInvalidStatus, http.StatusBadRequest},
	{domainreviews.ErrInvalidRating, http.StatusBadRequest},
	{domainreviews.ErrFeedbackRequired, http.StatusBadRequest},
	{rating.ErrOutOfRange, http.StatusBadRequest},
	{listingapp.ErrImageRequired, http.StatusBadRequest},
	{profileapp.ErrLogoRequired, http.StatusBadRequest},

	{listingapp.ErrStorageUnavailable, http.StatusServiceUnavailable},
	{profileapp.ErrStorageUnavailable, http.StatusServiceUnavailable},
}

func statusFor(err error) int {
	for _, entry := range statusByError {
		if errors.Is(err, entry.err) {
			return entry.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes the mapped status. Unmapped errors are logged and hidden from the client.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		}
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
