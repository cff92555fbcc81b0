package ginserver

import (
	"bytes"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"deskrent/internal/app/commands"
	"deskrent/internal/app/dto"
	profileapp "deskrent/internal/app/handlers/profiles"
	ratingapp "deskrent/internal/app/handlers/ratings"
	reviewapp "deskrent/internal/app/handlers/reviews"
	"deskrent/internal/app/queries"
	domainprofiles "deskrent/internal/domain/profiles"
)

type ProfileHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type profileRequest struct {
	BusinessName  string `json:"business_name"`
	Location      string `json:"location"`
	Workspace     string `json:"workspace"`
	Website       string `json:"business_website"`
	Description   string `json:"description"`
	BusinessEmail string `json:"business_email"`
	PhoneNumber   string `json:"phone_number"`
}

type profilePatchRequest struct {
	BusinessName  *string `json:"business_name"`
	Location      *string `json:"location"`
	Workspace     *string `json:"workspace"`
	Website       *string `json:"business_website"`
	Description   *string `json:"description"`
	BusinessEmail *string `json:"business_email"`
	PhoneNumber   *string `json:"phone_number"`
}

func (h ProfileHandler) Create(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	cmd := profileapp.CreateProfileCommand{
		ActorID: p.ID,
		Details: domainprofiles.Details{
			BusinessName:  req.BusinessName,
			Location:      req.Location,
			Workspace:     req.Workspace,
			Website:       req.Website,
			Description:   req.Description,
			BusinessEmail: req.BusinessEmail,
			PhoneNumber:   req.PhoneNumber,
		},
	}
	profile, err := commands.Dispatch[profileapp.CreateProfileCommand, dto.BusinessProfile](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Header("Location", "/api/v1/profiles/"+profile.ID)
	c.JSON(http.StatusCreated, profile)
}

func (h ProfileHandler) GetMine(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	profile, err := queries.Ask[profileapp.GetMyProfileQuery, dto.BusinessProfile](c.Request.Context(), h.Queries, profileapp.GetMyProfileQuery{UserID: p.ID})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h ProfileHandler) UpdateMine(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req profilePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	cmd := profileapp.UpdateProfileCommand{
		ActorID: p.ID,
		Changes: domainprofiles.UpdateParams{
			BusinessName:  req.BusinessName,
			Location:      req.Location,
			Workspace:     req.Workspace,
			Website:       req.Website,
			Description:   req.Description,
			BusinessEmail: req.BusinessEmail,
			PhoneNumber:   req.PhoneNumber,
		},
	}
	profile, err := commands.Dispatch[profileapp.UpdateProfileCommand, dto.BusinessProfile](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h ProfileHandler) UploadLogo(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	upload, err := readImageUpload(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := profileapp.UploadProfileLogoCommand{
		ActorID:     p.ID,
		FileName:    upload.FileName,
		ContentType: upload.ContentType,
		Reader:      bytes.NewReader(upload.Data),
	}
	profile, err := commands.Dispatch[profileapp.UploadProfileLogoCommand, dto.BusinessProfile](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h ProfileHandler) Get(c *gin.Context) {
	profile, err := queries.Ask[profileapp.GetProfileQuery, dto.BusinessProfile](c.Request.Context(), h.Queries, profileapp.GetProfileQuery{ProfileID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h ProfileHandler) Rating(c *gin.Context) {
	result, err := queries.Ask[ratingapp.GetProfileRatingQuery, dto.Rating](c.Request.Context(), h.Queries, ratingapp.GetProfileRatingQuery{ProfileID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ProfileHandler) Reviews(c *gin.Context) {
	query := reviewapp.ListProfileReviewsQuery{
		ProfileID: c.Param("id"),
		Limit:     parsePositiveInt(c.Query("limit"), 20),
		Offset:    parsePositiveInt(c.Query("offset"), 0),
	}
	result, err := queries.Ask[reviewapp.ListProfileReviewsQuery, dto.ReviewCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ProfileHTTP = ProfileHandler{}
