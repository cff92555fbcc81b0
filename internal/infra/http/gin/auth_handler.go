package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"deskrent/internal/app/commands"
	"deskrent/internal/app/dto"
	userapp "deskrent/internal/app/handlers/users"
	authsvc "deskrent/internal/app/services/auth"
)

type AuthHandler struct {
	Service *authsvc.Service
	Logger  *slog.Logger
}

type registerRequest struct {
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	Profession  string `json:"profession"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
	AccountType string `json:"account_type"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h AuthHandler) Register(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth service unavailable"})
		return
	}
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	result, err := h.Service.Register(c.Request.Context(), authsvc.RegisterParams{
		Email:       req.Email,
		FullName:    req.FullName,
		Profession:  req.Profession,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		AccountType: req.AccountType,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewAuthResponse(result.User, result.Token))
}

func (h AuthHandler) Login(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth service unavailable"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	result, err := h.Service.Login(c.Request.Context(), authsvc.LoginParams{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAuthResponse(result.User, result.Token))
}

func (h AuthHandler) Me(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.MapUserProfile(p.User))
}

// AccountHandler serves the signed-in user's own account settings.
type AccountHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type switchAccountTypeRequest struct {
	AccountType string `json:"account_type"`
}

func (h AccountHandler) SwitchAccountType(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req switchAccountTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	cmd := userapp.SwitchAccountTypeCommand{ActorID: p.ID, AccountType: req.AccountType}
	profile, err := commands.Dispatch[userapp.SwitchAccountTypeCommand, dto.UserProfile](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

var (
	_ AuthHTTP    = AuthHandler{}
	_ AccountHTTP = AccountHandler{}
)
