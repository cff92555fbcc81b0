package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"deskrent/internal/infra/config"
	"deskrent/internal/infra/obs"
)

type AuthHTTP interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Me(c *gin.Context)
}

type AccountHTTP interface {
	SwitchAccountType(c *gin.Context)
}

type ProfileHTTP interface {
	Create(c *gin.Context)
	GetMine(c *gin.Context)
	UpdateMine(c *gin.Context)
	UploadLogo(c *gin.Context)
	Get(c *gin.Context)
	Rating(c *gin.Context)
	Reviews(c *gin.Context)
}

type ListingHTTP interface {
	Search(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	UploadImage(c *gin.Context)
	RemoveImage(c *gin.Context)
	Rating(c *gin.Context)
	Reviews(c *gin.Context)
	RentalRequests(c *gin.Context)
}

type RentalHTTP interface {
	Create(c *gin.Context)
	Mine(c *gin.Context)
	UpdateStatus(c *gin.Context)
	Review(c *gin.Context)
}

type Handlers struct {
	Auth           AuthHTTP
	Account        AccountHTTP
	Profile        ProfileHTTP
	Listing        ListingHTTP
	Rental         RentalHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the engine without touching the global gin mode.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(obsMW.RequestID())
	router.Use(obsMW.Recovery())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Account != nil {
		api.PATCH("/me/account-type", h.Account.SwitchAccountType)
	}
	if h.Profile != nil {
		profiles := api.Group("/profiles")
		profiles.POST("", h.Profile.Create)
		profiles.GET("/me", h.Profile.GetMine)
		profiles.PATCH("/me", h.Profile.UpdateMine)
		profiles.POST("/me/logo", h.Profile.UploadLogo)
		profiles.GET("/:id", h.Profile.Get)
		profiles.GET("/:id/rating", h.Profile.Rating)
		profiles.GET("/:id/reviews", h.Profile.Reviews)
	}
	if h.Listing != nil {
		listings := api.Group("/listings")
		listings.GET("", h.Listing.Search)
		listings.POST("", h.Listing.Create)
		listings.GET("/:id", h.Listing.Get)
		listings.PATCH("/:id", h.Listing.Update)
		listings.DELETE("/:id", h.Listing.Delete)
		listings.POST("/:id/images", h.Listing.UploadImage)
		listings.DELETE("/:id/images/:imageID", h.Listing.RemoveImage)
		listings.GET("/:id/rating", h.Listing.Rating)
		listings.GET("/:id/reviews", h.Listing.Reviews)
		listings.GET("/:id/rental-requests", h.Listing.RentalRequests)
	}
	if h.Rental != nil {
		rentals := api.Group("/rental-requests")
		rentals.POST("", h.Rental.Create)
		rentals.GET("/mine", h.Rental.Mine)
		rentals.PATCH("/:id/status", h.Rental.UpdateStatus)
		rentals.POST("/:id/review", h.Rental.Review)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
