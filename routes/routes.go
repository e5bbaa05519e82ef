package routes

import (
	"submission-portal-api/controllers"
	"submission-portal-api/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers are the controllers mounted under /api.
type Handlers struct {
	Submissions *controllers.SubmissionController
	Listing     *controllers.ListingController
	Health      *controllers.HealthController
	// APILimit, when set, guards the whole /api group.
	APILimit gin.HandlerFunc
}

// Options configure the engine built by NewRouter.
type Options struct {
	Production     bool
	AllowedOrigins []string
	TrustedProxies []string
	Logger         *zap.Logger
}

// NewRouter builds the engine with the global middleware chain and routes.
func NewRouter(opts Options, h Handlers) (*gin.Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}

	router.Use(middleware.RequestLogger(logger))
	router.Use(gin.CustomRecovery(controllers.Recovery))
	router.Use(middleware.SecurityHeaders(opts.Production))
	router.Use(middleware.CORSMiddleware(opts.AllowedOrigins))

	SetupRoutes(router, h)
	return router, nil
}

func SetupRoutes(router *gin.Engine, h Handlers) {
	api := router.Group("/api")
	if h.APILimit != nil {
		api.Use(h.APILimit)
	}
	{
		api.GET("/health", h.Health.Health)

		// Submissions
		api.GET("/submissions", h.Listing.List)
		api.POST("/submit", h.Submissions.Submit)
	}

	router.NoRoute(controllers.NotFound)
	router.NoMethod(controllers.MethodNotAllowed)
}
