// Package api provides HTTP routing and server configuration for Parkgate.
// It wires together handlers, middleware, and services to create the
// application's API endpoints.
package api

import (
	"net/http"

	"github.com/dogparkjp/parkgate/internal/api/handlers"
	"github.com/dogparkjp/parkgate/internal/api/middleware"
	"github.com/dogparkjp/parkgate/internal/config"
	"github.com/dogparkjp/parkgate/internal/database"
	"github.com/dogparkjp/parkgate/internal/service"
	"github.com/dogparkjp/parkgate/internal/ttlock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *database.Database, logger *zap.Logger) *gin.Engine {
	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.CORSMiddleware(cfg))

	// Initialize services
	accessChecker := service.NewDatabaseAccessChecker(db)
	stats := service.NewDatabaseStats(db)
	eligibility := service.NewEligibilityService(db, accessChecker)
	vendor := ttlock.NewClient(&cfg.TTLock)
	pinService := service.NewPinService(db, eligibility, vendor, stats, cfg, logger)
	accessLogService := service.NewAccessLogService(db, stats, logger)

	// Initialize handlers
	pinHandler := handlers.NewPinHandler(pinService, logger)
	webhookHandler := handlers.NewWebhookHandler(accessLogService, logger)
	lockHandler := handlers.NewLockHandler(db, stats, logger)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes
	public := router.Group("/api/v1")
	{
		// Lock keypads verify PINs without a user session
		public.POST("/pins/verify", pinHandler.VerifyPin)

		// Vendor webhook, guarded by signature verification when configured
		public.POST("/webhooks/ttlock", middleware.WebhookSignatureMiddleware(cfg), webhookHandler.HandleTTLockEvent)
	}

	// Protected routes (require authentication)
	protected := router.Group("/api/v1")
	protected.Use(middleware.AuthMiddleware(cfg))
	{
		// PINs
		protected.POST("/pins", pinHandler.IssuePin)

		// Parks
		protected.GET("/parks/:id/occupancy", lockHandler.GetParkOccupancy)

		// Lock administration
		admin := protected.Group("/locks")
		admin.Use(middleware.RequireRole("admin"))
		{
			admin.GET("", lockHandler.ListLocks)
			admin.POST("", lockHandler.CreateLock)
			admin.PUT("/:id/enabled", lockHandler.SetLockEnabled)
		}
	}

	return router
}
