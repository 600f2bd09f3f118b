package http

import (
	"github.com/gin-gonic/gin"

	"github.com/substifinder/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		iterations := v1.Group("/iterations")
		{
			iterations.GET("/:n", handler.GetIteration)
			iterations.GET("/:n/candidates", handler.GetCandidates)
			iterations.POST("/:n/substitutes", handler.SaveSubstitutes)
		}

		v1.POST("/search", handler.ManualSearch)
		v1.GET("/progress", handler.GetProgress)
	}

	return router
}
