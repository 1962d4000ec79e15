package server

import (
	"github.com/gin-gonic/gin"

	"github.com/pozitronik/viscrapper/config"
	"github.com/pozitronik/viscrapper/internal/types"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger types.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(RateLimitMiddleware(cfg.Server.RatePerClient, cfg.Server.RateBurst))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/extract", handler.Extract)

		products := v1.Group("/products")
		{
			products.GET("/:sku", handler.GetRecord)
			products.POST("", handler.SubmitRecord)
		}
	}

	return router
}
