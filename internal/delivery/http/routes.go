package http

import (
	"net/http"

	"github.com/allergenai/backend/config"
	"github.com/gin-gonic/gin"
)

// RouterDeps carries the optional collaborators of the router
type RouterDeps struct {
	Metrics        RequestObserver
	MetricsHandler http.Handler
}

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, deps RouterDeps) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	if deps.Metrics != nil {
		router.Use(MetricsMiddleware(deps.Metrics))
	}

	router.GET("/health", handler.HealthCheck)
	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	v1 := router.Group("/api/v1")
	if cfg.RateLimit.PerIP > 0 {
		v1.Use(RateLimitMiddleware(NewIPRateLimiter(cfg.RateLimit.PerIP)))
	}
	{
		products := v1.Group("/products")
		{
			products.GET("/:code/:language", handler.GetProduct)
		}
	}

	return router
}
