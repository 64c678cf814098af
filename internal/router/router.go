package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ruthikN/foodie-die/internal/api"
	"github.com/ruthikN/foodie-die/internal/middleware"
)

// SetupRouter configures the application routes. The rate limiter is
// optional; pass nil when Redis is unavailable.
func SetupRouter(analysisHandler *api.AnalysisHandler, rateLimiter *middleware.RateLimiter, healthCheck func() error) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.CORS())

	router.GET("/health", func(c *gin.Context) {
		if healthCheck != nil {
			if err := healthCheck(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	v1 := router.Group("/api/v1")
	if rateLimiter != nil {
		v1.Use(rateLimiter.RateLimitMiddleware())
	}
	analysisHandler.RegisterRoutes(v1)

	return router
}
