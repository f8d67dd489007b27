// Package http exposes the read-only grid API.
package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.ngs.io/climate-grid/internal/usecase"
)

// SetupRouter creates and configures the Gin router. An empty
// allowedOrigins list allows every origin.
func SetupRouter(query *usecase.GridQuery, allowedOrigins []string, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	// Create handler.
	handler := NewHandler(query)

	// API v1 routes.
	v1 := router.Group("/v1")
	grid := v1.Group("/grid")
	grid.GET("/cell", handler.GetCell)
	grid.GET("/value", handler.GetValue)
	grid.GET("/coverage", handler.GetCoverage)

	// Health check.
	router.GET("/health", handler.HealthCheck)

	// Metrics.
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return router
}
