package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/harborai/beacon/internal/delivery/http/middleware"
	"github.com/harborai/beacon/internal/query"
	"github.com/harborai/beacon/internal/usecase"
)

// RouterDeps bundles everything the router needs.
type RouterDeps struct {
	SubmitUC        *usecase.SubmitJobUsecase
	QueryService    *query.Service
	Logger          *zap.Logger
	RateLimitPerMin int
	MaxPayloadBytes int64
}

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(deps *RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))

	// Metrics endpoint (no rate limiting)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Health check (no rate limiting)
		healthHandler := NewHealthHandler(deps.Logger)
		v1.GET("/health", healthHandler.Health)

		// Progress lookups: cheap point reads, polled aggressively, so they
		// stay outside the submission rate limit.
		progressHandler := NewProgressHandler(deps.QueryService, deps.Logger)
		v1.GET("/progress", progressHandler.Get)

		// WebSocket for real-time updates
		wsHandler := NewWebSocketHandler(deps.QueryService, deps.Logger)
		v1.GET("/jobs/:key/stream", wsHandler.Stream)

		// Submissions (with rate limiting and body size limit)
		jobHandler := NewJobHandler(deps.SubmitUC, deps.Logger)
		v1.POST("/jobs",
			middleware.RateLimiter(deps.RateLimitPerMin),
			middleware.MaxBody(deps.MaxPayloadBytes),
			jobHandler.Submit,
		)
	}

	return router
}
