package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/petalhub/ranking-engine/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Voting endpoints (voter identity comes from the verified JWT subject)
		v1.POST("/products/:id/votes", middleware.Auth(authCfg), handler.CastVote)
		v1.GET("/products/:id/votes/me", middleware.Auth(authCfg), handler.GetMyVote)

		// Rankings listing (public read access)
		v1.GET("/rankings", handler.GetRankings)

		// Maintenance endpoints (API key only; the sweep hook is what the
		// external scheduler calls)
		v1.POST("/rankings/recompute", middleware.APIKeyAuth(authCfg), handler.RecomputeRankings)
		v1.POST("/votes/sweep", middleware.APIKeyAuth(authCfg), handler.SweepVotes)
	}
}
