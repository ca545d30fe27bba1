// Package server configures the HTTP server and routes.
package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/drakeRAGE/movie-recommendation-app/internal/config"
	"github.com/drakeRAGE/movie-recommendation-app/internal/handler"
	"github.com/drakeRAGE/movie-recommendation-app/internal/middleware"
	"github.com/drakeRAGE/movie-recommendation-app/internal/storage"
)

// Deps holds what the routes need beyond configuration.
type Deps struct {
	Recommender handler.Recommender
	Calls       storage.CallRepository
}

// RegisterRoutes sets up all HTTP routes on the Gin engine.
// In Go, we pass dependencies explicitly: no DI container, no magic.
// Each handler gets exactly the dependencies it needs.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps, logger *zap.Logger) {
	healthHandler := handler.NewHealthHandler(cfg.LLM.Provider)
	recommendHandler := handler.NewRecommendHandler(deps.Recommender, deps.Calls, logger)
	adminHandler := handler.NewAdminHandler(deps.Calls, logger)

	// Public endpoints (no auth)
	r.GET("/healthz", healthHandler.Healthz)

	// CORS middleware applies to the entire API group.
	api := r.Group("/api/v1")
	api.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Authenticated API endpoints. Rate limiting runs after auth so it can
	// key on the API key.
	authed := api.Group("")
	authed.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	authed.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	{
		authed.POST("/recommend", recommendHandler.Recommend)
	}

	// Admin endpoints (separate auth with admin keys)
	admin := api.Group("/admin")
	admin.Use(middleware.AdminKeyAuth(cfg.Auth.AdminKeys))
	{
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/calls", adminHandler.Recent)
		admin.GET("/calls/:request_id", adminHandler.Call)
	}
}
