package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/allisson/fieldcrypt/internal/config"
)

// publicRoutes are the /v1 routes browsers may call cross-origin. Admin routes carry
// the admin token and never answer CORS requests.
var publicRoutes = []string{
	"/users",
	"/users/:id",
	"/users/:id/providers",
	"/invitations",
	"/invitations/accept",
}

// newPublicCORSMiddleware returns the CORS middleware of the public routes, or nil when
// CORS is disabled or CORS_ALLOW_ORIGINS holds no usable origin.
//
// Public routes take tenant ids in the query and JSON bodies, so only Content-Type is
// accepted and no credentials are shared. Retry-After is exposed for rate limited writes.
func newPublicCORSMiddleware(cfg *config.Config, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.CORSEnabled {
		return nil
	}

	origins := splitOrigins(cfg.CORSAllowOrigins)
	if len(origins) == 0 {
		logger.Warn("CORS enabled but CORS_ALLOW_ORIGINS is empty, cross-origin requests are refused")
		return nil
	}

	corsConfig := cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost},
		AllowHeaders:  []string{"Content-Type"},
		ExposeHeaders: []string{"X-Request-Id", "Retry-After"},
		MaxAge:        time.Hour,
	}
	if err := corsConfig.Validate(); err != nil {
		logger.Error("invalid CORS_ALLOW_ORIGINS, cross-origin requests are refused", slog.Any("error", err))
		return nil
	}

	logger.Info("CORS enabled for public routes", slog.Any("origins", origins))
	return cors.New(corsConfig)
}

// registerPreflight answers OPTIONS on every public route so preflight requests reach
// the CORS middleware instead of a 404.
func registerPreflight(group *gin.RouterGroup) {
	for _, path := range publicRoutes {
		group.OPTIONS(path, func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
	}
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, part := range strings.Split(raw, ",") {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
