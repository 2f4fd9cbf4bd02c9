package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Shimmy1219/gacha-web-sub003/internal/auth"
	"github.com/Shimmy1219/gacha-web-sub003/internal/redis"
)

// Dependencies holds all handler instances and middleware for route wiring.
type Dependencies struct {
	Gifts *GiftHandler

	TokenService *auth.TokenService
	Redis        *redis.Client
}

// SetupRouter registers all API routes on the Echo instance.
func SetupRouter(e *echo.Echo, deps *Dependencies) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	v1 := e.Group("/api/v1")

	// Protected routes require JWT auth plus a rate limit. The limiter keys on
	// route path, so the mutating resolve endpoint and the read-only audit
	// endpoints each get their own budget.
	authMw := deps.TokenService.Middleware()
	protected := v1.Group("", authMw,
		RateLimitMiddleware(deps.Redis, 30, time.Minute),
	)

	protected.POST("/guilds/:guildID/gift-channel", deps.Gifts.Resolve)
	protected.GET("/guilds/:guildID/gift-channels", deps.Gifts.Audit)
	protected.GET("/guilds/:guildID/gift-channels/history", deps.Gifts.History)
}
