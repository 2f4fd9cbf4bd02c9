package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Shimmy1219/gacha-web-sub003/internal/api"
	"github.com/Shimmy1219/gacha-web-sub003/internal/auth"
	"github.com/Shimmy1219/gacha-web-sub003/internal/config"
	"github.com/Shimmy1219/gacha-web-sub003/internal/database"
	"github.com/Shimmy1219/gacha-web-sub003/internal/discord"
	redisclient "github.com/Shimmy1219/gacha-web-sub003/internal/redis"
	"github.com/Shimmy1219/gacha-web-sub003/internal/service"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// --- Infrastructure ---

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	rdb, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	tokenSvc := auth.NewTokenService(cfg.JWTSecret)
	discordClient := discord.NewClient(cfg.DiscordBotToken, logger)

	// --- Repositories & services ---

	resolutions := database.NewGiftResolutionRepository(pool)
	giftSvc := service.NewGiftService(discordClient, rdb, resolutions, cfg.DiscordBotToken, cfg.BotUserID, logger)

	deps := &api.Dependencies{
		Gifts:        api.NewGiftHandler(giftSvc, cfg.GiftCategoryID),
		TokenService: tokenSvc,
		Redis:        rdb,
	}

	// --- Echo ---

	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.SetupRouter(e, deps)

	// --- Start ---

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("gachaweb starting on %s", cfg.ServerAddr)
		if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("shutting down...")
	if err := e.Shutdown(context.Background()); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
