package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	DatabaseURL     string
	RedisURL        string
	JWTSecret       string
	ServerAddr      string
	LogLevel        slog.Level
	DiscordBotToken string
	// BotUserID pins the bot identity; when empty it is discovered via the
	// identity cache and /users/@me.
	BotUserID string
	// GiftCategoryID is the default parent category for gift channels when a
	// request does not name one.
	GiftCategoryID string
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        envOrDefault("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		ServerAddr:      envOrDefault("SERVER_ADDR", ":8080"),
		LogLevel:        parseLogLevel(os.Getenv("LOG_LEVEL")),
		DiscordBotToken: os.Getenv("DISCORD_BOT_TOKEN"),
		BotUserID:       os.Getenv("DISCORD_BOT_USER_ID"),
		GiftCategoryID:  os.Getenv("GIFT_CATEGORY_ID"),
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.DiscordBotToken == "" {
		missing = append(missing, "DISCORD_BOT_TOKEN")
	}
	if len(missing) > 0 {
		panic(fmt.Sprintf("required environment variables not set: %s", strings.Join(missing, ", ")))
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
