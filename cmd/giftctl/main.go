package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/Shimmy1219/gacha-web-sub003/internal/discord"
	"github.com/Shimmy1219/gacha-web-sub003/internal/giftchannel"
)

// Set via -ldflags at build time.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "migrate":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: giftctl migrate")
			fmt.Println()
			fmt.Println("Run database migrations from the migrations/ directory.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  DATABASE_URL  PostgreSQL connection string (required)")
			return
		}
		os.Exit(runMigrate())
	case "audit":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: giftctl audit <guild-id> <owner-id> [member-id...]")
			fmt.Println()
			fmt.Println("Scan a guild's channels and print each gift-channel evaluation as JSON.")
			fmt.Println("With member ids, only matching candidates for those members are printed.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  DISCORD_BOT_TOKEN  Bot token (required)")
			return
		}
		os.Exit(runAudit(os.Args[2:]))
	case "health":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: giftctl health")
			fmt.Println()
			fmt.Println("Check if the gachaweb server is running.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  SERVER_URL  Server base URL (default: http://localhost:8080)")
			return
		}
		os.Exit(runHealth())
	case "version":
		fmt.Printf("giftctl %s\n", version)
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: giftctl <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate  Run database migrations")
	fmt.Println("  audit    Scan a guild for gift channels and print evaluations")
	fmt.Println("  health   Check if the server is running")
	fmt.Println("  version  Print version info")
	fmt.Println()
	fmt.Println("Run 'giftctl <command> --help' for details on a command.")
}

func hasFlag(flag string, args []string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		fmt.Fprintf(os.Stderr, "error: %s environment variable is required\n", key)
		os.Exit(1)
	}
	return v
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// --- migrate ---

func runMigrate() int {
	dbURL := requireEnv("DATABASE_URL")

	fmt.Println("connecting to database...")
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: migration init failed: %v\n", err)
		return 1
	}
	defer m.Close()

	fmt.Println("running migrations...")
	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		fmt.Fprintf(os.Stderr, "error: migration failed: %v\n", upErr)
		return 1
	}

	v, dirty, _ := m.Version()
	if upErr == migrate.ErrNoChange {
		fmt.Printf("no new migrations (current version: %d)\n", v)
	} else {
		fmt.Printf("migrations applied (version: %d, dirty: %v)\n", v, dirty)
	}
	return 0
}

// --- audit ---

func runAudit(args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "error: guild id and owner id are required")
		fmt.Fprintln(os.Stderr, "usage: giftctl audit <guild-id> <owner-id> [member-id...]")
		return 1
	}
	guildID, ownerID := args[0], args[1]
	memberIDs := args[2:]

	token := requireEnv("DISCORD_BOT_TOKEN")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client := discord.NewClient(token, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	botIDs := map[string]bool{}
	if me, err := client.CurrentUser(ctx); err == nil {
		botIDs[me.ID] = true
	} else {
		fmt.Fprintf(os.Stderr, "warning: bot identity lookup failed: %v\n", err)
	}

	channels, err := client.GuildChannels(ctx, guildID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: listing channels: %v\n", err)
		return 1
	}

	var evals []giftchannel.Evaluation
	if len(memberIDs) > 0 {
		filter := make(map[string]bool, len(memberIDs))
		for _, id := range memberIDs {
			filter[id] = true
		}
		evals = giftchannel.ExtractGiftChannelCandidates(channels, guildID, ownerID, botIDs, filter)
	} else {
		evals = giftchannel.EvaluateAll(channels, guildID, ownerID, botIDs)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(evals); err != nil {
		fmt.Fprintf(os.Stderr, "error: encoding output: %v\n", err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "%d channels scanned, %d evaluations printed\n", len(channels), len(evals))
	return 0
}

// --- health ---

func runHealth() int {
	serverURL := envOr("SERVER_URL", "http://localhost:8080")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: server unreachable: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "error: server unhealthy (status %d): %s\n", resp.StatusCode, body)
		return 1
	}
	fmt.Printf("server healthy: %s\n", body)
	return 0
}
