package giftchannel

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Shimmy1219/gacha-web-sub003/internal/models"
	"github.com/Shimmy1219/gacha-web-sub003/internal/permissions"
)

// ContextAPI is the slice of the Discord client the context resolver needs.
type ContextAPI interface {
	GuildMember(ctx context.Context, guildID, userID string) (*models.GuildMember, error)
	GuildRoles(ctx context.Context, guildID string) ([]models.Role, error)
}

// ResolvePermissionContext fetches the bot's guild membership and the guild
// role table concurrently and computes the bot's base permission bitmask.
// Nothing is cached here; callers decide whether to memoize per request.
//
// Any fetch or parse failure degrades to a nil context rather than an error:
// downstream access checks then fall back to the overwrite-only heuristic.
func ResolvePermissionContext(ctx context.Context, api ContextAPI, guildID, botUserID string, log *slog.Logger) *permissions.Context {
	var (
		member *models.GuildMember
		roles  []models.Role
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := api.GuildMember(gctx, guildID, botUserID)
		member = m
		return err
	})
	g.Go(func() error {
		r, err := api.GuildRoles(gctx, guildID)
		roles = r
		return err
	})
	if err := g.Wait(); err != nil {
		log.Debug("permission context unavailable, degrading to overwrite-only checks",
			"guild_id", guildID, "bot_user_id", botUserID, "error", err)
		return nil
	}
	if member == nil || len(roles) == 0 {
		return nil
	}

	roleIDs := make(map[string]bool, len(member.Roles))
	for _, id := range member.Roles {
		roleIDs[id] = true
	}

	return &permissions.Context{
		UserID:  botUserID,
		GuildID: guildID,
		RoleIDs: roleIDs,
		Base:    permissions.ComputeBase(guildID, roles, member.Roles),
	}
}
