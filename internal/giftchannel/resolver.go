package giftchannel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Shimmy1219/gacha-web-sub003/internal/discord"
	"github.com/Shimmy1219/gacha-web-sub003/internal/models"
	"github.com/Shimmy1219/gacha-web-sub003/internal/permissions"
)

// API is the Discord surface the resolver depends on. *discord.Client
// satisfies it; tests substitute a mock.
type API interface {
	ContextAPI
	GuildChannels(ctx context.Context, guildID string) ([]models.Channel, error)
	PutChannelPermission(ctx context.Context, channelID, overwriteID string, overwriteType int, allow, deny permissions.Bits) error
	CreateGuildChannel(ctx context.Context, guildID string, req discord.CreateChannelRequest) (*models.Channel, error)
}

// Params is the call contract for one resolution.
type Params struct {
	GuildID             string
	OwnerID             string
	MemberID            string
	BotUserID           string
	CategoryID          string
	ExpectedDisplayName string
	AllowCreate         bool
}

// Outcome names the terminal state a resolution reached.
type Outcome string

const (
	OutcomeExisting   Outcome = "existing"
	OutcomeGrantedBot Outcome = "granted_bot"
	OutcomeAdopted    Outcome = "adopted"
	OutcomeCreated    Outcome = "created"
	OutcomeNotFound   Outcome = "not_found"
)

// Result is the terminal state of one resolve call. ChannelID is empty only
// for OutcomeNotFound (creation disallowed by the caller).
type Result struct {
	ChannelID   string  `json:"channelId"`
	Created     bool    `json:"created"`
	ParentID    string  `json:"parentId,omitempty"`
	ChannelName string  `json:"channelName,omitempty"`
	Outcome     Outcome `json:"outcome"`
}

// Resolver locates, repairs, adopts, or creates the private gift channel for
// one owner/member pair. It holds no state of its own: every resolution is
// derived from the guild's current Discord-side state, which makes repeated
// calls converge (a granted or adopted channel classifies as StandardWithBot
// on the next pass).
type Resolver struct {
	api API
	log *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(api API, log *slog.Logger) *Resolver {
	return &Resolver{api: api, log: log}
}

// Resolve walks the state machine: list channels, classify each, then perform
// at most one mutating call.
//
//	Searching -> FoundWithBotAccess  return as-is
//	          -> FoundNeedsGrant     grant the bot view/send/history, return
//	          -> FoundAdoptable      grant the member the same bits, return
//	          -> NotFound            create (or report not_found if disallowed)
func (r *Resolver) Resolve(ctx context.Context, p Params) (*Result, error) {
	channels, err := r.api.GuildChannels(ctx, p.GuildID)
	if err != nil {
		return nil, fmt.Errorf("listing guild channels: %w", err)
	}

	// Degraded (nil) context is fine: classification falls back to explicit
	// overwrites only.
	var pctx *permissions.Context
	if p.BotUserID != "" {
		pctx = ResolvePermissionContext(ctx, r.api, p.GuildID, p.BotUserID, r.log)
	}

	expectedName := BuildExpectedName(p.ExpectedDisplayName, p.MemberID)
	in := EvaluateInput{
		GuildID:       p.GuildID,
		OwnerID:       p.OwnerID,
		MemberID:      p.MemberID,
		BotIDs:        botIDSet(p.BotUserID),
		CategoryID:    p.CategoryID,
		ExpectedNames: CollectLegacyCandidates(p.MemberID, p.ExpectedDisplayName, expectedName),
		BotContext:    pctx,
	}

	var withBot, withoutBot, adoptable []Evaluation
	for _, ch := range channels {
		ev := EvaluateForResolve(ch, in)
		switch ev.Kind {
		case StandardWithBot:
			withBot = append(withBot, ev)
		case StandardWithoutBot:
			withoutBot = append(withoutBot, ev)
		case OwnerBotOnlyAdoptable:
			adoptable = append(adoptable, ev)
		}
	}

	if len(withBot) > 0 {
		ev := withBot[0]
		return &Result{ChannelID: ev.ChannelID, ParentID: ev.ParentID, ChannelName: ev.ChannelName, Outcome: OutcomeExisting}, nil
	}

	if len(withoutBot) > 0 {
		ev := withoutBot[0]
		outcome := OutcomeExisting
		if p.BotUserID != "" {
			if err := r.grant(ctx, ev.ChannelID, p.BotUserID); err != nil {
				return nil, fmt.Errorf("granting bot access on %s: %w", ev.ChannelID, err)
			}
			r.log.Info("granted bot access to gift channel",
				"guild_id", p.GuildID, "channel_id", ev.ChannelID, "member_id", p.MemberID)
			outcome = OutcomeGrantedBot
		}
		return &Result{ChannelID: ev.ChannelID, ParentID: ev.ParentID, ChannelName: ev.ChannelName, Outcome: outcome}, nil
	}

	switch len(adoptable) {
	case 0:
	case 1:
		ev := adoptable[0]
		if err := r.grant(ctx, ev.ChannelID, p.MemberID); err != nil {
			return nil, fmt.Errorf("adopting channel %s for member %s: %w", ev.ChannelID, p.MemberID, err)
		}
		r.log.Info("adopted owner-bot channel for member",
			"guild_id", p.GuildID, "channel_id", ev.ChannelID, "member_id", p.MemberID)
		return &Result{ChannelID: ev.ChannelID, ParentID: ev.ParentID, ChannelName: ev.ChannelName, Outcome: OutcomeAdopted}, nil
	default:
		// Never guess between adoption targets: granting access on the wrong
		// channel leaks someone else's gift history. Fall through to creation.
		ids := make([]string, len(adoptable))
		for i, ev := range adoptable {
			ids[i] = ev.ChannelID
		}
		r.log.Warn("ambiguous adoptable gift channels, falling through to creation",
			"guild_id", p.GuildID, "member_id", p.MemberID, "channel_ids", ids)
	}

	if !p.AllowCreate {
		return &Result{Outcome: OutcomeNotFound}, nil
	}
	return r.create(ctx, p, expectedName)
}

// grant upserts the standard gift-channel permission set for one member.
// PUT on a fixed (channel, subject) pair is idempotent and safe to retry.
func (r *Resolver) grant(ctx context.Context, channelID, userID string) error {
	return r.api.PutChannelPermission(ctx, channelID, userID,
		discord.OverwriteTypeMember, permissions.GiftChannelGrant, 0)
}

func (r *Resolver) create(ctx context.Context, p Params, name string) (*Result, error) {
	overwrites := []discord.CreateOverwrite{
		{ID: p.GuildID, Type: discord.OverwriteTypeRole, Deny: permissions.ViewChannel.String()},
		{ID: p.OwnerID, Type: discord.OverwriteTypeMember, Allow: permissions.GiftChannelGrant.String()},
		{ID: p.MemberID, Type: discord.OverwriteTypeMember, Allow: permissions.GiftChannelGrant.String()},
	}
	if p.BotUserID != "" {
		overwrites = append(overwrites, discord.CreateOverwrite{
			ID: p.BotUserID, Type: discord.OverwriteTypeMember, Allow: permissions.GiftChannelGrant.String(),
		})
	}

	ch, err := r.api.CreateGuildChannel(ctx, p.GuildID, discord.CreateChannelRequest{
		Name:       name,
		Type:       models.ChannelTypeText,
		ParentID:   p.CategoryID,
		Overwrites: overwrites,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gift channel: %w", err)
	}

	r.log.Info("created gift channel",
		"guild_id", p.GuildID, "channel_id", ch.ID, "member_id", p.MemberID, "name", ch.Name)
	return &Result{
		ChannelID:   ch.ID,
		Created:     true,
		ParentID:    ch.Parent(),
		ChannelName: ch.Name,
		Outcome:     OutcomeCreated,
	}, nil
}

func botIDSet(botUserID string) map[string]bool {
	if botUserID == "" {
		return nil
	}
	return map[string]bool{botUserID: true}
}
