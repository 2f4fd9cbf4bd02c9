package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Shimmy1219/gacha-web-sub003/internal/database"
	"github.com/Shimmy1219/gacha-web-sub003/internal/giftchannel"
	"github.com/Shimmy1219/gacha-web-sub003/internal/models"
)

// IdentityCache caches the bot user id resolved for a token. It is injected
// explicitly (rather than living in package state) so a token change
// invalidates naturally and tests can substitute their own.
type IdentityCache interface {
	GetBotIdentity(ctx context.Context, token string) (string, error)
	SetBotIdentity(ctx context.Context, token, botUserID string) error
}

// giftAPI is the Discord surface the service needs beyond the resolver's.
type giftAPI interface {
	giftchannel.API
	CurrentUser(ctx context.Context) (*models.User, error)
}

// ResolveRequest is the inbound contract for one gift-channel resolution.
type ResolveRequest struct {
	GuildID             string
	OwnerID             string
	MemberID            string
	CategoryID          string
	ExpectedDisplayName string
	AllowCreate         bool
}

// GiftService orchestrates gift-channel resolution: bot identity discovery,
// the resolver itself, and audit recording.
type GiftService struct {
	api         giftAPI
	resolver    *giftchannel.Resolver
	identity    IdentityCache
	resolutions database.GiftResolutionRepository
	botToken    string
	botUserID   string
	log         *slog.Logger
}

// NewGiftService creates a GiftService. botUserID may be empty, in which case
// the identity is discovered through the cache and /users/@me. resolutions
// may be nil to disable audit recording.
func NewGiftService(api giftAPI, identity IdentityCache, resolutions database.GiftResolutionRepository, botToken, botUserID string, log *slog.Logger) *GiftService {
	return &GiftService{
		api:         api,
		resolver:    giftchannel.NewResolver(api, log),
		identity:    identity,
		resolutions: resolutions,
		botToken:    botToken,
		botUserID:   botUserID,
		log:         log,
	}
}

// Resolve runs one resolution and records its outcome.
func (s *GiftService) Resolve(ctx context.Context, req ResolveRequest) (*giftchannel.Result, error) {
	if req.GuildID == "" || req.OwnerID == "" || req.MemberID == "" {
		return nil, BadRequest("MISSING_IDS", "guildId, ownerId and memberId are required")
	}

	res, err := s.resolver.Resolve(ctx, giftchannel.Params{
		GuildID:             req.GuildID,
		OwnerID:             req.OwnerID,
		MemberID:            req.MemberID,
		BotUserID:           s.resolveBotID(ctx),
		CategoryID:          req.CategoryID,
		ExpectedDisplayName: req.ExpectedDisplayName,
		AllowCreate:         req.AllowCreate,
	})
	if err != nil {
		s.log.Error("gift channel resolution failed",
			"guild_id", req.GuildID, "member_id", req.MemberID, "error", err)
		return nil, FromDiscordError(err)
	}

	s.record(ctx, req, res)
	return res, nil
}

// Audit scans the guild's channels and classifies each one. With a member
// filter only matching candidates return; without one, every evaluation
// (including skip diagnostics) returns.
func (s *GiftService) Audit(ctx context.Context, guildID, ownerID string, memberIDs []string) ([]giftchannel.Evaluation, error) {
	if guildID == "" || ownerID == "" {
		return nil, BadRequest("MISSING_IDS", "guildId and ownerId are required")
	}

	channels, err := s.api.GuildChannels(ctx, guildID)
	if err != nil {
		return nil, FromDiscordError(err)
	}

	botIDs := map[string]bool{}
	if id := s.resolveBotID(ctx); id != "" {
		botIDs[id] = true
	}

	if len(memberIDs) > 0 {
		filter := make(map[string]bool, len(memberIDs))
		for _, id := range memberIDs {
			filter[id] = true
		}
		return giftchannel.ExtractGiftChannelCandidates(channels, guildID, ownerID, botIDs, filter), nil
	}
	return giftchannel.EvaluateAll(channels, guildID, ownerID, botIDs), nil
}

// History returns recent resolution audit records for a guild.
func (s *GiftService) History(ctx context.Context, guildID string, limit int) ([]models.GiftResolution, error) {
	if s.resolutions == nil {
		return nil, nil
	}
	records, err := s.resolutions.GetByGuild(ctx, guildID, limit)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	return records, nil
}

// resolveBotID returns the bot's user id: the configured id, the cached
// discovery, or a live /users/@me lookup. An empty id degrades resolution
// (no bot overwrite on created channels) rather than failing it.
func (s *GiftService) resolveBotID(ctx context.Context) string {
	if s.botUserID != "" {
		return s.botUserID
	}
	if s.identity != nil {
		if id, err := s.identity.GetBotIdentity(ctx, s.botToken); err == nil && id != "" {
			return id
		}
	}
	u, err := s.api.CurrentUser(ctx)
	if err != nil {
		s.log.Warn("bot identity lookup failed", "error", err)
		return ""
	}
	if s.identity != nil {
		if err := s.identity.SetBotIdentity(ctx, s.botToken, u.ID); err != nil {
			s.log.Warn("caching bot identity failed", "error", err)
		}
	}
	return u.ID
}

func (s *GiftService) record(ctx context.Context, req ResolveRequest, res *giftchannel.Result) {
	if s.resolutions == nil {
		return
	}
	err := s.resolutions.Record(ctx, &models.GiftResolution{
		GuildID:   req.GuildID,
		OwnerID:   req.OwnerID,
		MemberID:  req.MemberID,
		ChannelID: res.ChannelID,
		Outcome:   string(res.Outcome),
		Created:   res.Created,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("recording gift resolution failed",
			"guild_id", req.GuildID, "member_id", req.MemberID, "error", err)
	}
}
