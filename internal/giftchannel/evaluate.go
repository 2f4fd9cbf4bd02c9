package giftchannel

import (
	"github.com/Shimmy1219/gacha-web-sub003/internal/models"
	"github.com/Shimmy1219/gacha-web-sub003/internal/permissions"
)

// CandidateKind classifies a channel that can serve as, or be turned into,
// the gift channel for an owner/member pair.
type CandidateKind string

const (
	// StandardWithBot is a fully-formed gift channel the bot can already see.
	StandardWithBot CandidateKind = "standard_with_bot"
	// StandardWithoutBot is a gift channel missing only the bot's access.
	StandardWithoutBot CandidateKind = "standard_without_bot"
	// OwnerBotOnlyAdoptable is an owner+bot channel whose name designates the
	// member; granting the member access adopts it.
	OwnerBotOnlyAdoptable CandidateKind = "owner_bot_only_adoptable"
	// LegacyRepairCandidate is a channel matched by legacy naming for repair.
	LegacyRepairCandidate CandidateKind = "legacy_repair_candidate"
)

// SkipReason explains why a channel was not classified as a candidate.
type SkipReason string

const (
	SkipNotTextChannel        SkipReason = "not_text_channel"
	SkipNoOverwrites          SkipReason = "no_permission_overwrites"
	SkipOwnerOverwriteMissing SkipReason = "owner_overwrite_missing"
	SkipEveryoneViewNotDenied SkipReason = "everyone_view_not_denied"
	SkipOwnerViewNotAllowed   SkipReason = "owner_view_not_allowed"
	SkipMemberViewNotAllowed  SkipReason = "member_view_not_allowed"
	SkipNotTargetMember       SkipReason = "not_target_member"
	SkipExtraMemberOverwrites SkipReason = "extra_member_overwrites"
	SkipBotOverwriteMissing   SkipReason = "bot_overwrite_missing"
	SkipBotViewNotAllowed     SkipReason = "bot_view_not_allowed"
	SkipNameMismatch          SkipReason = "name_mismatch"
	SkipCategoryMismatch      SkipReason = "category_mismatch"
	SkipConflictingMembers    SkipReason = "conflicting_member_overwrites"
)

// Checks is the diagnostic record attached to every evaluation. It is part of
// the engine's contract, not incidental logging: callers and tests assert on
// individual fields.
type Checks struct {
	IsTextChannel                bool     `json:"isTextChannel"`
	HasOverwrites                bool     `json:"hasOverwrites"`
	OwnerOverwriteFound          bool     `json:"ownerOverwriteFound"`
	OwnerAllowsView              bool     `json:"ownerAllowsView"`
	EveryoneDeniesView           bool     `json:"everyoneDeniesView"`
	MemberOverwriteFound         bool     `json:"memberOverwriteFound"`
	MemberAllowsView             bool     `json:"memberAllowsView"`
	BotOverwriteFound            bool     `json:"botOverwriteFound"`
	BotAllowsView                bool     `json:"botAllowsView"`
	NonOwnerMemberIDs            []string `json:"nonOwnerMemberIds,omitempty"`
	ExtraMemberIDs               []string `json:"extraMemberIds,omitempty"`
	ConflictingExplicitMemberIDs []string `json:"conflictingExplicitMemberIds,omitempty"`
	CategoryMatched              *bool    `json:"categoryMatched,omitempty"`
	CanonicalName                string   `json:"canonicalName"`
	NameMatched                  bool     `json:"nameMatched"`
}

// Evaluation is the classification of one channel: either a candidate kind
// under "match" or a reason under "skip", always with the full Checks record.
type Evaluation struct {
	ChannelID   string        `json:"channelId"`
	ChannelName string        `json:"channelName"`
	ParentID    string        `json:"parentId,omitempty"`
	MemberID    string        `json:"memberId,omitempty"`
	Kind        CandidateKind `json:"match,omitempty"`
	Skip        SkipReason    `json:"skip,omitempty"`
	Checks      Checks        `json:"checks"`
}

// Matched reports whether the evaluation classified the channel as a candidate.
func (e Evaluation) Matched() bool { return e.Kind != "" }

// EvaluateInput carries the identities and constraints one evaluation needs.
type EvaluateInput struct {
	GuildID  string
	OwnerID  string
	MemberID string
	// BotIDs are the user ids recognized as service bots.
	BotIDs map[string]bool
	// CategoryID, when set, is an independent gate: a channel whose shape
	// matches but sits under a different parent is reported, not re-matched.
	CategoryID string
	// ExpectedNames is the canonical name set an owner-bot-only channel must
	// match to be adoptable.
	ExpectedNames map[string]bool
	// BotContext, when available, upgrades the bot-access check from the
	// overwrite heuristic to full effective-permission computation.
	BotContext *permissions.Context
}

// overwriteShape partitions a channel's member/role overwrites around the
// owner, the service bots, and @everyone. Duplicate subjects keep first match.
type overwriteShape struct {
	owner    *models.Overwrite
	everyone *models.Overwrite
	bot      *models.Overwrite
	members  []models.Overwrite
}

func partitionOverwrites(ch models.Channel, guildID, ownerID string, botIDs map[string]bool) overwriteShape {
	var shape overwriteShape
	seen := make(map[string]bool, len(ch.Overwrites))
	for i := range ch.Overwrites {
		o := ch.Overwrites[i]
		switch permissions.Classify(o) {
		case permissions.KindRole:
			if o.ID == guildID && shape.everyone == nil {
				shape.everyone = &ch.Overwrites[i]
			}
		case permissions.KindMember:
			if seen[o.ID] {
				continue
			}
			seen[o.ID] = true
			switch {
			case o.ID == ownerID:
				shape.owner = &ch.Overwrites[i]
			case botIDs[o.ID]:
				if shape.bot == nil {
					shape.bot = &ch.Overwrites[i]
				}
			default:
				shape.members = append(shape.members, o)
			}
		}
	}
	return shape
}

// EvaluateForResolve classifies one channel against a specific target member,
// as used when locating or establishing that member's gift channel. Checks
// run in order and short-circuit on the first failing precondition; every
// result computed up to that point stays recorded in Checks.
func EvaluateForResolve(ch models.Channel, in EvaluateInput) Evaluation {
	ev := newEvaluation(ch)

	if ch.Type != models.ChannelTypeText {
		return ev.skip(SkipNotTextChannel)
	}
	ev.Checks.IsTextChannel = true

	if len(ch.Overwrites) == 0 {
		return ev.skip(SkipNoOverwrites)
	}
	ev.Checks.HasOverwrites = true

	shape := partitionOverwrites(ch, in.GuildID, in.OwnerID, in.BotIDs)
	recordShape(&ev.Checks, shape)

	if shape.owner == nil {
		return ev.skip(SkipOwnerOverwriteMissing)
	}

	if len(shape.members) > 1 {
		for _, m := range shape.members {
			if m.ID != in.MemberID {
				ev.Checks.ExtraMemberIDs = append(ev.Checks.ExtraMemberIDs, m.ID)
			}
		}
		return ev.skip(SkipExtraMemberOverwrites)
	}

	if len(shape.members) == 1 {
		return evaluateStandard(ev, ch, shape, in)
	}
	return evaluateOwnerBotOnly(ev, ch, shape, in)
}

// evaluateStandard handles the exactly-one-member shape: a private channel
// shared by the owner and a single human member.
func evaluateStandard(ev Evaluation, ch models.Channel, shape overwriteShape, in EvaluateInput) Evaluation {
	m := shape.members[0]
	if m.ID != in.MemberID {
		return ev.skip(SkipNotTargetMember)
	}
	ev.Checks.MemberOverwriteFound = true
	ev.Checks.MemberAllowsView = permissions.Allows(m, permissions.ViewChannel)

	if !ev.Checks.EveryoneDeniesView {
		return ev.skip(SkipEveryoneViewNotDenied)
	}
	if !ev.Checks.OwnerAllowsView {
		return ev.skip(SkipOwnerViewNotAllowed)
	}
	if !ev.Checks.MemberAllowsView {
		return ev.skip(SkipMemberViewNotAllowed)
	}

	if s := categoryGate(&ev, ch, in.CategoryID); s != "" {
		return ev.skip(s)
	}

	ev.MemberID = m.ID
	if botHasAccess(ch, shape, in) {
		return ev.match(StandardWithBot)
	}
	return ev.match(StandardWithoutBot)
}

// evaluateOwnerBotOnly handles the zero-member shape: an owner+bot channel
// that is adoptable when its name designates the target member.
func evaluateOwnerBotOnly(ev Evaluation, ch models.Channel, shape overwriteShape, in EvaluateInput) Evaluation {
	if !ev.Checks.EveryoneDeniesView {
		return ev.skip(SkipEveryoneViewNotDenied)
	}
	if !ev.Checks.OwnerAllowsView {
		return ev.skip(SkipOwnerViewNotAllowed)
	}
	if shape.bot == nil {
		return ev.skip(SkipBotOverwriteMissing)
	}
	if !ev.Checks.BotAllowsView {
		return ev.skip(SkipBotViewNotAllowed)
	}

	ev.Checks.CanonicalName = Canonicalize(ch.Name)
	ev.Checks.NameMatched = in.ExpectedNames[ev.Checks.CanonicalName] ||
		ev.Checks.CanonicalName == FallbackName(in.MemberID)
	if !ev.Checks.NameMatched {
		return ev.skip(SkipNameMismatch)
	}

	if s := categoryGate(&ev, ch, in.CategoryID); s != "" {
		return ev.skip(s)
	}

	ev.MemberID = in.MemberID
	return ev.match(OwnerBotOnlyAdoptable)
}

// ExtractGiftChannelCandidates scans all channels and returns the standard
// gift-channel candidates (one human member next to the owner), optionally
// restricted to a member-id set. Owner+bot-only channels are not candidates
// here; they only matter to the resolve path.
func ExtractGiftChannelCandidates(channels []models.Channel, guildID, ownerID string, botIDs, memberFilter map[string]bool) []Evaluation {
	var out []Evaluation
	for _, ch := range channels {
		ev := EvaluateForListing(ch, guildID, ownerID, botIDs)
		if !ev.Matched() {
			continue
		}
		if len(memberFilter) > 0 && !memberFilter[ev.MemberID] {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// EvaluateAll classifies every channel for the audit view, keeping skip
// diagnostics alongside matches.
func EvaluateAll(channels []models.Channel, guildID, ownerID string, botIDs map[string]bool) []Evaluation {
	out := make([]Evaluation, 0, len(channels))
	for _, ch := range channels {
		out = append(out, EvaluateForListing(ch, guildID, ownerID, botIDs))
	}
	return out
}

func EvaluateForListing(ch models.Channel, guildID, ownerID string, botIDs map[string]bool) Evaluation {
	ev := newEvaluation(ch)

	if ch.Type != models.ChannelTypeText {
		return ev.skip(SkipNotTextChannel)
	}
	ev.Checks.IsTextChannel = true

	if len(ch.Overwrites) == 0 {
		return ev.skip(SkipNoOverwrites)
	}
	ev.Checks.HasOverwrites = true

	shape := partitionOverwrites(ch, guildID, ownerID, botIDs)
	recordShape(&ev.Checks, shape)

	if shape.owner == nil {
		return ev.skip(SkipOwnerOverwriteMissing)
	}
	if len(shape.members) != 1 {
		for _, m := range shape.members {
			ev.Checks.ExtraMemberIDs = append(ev.Checks.ExtraMemberIDs, m.ID)
		}
		return ev.skip(SkipExtraMemberOverwrites)
	}

	m := shape.members[0]
	ev.Checks.MemberOverwriteFound = true
	ev.Checks.MemberAllowsView = permissions.Allows(m, permissions.ViewChannel)

	if !ev.Checks.EveryoneDeniesView {
		return ev.skip(SkipEveryoneViewNotDenied)
	}
	if !ev.Checks.OwnerAllowsView {
		return ev.skip(SkipOwnerViewNotAllowed)
	}
	if !ev.Checks.MemberAllowsView {
		return ev.skip(SkipMemberViewNotAllowed)
	}

	ev.MemberID = m.ID
	if shape.bot != nil && ev.Checks.BotAllowsView {
		return ev.match(StandardWithBot)
	}
	return ev.match(StandardWithoutBot)
}

// EvaluateLegacyRepair classifies one channel for legacy-name repair: the
// canonical name must belong to the caller-supplied legacy set, the category
// constraint must hold, and no explicit member overwrite may belong to a
// third human. A conflicting member disqualifies the channel regardless of
// any name or category match.
func EvaluateLegacyRepair(ch models.Channel, ownerID, memberID string, botIDs, legacyNames map[string]bool, categoryID string) Evaluation {
	ev := newEvaluation(ch)

	if ch.Type != models.ChannelTypeText {
		return ev.skip(SkipNotTextChannel)
	}
	ev.Checks.IsTextChannel = true
	ev.Checks.HasOverwrites = len(ch.Overwrites) > 0

	for _, o := range ch.Overwrites {
		if permissions.Classify(o) != permissions.KindMember || botIDs[o.ID] {
			continue
		}
		if o.ID != ownerID && o.ID != memberID {
			ev.Checks.ConflictingExplicitMemberIDs = append(ev.Checks.ConflictingExplicitMemberIDs, o.ID)
		}
	}
	if len(ev.Checks.ConflictingExplicitMemberIDs) > 0 {
		return ev.skip(SkipConflictingMembers)
	}

	if s := categoryGate(&ev, ch, categoryID); s != "" {
		return ev.skip(s)
	}

	ev.Checks.CanonicalName = Canonicalize(ch.Name)
	ev.Checks.NameMatched = legacyNames[ev.Checks.CanonicalName]
	if !ev.Checks.NameMatched {
		return ev.skip(SkipNameMismatch)
	}

	ev.MemberID = memberID
	return ev.match(LegacyRepairCandidate)
}

func newEvaluation(ch models.Channel) Evaluation {
	return Evaluation{ChannelID: ch.ID, ChannelName: ch.Name, ParentID: ch.Parent()}
}

func (e Evaluation) skip(reason SkipReason) Evaluation {
	e.Skip = reason
	return e
}

func (e Evaluation) match(kind CandidateKind) Evaluation {
	e.Kind = kind
	return e
}

func recordShape(c *Checks, shape overwriteShape) {
	c.OwnerOverwriteFound = shape.owner != nil
	if shape.owner != nil {
		c.OwnerAllowsView = permissions.Allows(*shape.owner, permissions.ViewChannel)
	}
	if shape.everyone != nil {
		c.EveryoneDeniesView = permissions.Denies(*shape.everyone, permissions.ViewChannel)
	}
	if shape.bot != nil {
		c.BotOverwriteFound = true
		c.BotAllowsView = permissions.Allows(*shape.bot, permissions.ViewChannel)
	}
	for _, m := range shape.members {
		c.NonOwnerMemberIDs = append(c.NonOwnerMemberIDs, m.ID)
	}
}

// categoryGate enforces the category constraint. It returns a skip reason for
// a channel whose shape otherwise matches but sits under the wrong parent, so
// the caller can warn instead of silently re-matching elsewhere.
func categoryGate(ev *Evaluation, ch models.Channel, categoryID string) SkipReason {
	if categoryID == "" {
		return ""
	}
	matched := ch.Parent() == categoryID
	ev.Checks.CategoryMatched = &matched
	if !matched {
		return SkipCategoryMismatch
	}
	return ""
}

// botHasAccess decides the WithBot/WithoutBot split. With a permission
// context it uses full effective-access computation (so an administrator bot
// counts even without an explicit overwrite); without one it falls back to
// the bot's member overwrite.
func botHasAccess(ch models.Channel, shape overwriteShape, in EvaluateInput) bool {
	if in.BotContext != nil {
		access := permissions.EffectiveAccess(ch, in.BotContext.UserID, in.BotContext)
		if access.CanView != nil {
			return *access.CanView
		}
	}
	return shape.bot != nil && permissions.Allows(*shape.bot, permissions.ViewChannel)
}
