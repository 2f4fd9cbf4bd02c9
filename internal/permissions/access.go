package permissions

import "github.com/Shimmy1219/gacha-web-sub003/internal/models"

// Context is a subject's resolved guild-level permission context: its user id,
// its role memberships, and the base bitmask computed from the role table.
// It is fetched fresh per resolution; nothing here is cached.
type Context struct {
	UserID  string
	GuildID string
	RoleIDs map[string]bool
	Base    Bits
}

// ComputeBase computes guild-level base permissions for a member:
// the @everyone role permissions OR-ed with every assigned role.
// The @everyone role shares its id with the guild.
func ComputeBase(guildID string, roles []models.Role, memberRoleIDs []string) Bits {
	assigned := make(map[string]bool, len(memberRoleIDs))
	for _, id := range memberRoleIDs {
		assigned[id] = true
	}

	var base Bits
	for _, r := range roles {
		if r.ID == guildID || assigned[r.ID] {
			base = base.Add(ParseBits(r.Permissions.String()))
		}
	}
	return base
}

// Access is the effective view/send capability of a subject on one channel.
// Fields are tri-state: nil means unknown (the degraded overwrite-only path
// could not find an explicit member overwrite), which callers must not
// conflate with a known false.
type Access struct {
	CanView *bool `json:"canView"`
	CanSend *bool `json:"canSend"`
}

// EffectiveAccess applies Discord's documented overwrite precedence to compute
// what the subject can do in the channel:
//  1. Administrator in the base permissions bypasses all overwrites.
//  2. Apply the @everyone overwrite (subject id == guild id): clear deny, set allow.
//  3. Aggregate all overwrites for roles the subject holds: OR the denies, OR
//     the allows, then apply the pair once. An allow from any role overrides a
//     deny from another at this tier.
//  4. Apply the subject's own member overwrite.
//
// When pctx is nil (guild role or member fetch failed upstream) the
// computation degrades to the overwrite-only heuristic: the subject's explicit
// member overwrite decides, and absent one the answer is unknown.
func EffectiveAccess(ch models.Channel, subjectID string, pctx *Context) Access {
	if pctx == nil {
		return overwriteOnlyAccess(ch, subjectID)
	}

	bits := pctx.Base
	if bits.Has(Administrator) {
		return Access{CanView: boolPtr(true), CanSend: boolPtr(true)}
	}

	var roleAllow, roleDeny Bits
	var everyoneOverwrite, memberOverwrite *models.Overwrite

	// Duplicate overwrites for one subject should not occur; if they do, the
	// first one scanned wins.
	for i := range ch.Overwrites {
		o := ch.Overwrites[i]
		switch Classify(o) {
		case KindRole:
			if o.ID == pctx.GuildID {
				if everyoneOverwrite == nil {
					everyoneOverwrite = &ch.Overwrites[i]
				}
			} else if pctx.RoleIDs[o.ID] {
				roleAllow = roleAllow.Add(AllowBits(o))
				roleDeny = roleDeny.Add(DenyBits(o))
			}
		case KindMember:
			if o.ID == subjectID && memberOverwrite == nil {
				memberOverwrite = &ch.Overwrites[i]
			}
		}
	}

	if everyoneOverwrite != nil {
		bits = bits.Remove(DenyBits(*everyoneOverwrite)).Add(AllowBits(*everyoneOverwrite))
	}

	bits = bits.Remove(roleDeny).Add(roleAllow)

	if memberOverwrite != nil {
		bits = bits.Remove(DenyBits(*memberOverwrite)).Add(AllowBits(*memberOverwrite))
	}

	return Access{
		CanView: boolPtr(bits.Has(ViewChannel)),
		CanSend: boolPtr(bits.Has(SendMessages)),
	}
}

func overwriteOnlyAccess(ch models.Channel, subjectID string) Access {
	for _, o := range ch.Overwrites {
		if Classify(o) == KindMember && o.ID == subjectID {
			return Access{
				CanView: boolPtr(Allows(o, ViewChannel)),
				CanSend: boolPtr(Allows(o, SendMessages)),
			}
		}
	}
	return Access{}
}

func boolPtr(v bool) *bool { return &v }
