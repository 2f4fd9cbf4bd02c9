package giftchannel

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxChannelName is Discord's channel-name length limit, minus headroom.
const maxChannelName = 90

// Canonicalize produces the deterministic slug used for expected gift-channel
// names: NFKC-normalized, lowercased, whitespace runs collapsed to a single
// hyphen, everything but Unicode letters, numbers, hyphen and underscore
// stripped, repeated hyphens collapsed, edge hyphen/underscore trimmed, and
// the result capped at 90 runes. Canonicalize is idempotent.
func Canonicalize(raw string) string {
	s := norm.NFKC.String(raw)
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace {
			b.WriteByte('-')
			inSpace = false
		}
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}

	out := collapseHyphens(b.String())
	out = strings.Trim(out, "-_")
	out = truncateRunes(out, maxChannelName)
	return strings.Trim(out, "-_")
}

func collapseHyphens(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return s
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// FallbackName is the deterministic name used when no usable display name is
// available for the member.
func FallbackName(memberID string) string {
	return "gift-" + memberID
}

// BuildExpectedName returns the canonical channel name for a member: the
// canonicalized display name, or the gift-{memberId} fallback when the
// display name is empty or canonicalizes to nothing.
func BuildExpectedName(displayName, memberID string) string {
	if displayName == "" {
		return FallbackName(memberID)
	}
	if name := Canonicalize(displayName); name != "" {
		return name
	}
	return FallbackName(memberID)
}

// CollectLegacyCandidates returns the set of canonical names treated as
// equivalent when matching legacy or repair channels: the expected name, the
// separately-canonicalized raw display-name parameter, and the deterministic
// fallback. Duplicates collapse through the set.
func CollectLegacyCandidates(memberID, displayNameParam, expectedName string) map[string]bool {
	names := make(map[string]bool, 3)
	if expectedName != "" {
		names[expectedName] = true
	}
	if displayNameParam != "" {
		if name := Canonicalize(displayNameParam); name != "" {
			names[name] = true
		}
	}
	names[FallbackName(memberID)] = true
	return names
}
