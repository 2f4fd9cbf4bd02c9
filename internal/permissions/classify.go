package permissions

import (
	"strings"

	"github.com/Shimmy1219/gacha-web-sub003/internal/models"
)

// OverwriteKind is the normalized subject kind of a channel overwrite.
type OverwriteKind int

const (
	KindUnknown OverwriteKind = iota
	KindRole
	KindMember
)

func (k OverwriteKind) String() string {
	switch k {
	case KindRole:
		return "role"
	case KindMember:
		return "member"
	default:
		return "unknown"
	}
}

// Classify normalizes the heterogeneous overwrite "type" encodings (numeric
// 0/1, string "0"/"1", "role"/"member" in any case) into a closed variant.
// Unrecognized values classify as KindUnknown and are excluded from every
// aggregation downstream.
func Classify(o models.Overwrite) OverwriteKind {
	switch strings.ToLower(strings.TrimSpace(o.Type.String())) {
	case "0", "role":
		return KindRole
	case "1", "member":
		return KindMember
	default:
		return KindUnknown
	}
}

// AllowBits returns the overwrite's allow bitmask.
func AllowBits(o models.Overwrite) Bits { return ParseBits(o.Allow.String()) }

// DenyBits returns the overwrite's deny bitmask.
func DenyBits(o models.Overwrite) Bits { return ParseBits(o.Deny.String()) }

// Allows reports whether the overwrite explicitly grants all bits in p.
func Allows(o models.Overwrite, p Bits) bool { return AllowBits(o).Has(p) }

// Denies reports whether the overwrite explicitly denies all bits in p.
func Denies(o models.Overwrite, p Bits) bool { return DenyBits(o).Has(p) }
