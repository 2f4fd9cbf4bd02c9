package permissions

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Bits is a Discord permission bitfield. Discord serializes bitmasks as
// decimal strings because they exceed what a JSON double can hold; Bits must
// stay an unsigned 64-bit type and only ever be combined with OR and AND-NOT.
type Bits uint64

// Permission bit values, matching the Discord API.
const (
	Administrator      Bits = 1 << 3
	ViewChannel        Bits = 1 << 10
	SendMessages       Bits = 1 << 11
	ReadMessageHistory Bits = 1 << 16

	// GiftChannelGrant is the set granted to each participant of a gift channel.
	GiftChannelGrant = ViewChannel | SendMessages | ReadMessageHistory
)

// Has returns true if b contains all bits in p.
func (b Bits) Has(p Bits) bool { return b&p == p }

// Add returns b with the bits from p set.
func (b Bits) Add(p Bits) Bits { return b | p }

// Remove returns b with the bits from p cleared.
func (b Bits) Remove(p Bits) Bits { return b &^ p }

// String returns the decimal wire encoding.
func (b Bits) String() string { return strconv.FormatUint(uint64(b), 10) }

// ParseBits converts an upstream permission value into Bits. It accepts the
// decimal-string encoding of the current API as well as the numeric forms
// found in older exports. Anything unparseable yields 0: permission checks
// degrade to "no access" instead of failing.
func ParseBits(v any) Bits {
	switch x := v.(type) {
	case string:
		return parseBitsString(x)
	case json.Number:
		return parseBitsString(x.String())
	case float64:
		if x < 0 {
			return 0
		}
		return Bits(x)
	case int:
		if x < 0 {
			return 0
		}
		return Bits(x)
	case int64:
		if x < 0 {
			return 0
		}
		return Bits(x)
	case uint64:
		return Bits(x)
	case Bits:
		return x
	default:
		return 0
	}
}

func parseBitsString(s string) Bits {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return Bits(n)
}
