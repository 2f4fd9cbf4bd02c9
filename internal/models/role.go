package models

// Role is a guild role. Permissions is the guild-level permission bitmask;
// the API serializes it as a decimal string, older exports as a number, so it
// is kept loose and parsed by permissions.ParseBits.
type Role struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Permissions LooseString `json:"permissions"`
}
