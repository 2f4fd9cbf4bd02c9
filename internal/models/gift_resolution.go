package models

import "time"

// GiftResolution is an audit record of one gift-channel resolution outcome.
type GiftResolution struct {
	ID        string    `json:"id"`
	GuildID   string    `json:"guild_id"`
	OwnerID   string    `json:"owner_id"`
	MemberID  string    `json:"member_id"`
	ChannelID string    `json:"channel_id,omitempty"`
	Outcome   string    `json:"outcome"`
	Created   bool      `json:"created"`
	CreatedAt time.Time `json:"created_at"`
}
