package models

type ChannelType int

const (
	ChannelTypeText     ChannelType = 0
	ChannelTypeVoice    ChannelType = 2
	ChannelTypeCategory ChannelType = 4
)

// Channel is a guild channel as returned by the REST API.
type Channel struct {
	ID         string      `json:"id"`
	GuildID    string      `json:"guild_id,omitempty"`
	Name       string      `json:"name"`
	Type       ChannelType `json:"type"`
	Position   int         `json:"position,omitempty"`
	ParentID   *string     `json:"parent_id"`
	Overwrites []Overwrite `json:"permission_overwrites"`
}

// Parent returns the parent category id, or "" for top-level channels.
func (c *Channel) Parent() string {
	if c.ParentID == nil {
		return ""
	}
	return *c.ParentID
}
