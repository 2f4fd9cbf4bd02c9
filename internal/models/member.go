package models

// GuildMember is a guild membership record. Roles holds role snowflakes,
// excluding the implicit @everyone role.
type GuildMember struct {
	User  *User    `json:"user,omitempty"`
	Nick  string   `json:"nick,omitempty"`
	Roles []string `json:"roles"`
}
