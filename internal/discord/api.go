package discord

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Shimmy1219/gacha-web-sub003/internal/models"
	"github.com/Shimmy1219/gacha-web-sub003/internal/permissions"
)

// Overwrite type values as sent to the API.
const (
	OverwriteTypeRole   = 0
	OverwriteTypeMember = 1
)

// CurrentUser fetches the identity behind the configured bot token.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/users/@me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GuildMember fetches one guild membership record.
func (c *Client) GuildMember(ctx context.Context, guildID, userID string) (*models.GuildMember, error) {
	var m models.GuildMember
	path := fmt.Sprintf("/guilds/%s/members/%s", guildID, userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GuildRoles fetches the guild's full role table.
func (c *Client) GuildRoles(ctx context.Context, guildID string) ([]models.Role, error) {
	var roles []models.Role
	if err := c.do(ctx, http.MethodGet, "/guilds/"+guildID+"/roles", nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// GuildChannels lists every channel in the guild.
func (c *Client) GuildChannels(ctx context.Context, guildID string) ([]models.Channel, error) {
	var channels []models.Channel
	if err := c.do(ctx, http.MethodGet, "/guilds/"+guildID+"/channels", nil, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

type putPermissionRequest struct {
	Type  int    `json:"type"`
	Allow string `json:"allow"`
	Deny  string `json:"deny"`
}

// PutChannelPermission upserts one permission overwrite on a channel. The
// endpoint is a PUT and therefore safe to retry.
func (c *Client) PutChannelPermission(ctx context.Context, channelID, overwriteID string, overwriteType int, allow, deny permissions.Bits) error {
	path := fmt.Sprintf("/channels/%s/permissions/%s", channelID, overwriteID)
	body := putPermissionRequest{Type: overwriteType, Allow: allow.String(), Deny: deny.String()}
	return c.do(ctx, http.MethodPut, path, body, nil)
}

// CreateOverwrite is one overwrite in a channel-creation request.
type CreateOverwrite struct {
	ID    string `json:"id"`
	Type  int    `json:"type"`
	Allow string `json:"allow,omitempty"`
	Deny  string `json:"deny,omitempty"`
}

// CreateChannelRequest creates a guild channel.
type CreateChannelRequest struct {
	Name       string             `json:"name"`
	Type       models.ChannelType `json:"type"`
	ParentID   string             `json:"parent_id,omitempty"`
	Overwrites []CreateOverwrite  `json:"permission_overwrites,omitempty"`
}

// CreateGuildChannel creates a channel and returns the API's view of it.
func (c *Client) CreateGuildChannel(ctx context.Context, guildID string, req CreateChannelRequest) (*models.Channel, error) {
	var ch models.Channel
	if err := c.do(ctx, http.MethodPost, "/guilds/"+guildID+"/channels", req, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}
