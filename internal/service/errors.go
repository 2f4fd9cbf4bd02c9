package service

import (
	"errors"

	"github.com/Shimmy1219/gacha-web-sub003/internal/discord"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream")
	ErrInternal     = errors.New("internal")
)

// ServiceError wraps a sentinel error with a specific code and message for the handler to use.
type ServiceError struct {
	Err     error
	Code    string
	Message string
}

func (e *ServiceError) Error() string { return e.Message }
func (e *ServiceError) Unwrap() error { return e.Err }

// NewError creates a ServiceError wrapping the given sentinel.
func NewError(sentinel error, code, message string) *ServiceError {
	return &ServiceError{Err: sentinel, Code: code, Message: message}
}

// Convenience constructors for common error types.

func NotFound(code, message string) *ServiceError {
	return NewError(ErrNotFound, code, message)
}

func Forbidden(code, message string) *ServiceError {
	return NewError(ErrForbidden, code, message)
}

func BadRequest(code, message string) *ServiceError {
	return NewError(ErrBadRequest, code, message)
}

func Conflict(code, message string) *ServiceError {
	return NewError(ErrConflict, code, message)
}

func Unauthorized(code, message string) *ServiceError {
	return NewError(ErrUnauthorized, code, message)
}

func Internal(code, message string) *ServiceError {
	return NewError(ErrInternal, code, message)
}

// FromDiscordError translates a Discord API failure into a typed ServiceError
// the handler can map to an HTTP status. Domain-known Discord errors get
// specific codes; everything else is surfaced as an opaque upstream failure.
func FromDiscordError(err error) *ServiceError {
	switch {
	case discord.IsUnknownGuild(err):
		return NotFound("UNKNOWN_GUILD", "the bot is not in this guild, or the guild does not exist")
	case discord.IsMissingPermissions(err):
		return Forbidden("BOT_MISSING_PERMISSIONS", "the bot lacks permission to manage channels in this guild")
	case discord.IsCategoryChannelLimit(err):
		return Conflict("CATEGORY_CHANNEL_LIMIT", "the selected category has reached Discord's channel limit")
	default:
		return NewError(ErrUpstream, "DISCORD_API", "discord API request failed")
	}
}
