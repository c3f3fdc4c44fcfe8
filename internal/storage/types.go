package storage

import (
	"errors"
	"time"
)

var (
	// ErrAlreadySubscribed is returned by Subscribe when the (chat, channel)
	// pair already exists. Callers render this distinctly from storage errors.
	ErrAlreadySubscribed = errors.New("already subscribed")

	// ErrInvalidChannel is returned before any database access when a channel
	// name fails validation.
	ErrInvalidChannel = errors.New("invalid channel name")
)

// Config configures the registry database.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Subscription is one (chat, channel) registration.
type Subscription struct {
	ChatID    int64     `json:"telegram_id"`
	Channel   string    `json:"channel_name"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateChannel reports whether name is a usable channel name:
// non-empty, ASCII letters, digits and underscores only.
// Names are case-sensitive and never normalized.
func ValidateChannel(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}
