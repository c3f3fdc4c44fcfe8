package dispatch

import "errors"

// MaxMessageLen caps outbound message payloads, in bytes.
const MaxMessageLen = 1000

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message too long")
)

// ValidateMessage checks the payload bounds. Callers run this before
// resolving recipients, so an invalid message never reaches storage
// or delivery.
func ValidateMessage(text string) error {
	if text == "" {
		return ErrEmptyMessage
	}
	if len(text) > MaxMessageLen {
		return ErrMessageTooLong
	}
	return nil
}
