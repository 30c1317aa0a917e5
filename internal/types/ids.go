// internal/types/ids.go
package types

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

type UserID string
type SessionID string
type MessageID string

// TypingMessageID is the fixed id of the transient typing-indicator message,
// so a later removal can target it precisely.
const TypingMessageID MessageID = "typing-indicator-message"

// newID builds a time-and-random identifier: base-36 epoch milliseconds
// plus a random fragment.
func newID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + "-" + uuid.NewString()[:8]
}

func NewSessionID() SessionID {
	return SessionID(newID())
}

func NewMessageID() MessageID {
	return MessageID(newID())
}
