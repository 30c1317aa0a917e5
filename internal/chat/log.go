// internal/chat/log.go
package chat

import (
	"time"

	"github.com/user/chatrelay/internal/types"
)

// Log is the in-memory ordered message list for one session. It owns the
// typing-indicator lifecycle: at most one indicator exists at any time and it
// always occupies the last position while present.
type Log struct {
	messages []types.Message
}

// NewLog creates a Log seeded with the given messages. Any persisted typing
// indicator is dropped on load; it is transient state.
func NewLog(messages []types.Message) *Log {
	l := &Log{}
	for _, m := range messages {
		if m.Sender == types.SenderTyping {
			continue
		}
		l.messages = append(l.messages, m)
	}
	return l
}

// Append inserts a message at the end. A present typing indicator is removed
// first, so the new message always becomes the last element.
func (l *Log) Append(m types.Message) {
	l.RemoveTyping()
	l.messages = append(l.messages, m)
}

// ShowTyping appends the typing-indicator message. Idempotent: if an
// indicator is already present this is a no-op.
func (l *Log) ShowTyping() {
	if l.HasTyping() {
		return
	}
	l.messages = append(l.messages, types.Message{
		ID:        types.TypingMessageID,
		Text:      types.TypingText,
		Sender:    types.SenderTyping,
		Timestamp: time.Now(),
	})
}

// RemoveTyping removes the typing indicator if present; no-op otherwise.
func (l *Log) RemoveTyping() {
	for i, m := range l.messages {
		if m.ID == types.TypingMessageID {
			l.messages = append(l.messages[:i], l.messages[i+1:]...)
			return
		}
	}
}

// HasTyping reports whether the typing indicator is present.
func (l *Log) HasTyping() bool {
	for _, m := range l.messages {
		if m.ID == types.TypingMessageID {
			return true
		}
	}
	return false
}

// Messages returns a copy of the current message list.
func (l *Log) Messages() []types.Message {
	out := make([]types.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// History returns the USER/BOT exchange only, the shape the remote backend
// expects when it requires clean role alternation.
func (l *Log) History() []types.Message {
	var out []types.Message
	for _, m := range l.messages {
		if m.Sender == types.SenderUser || m.Sender == types.SenderBot {
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of messages, including a present typing indicator.
func (l *Log) Len() int {
	return len(l.messages)
}
