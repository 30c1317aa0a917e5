// internal/types/models.go
package types

import (
	"sort"
	"time"
)

// Sender tags a message with its role. The set is closed.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderTyping Sender = "typing_indicator"
	SenderError  Sender = "error"
)

// TypingText is the placeholder text of the typing-indicator message.
const TypingText = "Bot is typing..."

// Message is one entry in a session's conversation. Timestamp is serialized
// as an RFC 3339 string and reconstructed on load.
type Message struct {
	ID        MessageID `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a fresh id and the current time.
func NewMessage(text string, sender Sender) Message {
	return Message{
		ID:        NewMessageID(),
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now(),
	}
}

// DefaultTitle is the title of a session before one is derived from its
// first user message.
const DefaultTitle = "New Chat"

// Session is one named conversation thread belonging to one user.
// LastUpdated is epoch milliseconds, refreshed on every message mutation.
type Session struct {
	ID                      SessionID `json:"id"`
	Title                   string    `json:"title"`
	LastUpdated             int64     `json:"lastUpdated"`
	FirstUserMessageSnippet string    `json:"firstUserMessageSnippet,omitempty"`
}

// NewSession creates a session with the default title.
func NewSession() *Session {
	return &Session{
		ID:          NewSessionID(),
		Title:       DefaultTitle,
		LastUpdated: time.Now().UnixMilli(),
	}
}

// SortSessions orders sessions by LastUpdated descending. The sort is stable
// so ties keep insertion order.
func SortSessions(sessions []*Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].LastUpdated > sessions[j].LastUpdated
	})
}

// Identity is the opaque user identity supplied by the external identity
// collaborator once per login.
type Identity struct {
	ID      UserID `json:"id"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}
