// internal/types/interfaces.go
package types

import "context"

// MessageStore persists per-session message lists. Read and parse faults are
// absorbed at this boundary: Load recovers to an empty list and Persist is
// best-effort, so a storage failure never interrupts a chat operation.
type MessageStore interface {
	Load(sessionID SessionID) []Message
	Persist(sessionID SessionID, messages []Message)
	Delete(sessionID SessionID)
}

// SessionStore persists per-user session directories with the same
// absorb-at-the-boundary policy as MessageStore.
type SessionStore interface {
	LoadForUser(userID UserID) []*Session
	Save(userID UserID, sessions []*Session)
}

// Backend is the remote conversational-AI webhook: one call per user turn.
// History carries the prior USER/BOT exchange including the message being sent.
type Backend interface {
	Send(ctx context.Context, userMessage string, history []Message, sessionID SessionID) (string, error)
}
