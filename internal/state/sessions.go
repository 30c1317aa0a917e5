// internal/state/sessions.go
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/user/chatrelay/internal/types"
)

// SessionStore persists per-user session directories as JSON blobs keyed by
// "chatSessions_user_<userID>".
type SessionStore struct {
	kv *KV
}

// NewSessionStore creates a SessionStore backed by the given KV store.
func NewSessionStore(kv *KV) *SessionStore {
	return &SessionStore{kv: kv}
}

func sessionsKey(userID types.UserID) string {
	return fmt.Sprintf("chatSessions_user_%s", userID)
}

// LoadForUser reads the persisted session list for a user, recovering to an
// empty list on read or parse failure.
func (s *SessionStore) LoadForUser(userID types.UserID) []*types.Session {
	data, ok, err := s.kv.Get(sessionsKey(userID))
	if err != nil {
		slog.Warn("read sessions failed", "user_id", userID, "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	var sessions []*types.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		slog.Warn("stored sessions malformed, resetting", "user_id", userID, "error", err)
		return nil
	}
	return sessions
}

// Save writes the full session list for a user, best-effort.
func (s *SessionStore) Save(userID types.UserID, sessions []*types.Session) {
	if sessions == nil {
		sessions = []*types.Session{}
	}
	data, err := json.Marshal(sessions)
	if err != nil {
		slog.Error("marshal sessions failed", "user_id", userID, "error", err)
		return
	}
	if err := s.kv.Put(sessionsKey(userID), data); err != nil {
		slog.Error("persist sessions failed", "user_id", userID, "error", err)
	}
}
