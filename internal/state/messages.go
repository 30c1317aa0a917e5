// internal/state/messages.go
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/user/chatrelay/internal/types"
)

// MessageStore persists per-session message lists as JSON blobs keyed by
// "chatMessages_<sessionID>". Storage faults are absorbed here: loads recover
// to an empty list and writes are best-effort, so the in-memory conversation
// stays authoritative for the rest of the session.
type MessageStore struct {
	kv *KV
}

// NewMessageStore creates a MessageStore backed by the given KV store.
func NewMessageStore(kv *KV) *MessageStore {
	return &MessageStore{kv: kv}
}

func messagesKey(sessionID types.SessionID) string {
	return fmt.Sprintf("chatMessages_%s", sessionID)
}

// Load reads the persisted messages for a session. Malformed stored JSON
// resets to an empty list; the fault is logged, never propagated.
func (s *MessageStore) Load(sessionID types.SessionID) []types.Message {
	data, ok, err := s.kv.Get(messagesKey(sessionID))
	if err != nil {
		slog.Warn("read messages failed", "session_id", sessionID, "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	var messages []types.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		slog.Warn("stored messages malformed, resetting", "session_id", sessionID, "error", err)
		return nil
	}
	return messages
}

// Persist writes the full message list for a session. The typing indicator is
// transient state and is never serialized, so a crash mid-request cannot leave
// a stuck indicator after reload. Write failures are logged and swallowed.
func (s *MessageStore) Persist(sessionID types.SessionID, messages []types.Message) {
	out := make([]types.Message, 0, len(messages))
	for _, m := range messages {
		if m.Sender == types.SenderTyping {
			continue
		}
		out = append(out, m)
	}

	data, err := json.Marshal(out)
	if err != nil {
		slog.Error("marshal messages failed", "session_id", sessionID, "error", err)
		return
	}
	if err := s.kv.Put(messagesKey(sessionID), data); err != nil {
		slog.Error("persist messages failed", "session_id", sessionID, "error", err)
	}
}

// Delete removes the persisted message list for a session.
func (s *MessageStore) Delete(sessionID types.SessionID) {
	if err := s.kv.Delete(messagesKey(sessionID)); err != nil {
		slog.Error("delete messages failed", "session_id", sessionID, "error", err)
	}
}
