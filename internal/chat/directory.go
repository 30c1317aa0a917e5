// internal/chat/directory.go
package chat

import (
	"fmt"
	"time"

	"github.com/user/chatrelay/internal/types"
)

// WelcomeText seeds every newly created session with one bot message.
const WelcomeText = "Hello! How can I help you today?"

// titleMaxLen is the number of leading characters of the first user message
// used as the session title.
const titleMaxLen = 30

// Directory is one user's ordered session list with a current-session
// pointer. Mutations persist through the session store; message persistence
// stays with the message store so a deleted session cascades.
type Directory struct {
	userID   types.UserID
	sessions []*types.Session
	current  types.SessionID

	store    types.SessionStore
	messages types.MessageStore
}

// LoadDirectory reads the user's persisted session list and selects the
// most-recently-updated session as current, if any exist.
func LoadDirectory(userID types.UserID, store types.SessionStore, messages types.MessageStore) *Directory {
	d := &Directory{
		userID:   userID,
		sessions: store.LoadForUser(userID),
		store:    store,
		messages: messages,
	}
	types.SortSessions(d.sessions)
	if len(d.sessions) > 0 {
		d.current = d.sessions[0].ID
	}
	return d
}

// Sessions returns the session list, most recently updated first.
func (d *Directory) Sessions() []*types.Session {
	out := make([]*types.Session, len(d.sessions))
	copy(out, d.sessions)
	return out
}

// CurrentID returns the active session id, or "" when none is active.
func (d *Directory) CurrentID() types.SessionID {
	return d.current
}

// Get returns the session with the given id.
func (d *Directory) Get(id types.SessionID) (*types.Session, bool) {
	for _, s := range d.sessions {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Create generates a new session with the default title, seeds its message
// list with a single bot welcome message, and makes it current.
func (d *Directory) Create() *types.Session {
	s := types.NewSession()
	d.sessions = append(d.sessions, s)
	types.SortSessions(d.sessions)
	d.current = s.ID

	d.messages.Persist(s.ID, []types.Message{types.NewMessage(WelcomeText, types.SenderBot)})
	d.store.Save(d.userID, d.sessions)
	return s
}

// Select sets the current session pointer. Selecting an unknown id is a
// caller error.
func (d *Directory) Select(id types.SessionID) error {
	if _, ok := d.Get(id); !ok {
		return fmt.Errorf("session not found: %s", id)
	}
	d.current = id
	return nil
}

// Delete removes a session and its persisted message list. If the deleted
// session was current, the most-recently-updated remainder becomes current,
// or the pointer clears when none remain.
func (d *Directory) Delete(id types.SessionID) error {
	idx := -1
	for i, s := range d.sessions {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("session not found: %s", id)
	}

	d.sessions = append(d.sessions[:idx], d.sessions[idx+1:]...)
	d.messages.Delete(id)

	if d.current == id {
		d.current = ""
		types.SortSessions(d.sessions)
		if len(d.sessions) > 0 {
			d.current = d.sessions[0].ID
		}
	}

	d.store.Save(d.userID, d.sessions)
	return nil
}

// OnMessagesChanged refreshes a session's metadata after a message-list
// mutation: title and snippet from the first user message, lastUpdated, then
// a re-sort and persist. The title is only recomputed while it is still the
// default or the cached snippet went stale.
func (d *Directory) OnMessagesChanged(id types.SessionID, messages []types.Message) {
	s, ok := d.Get(id)
	if !ok {
		return
	}

	first := firstUserText(messages)
	if first != "" && (s.Title == types.DefaultTitle || s.FirstUserMessageSnippet != first) {
		s.Title = deriveTitle(first)
		s.FirstUserMessageSnippet = first
	}
	s.LastUpdated = time.Now().UnixMilli()

	types.SortSessions(d.sessions)
	d.store.Save(d.userID, d.sessions)
}

func firstUserText(messages []types.Message) string {
	for _, m := range messages {
		if m.Sender == types.SenderUser {
			return m.Text
		}
	}
	return ""
}

// deriveTitle takes the first 30 characters of the text, with an ellipsis
// when truncated.
func deriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleMaxLen {
		return text
	}
	return string(runes[:titleMaxLen]) + "..."
}
