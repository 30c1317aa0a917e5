// internal/exchange/coordinator.go
package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/user/chatrelay/internal/chat"
	"github.com/user/chatrelay/internal/history"
	"github.com/user/chatrelay/internal/types"
)

// ErrNoActiveSession is returned when a send is attempted with no active
// session. No remote call is made.
var ErrNoActiveSession = errors.New("no active session")

// ErrSendInFlight is returned when a send arrives while another is pending.
// Surfaces are expected to reject re-entrant sends via Loading first; this is
// the coordinator-side guard for concurrent callers.
var ErrSendInFlight = errors.New("a send is already in flight")

// ErrNotLoggedIn is returned for any operation before Login.
var ErrNotLoggedIn = errors.New("not logged in")

// Coordinator owns one user's chat state: the session directory, the active
// session's message log, the loading flag, and the request/response cycle
// with the remote backend. All methods are safe for concurrent use; the
// mutex is released while the remote call is outstanding so the directory
// stays usable during a send.
type Coordinator struct {
	mu sync.Mutex

	backend  types.Backend
	sessions types.SessionStore
	messages types.MessageStore
	window   *history.Window

	identity types.Identity
	loggedIn bool
	seeded   bool // one initial session auto-created per login

	dir     *chat.Directory
	log     *chat.Log
	loading bool
}

// New creates a Coordinator for a single user. window may be nil.
func New(backend types.Backend, sessions types.SessionStore, messages types.MessageStore, window *history.Window) *Coordinator {
	return &Coordinator{
		backend:  backend,
		sessions: sessions,
		messages: messages,
		window:   window,
	}
}

// Login loads the user's session directory and the active session's
// messages. When the user has no sessions, exactly one is created; the
// one-shot flag is reset here and consumed in the same step.
func (c *Coordinator) Login(identity types.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.identity = identity
	c.loggedIn = true
	c.seeded = false

	c.dir = chat.LoadDirectory(identity.ID, c.sessions, c.messages)
	if len(c.dir.Sessions()) == 0 && !c.seeded {
		c.dir.Create()
		c.seeded = true
		slog.Info("seeded initial session", "user_id", identity.ID, "session_id", c.dir.CurrentID())
	}
	c.reloadLogLocked()
}

// Logout discards the in-memory state. Persisted data is untouched.
func (c *Coordinator) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.identity = types.Identity{}
	c.loggedIn = false
	c.seeded = false
	c.dir = nil
	c.log = nil
	c.loading = false
}

// Identity returns the identity supplied at login.
func (c *Coordinator) Identity() types.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Loading reports whether a send is outstanding. Surfaces use it to disable
// input submission.
func (c *Coordinator) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Sessions returns the directory, most recently updated first.
func (c *Coordinator) Sessions() ([]*types.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loggedIn {
		return nil, ErrNotLoggedIn
	}
	return c.dir.Sessions(), nil
}

// CurrentID returns the active session id, or "" when none is active.
func (c *Coordinator) CurrentID() types.SessionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dir == nil {
		return ""
	}
	return c.dir.CurrentID()
}

// Messages returns the active session's message list, typing indicator
// included while a send is pending.
func (c *Coordinator) Messages() ([]types.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loggedIn {
		return nil, ErrNotLoggedIn
	}
	if c.log == nil {
		return nil, nil
	}
	return c.log.Messages(), nil
}

// NewSession creates a session, makes it current, and loads its messages.
func (c *Coordinator) NewSession() (*types.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loggedIn {
		return nil, ErrNotLoggedIn
	}
	s := c.dir.Create()
	c.reloadLogLocked()
	return s, nil
}

// SelectSession makes the given session current and loads its messages.
func (c *Coordinator) SelectSession(id types.SessionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loggedIn {
		return ErrNotLoggedIn
	}
	if err := c.dir.Select(id); err != nil {
		return err
	}
	c.reloadLogLocked()
	return nil
}

// DeleteSession removes a session and its messages, re-selecting the
// most-recently-updated remainder when the active one was deleted.
func (c *Coordinator) DeleteSession(id types.SessionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loggedIn {
		return ErrNotLoggedIn
	}
	if err := c.dir.Delete(id); err != nil {
		return err
	}
	c.reloadLogLocked()
	return nil
}

// Export renders a session's conversation as a shareable plain-text
// transcript of its USER and BOT turns.
func (c *Coordinator) Export(id types.SessionID) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loggedIn {
		return "", ErrNotLoggedIn
	}
	if _, ok := c.dir.Get(id); !ok {
		return "", fmt.Errorf("session not found: %s", id)
	}
	if id == c.dir.CurrentID() && c.log != nil {
		return chat.Transcript(c.log.Messages()), nil
	}
	return chat.Transcript(c.messages.Load(id)), nil
}

// reloadLogLocked loads the active session's persisted messages into the
// in-memory log. Caller holds c.mu.
func (c *Coordinator) reloadLogLocked() {
	id := c.dir.CurrentID()
	if id == "" {
		c.log = nil
		return
	}
	c.log = chat.NewLog(c.messages.Load(id))
}

// Send relays one user turn to the remote backend: append the USER message,
// show the typing indicator, call the backend with the filtered history and
// the originating session id, then replace the indicator with the BOT reply
// or an ERROR message. The loading flag clears on every path out.
func (c *Coordinator) Send(ctx context.Context, text string) (types.Message, error) {
	c.mu.Lock()
	if !c.loggedIn {
		c.mu.Unlock()
		return types.Message{}, ErrNotLoggedIn
	}
	if c.dir.CurrentID() == "" {
		c.mu.Unlock()
		return types.Message{}, ErrNoActiveSession
	}
	if c.loading {
		c.mu.Unlock()
		return types.Message{}, ErrSendInFlight
	}

	// The reply is bound to the session that initiated the request, not to
	// whichever session is current when it resolves.
	origin := c.dir.CurrentID()

	userMsg := types.NewMessage(text, types.SenderUser)
	c.log.Append(userMsg)
	msgs := c.log.Messages()
	c.messages.Persist(origin, msgs)
	c.dir.OnMessagesChanged(origin, msgs)

	hist := c.log.History()
	if c.window != nil {
		hist = c.window.Apply(hist)
	}

	c.log.ShowTyping()
	c.loading = true
	c.mu.Unlock()

	reply, err := c.backend.Send(ctx, text, hist, origin)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.loading = false }()

	var resolution types.Message
	if err != nil {
		slog.Warn("remote exchange failed", "session_id", origin, "error", err)
		resolution = types.NewMessage(err.Error(), types.SenderError)
	} else {
		resolution = types.NewMessage(reply, types.SenderBot)
	}

	c.resolveLocked(origin, resolution)
	return resolution, err
}

// resolveLocked appends the resolution message to the originating session,
// removing the typing indicator first. When the user switched sessions
// mid-flight the persisted list of the originating session is updated
// directly and the in-memory log is left alone.
func (c *Coordinator) resolveLocked(origin types.SessionID, resolution types.Message) {
	if c.dir.CurrentID() == origin && c.log != nil {
		c.log.RemoveTyping()
		c.log.Append(resolution)
		msgs := c.log.Messages()
		c.messages.Persist(origin, msgs)
		c.dir.OnMessagesChanged(origin, msgs)
		return
	}

	if _, ok := c.dir.Get(origin); !ok {
		// The originating session was deleted mid-flight: drop the reply.
		return
	}
	stored := chat.NewLog(c.messages.Load(origin))
	stored.Append(resolution)
	msgs := stored.Messages()
	c.messages.Persist(origin, msgs)
	c.dir.OnMessagesChanged(origin, msgs)
}
