// internal/exchange/hub.go
package exchange

import (
	"sync"

	"github.com/user/chatrelay/internal/history"
	"github.com/user/chatrelay/internal/types"
)

// Hub hands out one Coordinator per user, creating and logging it in on
// first use. Surfaces (HTTP, Telegram, CLI) share coordinators through it.
type Hub struct {
	backend  types.Backend
	sessions types.SessionStore
	messages types.MessageStore
	window   *history.Window

	mu    sync.Mutex
	users map[types.UserID]*Coordinator
}

// NewHub creates a Hub wired to the shared stores and backend.
func NewHub(backend types.Backend, sessions types.SessionStore, messages types.MessageStore, window *history.Window) *Hub {
	return &Hub{
		backend:  backend,
		sessions: sessions,
		messages: messages,
		window:   window,
		users:    make(map[types.UserID]*Coordinator),
	}
}

// Get returns the user's coordinator, performing the login transition the
// first time an identity shows up.
func (h *Hub) Get(identity types.Identity) *Coordinator {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.users[identity.ID]; ok {
		return c
	}
	c := New(h.backend, h.sessions, h.messages, h.window)
	c.Login(identity)
	h.users[identity.ID] = c
	return c
}
