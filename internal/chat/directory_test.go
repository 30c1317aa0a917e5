// internal/chat/directory_test.go
package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/user/chatrelay/internal/state"
	"github.com/user/chatrelay/internal/types"
)

func newDirectory(t *testing.T) (*Directory, *state.MessageStore, *state.SessionStore) {
	t.Helper()
	kv := state.NewKV(t.TempDir())
	sessions := state.NewSessionStore(kv)
	messages := state.NewMessageStore(kv)
	return LoadDirectory("user-1", sessions, messages), messages, sessions
}

func TestCreateSeedsWelcomeAndSelects(t *testing.T) {
	d, messages, _ := newDirectory(t)

	s := d.Create()

	if s.Title != types.DefaultTitle {
		t.Errorf("expected default title, got %q", s.Title)
	}
	if d.CurrentID() != s.ID {
		t.Error("new session should be current")
	}

	seeded := messages.Load(s.ID)
	if len(seeded) != 1 || seeded[0].Sender != types.SenderBot {
		t.Fatalf("expected one bot welcome message, got %+v", seeded)
	}
	if seeded[0].Text != WelcomeText {
		t.Errorf("unexpected welcome text: %q", seeded[0].Text)
	}
}

func TestLoadDirectorySelectsMostRecent(t *testing.T) {
	kv := state.NewKV(t.TempDir())
	sessions := state.NewSessionStore(kv)
	messages := state.NewMessageStore(kv)
	sessions.Save("user-1", []*types.Session{
		{ID: "old", Title: "Old", LastUpdated: 100},
		{ID: "new", Title: "New", LastUpdated: 300},
		{ID: "mid", Title: "Mid", LastUpdated: 200},
	})

	d := LoadDirectory("user-1", sessions, messages)

	if d.CurrentID() != "new" {
		t.Errorf("expected most-recently-updated session current, got %s", d.CurrentID())
	}
	list := d.Sessions()
	if list[0].ID != "new" || list[1].ID != "mid" || list[2].ID != "old" {
		t.Errorf("expected descending order, got %v %v %v", list[0].ID, list[1].ID, list[2].ID)
	}
}

func TestTitleDerivedFromFirstUserMessage(t *testing.T) {
	d, _, _ := newDirectory(t)
	s := d.Create()
	before := s.LastUpdated

	time.Sleep(2 * time.Millisecond)
	msgs := []types.Message{
		types.NewMessage(WelcomeText, types.SenderBot),
		types.NewMessage("Hello", types.SenderUser),
	}
	d.OnMessagesChanged(s.ID, msgs)

	if s.Title != "Hello" {
		t.Errorf("expected title Hello, got %q", s.Title)
	}
	if s.FirstUserMessageSnippet != "Hello" {
		t.Errorf("expected cached snippet, got %q", s.FirstUserMessageSnippet)
	}
	if s.LastUpdated <= before {
		t.Error("lastUpdated should increase on message change")
	}
}

func TestTitleTruncatedWithEllipsis(t *testing.T) {
	d, _, _ := newDirectory(t)
	s := d.Create()

	long := strings.Repeat("x", 45)
	d.OnMessagesChanged(s.ID, []types.Message{types.NewMessage(long, types.SenderUser)})

	if want := strings.Repeat("x", 30) + "..."; s.Title != want {
		t.Errorf("expected %q, got %q", want, s.Title)
	}
}

func TestTitleNotRecomputedWhenSnippetFresh(t *testing.T) {
	d, _, _ := newDirectory(t)
	s := d.Create()

	d.OnMessagesChanged(s.ID, []types.Message{types.NewMessage("Hello", types.SenderUser)})
	s.Title = "Renamed by hand"

	// First user message unchanged: the cached snippet is fresh, so the
	// title stays put.
	d.OnMessagesChanged(s.ID, []types.Message{
		types.NewMessage("Hello", types.SenderUser),
		types.NewMessage("reply", types.SenderBot),
	})

	if s.Title != "Renamed by hand" {
		t.Errorf("title should not be recomputed, got %q", s.Title)
	}
}

func TestTitleRecomputedWhenSnippetStale(t *testing.T) {
	d, _, _ := newDirectory(t)
	s := d.Create()

	d.OnMessagesChanged(s.ID, []types.Message{types.NewMessage("Hello", types.SenderUser)})

	// The first user message changed under the session (e.g. history was
	// cleared and restarted): stale snippet forces re-derivation.
	d.OnMessagesChanged(s.ID, []types.Message{types.NewMessage("Different", types.SenderUser)})

	if s.Title != "Different" {
		t.Errorf("expected recomputed title, got %q", s.Title)
	}
}

func TestDeleteActiveReselectsMostRecent(t *testing.T) {
	d, _, _ := newDirectory(t)

	a := d.Create()
	b := d.Create()
	c := d.Create()

	// Make b the freshest, then delete the active session c.
	b.LastUpdated = time.Now().UnixMilli() + 5000
	if err := d.Select(c.ID); err != nil {
		t.Fatal(err)
	}
	if err := d.Delete(c.ID); err != nil {
		t.Fatal(err)
	}

	if d.CurrentID() != b.ID {
		t.Errorf("expected %s (greatest lastUpdated) to become current, got %s", b.ID, d.CurrentID())
	}
	if _, ok := d.Get(a.ID); !ok {
		t.Error("unrelated session should survive")
	}
}

func TestDeleteInactiveKeepsCurrent(t *testing.T) {
	d, _, _ := newDirectory(t)

	a := d.Create()
	b := d.Create()

	if err := d.Delete(a.ID); err != nil {
		t.Fatal(err)
	}
	if d.CurrentID() != b.ID {
		t.Errorf("current session should be untouched, got %s", d.CurrentID())
	}
}

func TestDeleteOnlySessionClearsCurrent(t *testing.T) {
	d, messages, _ := newDirectory(t)
	s := d.Create()

	if err := d.Delete(s.ID); err != nil {
		t.Fatal(err)
	}

	if d.CurrentID() != "" {
		t.Errorf("expected no active session, got %s", d.CurrentID())
	}
	if msgs := messages.Load(s.ID); len(msgs) != 0 {
		t.Error("deleted session's messages should be gone")
	}
}

func TestDeleteUnknownSession(t *testing.T) {
	d, _, _ := newDirectory(t)
	if err := d.Delete("nope"); err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestDirectoryPersistsAcrossLoads(t *testing.T) {
	kv := state.NewKV(t.TempDir())
	sessions := state.NewSessionStore(kv)
	messages := state.NewMessageStore(kv)

	d := LoadDirectory("user-1", sessions, messages)
	s := d.Create()
	d.OnMessagesChanged(s.ID, []types.Message{types.NewMessage("Hello", types.SenderUser)})

	d2 := LoadDirectory("user-1", sessions, messages)
	got, ok := d2.Get(s.ID)
	if !ok {
		t.Fatal("session not persisted")
	}
	if got.Title != "Hello" {
		t.Errorf("expected persisted title, got %q", got.Title)
	}
}
