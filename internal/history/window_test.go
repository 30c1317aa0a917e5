// internal/history/window_test.go
package history

import (
	"testing"

	"github.com/user/chatrelay/internal/types"
)

func messagesOf(texts ...string) []types.Message {
	out := make([]types.Message, len(texts))
	for i, text := range texts {
		out[i] = types.Message{ID: types.NewMessageID(), Text: text, Sender: types.SenderUser}
	}
	return out
}

func TestZeroBudgetPassesThrough(t *testing.T) {
	w, err := New("gpt-4", 0)
	if err != nil {
		t.Fatal(err)
	}

	in := messagesOf("one", "two", "three")
	out := w.Apply(in)
	if len(out) != 3 {
		t.Fatalf("expected full history, got %d", len(out))
	}
}

func TestWindowKeepsMostRecentSuffix(t *testing.T) {
	w, err := New("gpt-4", 6)
	if err != nil {
		t.Fatal(err)
	}

	in := messagesOf(
		"this is a fairly long opening message that costs many tokens",
		"short",
		"tail",
	)
	out := w.Apply(in)

	if len(out) == 0 {
		t.Fatal("expected at least the newest message")
	}
	if out[len(out)-1].Text != "tail" {
		t.Errorf("newest message must survive, got %q", out[len(out)-1].Text)
	}
	if len(out) == len(in) {
		t.Error("expected the oldest message to be trimmed")
	}
}

func TestWindowFitsAllWhenBudgetLarge(t *testing.T) {
	w, err := New("gpt-4", 100000)
	if err != nil {
		t.Fatal(err)
	}

	in := messagesOf("one", "two", "three")
	if out := w.Apply(in); len(out) != 3 {
		t.Errorf("expected all messages kept, got %d", len(out))
	}
}
