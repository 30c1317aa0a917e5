// internal/httpapi/server_test.go
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/user/chatrelay/internal/exchange"
	"github.com/user/chatrelay/internal/state"
	"github.com/user/chatrelay/internal/types"
)

type stubBackend struct {
	reply string
	err   error
}

func (s *stubBackend) Send(ctx context.Context, userMessage string, history []types.Message, sessionID types.SessionID) (string, error) {
	return s.reply, s.err
}

func setupServer(t *testing.T, b types.Backend) *Server {
	t.Helper()
	kv := state.NewKV(t.TempDir())
	hub := exchange.NewHub(b, state.NewSessionStore(kv), state.NewMessageStore(kv), nil)
	return NewServer(hub)
}

func doRequest(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-User-Id", "user-1")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := setupServer(t, &stubBackend{reply: "hi"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}
}

func TestIdentityHeaderRequired(t *testing.T) {
	srv := setupServer(t, &stubBackend{reply: "hi"})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestListSessionsAfterFirstContact(t *testing.T) {
	srv := setupServer(t, &stubBackend{reply: "hi"})

	w := doRequest(srv, http.MethodGet, "/api/sessions", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var sessions []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&sessions); err != nil {
		t.Fatal(err)
	}
	// First contact auto-creates the initial session.
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0]["title"] != types.DefaultTitle {
		t.Errorf("expected default title, got %v", sessions[0]["title"])
	}
	if sessions[0]["current"] != true {
		t.Error("expected the session to be current")
	}
}

func TestCreateAndDeleteSession(t *testing.T) {
	srv := setupServer(t, &stubBackend{reply: "hi"})

	w := doRequest(srv, http.MethodPost, "/api/sessions", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var created map[string]any
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("expected session id")
	}

	w = doRequest(srv, http.MethodDelete, "/api/sessions/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doRequest(srv, http.MethodDelete, "/api/sessions/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("double delete should 404, got %d", w.Code)
	}
}

func TestSendReturnsBotMessage(t *testing.T) {
	srv := setupServer(t, &stubBackend{reply: "Hi there"})

	w := doRequest(srv, http.MethodPost, "/api/send", `{"text":"Hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var msg map[string]any
	if err := json.NewDecoder(w.Body).Decode(&msg); err != nil {
		t.Fatal(err)
	}
	if msg["sender"] != string(types.SenderBot) || msg["text"] != "Hi there" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestSendEmptyTextRejected(t *testing.T) {
	srv := setupServer(t, &stubBackend{reply: "hi"})

	w := doRequest(srv, http.MethodPost, "/api/send", `{"text":"   "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestExportEndpoint(t *testing.T) {
	srv := setupServer(t, &stubBackend{reply: "Hi there"})

	doRequest(srv, http.MethodPost, "/api/send", `{"text":"Hello"}`)

	w := doRequest(srv, http.MethodGet, "/api/sessions", "")
	var sessions []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&sessions); err != nil {
		t.Fatal(err)
	}
	id := sessions[0]["id"].(string)

	w = doRequest(srv, http.MethodGet, "/api/sessions/"+id+"/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected plain-text transcript, got %s", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "User: Hello") || !strings.Contains(body, "Bot: Hi there") {
		t.Errorf("unexpected transcript: %q", body)
	}

	w = doRequest(srv, http.MethodGet, "/api/sessions/nope/export", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown session should 404, got %d", w.Code)
	}
}

func TestMessagesEndpoint(t *testing.T) {
	srv := setupServer(t, &stubBackend{reply: "Hi there"})

	doRequest(srv, http.MethodPost, "/api/send", `{"text":"Hello"}`)
	w := doRequest(srv, http.MethodGet, "/api/messages", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		SessionID string            `json:"sessionId"`
		Loading   bool              `json:"loading"`
		Messages  []messageResponse `json:"messages"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.SessionID == "" {
		t.Error("expected a session id")
	}
	if resp.Loading {
		t.Error("loading should be false at rest")
	}
	// welcome + user + bot
	if len(resp.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(resp.Messages))
	}
}
