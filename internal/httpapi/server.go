// internal/httpapi/server.go
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/user/chatrelay/internal/exchange"
	"github.com/user/chatrelay/internal/types"
)

// Server is the HTTP surface a browser front-end consumes. The identity
// handshake happens elsewhere; each request carries the resulting opaque
// identity in headers (X-User-Id, optionally X-User-Name / X-User-Email).
type Server struct {
	hub *exchange.Hub
	mux *http.ServeMux
}

// NewServer creates the HTTP API over the given hub.
func NewServer(hub *exchange.Hub) *Server {
	s := &Server{hub: hub, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/sessions", s.withUser(s.handleListSessions))
	s.mux.HandleFunc("POST /api/sessions", s.withUser(s.handleNewSession))
	s.mux.HandleFunc("DELETE /api/sessions/{id}", s.withUser(s.handleDeleteSession))
	s.mux.HandleFunc("POST /api/sessions/{id}/select", s.withUser(s.handleSelectSession))
	s.mux.HandleFunc("GET /api/sessions/{id}/export", s.withUser(s.handleExportSession))
	s.mux.HandleFunc("GET /api/messages", s.withUser(s.handleMessages))
	s.mux.HandleFunc("POST /api/send", s.withUser(s.handleSend))
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(w http.ResponseWriter, r *http.Request, c *exchange.Coordinator)

// withUser resolves the request's identity to a coordinator.
func (s *Server) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-User-Id"))
		if id == "" {
			writeError(w, http.StatusUnauthorized, "X-User-Id header is required")
			return
		}
		identity := types.Identity{
			ID:    types.UserID(id),
			Name:  r.Header.Get("X-User-Name"),
			Email: r.Header.Get("X-User-Email"),
		}
		next(w, r, s.hub.Get(identity))
	}
}

type sessionResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	LastUpdated int64  `json:"lastUpdated"`
	Current     bool   `json:"current"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request, c *exchange.Coordinator) {
	sessions, err := c.Sessions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	current := c.CurrentID()
	out := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionResponse{
			ID:          string(sess.ID),
			Title:       sess.Title,
			LastUpdated: sess.LastUpdated,
			Current:     sess.ID == current,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request, c *exchange.Coordinator) {
	sess, err := c.NewSession()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{
		ID:          string(sess.ID),
		Title:       sess.Title,
		LastUpdated: sess.LastUpdated,
		Current:     true,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, c *exchange.Coordinator) {
	if err := c.DeleteSession(types.SessionID(r.PathValue("id"))); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"current": string(c.CurrentID())})
}

func (s *Server) handleSelectSession(w http.ResponseWriter, r *http.Request, c *exchange.Coordinator) {
	if err := c.SelectSession(types.SessionID(r.PathValue("id"))); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"current": string(c.CurrentID())})
}

func (s *Server) handleExportSession(w http.ResponseWriter, r *http.Request, c *exchange.Coordinator) {
	transcript, err := c.Export(types.SessionID(r.PathValue("id")))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, transcript)
}

type messageResponse struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
}

func toMessageResponse(m types.Message) messageResponse {
	return messageResponse{
		ID:        string(m.ID),
		Text:      m.Text,
		Sender:    string(m.Sender),
		Timestamp: m.Timestamp.Format(time.RFC3339Nano),
	}
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, c *exchange.Coordinator) {
	messages, err := c.Messages()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, toMessageResponse(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": string(c.CurrentID()),
		"loading":   c.Loading(),
		"messages":  out,
	})
}

type sendRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request, c *exchange.Coordinator) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	// Input submission is disabled while a send is outstanding.
	if c.Loading() {
		writeError(w, http.StatusConflict, "a send is already in flight")
		return
	}

	resolution, err := c.Send(r.Context(), req.Text)
	switch {
	case errors.Is(err, exchange.ErrNoActiveSession):
		writeError(w, http.StatusConflict, "no active session; create one first")
		return
	case errors.Is(err, exchange.ErrSendInFlight):
		writeError(w, http.StatusConflict, "a send is already in flight")
		return
	case err != nil:
		// Remote failures still produce an ERROR message in the session; the
		// client renders it like any other message.
		slog.Warn("send failed", "error", err)
	}
	writeJSON(w, http.StatusOK, toMessageResponse(resolution))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
