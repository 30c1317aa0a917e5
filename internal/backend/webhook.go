// internal/backend/webhook.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/user/chatrelay/internal/types"
)

// EmptyReplyFallback is the canned bot reply used when the webhook answers
// with a successful but empty body.
const EmptyReplyFallback = "The bot didn't provide a specific response this time."

// replyKeys are the candidate JSON fields probed for the bot reply, in
// priority order, before falling back to the first string-valued property.
var replyKeys = []string{"output", "reply", "answer"}

// RemoteError is any failure of the remote exchange: transport, non-2xx
// status, or an undecodable body. Status is 0 when no response arrived.
type RemoteError struct {
	Status int
	Detail string
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("the bot service returned an error (status %d): %s", e.Status, e.Detail)
	}
	return e.Detail
}

// Config configures the webhook client. It is validated once at startup and
// passed in explicitly; the client reads no ambient state.
type Config struct {
	URL            string
	APIKey         string
	Timeout        time.Duration
	IncludeHistory bool
}

// Client calls the remote conversational-AI webhook, one request per user
// turn. No retry, no cancellation beyond the transport's.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a webhook client with the given configuration.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// historyEntry is the wire shape of one prior exchange turn.
type historyEntry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// sendRequest is the webhook request body. Mensaje and SessionID are the
// fixed wire contract; History rides along only when configured.
type sendRequest struct {
	Mensaje   string         `json:"mensaje"`
	SessionID string         `json:"sessionId"`
	History   []historyEntry `json:"history,omitempty"`
}

// Send posts the user message to the webhook and decodes the reply.
func (c *Client) Send(ctx context.Context, userMessage string, history []types.Message, sessionID types.SessionID) (string, error) {
	reqBody := sendRequest{
		Mensaje:   userMessage,
		SessionID: string(sessionID),
	}
	if c.cfg.IncludeHistory {
		reqBody.History = formatHistory(history)
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &RemoteError{Detail: fmt.Sprintf("network error: failed to reach the bot service: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RemoteError{Status: resp.StatusCode, Detail: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &RemoteError{Status: resp.StatusCode, Detail: errorDetail(respBody, resp.Status)}
	}

	return decodeReply(respBody, resp.Header.Get("Content-Type"))
}

// formatHistory filters the exchange to USER/BOT turns and maps them to the
// webhook's role vocabulary.
func formatHistory(history []types.Message) []historyEntry {
	out := make([]historyEntry, 0, len(history))
	for _, m := range history {
		switch m.Sender {
		case types.SenderUser:
			out = append(out, historyEntry{Role: "user", Text: m.Text})
		case types.SenderBot:
			out = append(out, historyEntry{Role: "model", Text: m.Text})
		}
	}
	return out
}

// errorDetail extracts the best available failure description from an error
// body: error.message, then message, then the raw text, then the status line.
func errorDetail(body []byte, statusLine string) string {
	text := strings.TrimSpace(string(body))

	var probe struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &probe); err == nil {
		if probe.Error.Message != "" {
			return probe.Error.Message
		}
		if probe.Message != "" {
			return probe.Message
		}
	}
	if text != "" {
		return text
	}
	return statusLine
}

// decodeReply turns a successful webhook response body into the bot reply
// text, tolerant of the several shapes observed in the wild.
func decodeReply(body []byte, contentType string) (string, error) {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return EmptyReplyFallback, nil
	}

	if strings.Contains(strings.ToLower(contentType), "application/json") {
		reply, err := replyFromJSON(body)
		if err == nil && reply != "" {
			return reply, nil
		}
		// Malformed JSON, or JSON with no usable text field: fall back to the
		// raw body unless it is empty or just "{}".
		if text != "" && text != "{}" {
			return text, nil
		}
		return "", &RemoteError{Detail: "the bot sent a JSON response, but it contained no usable text"}
	}

	if strings.Contains(strings.ToLower(contentType), "text/html") {
		if md, err := htmltomarkdown.ConvertString(text); err == nil {
			md = strings.TrimSpace(md)
			if md != "" {
				return md, nil
			}
		}
	}

	return text, nil
}

// replyFromJSON probes the candidate keys in priority order, then falls back
// to the first string-valued property of the top-level object. Go maps do not
// keep JSON object order, so the fallback scans the raw document with a token
// decoder to honor "first as encountered".
func replyFromJSON(body []byte) (string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", fmt.Errorf("parse reply JSON: %w", err)
	}

	for _, key := range replyKeys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), nil
		}
	}

	return firstStringValue(body)
}

// firstStringValue walks the top-level object in document order and returns
// the first non-empty string value.
func firstStringValue(body []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))

	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("scan reply JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return "", fmt.Errorf("reply JSON is not an object")
	}

	for dec.More() {
		if _, err := dec.Token(); err != nil { // key
			return "", fmt.Errorf("scan reply JSON: %w", err)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return "", fmt.Errorf("scan reply JSON: %w", err)
		}
		var s string
		if err := json.Unmarshal(value, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), nil
		}
	}
	return "", nil
}
