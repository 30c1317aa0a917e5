// internal/telegram/adapter.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/chatrelay/internal/exchange"
	"github.com/user/chatrelay/internal/types"
)

const maxTelegramMessage = 4096

// Adapter is an alternate chat surface: each Telegram account maps to a user
// identity and talks to the same coordinator hub as the HTTP API.
type Adapter struct {
	bot *tgbotapi.BotAPI
	hub *exchange.Hub
}

// New creates a Telegram adapter.
func New(token string, hub *exchange.Hub) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Adapter{bot: bot, hub: hub}, nil
}

// Start begins long-polling for Telegram updates.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			a.handleMessage(ctx, update.Message)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

func identityFor(msg *tgbotapi.Message) types.Identity {
	id := types.UserID("telegram:" + strconv.FormatInt(msg.From.ID, 10))
	return types.Identity{ID: id, Name: msg.From.UserName}
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	c := a.hub.Get(identityFor(msg))
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		a.handleCommand(c, chatID, msg)
		return
	}

	if c.Loading() {
		a.send(chatID, "Still waiting on the previous reply, one moment.")
		return
	}

	// Mirror the typing indicator while the exchange is outstanding.
	if _, err := a.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		slog.Debug("chat action failed", "error", err)
	}

	resolution, err := c.Send(ctx, msg.Text)
	switch {
	case errors.Is(err, exchange.ErrNoActiveSession):
		a.send(chatID, "No active chat. Use /new to start one.")
		return
	case errors.Is(err, exchange.ErrSendInFlight):
		a.send(chatID, "Still waiting on the previous reply, one moment.")
		return
	}
	// Remote failures resolve into an ERROR message; relay it like a reply.
	a.send(chatID, resolution.Text)
}

func (a *Adapter) handleCommand(c *exchange.Coordinator, chatID int64, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		a.send(chatID, "Hello! Send me a message and I'll relay it to the bot. Commands: /new, /sessions, /switch, /delete, /export, /status")

	case "new":
		sess, err := c.NewSession()
		if err != nil {
			a.send(chatID, "Could not create a chat: "+err.Error())
			return
		}
		a.send(chatID, fmt.Sprintf("Started %q.", sess.Title))

	case "sessions":
		a.send(chatID, a.formatSessions(c))

	case "switch":
		arg := strings.TrimSpace(msg.CommandArguments())
		n, err := strconv.Atoi(arg)
		if err != nil {
			a.send(chatID, "Usage: /switch <number from /sessions>")
			return
		}
		sessions, err := c.Sessions()
		if err != nil || n < 1 || n > len(sessions) {
			a.send(chatID, "No such chat. See /sessions.")
			return
		}
		if err := c.SelectSession(sessions[n-1].ID); err != nil {
			a.send(chatID, "Could not switch: "+err.Error())
			return
		}
		a.send(chatID, fmt.Sprintf("Switched to %q.", sessions[n-1].Title))

	case "delete":
		arg := strings.TrimSpace(msg.CommandArguments())
		n, err := strconv.Atoi(arg)
		if err != nil {
			a.send(chatID, "Usage: /delete <number from /sessions>")
			return
		}
		sessions, err := c.Sessions()
		if err != nil || n < 1 || n > len(sessions) {
			a.send(chatID, "No such chat. See /sessions.")
			return
		}
		if err := c.DeleteSession(sessions[n-1].ID); err != nil {
			a.send(chatID, "Could not delete: "+err.Error())
			return
		}
		a.send(chatID, fmt.Sprintf("Deleted %q.", sessions[n-1].Title))

	case "export":
		transcript, err := c.Export(c.CurrentID())
		if err != nil {
			a.send(chatID, "Could not export: "+err.Error())
			return
		}
		if transcript == "" {
			a.send(chatID, "Nothing to share yet.")
			return
		}
		a.send(chatID, transcript)

	case "status":
		messages, _ := c.Messages()
		a.send(chatID, fmt.Sprintf("Session: %s\nMessages: %d", c.CurrentID(), len(messages)))

	default:
		a.send(chatID, "Unknown command. Available: /start, /new, /sessions, /switch, /delete, /export, /status")
	}
}

func (a *Adapter) formatSessions(c *exchange.Coordinator) string {
	sessions, err := c.Sessions()
	if err != nil {
		return "Could not list chats: " + err.Error()
	}
	if len(sessions) == 0 {
		return "No chats yet. Use /new to start one."
	}
	current := c.CurrentID()
	var b strings.Builder
	for i, s := range sessions {
		marker := "  "
		if s.ID == current {
			marker = "* "
		}
		fmt.Fprintf(&b, "%s%d. %s\n", marker, i+1, s.Title)
	}
	return b.String()
}

func (a *Adapter) send(chatID int64, text string) {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = "Markdown"
		if _, err := a.bot.Send(msg); err != nil {
			// Retry without markdown if it fails
			msg.ParseMode = ""
			if _, err := a.bot.Send(msg); err != nil {
				slog.Error("send telegram message failed", "error", err)
			}
		}
	}
}

// splitMessage chunks text to Telegram's message size limit, backing off to
// a rune boundary so no fragment carries a torn UTF-8 sequence.
func splitMessage(text string) []string {
	var parts []string
	for len(text) > maxTelegramMessage {
		end := maxTelegramMessage
		for end > 0 && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == 0 {
			end = maxTelegramMessage
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return append(parts, text)
}
