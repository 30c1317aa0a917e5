// internal/chat/transcript.go
package chat

import (
	"strings"

	"github.com/user/chatrelay/internal/types"
)

// Transcript renders a conversation as shareable plain text, one
// "User:"/"Bot:" line per turn. Error messages and the typing indicator are
// not part of the exchange and are left out.
func Transcript(messages []types.Message) string {
	var lines []string
	for _, m := range messages {
		switch m.Sender {
		case types.SenderUser:
			lines = append(lines, "User: "+m.Text)
		case types.SenderBot:
			lines = append(lines, "Bot: "+m.Text)
		}
	}
	return strings.Join(lines, "\n")
}
