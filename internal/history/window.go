// internal/history/window.go
package history

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/chatrelay/internal/types"
)

// Window trims the exchange history sent to the webhook to a token budget,
// dropping oldest turns first. A budget of zero disables trimming and the
// full history passes through untouched.
type Window struct {
	tokenizer *tiktoken.Tiktoken
	maxTokens int
}

// New creates a Window for the given model's tokenizer. Unknown models fall
// back to cl100k_base.
func New(model string, maxTokens int) (*Window, error) {
	if maxTokens <= 0 {
		return &Window{}, nil
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Window{tokenizer: enc, maxTokens: maxTokens}, nil
}

func (w *Window) countTokens(text string) int {
	return len(w.tokenizer.Encode(text, nil, nil))
}

// Apply returns the most recent suffix of messages that fits the budget.
// With no budget configured the input is returned as-is.
func (w *Window) Apply(messages []types.Message) []types.Message {
	if w.maxTokens <= 0 || w.tokenizer == nil {
		return messages
	}

	used := 0
	start := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		n := w.countTokens(messages[i].Text)
		if used+n > w.maxTokens {
			break
		}
		used += n
		start = i
	}
	return messages[start:]
}
