// Package tokencount estimates prompt sizes so the loop can keep the
// conversation inside the provider's context window.
package tokencount

import (
	"encoding/json"
	"fmt"

	"github.com/tiktoken-go/tokenizer"

	"github.com/Cyclone1070/agentcore/internal/provider"
	"github.com/Cyclone1070/agentcore/internal/tool"
)

// perMessageOverhead approximates role and framing tokens.
const perMessageOverhead = 4

// Counter counts tokens with the GPT-4 encoding. Other vendors tokenise
// differently; the estimate is close enough for budgeting.
type Counter struct {
	codec tokenizer.Codec
}

// New loads the codec.
func New() (*Counter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec: %w", err)
	}
	return &Counter{codec: codec}, nil
}

// Count returns the number of tokens in text, falling back to four
// characters per token when no codec is available.
func (c *Counter) Count(text string) int {
	if c == nil || c.codec == nil {
		return len(text) / 4
	}
	n, err := c.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return n
}

// CountMessage estimates the tokens one message costs in a request.
func (c *Counter) CountMessage(m provider.Message) int {
	n := perMessageOverhead
	for _, block := range m.Content {
		switch b := block.(type) {
		case provider.Text:
			n += c.Count(b.Text)
		case provider.Reasoning:
			n += c.Count(b.Text)
		case provider.ToolCall:
			n += c.Count(b.Name)
			if b.Input != nil {
				raw, _ := json.Marshal(b.Input)
				n += c.Count(string(raw))
			} else {
				n += c.Count(b.Raw)
			}
		case provider.ToolResult:
			n += c.Count(b.Content) + perMessageOverhead
		}
	}
	return n
}

// CountMessages sums CountMessage over msgs.
func (c *Counter) CountMessages(msgs []provider.Message) int {
	total := 0
	for _, m := range msgs {
		total += c.CountMessage(m)
	}
	return total
}

// CountDeclarations estimates the cost of sending the tool definitions.
func (c *Counter) CountDeclarations(decls []tool.Declaration) int {
	if len(decls) == 0 {
		return 0
	}
	raw, err := json.Marshal(decls)
	if err != nil {
		return 0
	}
	return c.Count(string(raw))
}
