// Package provider defines the conversation model exchanged with language
// model backends and the capability the agent loop consumes.
package provider

import (
	"context"
	"strings"

	"github.com/Cyclone1070/agentcore/internal/tool"
)

// Role of a message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Content is one block of a message. The concrete types are Text, ToolCall,
// ToolResult and Reasoning.
type Content interface {
	isContent()
}

// Text is plain model or user text.
type Text struct {
	Text string
}

// ToolCall is a request from the model to run a tool. When the arguments
// could not be parsed even after repair, Unparseable is set, Input is nil and
// Raw holds what was received. Signature is an opaque reasoning signature
// some providers attach to the call and require back unchanged.
type ToolCall struct {
	ID          string
	Name        string
	Input       map[string]any
	Raw         string
	Unparseable bool
	Signature   string
}

// ToolResult answers the ToolCall with the same ID.
type ToolResult struct {
	ToolCallID string
	Name       string
	Content    string
	IsError    bool
}

// Reasoning is opaque chain-of-thought some providers require to be sent back.
type Reasoning struct {
	Text      string
	Signature string
}

func (Text) isContent()       {}
func (ToolCall) isContent()   {}
func (ToolResult) isContent() {}
func (Reasoning) isContent()  {}

// Message is one entry of the conversation.
type Message struct {
	Role    Role
	Content []Content
}

// UserText builds a plain user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: []Content{Text{Text: text}}}
}

// Text concatenates the message's text blocks.
func (m Message) Text() string {
	var sb strings.Builder
	for _, c := range m.Content {
		if t, ok := c.(Text); ok {
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}

// ToolCalls returns the tool-call blocks in order.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, c := range m.Content {
		if tc, ok := c.(ToolCall); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// ToolResults returns the tool-result blocks in order.
func (m Message) ToolResults() []ToolResult {
	var results []ToolResult
	for _, c := range m.Content {
		if tr, ok := c.(ToolResult); ok {
			results = append(results, tr)
		}
	}
	return results
}

// StopReason is why the provider ended its turn.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopToolUse      StopReason = "tool_use"
	StopMaxTokens    StopReason = "max_tokens"
	StopStopSequence StopReason = "stop_sequence"
)

// Usage counts tokens for one or more calls.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Add accumulates other into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Total is input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Response is the result of one completion call.
type Response struct {
	Content    []Content
	StopReason StopReason
	Usage      *Usage
}

// Provider is a language model backend.
type Provider interface {
	// CompleteWithTools sends the conversation and returns the next assistant
	// turn. Cancellation of ctx must surface as an error matching ErrCancelled.
	CompleteWithTools(ctx context.Context, messages []Message, systemPrompt string, tools []tool.Declaration) (*Response, error)

	// ContextWindow is the model's maximum context in tokens.
	ContextWindow() int
}
