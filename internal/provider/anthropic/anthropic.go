// Package anthropic adapts the Anthropic Messages API to provider.Provider.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Cyclone1070/agentcore/internal/provider"
	"github.com/Cyclone1070/agentcore/internal/tool"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// DefaultContextWindow is the input limit of current Claude models.
	DefaultContextWindow = 200_000
	// DefaultMaxTokens is sent when no output cap is configured; the API requires one.
	DefaultMaxTokens = 8192
)

// messagesAPI is the part of the SDK client the provider calls.
type messagesAPI interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Option configures a ClaudeProvider.
type Option func(*ClaudeProvider)

// WithMaxTokens caps the output of each call.
func WithMaxTokens(n int) Option {
	return func(p *ClaudeProvider) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithContextWindow overrides the context window used for trimming.
func WithContextWindow(n int) Option {
	return func(p *ClaudeProvider) {
		if n > 0 {
			p.contextWindow = n
		}
	}
}

// ClaudeProvider implements provider.Provider for Anthropic models.
type ClaudeProvider struct {
	messages      messagesAPI
	model         anthropic.Model
	maxTokens     int
	contextWindow int
}

// NewClaudeProvider creates a provider backed by the SDK client for apiKey.
func NewClaudeProvider(apiKey, model string, opts ...Option) *ClaudeProvider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return newProvider(&client.Messages, model, opts...)
}

func newProvider(messages messagesAPI, model string, opts ...Option) *ClaudeProvider {
	p := &ClaudeProvider{
		messages:      messages,
		model:         anthropic.Model(model),
		maxTokens:     DefaultMaxTokens,
		contextWindow: DefaultContextWindow,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CompleteWithTools sends the conversation and returns the next assistant turn.
func (p *ClaudeProvider) CompleteWithTools(ctx context.Context, messages []provider.Message, systemPrompt string, tools []tool.Declaration) (*provider.Response, error) {
	params := anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: int64(p.maxTokens),
		Messages:  toMessageParams(messages),
		Tools:     toToolParams(tools),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	resp, err := p.messages.New(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}
	return fromMessage(resp)
}

// ContextWindow returns the configured input limit.
func (p *ClaudeProvider) ContextWindow() int {
	return p.contextWindow
}

// Model returns the model name.
func (p *ClaudeProvider) Model() string {
	return string(p.model)
}

func toMessageParams(messages []provider.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
		for _, c := range msg.Content {
			switch b := c.(type) {
			case provider.Text:
				if b.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(b.Text))
				}
			case provider.Reasoning:
				if b.Signature != "" {
					blocks = append(blocks, anthropic.NewThinkingBlock(b.Signature, b.Text))
				}
			case provider.ToolCall:
				input := b.Input
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ID, input, b.Name))
			case provider.ToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolCallID, b.Content, b.IsError))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if msg.Role == provider.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

func toToolParams(decls []tool.Declaration) []anthropic.ToolUnionParam {
	if len(decls) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, 0, len(decls))
	for _, d := range decls {
		schema := anthropic.ToolInputSchemaParam{}
		if d.Parameters != nil {
			schema.Properties = d.Parameters.Properties
			schema.Required = d.Parameters.Required
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: schema,
		}})
	}
	return out
}

func fromMessage(msg *anthropic.Message) (*provider.Response, error) {
	if msg == nil {
		return nil, &provider.ProviderError{Code: provider.ErrorCodeMalformed, Message: "empty response"}
	}

	out := &provider.Response{
		StopReason: fromStopReason(msg.StopReason),
		Usage: &provider.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			out.Content = append(out.Content, provider.Text{Text: block.Text})
		case "thinking":
			out.Content = append(out.Content, provider.Reasoning{Text: block.Thinking, Signature: block.Signature})
		case "tool_use":
			out.Content = append(out.Content, provider.NewToolCall(block.ID, block.Name, string(block.Input)))
		}
	}
	return out, nil
}

func fromStopReason(r anthropic.StopReason) provider.StopReason {
	switch r {
	case anthropic.StopReasonToolUse:
		return provider.StopToolUse
	case anthropic.StopReasonMaxTokens:
		return provider.StopMaxTokens
	case anthropic.StopReasonStopSequence:
		return provider.StopStopSequence
	default:
		return provider.StopEndTurn
	}
}

// mapError converts SDK errors into provider errors.
func mapError(err error) error {
	if ctxErr := provider.WrapContextError(err); ctxErr != nil {
		return ctxErr
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		var header http.Header
		if apiErr.Response != nil {
			header = apiErr.Response.Header
		}
		return mapStatus(apiErr.StatusCode, apiErr.RawJSON(), header, err)
	}

	return &provider.ProviderError{
		Code:       provider.ErrorCodeNetwork,
		Message:    "network error",
		Underlying: err,
		Retryable:  true,
	}
}

// mapStatus classifies a failed response. Anthropic reports an empty balance
// as a 400 whose body mentions the credit balance.
func mapStatus(status int, body string, header http.Header, underlying error) error {
	message := body
	if message == "" {
		message = http.StatusText(status)
	}
	// 529 is Anthropic's overloaded status.
	if status == 529 {
		return &provider.ProviderError{Code: provider.ErrorCodeUnavailable, StatusCode: status, Message: "overloaded", Underlying: underlying, Retryable: true}
	}
	return provider.MapHTTPError(status, message, retryAfter(header), underlying)
}

func retryAfter(header http.Header) time.Duration {
	v := strings.TrimSpace(header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at), 0)
	}
	return 0
}
