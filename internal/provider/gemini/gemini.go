// Package gemini adapts Google's Gemini API to provider.Provider.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Cyclone1070/agentcore/internal/provider"
	"github.com/Cyclone1070/agentcore/internal/tool"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

// ErrModelNotFound is returned when the requested model is not offered.
var ErrModelNotFound = errors.New("model not found")

// DefaultContextWindow is used when the API does not report a limit.
const DefaultContextWindow = 1_000_000

// Option configures a GeminiProvider.
type Option func(*GeminiProvider)

// WithMaxTokens caps the output of each call. Zero leaves the model default.
func WithMaxTokens(n int) Option {
	return func(p *GeminiProvider) { p.maxTokens = n }
}

// WithIDGenerator replaces the tool-call ID source.
func WithIDGenerator(fn func() string) Option {
	return func(p *GeminiProvider) { p.newID = fn }
}

// GeminiProvider implements provider.Provider for Google Gemini.
type GeminiProvider struct {
	client        GeminiClient
	model         string
	maxTokens     int
	contextWindow int
	newID         func() string
}

// NewGeminiProvider looks the model up to learn its context window.
func NewGeminiProvider(ctx context.Context, client GeminiClient, model string, opts ...Option) (*GeminiProvider, error) {
	models, err := client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", mapGeminiError(err))
	}

	p := &GeminiProvider{
		client: client,
		model:  strings.TrimPrefix(model, "models/"),
		newID:  func() string { return "call_" + uuid.NewString() },
	}
	found := false
	for _, m := range models {
		if strings.TrimPrefix(m.Name, "models/") == p.model {
			found = true
			p.contextWindow = m.InputTokenLimit
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, model)
	}
	if p.contextWindow <= 0 {
		p.contextWindow = DefaultContextWindow
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// CompleteWithTools sends the conversation and returns the next model turn.
func (p *GeminiProvider) CompleteWithTools(ctx context.Context, messages []provider.Message, systemPrompt string, tools []tool.Declaration) (*provider.Response, error) {
	config := &genai.GenerateContentConfig{
		SafetySettings: defaultSafetySettings(),
		Tools:          toGeminiTools(tools),
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(systemPrompt)}}
	}
	if p.maxTokens > 0 {
		config.MaxOutputTokens = int32(p.maxTokens)
	}

	resp, err := p.client.GenerateContent(ctx, p.model, toGeminiContents(messages), config)
	if err != nil {
		return nil, mapGeminiError(err)
	}
	return fromGeminiResponse(resp, p.newID)
}

// ContextWindow returns the model's input token limit.
func (p *GeminiProvider) ContextWindow() int {
	return p.contextWindow
}

// Model returns the model name without the "models/" prefix.
func (p *GeminiProvider) Model() string {
	return p.model
}
