package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Cyclone1070/agentcore/internal/provider"
	"github.com/Cyclone1070/agentcore/internal/tool"
	"google.golang.org/genai"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

// toGeminiContents converts the conversation to Gemini contents. Empty
// messages are skipped.
func toGeminiContents(messages []provider.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		if c := toGeminiContent(msg); c != nil {
			contents = append(contents, c)
		}
	}
	return contents
}

func toGeminiContent(msg provider.Message) *genai.Content {
	role := roleUser
	if msg.Role == provider.RoleAssistant {
		role = roleModel
	}

	parts := make([]*genai.Part, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch b := block.(type) {
		case provider.Text:
			if b.Text != "" {
				parts = append(parts, genai.NewPartFromText(b.Text))
			}
		case provider.Reasoning:
			part := &genai.Part{Text: b.Text, Thought: true}
			if b.Signature != "" {
				part.ThoughtSignature = []byte(b.Signature)
			}
			parts = append(parts, part)
		case provider.ToolCall:
			args := b.Input
			if args == nil {
				args = map[string]any{}
			}
			part := &genai.Part{FunctionCall: &genai.FunctionCall{ID: b.ID, Name: b.Name, Args: args}}
			if b.Signature != "" {
				part.ThoughtSignature = []byte(b.Signature)
			}
			parts = append(parts, part)
		case provider.ToolResult:
			key := "output"
			if b.IsError {
				key = "error"
			}
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       b.ToolCallID,
				Name:     b.Name,
				Response: map[string]any{key: b.Content},
			}})
		}
	}

	if len(parts) == 0 {
		return nil
	}
	return &genai.Content{Role: role, Parts: parts}
}

// defaultSafetySettings returns safety settings with BLOCK_NONE for all categories.
func defaultSafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHateSpeech,
		genai.HarmCategoryDangerousContent,
		genai.HarmCategoryHarassment,
		genai.HarmCategorySexuallyExplicit,
	}
	settings := make([]*genai.SafetySetting, len(categories))
	for i, c := range categories {
		settings[i] = &genai.SafetySetting{Category: c, Threshold: genai.HarmBlockThresholdOff}
	}
	return settings
}

// toGeminiTools converts tool declarations to a single Gemini tool.
func toGeminiTools(decls []tool.Declaration) []*genai.Tool {
	if len(decls) == 0 {
		return nil
	}

	fds := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		fd := &genai.FunctionDeclaration{Name: d.Name, Description: d.Description}
		if d.Parameters != nil {
			fd.Parameters = toGeminiSchema(d.Parameters)
		}
		fds = append(fds, fd)
	}
	return []*genai.Tool{{FunctionDeclarations: fds}}
}

func toGeminiSchema(s *tool.Schema) *genai.Schema {
	schema := &genai.Schema{
		Type:        toGeminiType(s.Type),
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
	}
	if len(s.Properties) > 0 {
		schema.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			if prop != nil {
				schema.Properties[name] = toGeminiSchema(prop)
			}
		}
	}
	if s.Items != nil {
		schema.Items = toGeminiSchema(s.Items)
	}
	return schema
}

func toGeminiType(t tool.Type) genai.Type {
	switch t {
	case tool.TypeString:
		return genai.TypeString
	case tool.TypeNumber:
		return genai.TypeNumber
	case tool.TypeInteger:
		return genai.TypeInteger
	case tool.TypeBoolean:
		return genai.TypeBoolean
	case tool.TypeArray:
		return genai.TypeArray
	case tool.TypeObject:
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// fromGeminiResponse converts the first candidate. Gemini does not always
// assign call IDs, so missing ones are generated with newID.
func fromGeminiResponse(resp *genai.GenerateContentResponse, newID func() string) (*provider.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, &provider.ProviderError{
				Code:    provider.ErrorCodeContentBlocked,
				Message: fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason),
			}
		}
		return nil, &provider.ProviderError{Code: provider.ErrorCodeMalformed, Message: "no candidates in response"}
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, &provider.ProviderError{Code: provider.ErrorCodeContentBlocked, Message: "content blocked by safety filters"}
	}

	out := &provider.Response{StopReason: provider.StopEndTurn}
	hasCalls := false
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				hasCalls = true
				call := fromFunctionCall(part.FunctionCall, newID)
				call.Signature = string(part.ThoughtSignature)
				out.Content = append(out.Content, call)
			case part.Thought:
				out.Content = append(out.Content, provider.Reasoning{Text: part.Text, Signature: string(part.ThoughtSignature)})
			case part.Text != "":
				out.Content = append(out.Content, provider.Text{Text: part.Text})
			}
		}
	}

	switch {
	case hasCalls:
		out.StopReason = provider.StopToolUse
	case candidate.FinishReason == genai.FinishReasonMaxTokens:
		out.StopReason = provider.StopMaxTokens
	}

	if u := resp.UsageMetadata; u != nil {
		out.Usage = &provider.Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount + u.ThoughtsTokenCount),
		}
	}
	return out, nil
}

func fromFunctionCall(fc *genai.FunctionCall, newID func() string) provider.ToolCall {
	id := fc.ID
	if id == "" {
		id = newID()
	}
	raw, err := json.Marshal(fc.Args)
	if err != nil {
		return provider.ToolCall{ID: id, Name: fc.Name, Unparseable: true}
	}
	input := fc.Args
	if input == nil {
		input = map[string]any{}
	}
	return provider.ToolCall{ID: id, Name: fc.Name, Input: input, Raw: string(raw)}
}

// mapGeminiError converts SDK errors into provider errors.
func mapGeminiError(err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := provider.WrapContextError(err); ctxErr != nil {
		return ctxErr
	}

	if apiErr, ok := asAPIError(err); ok {
		return provider.MapHTTPError(apiErr.Code, apiErr.Message, retryDelay(apiErr), err)
	}

	return &provider.ProviderError{
		Code:       provider.ErrorCodeNetwork,
		Message:    "network error",
		Underlying: err,
		Retryable:  true,
	}
}

func asAPIError(err error) (*genai.APIError, bool) {
	var ptr *genai.APIError
	if errors.As(err, &ptr) {
		return ptr, true
	}
	var val genai.APIError
	if errors.As(err, &val) {
		return &val, true
	}
	return nil, false
}

// retryDelay reads the RetryInfo detail Gemini attaches to quota errors.
func retryDelay(apiErr *genai.APIError) time.Duration {
	for _, d := range apiErr.Details {
		raw, ok := d["retryDelay"].(string)
		if !ok {
			continue
		}
		if dur, err := time.ParseDuration(raw); err == nil {
			return dur
		}
	}
	return 0
}
