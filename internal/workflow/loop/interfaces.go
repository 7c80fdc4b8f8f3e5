package loop

import (
	"context"
	"time"

	"github.com/Cyclone1070/agentcore/internal/provider"
	"github.com/Cyclone1070/agentcore/internal/tool"
)

// llmProvider communicates with an LLM.
type llmProvider interface {
	// CompleteWithTools sends the conversation and returns the next assistant turn.
	CompleteWithTools(ctx context.Context, messages []provider.Message, systemPrompt string, tools []tool.Declaration) (*provider.Response, error)
}

// toolRegistry resolves tool calls to implementations.
type toolRegistry interface {
	// Declarations returns all tool schemas for the LLM.
	Declarations() []tool.Declaration

	// Lookup returns the tool registered under name.
	Lookup(name string) (tool.Tool, bool)

	// UnknownTool describes the available tools for a call to a missing one.
	UnknownTool(name string) string
}

// permissionChecker gates every tool call.
type permissionChecker interface {
	Check(ctx context.Context, toolName string, input map[string]any) (bool, error)
}

// rateLimiter paces provider calls.
type rateLimiter interface {
	Wait(ctx context.Context) (time.Duration, error)
	ReportSuccess()
	HandleError(err error) time.Duration
}

// tokenCounter estimates request sizes for trimming.
type tokenCounter interface {
	Count(text string) int
	CountMessage(m provider.Message) int
	CountDeclarations(decls []tool.Declaration) int
}

// Checkpoint is notified after every executed tool call.
type Checkpoint func(toolName string, input map[string]any, result string, historyLen int)
