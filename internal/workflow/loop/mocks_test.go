package loop

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Cyclone1070/agentcore/internal/provider"
	"github.com/Cyclone1070/agentcore/internal/tool"
	"github.com/Cyclone1070/agentcore/internal/workflow"
	"github.com/Cyclone1070/agentcore/internal/workflow/toolmanager"
)

type mockProvider struct {
	mu       sync.Mutex
	calls    int
	received [][]provider.Message
	fn       func(ctx context.Context, call int, messages []provider.Message) (*provider.Response, error)
}

func (m *mockProvider) CompleteWithTools(ctx context.Context, messages []provider.Message, _ string, _ []tool.Declaration) (*provider.Response, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.received = append(m.received, slices.Clone(messages))
	m.mu.Unlock()
	return m.fn(ctx, call, messages)
}

func (m *mockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockTool struct {
	name        string
	executeFunc func(ctx context.Context, input map[string]any) (string, error)
	executed    []map[string]any
}

func (m *mockTool) Declaration() tool.Declaration { return tool.Declaration{Name: m.name} }

func (m *mockTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	m.executed = append(m.executed, input)
	if m.executeFunc != nil {
		return m.executeFunc(ctx, input)
	}
	return "ok", nil
}

type mockPerms struct {
	checkFunc func(ctx context.Context, toolName string, input map[string]any) (bool, error)
}

func (m *mockPerms) Check(ctx context.Context, toolName string, input map[string]any) (bool, error) {
	if m.checkFunc != nil {
		return m.checkFunc(ctx, toolName, input)
	}
	return true, nil
}

type mockLimiter struct {
	waits     int
	successes int
	errors    []error
}

func (m *mockLimiter) Wait(ctx context.Context) (time.Duration, error) {
	m.waits++
	return 0, ctx.Err()
}

func (m *mockLimiter) ReportSuccess() { m.successes++ }

func (m *mockLimiter) HandleError(err error) time.Duration {
	m.errors = append(m.errors, err)
	return time.Millisecond
}

type eventLog struct {
	events []workflow.Event
}

func (e *eventLog) observe(ev workflow.Event) { e.events = append(e.events, ev) }

func (e *eventLog) count(match func(workflow.Event) bool) int {
	n := 0
	for _, ev := range e.events {
		if match(ev) {
			n++
		}
	}
	return n
}

func registry(tools ...tool.Tool) *toolmanager.ToolManager {
	return toolmanager.NewToolManager(tools...)
}

func textResponse(text string) *provider.Response {
	return &provider.Response{
		Content:    []provider.Content{provider.Text{Text: text}},
		StopReason: provider.StopEndTurn,
		Usage:      &provider.Usage{InputTokens: 10, OutputTokens: 5},
	}
}

func toolResponse(calls ...provider.ToolCall) *provider.Response {
	content := make([]provider.Content, len(calls))
	for i, c := range calls {
		content[i] = c
	}
	return &provider.Response{Content: content, StopReason: provider.StopToolUse, Usage: &provider.Usage{InputTokens: 20, OutputTokens: 3}}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	return cfg
}
