package workflow

import (
	"time"

	"github.com/Cyclone1070/agentcore/internal/provider"
)

// Event is the interface for all workflow events.
// Observers handle events via type switch. Events are delivered synchronously
// in loop order.
type Event interface {
	isEvent()
}

// ThinkingEvent is emitted right before a provider call.
type ThinkingEvent struct {
	Iteration int
}

func (ThinkingEvent) isEvent() {}

// TokensEvent is emitted after every provider call that reported usage.
type TokensEvent struct {
	Call  provider.Usage
	Total provider.Usage
}

func (TokensEvent) isEvent() {}

// TextEvent carries the final answer, emitted before the run returns.
type TextEvent struct {
	Text string
}

func (TextEvent) isEvent() {}

// ToolStartEvent is emitted when a tool execution begins.
type ToolStartEvent struct {
	Seq      int
	ToolName string
	Label    string // e.g., "read_file src/index.ts"
}

func (ToolStartEvent) isEvent() {}

// ToolEndEvent is emitted once a tool call has a result.
type ToolEndEvent struct {
	Record ToolCallRecord
}

func (ToolEndEvent) isEvent() {}

// NoticeKind distinguishes notices.
type NoticeKind string

const (
	NoticeRetry      NoticeKind = "retry"
	NoticeRateLimit  NoticeKind = "rate_limit"
	NoticeTrimmed    NoticeKind = "trimmed"
	NoticeIterations NoticeKind = "iteration_cap"
)

// NoticeEvent reports a recoverable condition such as a retry or backoff.
type NoticeEvent struct {
	Kind    NoticeKind
	Message string
	Wait    time.Duration
}

func (NoticeEvent) isEvent() {}

// DoneEvent is emitted when the loop returns.
type DoneEvent struct {
	Aborted    bool
	CapReached bool
	Err        error
}

func (DoneEvent) isEvent() {}

// Outcome of one tool call.
type Outcome string

const (
	OutcomeDone   Outcome = "done"
	OutcomeError  Outcome = "error"
	OutcomeDenied Outcome = "denied"
)

// ToolCallRecord is the per-call bookkeeping collected into a run's result.
type ToolCallRecord struct {
	Seq      int
	ToolName string
	Label    string
	Outcome  Outcome
	Error    string
	Duration time.Duration
}
