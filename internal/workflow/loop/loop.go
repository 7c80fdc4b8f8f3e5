// Package loop drives one user request through a bounded sequence of provider
// calls and tool executions.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Cyclone1070/agentcore/internal/interrupt"
	"github.com/Cyclone1070/agentcore/internal/provider"
	"github.com/Cyclone1070/agentcore/internal/tool"
	"github.com/Cyclone1070/agentcore/internal/workflow"
)

const (
	deniedResult      = "User denied this action."
	retryHint         = "\n\nTry again with a different approach or different arguments."
	maxHintedStreak   = 3
	unparseableResult = "the arguments for this tool call were truncated and could not be repaired. Re-issue the call with complete, valid JSON arguments."
)

// Config controls a Loop.
type Config struct {
	MaxIterations int
	SystemPrompt  string

	// ContextWindow is the provider's maximum context in tokens. Zero
	// disables trimming.
	ContextWindow int
	TrimRatio     float64

	TransientRetries int
	RetryDelay       time.Duration
	RateLimitRetries int
}

// DefaultConfig returns a 200 iteration cap and an 85% trim budget.
func DefaultConfig() Config {
	return Config{
		MaxIterations:    200,
		TrimRatio:        0.85,
		TransientRetries: 3,
		RetryDelay:       time.Second,
		RateLimitRetries: 5,
	}
}

// Option configures a Loop.
type Option func(*Loop)

// WithLimiter paces provider calls through l.
func WithLimiter(l rateLimiter) Option {
	return func(lp *Loop) { lp.limiter = l }
}

// WithToken runs the loop under an operator's cancellation token.
func WithToken(t *interrupt.Token) Option {
	return func(lp *Loop) { lp.token = t }
}

// WithObserver receives every event synchronously, in loop order.
func WithObserver(fn func(workflow.Event)) Option {
	return func(lp *Loop) { lp.observer = fn }
}

// WithCheckpoint is notified after every executed tool call.
func WithCheckpoint(fn Checkpoint) Option {
	return func(lp *Loop) { lp.checkpoint = fn }
}

// WithCounter sets the token counter used for trimming.
func WithCounter(c tokenCounter) Option {
	return func(lp *Loop) { lp.counter = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(lp *Loop) { lp.logger = logger }
}

type Loop struct {
	provider   llmProvider
	tools      toolRegistry
	perms      permissionChecker
	cfg        Config
	limiter    rateLimiter
	token      *interrupt.Token
	observer   func(workflow.Event)
	checkpoint Checkpoint
	counter    tokenCounter
	logger     *slog.Logger
}

func NewLoop(p llmProvider, tools toolRegistry, perms permissionChecker, cfg Config, opts ...Option) *Loop {
	def := DefaultConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.TrimRatio <= 0 || cfg.TrimRatio > 1 {
		cfg.TrimRatio = def.TrimRatio
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}

	l := &Loop{
		provider: p,
		tools:    tools,
		perms:    perms,
		cfg:      cfg,
		counter:  approxCounter{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Result summarises a run. History is always consistent and should be adopted
// by the caller, including when Run returns an error.
type Result struct {
	Text       string
	ToolCalls  int
	Usage      provider.Usage
	Records    []workflow.ToolCallRecord
	Errors     []string
	Aborted    bool
	CapReached bool
	Iterations int
	History    []provider.Message
}

// run is the state of one Run invocation.
type run struct {
	ctx     context.Context
	token   *interrupt.Token
	decls   []tool.Declaration
	res     *Result
	history []provider.Message
	streak  int
}

// errAbort unwinds a run that observed cancellation.
var errAbort = errors.New("aborted")

// Run sends userText after history and loops until the model stops asking
// for tools, the iteration cap is reached or the run is aborted. Aborting is
// not an error: the result has Aborted set.
func (l *Loop) Run(ctx context.Context, userText string, history []provider.Message) (res *Result, err error) {
	token := l.token
	if token == nil {
		token = interrupt.NewToken(ctx)
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(token.Context(), cancel)
	defer stop()

	r := &run{
		ctx:     runCtx,
		token:   token,
		decls:   l.tools.Declarations(),
		res:     &Result{},
		history: append(slices.Clone(history), provider.UserText(userText)),
	}

	defer func() {
		r.res.History = r.history
		res = r.res
		if errors.Is(err, errAbort) {
			res.Aborted = true
			err = nil
			l.logger.Info("agent loop aborted", "iterations", res.Iterations, "tool_calls", res.ToolCalls)
		}
		if err != nil {
			l.logger.Error("agent loop failed", "error", err, "iterations", res.Iterations)
		}
		l.emit(workflow.DoneEvent{Aborted: res.Aborted, CapReached: res.CapReached, Err: err})
	}()

	for r.res.Iterations < l.cfg.MaxIterations {
		if err := l.boundary(r); err != nil {
			return nil, err
		}

		sent := l.trim(r)
		l.emit(workflow.ThinkingEvent{Iteration: r.res.Iterations + 1})
		resp, err := l.complete(r, sent)
		if err != nil {
			return nil, err
		}

		if resp.Usage != nil {
			r.res.Usage.Add(*resp.Usage)
			l.emit(workflow.TokensEvent{Call: *resp.Usage, Total: r.res.Usage})
		}

		text, calls := partition(resp.Content)
		if resp.StopReason != provider.StopToolUse || len(calls) == 0 {
			l.finish(r, resp, text, calls)
			return nil, nil
		}

		results := make([]provider.Content, 0, len(calls))
		for _, call := range calls {
			if err := l.boundary(r); err != nil {
				return nil, err
			}
			result, err := l.dispatch(r, call)
			if err != nil {
				return nil, err
			}
			results = append(results, result)
		}

		r.history = append(r.history,
			provider.Message{Role: provider.RoleAssistant, Content: resp.Content},
			provider.Message{Role: provider.RoleUser, Content: results},
		)
		r.res.Iterations++
	}

	r.res.CapReached = true
	msg := fmt.Sprintf("stopped after reaching the iteration cap of %d; re-run with a larger cap to continue", l.cfg.MaxIterations)
	r.res.Errors = append(r.res.Errors, msg)
	l.logger.Warn("agent loop hit iteration cap", "max_iterations", l.cfg.MaxIterations)
	l.emit(workflow.NoticeEvent{Kind: workflow.NoticeIterations, Message: msg})
	return nil, nil
}

// boundary is where cancellation and pausing are observed.
func (l *Loop) boundary(r *run) error {
	if r.token.Aborted() || r.ctx.Err() != nil {
		return errAbort
	}
	if err := r.token.CheckPause(r.ctx); err != nil {
		return errAbort
	}
	return nil
}

func (l *Loop) finish(r *run, resp *provider.Response, text string, calls []provider.ToolCall) {
	content := resp.Content
	if len(calls) > 0 {
		// Calls outside a tool_use turn would be left unanswered.
		content = slices.DeleteFunc(slices.Clone(content), func(c provider.Content) bool {
			_, ok := c.(provider.ToolCall)
			return ok
		})
		r.res.Errors = append(r.res.Errors, fmt.Sprintf("dropped %d tool call(s) from a turn that ended with %q", len(calls), resp.StopReason))
	}
	if len(content) > 0 {
		r.history = append(r.history, provider.Message{Role: provider.RoleAssistant, Content: content})
	}
	r.res.Iterations++
	r.res.Text = text
	l.emit(workflow.TextEvent{Text: text})
}

func partition(content []provider.Content) (string, []provider.ToolCall) {
	var sb strings.Builder
	var calls []provider.ToolCall
	for _, c := range content {
		switch b := c.(type) {
		case provider.Text:
			sb.WriteString(b.Text)
		case provider.ToolCall:
			calls = append(calls, b)
		}
	}
	return sb.String(), calls
}

func (l *Loop) emit(ev workflow.Event) {
	if l.observer != nil {
		l.observer(ev)
	}
}
