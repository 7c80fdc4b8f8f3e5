// Package ui is the line-oriented terminal front end: it prints loop events
// as status lines, renders the final answer as markdown and reads permission
// answers from stdin.
package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Cyclone1070/agentcore/internal/provider"
	"github.com/Cyclone1070/agentcore/internal/workflow"
)

// Option configures a Terminal.
type Option func(*Terminal)

// WithRenderer sets the markdown renderer for final answers.
func WithRenderer(r MarkdownRenderer) Option {
	return func(t *Terminal) { t.renderer = r }
}

// WithStyles turns lipgloss styling on or off. Off prints plain text.
func WithStyles(enabled bool) Option {
	return func(t *Terminal) { t.styled = enabled }
}

type lineResult struct {
	line string
	err  error
	at   time.Time
}

// Terminal implements a permission prompter and a loop observer over a pair
// of streams.
type Terminal struct {
	in       io.Reader
	out      io.Writer
	renderer MarkdownRenderer
	styled   bool

	mu    sync.Mutex
	total provider.Usage

	readOnce sync.Once
	lines    chan lineResult
	// cancelled is set when a prompt ended without an answer.
	cancelled bool
}

// NewTerminal creates a Terminal reading answers from in and writing to out.
func NewTerminal(in io.Reader, out io.Writer, opts ...Option) *Terminal {
	t := &Terminal{in: in, out: out, styled: true, lines: make(chan lineResult)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Prompt shows prompt and waits for one line of input. It returns early with
// ctx's error if ctx ends first. A line typed after a cancelled prompt but
// before the next one is shown answers the cancelled prompt and is discarded.
func (t *Terminal) Prompt(ctx context.Context, prompt string) (string, error) {
	t.readOnce.Do(func() { go t.readLines() })

	t.mu.Lock()
	t.writePrompt(prompt)
	shown := time.Now()
	stale := t.cancelled
	t.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			t.mu.Lock()
			t.cancelled = true
			t.mu.Unlock()
			return "", ctx.Err()
		case res, ok := <-t.lines:
			if !ok {
				return "", io.EOF
			}
			if stale && res.err == nil && res.at.Before(shown) {
				continue
			}
			t.mu.Lock()
			t.cancelled = false
			t.mu.Unlock()
			return res.line, res.err
		}
	}
}

func (t *Terminal) readLines() {
	defer close(t.lines)
	scanner := bufio.NewScanner(t.in)
	for scanner.Scan() {
		t.lines <- lineResult{line: scanner.Text(), at: time.Now()}
	}
	if err := scanner.Err(); err != nil {
		t.lines <- lineResult{err: fmt.Errorf("failed to read input: %w", err)}
	}
}

// writePrompt boxes everything but the final question line.
func (t *Terminal) writePrompt(prompt string) {
	body, question := "", prompt
	if i := strings.LastIndex(prompt, "\n"); i >= 0 {
		body, question = strings.TrimRight(prompt[:i], "\n"), prompt[i+1:]
	}
	if body != "" {
		fmt.Fprintln(t.out, t.render(PermissionBoxStyle, body))
	}
	fmt.Fprint(t.out, t.render(StatusDeniedStyle.Bold(true), question))
}

// Observe prints one status line per event.
func (t *Terminal) Observe(ev workflow.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e := ev.(type) {
	case workflow.ThinkingEvent:
		t.println(DimStyle, fmt.Sprintf("· thinking (turn %d)", e.Iteration))
	case workflow.TokensEvent:
		t.total = e.Total
	case workflow.ToolStartEvent:
		t.println(StatusExecutingStyle, "▸ "+label(e.ToolName, e.Label))
	case workflow.ToolEndEvent:
		t.printToolEnd(e.Record)
	case workflow.NoticeEvent:
		msg := "! " + e.Message
		if e.Wait > 0 {
			msg += fmt.Sprintf(" (waiting %s)", e.Wait.Round(100*time.Millisecond))
		}
		t.println(NoticeStyle, msg)
	case workflow.TextEvent:
		fmt.Fprintln(t.out, strings.TrimRight(RenderMarkdown(e.Text, t.renderer), "\n"))
	case workflow.DoneEvent:
		t.printDone(e)
	}
}

func (t *Terminal) printToolEnd(rec workflow.ToolCallRecord) {
	name := label(rec.ToolName, rec.Label)
	switch rec.Outcome {
	case workflow.OutcomeDone:
		t.println(StatusDoneStyle, fmt.Sprintf("✔ %s (%s)", name, rec.Duration.Round(time.Millisecond)))
	case workflow.OutcomeDenied:
		t.println(StatusDeniedStyle, fmt.Sprintf("⊘ %s denied", name))
	default:
		t.println(StatusErrorStyle, fmt.Sprintf("✗ %s: %s", name, firstLine(rec.Error)))
	}
}

func (t *Terminal) printDone(e workflow.DoneEvent) {
	switch {
	case e.Aborted:
		t.println(NoticeStyle, "aborted")
	case e.Err != nil:
		t.println(StatusErrorStyle, "error: "+e.Err.Error())
	case e.CapReached:
		t.println(NoticeStyle, "stopped at the iteration cap")
	}
	if t.total.InputTokens > 0 || t.total.OutputTokens > 0 {
		t.println(DimStyle, fmt.Sprintf("tokens: %d in, %d out", t.total.InputTokens, t.total.OutputTokens))
	}
}

func (t *Terminal) println(style lipgloss.Style, text string) {
	fmt.Fprintln(t.out, t.render(style, text))
}

func (t *Terminal) render(style lipgloss.Style, text string) string {
	if !t.styled {
		return text
	}
	return style.Render(text)
}

func label(toolName, l string) string {
	if l == "" {
		return toolName
	}
	return l
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
