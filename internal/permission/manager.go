// Package permission decides, per tool call, whether the call may run
// straight away or needs the operator's approval.
package permission

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Cyclone1070/agentcore/internal/sandbox"
)

// Prompter shows prompt to the operator and returns their raw answer.
type Prompter func(ctx context.Context, prompt string) (string, error)

// Upgrader raises a call's level based on its input. It must never return a
// level below base. A non-nil error rejects the call outright.
type Upgrader func(base Level, input map[string]any) (Level, error)

// MaxPreview bounds each previewed field in an approval prompt.
const MaxPreview = 500

// Option configures a Manager.
type Option func(*Manager)

// WithPrompter sets the interactive channel. Without one every call is allowed.
func WithPrompter(p Prompter) Option {
	return func(m *Manager) { m.prompter = p }
}

// WithLevels overrides the level of the named tools.
func WithLevels(levels map[string]Level) Option {
	return func(m *Manager) {
		for name, l := range levels {
			m.levels[name] = l
		}
	}
}

// WithSkip starts the session with prompts skipped for non-dangerous calls.
func WithSkip(skip bool) Option {
	return func(m *Manager) { m.skip = skip }
}

// WithYolo starts the session with every prompt skipped.
func WithYolo(yolo bool) Option {
	return func(m *Manager) { m.yolo = yolo }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// Manager holds the per-tool levels and the session-wide flags.
type Manager struct {
	logger   *slog.Logger
	prompter Prompter

	mu        sync.RWMutex
	levels    map[string]Level
	upgraders map[string]Upgrader
	skip      bool
	yolo      bool
}

// NewManager creates a Manager with DefaultLevels and the shell command
// upgrader registered for ShellTool.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		logger:    slog.Default(),
		levels:    DefaultLevels(),
		upgraders: map[string]Upgrader{ShellTool: CommandUpgrader("command")},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterUpgrader installs a content-based upgrade for one tool.
func (m *Manager) RegisterUpgrader(toolName string, u Upgrader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upgraders[toolName] = u
}

// SetLevel changes the base level of a tool.
func (m *Manager) SetLevel(toolName string, l Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[toolName] = l
}

func (m *Manager) Skip() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.skip
}

func (m *Manager) Yolo() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.yolo
}

// Classify returns the effective level for one call. Tools without a
// configured level ask.
func (m *Manager) Classify(toolName string, input map[string]any) (Level, error) {
	m.mu.RLock()
	base, ok := m.levels[toolName]
	if !ok {
		base = LevelAsk
	}
	upgrade := m.upgraders[toolName]
	m.mu.RUnlock()

	if upgrade == nil {
		return base, nil
	}
	l, err := upgrade(base, input)
	if err != nil {
		return LevelDangerous, err
	}
	return max(l, base), nil
}

// Check reports whether the call may run. Resolution order: auto passes,
// yolo passes everything, skip passes everything but dangerous, no
// interactive channel passes, otherwise the operator is asked.
func (m *Manager) Check(ctx context.Context, toolName string, input map[string]any) (bool, error) {
	level, err := m.Classify(toolName, input)
	if err != nil {
		m.logger.Warn("tool call rejected", "tool", toolName, "error", err)
		return false, err
	}

	m.mu.RLock()
	skip, yolo := m.skip, m.yolo
	m.mu.RUnlock()

	switch {
	case level == LevelAuto:
		return true, nil
	case yolo:
		return true, nil
	case skip && level != LevelDangerous:
		return true, nil
	case m.prompter == nil:
		m.logger.Debug("no interactive channel, allowing", "tool", toolName, "level", level.String())
		return true, nil
	}

	return m.ask(ctx, toolName, input, level)
}

func (m *Manager) ask(ctx context.Context, toolName string, input map[string]any, level Level) (bool, error) {
	answer, err := m.prompter(ctx, FormatPrompt(toolName, input, level))
	if err != nil {
		return false, fmt.Errorf("failed to get user permission: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	case "s", "skip":
		ok, err := m.confirm(ctx, "Skip approval for every non-dangerous call for the rest of this session?")
		if err != nil {
			return false, err
		}
		if ok {
			m.mu.Lock()
			m.skip = true
			m.mu.Unlock()
			m.logger.Info("session skip enabled")
		}
		return true, nil
	case "a", "all", "yolo":
		ok, err := m.confirm(ctx, "Skip approval for EVERY call, including dangerous ones, for the rest of this session?")
		if err != nil {
			return false, err
		}
		if ok {
			m.mu.Lock()
			m.skip = true
			m.yolo = true
			m.mu.Unlock()
			m.logger.Warn("session yolo enabled")
		}
		return true, nil
	default:
		m.logger.Info("tool call denied by user", "tool", toolName)
		return false, nil
	}
}

// confirm asks for an explicit "yes". The call that triggered it is allowed
// either way; only the session flag depends on the answer.
func (m *Manager) confirm(ctx context.Context, question string) (bool, error) {
	answer, err := m.prompter(ctx, question+" Type 'yes' to confirm: ")
	if err != nil {
		return false, fmt.Errorf("failed to get user confirmation: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(answer)) == "yes", nil
}

// previewKeys are shown first, in this order, when present in a call's input.
var previewKeys = []string{"path", "file_path", "command", "working_dir", "content", "diff"}

// FormatPrompt renders the approval question for one call.
func FormatPrompt(toolName string, input map[string]any, level Level) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s\n", strings.ToUpper(level.String()), toolName)

	seen := make(map[string]bool)
	for _, k := range previewKeys {
		if v, ok := input[k]; ok {
			fmt.Fprintf(&sb, "  %s: %s\n", k, Truncate(fmt.Sprint(v), MaxPreview))
			seen[k] = true
		}
	}
	if ops, ok := editOperations(input["operations"]); ok {
		writeOperations(&sb, ops)
		seen["operations"] = true
	}
	var rest []string
	for k := range input {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		fmt.Fprintf(&sb, "  %s: %s\n", k, Truncate(fmt.Sprint(input[k]), MaxPreview))
	}

	sb.WriteString("Allow? [y]es / [n]o / [s]kip prompts this session / [a]llow all this session: ")
	return sb.String()
}

// Truncate shortens s to at most n bytes, noting how much was cut.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return fmt.Sprintf("%s... (%d more bytes)", s[:cut], len(s)-cut)
}

// CommandUpgrader classifies the string stored under key with the sandbox's
// command classifier. Dangerous commands become LevelDangerous; blocked ones
// are rejected with the sandbox's SecurityError.
func CommandUpgrader(key string) Upgrader {
	return func(base Level, input map[string]any) (Level, error) {
		command, _ := input[key].(string)
		if err := sandbox.CheckCommand(command); err != nil {
			return LevelDangerous, err
		}
		if sandbox.ClassifyCommand(command) == sandbox.RiskDangerous {
			return LevelDangerous, nil
		}
		return base, nil
	}
}
