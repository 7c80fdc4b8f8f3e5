package permission

import (
	"fmt"
	"strings"
)

// Level is how much scrutiny a tool call needs before it runs.
type Level int

const (
	LevelAuto Level = iota
	LevelAsk
	LevelDangerous
)

func (l Level) String() string {
	switch l {
	case LevelAuto:
		return "auto"
	case LevelAsk:
		return "ask"
	case LevelDangerous:
		return "dangerous"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel parses "auto", "ask" or "dangerous".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		return LevelAuto, nil
	case "ask":
		return LevelAsk, nil
	case "dangerous":
		return LevelDangerous, nil
	}
	return 0, fmt.Errorf("unknown permission level %q", s)
}

// ShellTool is the name of the builtin shell tool.
const ShellTool = "run_shell"

// DefaultLevels maps the builtin tool names to their starting level.
// Read-only tools run without asking; anything that mutates asks.
func DefaultLevels() map[string]Level {
	return map[string]Level{
		"read_file":      LevelAuto,
		"list_directory": LevelAuto,
		"search_content": LevelAuto,
		"find_file":      LevelAuto,
		"read_todos":     LevelAuto,
		"write_file":     LevelAsk,
		"edit_file":      LevelAsk,
		"write_todos":    LevelAsk,
		ShellTool:        LevelAsk,
	}
}
