package sandbox

import (
	"regexp"
	"strings"
)

// CommandRisk is the sandbox's verdict on a shell command.
type CommandRisk int

const (
	RiskSafe CommandRisk = iota
	RiskAsk
	RiskDangerous
)

func (r CommandRisk) String() string {
	switch r {
	case RiskSafe:
		return "safe"
	case RiskAsk:
		return "ask"
	case RiskDangerous:
		return "dangerous"
	default:
		return "unknown"
	}
}

// MaxCommandLength is applied after shell metacharacters are stripped.
const MaxCommandLength = 10000

const shellMetachars = ";&|<>`$(){}[]\\!*?~#\"'"

var dangerousPatterns = compile(
	// recursive delete
	`\brm\b[^|;&]*\s-(?:[a-z]*r[a-z]*|-recursive)\b`,
	// privilege escalation
	`\b(?:sudo|doas|pkexec)\b`,
	`(?:^|[\s;&|(])su(?:\s|$)`,
	// destructive permission changes
	`\bchmod\b.*\s(?:0?777|a\+rwx|ugo\+rwx)\b`,
	`\b(?:chmod|chown|chgrp)\b.*\s-(?:[a-z]*r[a-z]*|-recursive)\b`,
	// raw device writes
	`\bdd\b.*\bof=/dev/`,
	`>\s*/dev/(?:sd|hd|nvme|xvd|disk|mmcblk)`,
	`\bmkfs(?:\.\w+)?\b`,
	`\b(?:shutdown|reboot|halt|poweroff)\b`,
	// downloads fed to a shell or interpreter
	`\b(?:curl|wget)\b[^|]*\|\s*(?:sudo\s+)?(?:(?:ba|z|k|da|fi)?sh|python[\d.]*|perl|ruby|node|php)\b`,
	"(?:\\$\\(|<\\(|`)\\s*(?:curl|wget)\\b",
	// find with deletion
	`\bfind\b.*\s-delete\b`,
	`\bfind\b.*\s-exec(?:dir)?\s+(?:sudo\s+)?rm\b`,
	// forced pushes and history rewrites
	`\bgit\s+push\b.*\s(?:--force(?:-with-lease)?|-f)\b`,
	`\bgit\s+push\b.*\s\+\S`,
	`\bgit\s+reset\s+.*--hard\b`,
	`\bgit\s+clean\s+.*-[a-z]*f`,
	// destructive sql
	`\bdrop\s+(?:table|database|schema)\b`,
	`\btruncate\s+table\b`,
	`\bdelete\s+from\s+[\w."]+\s*(?:;|'|"|$)`,
	// fork bomb
	`:\s*\(\s*\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`,
)

var askPatterns = compile(
	`\brm\b`,
	`\bmv\b`,
	`\bgit\s+(?:push|reset|rebase|clean|checkout\s+--)`,
	`\b(?:chmod|chown|chgrp)\b`,
	`\b(?:kill|pkill|killall)\b`,
	`\bnpm\s+publish\b`,
	`\bdocker\s+(?:rm|rmi|system\s+prune)\b`,
)

var blockedPatterns = compile(
	`\bmkfs(?:\.\w+)?\b`,
	`\bwipefs\b`,
	`\bdd\b.*\bof=/dev/(?:sd|hd|nvme|xvd|disk|mmcblk)`,
	`>\s*/dev/(?:sd|hd|nvme|xvd|disk|mmcblk)`,
	`\bformat\s+[a-z]:`,
)

const forkBomb = ":(){:|:&};:"

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// ClassifyCommand returns the risk of running command. Patterns are matched
// against the original text; over-flagging is preferred to missing a match.
func ClassifyCommand(command string) CommandRisk {
	if strings.ContainsRune(command, 0) {
		return RiskDangerous
	}
	if len(stripMetachars(command)) > MaxCommandLength {
		return RiskDangerous
	}
	if IsBlocked(command) || matchAny(dangerousPatterns, command) {
		return RiskDangerous
	}
	if matchAny(askPatterns, command) {
		return RiskAsk
	}
	return RiskSafe
}

// IsBlocked reports whether command must never run, whatever the approval.
func IsBlocked(command string) bool {
	compact := strings.Join(strings.Fields(command), "")
	if strings.Contains(compact, forkBomb) {
		return true
	}
	return matchAny(blockedPatterns, command)
}

// CheckCommand returns a SecurityError when command is blocked.
func CheckCommand(command string) error {
	if IsBlocked(command) {
		return &SecurityError{Command: command, Err: ErrBlockedCommand}
	}
	return nil
}

func stripMetachars(command string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(shellMetachars, r) {
			return -1
		}
		return r
	}, command)
}
