package config

import (
	"log/slog"
	"time"

	"github.com/Cyclone1070/agentcore/internal/permission"
	"github.com/Cyclone1070/agentcore/internal/ratelimit"
	"github.com/Cyclone1070/agentcore/internal/tool/builtin"
	"github.com/Cyclone1070/agentcore/internal/workflow/loop"
)

// Supported provider names.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// LoopConfig converts the agent section.
func (c *Config) LoopConfig() loop.Config {
	return loop.Config{
		MaxIterations:    c.Agent.MaxIterations,
		SystemPrompt:     c.Agent.SystemPrompt,
		ContextWindow:    c.Agent.ContextWindow,
		TrimRatio:        c.Agent.TrimRatio,
		TransientRetries: c.Agent.TransientRetries,
		RetryDelay:       time.Duration(c.Agent.TransientDelayMs) * time.Millisecond,
		RateLimitRetries: c.Agent.RateLimitRetries,
	}
}

// LimiterConfig converts the rate_limit section.
func (c *Config) LimiterConfig() ratelimit.Config {
	ladder := make([]time.Duration, len(c.RateLimit.BackoffLadderSeconds))
	for i, s := range c.RateLimit.BackoffLadderSeconds {
		ladder[i] = time.Duration(s) * time.Second
	}
	return ratelimit.Config{
		Window:             time.Duration(c.RateLimit.WindowSeconds) * time.Second,
		ProactiveThreshold: c.RateLimit.ProactiveThreshold,
		MinGap:             time.Duration(c.RateLimit.MinGapMs) * time.Millisecond,
		MaxProactiveDelay:  time.Duration(c.RateLimit.MaxProactiveDelayMs) * time.Millisecond,
		BackoffLadder:      ladder,
	}
}

// PermissionLevels returns the default tool levels with the configured
// overrides applied. Call Validate first; unparseable levels are skipped.
func (c *Config) PermissionLevels() map[string]permission.Level {
	levels := permission.DefaultLevels()
	for name, s := range c.Permission.Levels {
		if l, err := permission.ParseLevel(s); err == nil {
			levels[name] = l
		}
	}
	return levels
}

// ToolLimits converts the tools section.
func (c *Config) ToolLimits() builtin.Limits {
	return builtin.Limits{
		MaxFileSize:      c.Tools.MaxFileSize,
		MaxListEntries:   c.Tools.MaxListEntries,
		MaxSearchResults: c.Tools.MaxSearchResults,
		MaxLineLength:    c.Tools.MaxLineLength,
		ShellTimeout:     time.Duration(c.Tools.ShellTimeoutSeconds) * time.Second,
		MaxShellOutput:   c.Tools.MaxShellOutput,
	}
}

// SlogLevel parses log.level, falling back to Info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
