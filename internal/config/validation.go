package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Cyclone1070/agentcore/internal/permission"
)

// Validate checks config values for correctness.
// Returns an error listing every invalid value.
func (c *Config) Validate() error {
	var errs []string

	// Agent validation
	if c.Agent.MaxIterations < 1 {
		errs = append(errs, "agent.max_iterations must be >= 1")
	}
	if c.Agent.ContextWindow < 0 {
		errs = append(errs, "agent.context_window must be >= 0")
	}
	if c.Agent.TrimRatio <= 0 || c.Agent.TrimRatio > 1 {
		errs = append(errs, "agent.trim_ratio must be in (0, 1]")
	}
	if c.Agent.TransientRetries < 0 {
		errs = append(errs, "agent.transient_retries must be >= 0")
	}
	if c.Agent.TransientDelayMs < 0 {
		errs = append(errs, "agent.transient_delay_ms must be >= 0")
	}
	if c.Agent.RateLimitRetries < 0 {
		errs = append(errs, "agent.rate_limit_retries must be >= 0")
	}

	// Rate limit validation
	if c.RateLimit.WindowSeconds < 1 {
		errs = append(errs, "rate_limit.window_seconds must be >= 1")
	}
	if c.RateLimit.ProactiveThreshold < 1 {
		errs = append(errs, "rate_limit.proactive_threshold must be >= 1")
	}
	if c.RateLimit.MinGapMs < 0 {
		errs = append(errs, "rate_limit.min_gap_ms must be >= 0")
	}
	if c.RateLimit.MaxProactiveDelayMs < 0 {
		errs = append(errs, "rate_limit.max_proactive_delay_ms must be >= 0")
	}
	if len(c.RateLimit.BackoffLadderSeconds) == 0 {
		errs = append(errs, "rate_limit.backoff_ladder_seconds must not be empty")
	}
	for i, s := range c.RateLimit.BackoffLadderSeconds {
		if s < 1 {
			errs = append(errs, fmt.Sprintf("rate_limit.backoff_ladder_seconds[%d] must be >= 1", i))
		}
	}

	// Permission validation
	for name, level := range c.Permission.Levels {
		if _, err := permission.ParseLevel(level); err != nil {
			errs = append(errs, fmt.Sprintf("permission.levels.%s: %v", name, err))
		}
	}

	// Provider validation
	switch strings.ToLower(c.Provider.Name) {
	case "", ProviderGemini, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Sprintf("provider.name %q is not supported", c.Provider.Name))
	}
	if c.Provider.MaxTokens < 1 {
		errs = append(errs, "provider.max_tokens must be >= 1")
	}

	// Log validation
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Sprintf("log.level %q is not a log level", c.Log.Level))
	}

	// Tools validation
	if c.Tools.MaxFileSize < 1 {
		errs = append(errs, "tools.max_file_size must be >= 1")
	}
	if c.Tools.MaxListEntries < 1 {
		errs = append(errs, "tools.max_list_entries must be >= 1")
	}
	if c.Tools.MaxSearchResults < 1 {
		errs = append(errs, "tools.max_search_results must be >= 1")
	}
	if c.Tools.MaxLineLength < 1 {
		errs = append(errs, "tools.max_line_length must be >= 1")
	}
	if c.Tools.ShellTimeoutSeconds < 1 {
		errs = append(errs, "tools.shell_timeout_seconds must be >= 1")
	}
	if c.Tools.MaxShellOutput < 1 {
		errs = append(errs, "tools.max_shell_output must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
