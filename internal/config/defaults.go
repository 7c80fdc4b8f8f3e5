package config

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// NOTE: Values in config files override defaults, including explicit zero values.
// Missing keys are left at their default values.
type Config struct {
	Agent      AgentConfig      `yaml:"agent" json:"agent"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" json:"rate_limit"`
	Permission PermissionConfig `yaml:"permission" json:"permission"`
	Provider   ProviderConfig   `yaml:"provider" json:"provider"`
	Log        LogConfig        `yaml:"log" json:"log"`
	Tools      ToolsConfig      `yaml:"tools" json:"tools"`
}

type AgentConfig struct {
	MaxIterations int     `yaml:"max_iterations" json:"max_iterations"` // Default: 200
	ContextWindow int     `yaml:"context_window" json:"context_window"` // Default: 0 (ask the provider)
	TrimRatio     float64 `yaml:"trim_ratio" json:"trim_ratio"`         // Default: 0.85
	SystemPrompt  string  `yaml:"system_prompt" json:"system_prompt"`

	// Retries
	TransientRetries int `yaml:"transient_retries" json:"transient_retries"`   // Default: 3
	TransientDelayMs int `yaml:"transient_delay_ms" json:"transient_delay_ms"` // Default: 1000
	RateLimitRetries int `yaml:"rate_limit_retries" json:"rate_limit_retries"` // Default: 5
}

type RateLimitConfig struct {
	WindowSeconds        int   `yaml:"window_seconds" json:"window_seconds"`                 // Default: 60
	ProactiveThreshold   int   `yaml:"proactive_threshold" json:"proactive_threshold"`       // Default: 25
	MinGapMs             int   `yaml:"min_gap_ms" json:"min_gap_ms"`                         // Default: 250
	MaxProactiveDelayMs  int   `yaml:"max_proactive_delay_ms" json:"max_proactive_delay_ms"` // Default: 5000
	BackoffLadderSeconds []int `yaml:"backoff_ladder_seconds" json:"backoff_ladder_seconds"` // Default: [2,5,10,20,30,60]
}

type PermissionConfig struct {
	Skip bool `yaml:"skip" json:"skip"`
	Yolo bool `yaml:"yolo" json:"yolo"`

	// Levels overrides the level of individual tools ("auto", "ask" or "dangerous").
	Levels map[string]string `yaml:"levels" json:"levels"`
}

type ProviderConfig struct {
	Name      string `yaml:"name" json:"name"`             // "gemini", "anthropic" or empty to pick by API key
	Model     string `yaml:"model" json:"model"`
	MaxTokens int    `yaml:"max_tokens" json:"max_tokens"` // Default: 8192
}

type LogConfig struct {
	Level string `yaml:"level" json:"level"` // Default: "info"
}

type ToolsConfig struct {
	// File Operations
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"` // Default: 5 * 1024 * 1024 (5MB)

	// Listing and search
	MaxListEntries   int `yaml:"max_list_entries" json:"max_list_entries"`     // Default: 1000
	MaxSearchResults int `yaml:"max_search_results" json:"max_search_results"` // Default: 200
	MaxLineLength    int `yaml:"max_line_length" json:"max_line_length"`       // Default: 500

	// Command Execution
	ShellTimeoutSeconds int `yaml:"shell_timeout_seconds" json:"shell_timeout_seconds"` // Default: 120
	MaxShellOutput      int `yaml:"max_shell_output" json:"max_shell_output"`           // Default: 64 * 1024
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			MaxIterations:    200,
			TrimRatio:        0.85,
			TransientRetries: 3,
			TransientDelayMs: 1000,
			RateLimitRetries: 5,
		},
		RateLimit: RateLimitConfig{
			WindowSeconds:        60,
			ProactiveThreshold:   25,
			MinGapMs:             250,
			MaxProactiveDelayMs:  5000,
			BackoffLadderSeconds: []int{2, 5, 10, 20, 30, 60},
		},
		Permission: PermissionConfig{
			Levels: map[string]string{},
		},
		Provider: ProviderConfig{
			MaxTokens: 8192,
		},
		Log: LogConfig{
			Level: "info",
		},
		Tools: ToolsConfig{
			MaxFileSize:         5 * 1024 * 1024,
			MaxListEntries:      1000,
			MaxSearchResults:    200,
			MaxLineLength:       500,
			ShellTimeoutSeconds: 120,
			MaxShellOutput:      64 * 1024,
		},
	}
}
