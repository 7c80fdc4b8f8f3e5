// Package main is the agentcore command: it runs the agent loop against a
// workspace, either for one request given on the command line or as an
// interactive session.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Cyclone1070/agentcore/internal/config"
)

// flags holds the command-line overrides. Only flags the user set are applied.
type flags struct {
	configPath    string
	skip          bool
	yolo          bool
	maxIterations int
	provider      string
	model         string
	root          string
	logLevel      string
	metricsAddr   string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "agentcore [request]",
		Short: "Autonomous coding agent for the current workspace",
		Long: `agentcore sends a request to a language model and lets it read, edit and
run commands in the workspace until the request is done.

With a request argument it runs once and exits. Without one it starts an
interactive session. Ctrl+C aborts the running request; pressing it while
idle exits.

Provider credentials come from GEMINI_API_KEY or ANTHROPIC_API_KEY.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f.configPath)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, f, cfg); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, f, strings.TrimSpace(strings.Join(args, " ")))
		},
	}

	bindFlags(cmd, f)
	return cmd
}

func bindFlags(cmd *cobra.Command, f *flags) {
	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "config file (default ~/.config/agentcore/config.yaml)")
	fl.BoolVar(&f.skip, "skip", false, "skip approval prompts for non-dangerous tool calls")
	fl.BoolVar(&f.yolo, "yolo", false, "skip every approval prompt, including dangerous calls")
	fl.IntVar(&f.maxIterations, "max-iterations", 0, "maximum provider calls per request")
	fl.StringVar(&f.provider, "provider", "", "provider to use: gemini or anthropic")
	fl.StringVar(&f.model, "model", "", "model name")
	fl.StringVar(&f.root, "root", "", "workspace root (default current directory)")
	fl.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.NewLoader().LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// applyFlags copies explicitly set flags over cfg and revalidates it.
func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("skip") {
		cfg.Permission.Skip = f.skip
	}
	if changed("yolo") {
		cfg.Permission.Yolo = f.yolo
	}
	if changed("max-iterations") {
		cfg.Agent.MaxIterations = f.maxIterations
	}
	if changed("provider") {
		cfg.Provider.Name = f.provider
	}
	if changed("model") {
		cfg.Provider.Model = f.model
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	return cfg.Validate()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
