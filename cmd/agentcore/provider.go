package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Cyclone1070/agentcore/internal/config"
	"github.com/Cyclone1070/agentcore/internal/provider"
	"github.com/Cyclone1070/agentcore/internal/provider/anthropic"
	"github.com/Cyclone1070/agentcore/internal/provider/gemini"
)

const (
	defaultGeminiModel    = "gemini-2.5-pro"
	defaultAnthropicModel = "claude-sonnet-4-20250514"
)

var errNoCredentials = errors.New("no provider credentials: set GEMINI_API_KEY or ANTHROPIC_API_KEY")

// modelProvider is a provider that can name its model.
type modelProvider interface {
	provider.Provider
	Model() string
}

// providerChoice is the resolved provider name, model and key.
type providerChoice struct {
	name   string
	model  string
	apiKey string
}

// chooseProvider picks the configured provider, or the first one with a key
// in the environment.
func chooseProvider(cfg config.ProviderConfig, getenv func(string) string) (providerChoice, error) {
	keys := map[string]string{
		config.ProviderGemini:    getenv("GEMINI_API_KEY"),
		config.ProviderAnthropic: getenv("ANTHROPIC_API_KEY"),
	}

	name := strings.ToLower(cfg.Name)
	if name == "" {
		for _, candidate := range []string{config.ProviderGemini, config.ProviderAnthropic} {
			if keys[candidate] != "" {
				name = candidate
				break
			}
		}
		if name == "" {
			return providerChoice{}, errNoCredentials
		}
	}

	key := keys[name]
	if key == "" {
		return providerChoice{}, fmt.Errorf("%s selected but %s_API_KEY is not set", name, strings.ToUpper(name))
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
		if name == config.ProviderAnthropic {
			model = defaultAnthropicModel
		}
	}
	return providerChoice{name: name, model: model, apiKey: key}, nil
}

func newProvider(ctx context.Context, choice providerChoice, cfg *config.Config) (modelProvider, error) {
	switch choice.name {
	case config.ProviderGemini:
		client, err := gemini.NewClientFromKey(ctx, choice.apiKey)
		if err != nil {
			return nil, err
		}
		p, err := gemini.NewGeminiProvider(ctx, client, choice.model, gemini.WithMaxTokens(cfg.Provider.MaxTokens))
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.ProviderAnthropic:
		return anthropic.NewClaudeProvider(choice.apiKey, choice.model,
			anthropic.WithMaxTokens(cfg.Provider.MaxTokens),
			anthropic.WithContextWindow(cfg.Agent.ContextWindow),
		), nil
	default:
		return nil, fmt.Errorf("provider %q is not supported", choice.name)
	}
}
