package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/agentcore/internal/config"
	"github.com/Cyclone1070/agentcore/internal/interrupt"
	"github.com/Cyclone1070/agentcore/internal/provider"
	"github.com/Cyclone1070/agentcore/internal/tool"
	"github.com/Cyclone1070/agentcore/internal/tool/builtin"
)

type mockProvider struct {
	mu       sync.Mutex
	received [][]provider.Message
	respond  func(call int) *provider.Response
}

func (m *mockProvider) CompleteWithTools(_ context.Context, messages []provider.Message, _ string, _ []tool.Declaration) (*provider.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, messages)
	return m.respond(len(m.received)), nil
}

func (m *mockProvider) ContextWindow() int { return 0 }

func (m *mockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.received)
}

func text(s string) *provider.Response {
	return &provider.Response{Content: []provider.Content{provider.Text{Text: s}}, StopReason: provider.StopEndTurn}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSession(t *testing.T, p provider.Provider, in string) (*session, *bytes.Buffer) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))
	ws, err := builtin.NewWorkspace(root, builtin.Limits{})
	require.NoError(t, err)

	var out bytes.Buffer
	s, err := newSession(config.DefaultConfig(), discardLogger(), p, ws, false, strings.NewReader(in), &out)
	require.NoError(t, err)
	return s, &out
}

func TestChooseProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ProviderConfig
		env     map[string]string
		want    providerChoice
		wantErr string
	}{
		{
			name: "gemini preferred when both keys set",
			env:  map[string]string{"GEMINI_API_KEY": "g", "ANTHROPIC_API_KEY": "a"},
			want: providerChoice{name: "gemini", model: defaultGeminiModel, apiKey: "g"},
		},
		{
			name: "anthropic by key",
			env:  map[string]string{"ANTHROPIC_API_KEY": "a"},
			want: providerChoice{name: "anthropic", model: defaultAnthropicModel, apiKey: "a"},
		},
		{
			name: "explicit provider and model",
			cfg:  config.ProviderConfig{Name: "Anthropic", Model: "claude-x"},
			env:  map[string]string{"GEMINI_API_KEY": "g", "ANTHROPIC_API_KEY": "a"},
			want: providerChoice{name: "anthropic", model: "claude-x", apiKey: "a"},
		},
		{
			name:    "explicit provider without key",
			cfg:     config.ProviderConfig{Name: "gemini"},
			env:     map[string]string{"ANTHROPIC_API_KEY": "a"},
			wantErr: "GEMINI_API_KEY is not set",
		},
		{
			name:    "no keys",
			wantErr: errNoCredentials.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := chooseProvider(tt.cfg, func(k string) string { return tt.env[k] })
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyFlags(t *testing.T) {
	f := &flags{}
	cmd := &cobra.Command{}
	bindFlags(cmd, f)
	require.NoError(t, cmd.ParseFlags([]string{"--yolo", "--max-iterations", "7", "--model", "m1", "--log-level", "debug"}))

	cfg := config.DefaultConfig()
	cfg.Permission.Skip = true
	require.NoError(t, applyFlags(cmd, f, cfg))

	assert.True(t, cfg.Permission.Yolo)
	assert.True(t, cfg.Permission.Skip, "unset flags keep config values")
	assert.Equal(t, 7, cfg.Agent.MaxIterations)
	assert.Equal(t, "m1", cfg.Provider.Model)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyFlags_Invalid(t *testing.T) {
	f := &flags{}
	cmd := &cobra.Command{}
	bindFlags(cmd, f)
	require.NoError(t, cmd.ParseFlags([]string{"--provider", "openai"}))

	err := applyFlags(cmd, f, config.DefaultConfig())

	assert.ErrorContains(t, err, "provider.name")
}

func TestSession_AskKeepsHistory(t *testing.T) {
	p := &mockProvider{respond: func(call int) *provider.Response {
		switch call {
		case 1:
			return &provider.Response{
				Content:    []provider.Content{provider.ToolCall{ID: "c1", Name: "list_directory", Input: map[string]any{"path": "."}}},
				StopReason: provider.StopToolUse,
			}
		case 2:
			return text("found a.txt")
		default:
			return text("again")
		}
	}}
	s, out := testSession(t, p, "")

	require.NoError(t, s.ask(context.Background(), "what is here?"))
	assert.Len(t, s.history, 4)
	results := s.history[2].ToolResults()
	require.Len(t, results, 1)
	assert.Equal(t, "a.txt\n", results[0].Content)

	require.NoError(t, s.ask(context.Background(), "and now?"))
	assert.Len(t, s.history, 6)
	assert.Len(t, p.received[2], 5)

	assert.Contains(t, out.String(), "list_directory")
	assert.Contains(t, out.String(), "found a.txt")
}

func TestSession_REPL(t *testing.T) {
	p := &mockProvider{respond: func(int) *provider.Response { return text("ok") }}
	s, _ := testSession(t, p, "first\n\n  \nexit\nnever sent\n")

	require.NoError(t, s.repl(context.Background()))

	assert.Equal(t, 1, p.calls())
	assert.Equal(t, "first", p.received[0][0].Text())
}

func TestSession_REPLStopsAtEOF(t *testing.T) {
	p := &mockProvider{respond: func(int) *provider.Response { return text("ok") }}
	s, _ := testSession(t, p, "one\ntwo")

	require.NoError(t, s.repl(context.Background()))

	assert.Equal(t, 2, p.calls())
}

func TestWatchSignals(t *testing.T) {
	t.Run("abort while running", func(t *testing.T) {
		s := &session{logger: discardLogger(), controller: interrupt.NewController(context.Background())}
		token := s.controller.Token()
		s.running.Store(true)

		ctx, cancel := context.WithCancel(context.Background())
		sigs := make(chan os.Signal, 1)
		done := make(chan error, 1)
		stopped := false
		go func() { done <- s.watchSignals(ctx, sigs, func() { stopped = true }) }()

		sigs <- os.Interrupt
		assert.Eventually(t, token.Aborted, time.Second, 5*time.Millisecond)

		cancel()
		require.NoError(t, <-done)
		assert.False(t, stopped)
	})

	t.Run("stop when idle", func(t *testing.T) {
		s := &session{logger: discardLogger(), controller: interrupt.NewController(context.Background())}
		sigs := make(chan os.Signal, 1)
		sigs <- os.Interrupt
		stopped := false

		err := s.watchSignals(context.Background(), sigs, func() { stopped = true })

		require.NoError(t, err)
		assert.True(t, stopped)
		assert.False(t, s.controller.Token().Aborted())
	})

	t.Run("pause signal toggles", func(t *testing.T) {
		if pauseSignal == nil {
			t.Skip("no pause signal on this platform")
		}
		s := &session{logger: discardLogger(), controller: interrupt.NewController(context.Background())}
		token := s.controller.Token()
		s.running.Store(true)

		ctx, cancel := context.WithCancel(context.Background())
		sigs := make(chan os.Signal, 1)
		done := make(chan error, 1)
		go func() { done <- s.watchSignals(ctx, sigs, func() {}) }()

		sigs <- pauseSignal
		assert.Eventually(t, token.Paused, time.Second, 5*time.Millisecond)
		sigs <- pauseSignal
		assert.Eventually(t, func() bool { return !token.Paused() }, time.Second, 5*time.Millisecond)

		cancel()
		require.NoError(t, <-done)
		assert.False(t, token.Aborted())
	})

	t.Run("pause signal ignored when idle", func(t *testing.T) {
		if pauseSignal == nil {
			t.Skip("no pause signal on this platform")
		}
		s := &session{logger: discardLogger(), controller: interrupt.NewController(context.Background())}
		ctx, cancel := context.WithCancel(context.Background())
		sigs := make(chan os.Signal, 1)
		done := make(chan error, 1)
		stopped := false
		go func() { done <- s.watchSignals(ctx, sigs, func() { stopped = true }) }()

		sigs <- pauseSignal
		time.Sleep(20 * time.Millisecond)
		cancel()
		require.NoError(t, <-done)
		assert.False(t, s.controller.Token().Paused())
		assert.False(t, stopped)
	})
}

func TestServeMetrics_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveMetrics(ctx, "127.0.0.1:0", http.NotFoundHandler(), discardLogger()) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
