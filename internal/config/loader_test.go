package config

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	yamlPath = "/home/user/.config/agentcore/config.yaml"
	jsonPath = "/home/user/.config/agentcore/config.json"
)

// MockFileSystem implements FileSystem for testing.
type MockFileSystem struct {
	HomeDir     string
	HomeDirErr  error
	Files       map[string][]byte
	ReadFileErr error
}

func (m *MockFileSystem) UserHomeDir() (string, error) {
	return m.HomeDir, m.HomeDirErr
}

func (m *MockFileSystem) ReadFile(path string) ([]byte, error) {
	if m.ReadFileErr != nil {
		return nil, m.ReadFileErr
	}
	data, ok := m.Files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func loaderWith(files map[string]string) *Loader {
	fs := &MockFileSystem{HomeDir: "/home/user", Files: map[string][]byte{}}
	for path, content := range files {
		fs.Files[path] = []byte(content)
	}
	return NewLoaderWithFS(fs)
}

// --- HAPPY PATH TESTS ---

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	cfg, err := loaderWith(nil).Load()

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 200, cfg.Agent.MaxIterations)
	assert.InDelta(t, 0.85, cfg.Agent.TrimRatio, 1e-9)
}

func TestLoad_YAML_OverridesDefaults(t *testing.T) {
	configYAML := `
agent:
  max_iterations: 50
  system_prompt: "be brief"
rate_limit:
  proactive_threshold: 10
  backoff_ladder_seconds: [1, 2]
permission:
  yolo: true
  levels:
    write_file: auto
provider:
  name: anthropic
  model: claude-test
tools:
  shell_timeout_seconds: 30
log:
  level: debug
`
	cfg, err := loaderWith(map[string]string{yamlPath: configYAML}).Load()

	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Agent.MaxIterations)
	assert.Equal(t, "be brief", cfg.Agent.SystemPrompt)
	assert.Equal(t, 10, cfg.RateLimit.ProactiveThreshold)
	assert.Equal(t, []int{1, 2}, cfg.RateLimit.BackoffLadderSeconds)
	assert.True(t, cfg.Permission.Yolo)
	assert.False(t, cfg.Permission.Skip)
	assert.Equal(t, map[string]string{"write_file": "auto"}, cfg.Permission.Levels)
	assert.Equal(t, "anthropic", cfg.Provider.Name)
	assert.Equal(t, "claude-test", cfg.Provider.Model)
	assert.Equal(t, 30, cfg.Tools.ShellTimeoutSeconds)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_PartialOverride_MergesWithDefaults(t *testing.T) {
	cfg, err := loaderWith(map[string]string{yamlPath: "agent:\n  max_iterations: 20\n"}).Load()

	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Agent.MaxIterations)                  // Overridden
	assert.Equal(t, 3, cfg.Agent.TransientRetries)                // Default
	assert.Equal(t, 25, cfg.RateLimit.ProactiveThreshold)         // Default
	assert.Equal(t, int64(5*1024*1024), cfg.Tools.MaxFileSize)    // Default
	assert.Equal(t, []int{2, 5, 10, 20, 30, 60}, cfg.RateLimit.BackoffLadderSeconds)
}

func TestLoad_JSONFallback(t *testing.T) {
	cfg, err := loaderWith(map[string]string{jsonPath: `{"agent": {"max_iterations": 7}}`}).Load()

	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Agent.MaxIterations)
}

func TestLoad_YAMLWinsOverJSON(t *testing.T) {
	cfg, err := loaderWith(map[string]string{
		yamlPath: "agent:\n  max_iterations: 9\n",
		jsonPath: `{"agent": {"max_iterations": 7}}`,
	}).Load()

	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Agent.MaxIterations)
}

func TestLoad_EmptyConfigFile_ReturnsDefaults(t *testing.T) {
	cfg, err := loaderWith(map[string]string{yamlPath: ""}).Load()

	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Agent.MaxIterations)
}

func TestLoadFile_ExplicitPath(t *testing.T) {
	loader := loaderWith(map[string]string{"/etc/agent.yml": "provider:\n  max_tokens: 1024\n"})

	cfg, err := loader.LoadFile("/etc/agent.yml")

	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Provider.MaxTokens)

	_, err = loader.LoadFile("/etc/missing.yml")
	assert.True(t, os.IsNotExist(err))
}

// --- UNHAPPY PATH TESTS ---

func TestLoad_MalformedYAML_ReturnsError(t *testing.T) {
	cfg, err := loaderWith(map[string]string{yamlPath: "agent: [unclosed"}).Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoad_MalformedJSON_ReturnsError(t *testing.T) {
	cfg, err := loaderWith(map[string]string{jsonPath: `{invalid json`}).Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid")
}

func TestLoad_WrongType_ReturnsError(t *testing.T) {
	cfg, err := loaderWith(map[string]string{yamlPath: "agent:\n  max_iterations: lots\n"}).Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PermissionDenied_ReturnsError(t *testing.T) {
	fs := &MockFileSystem{
		HomeDir:     "/home/user",
		ReadFileErr: os.ErrPermission,
	}

	cfg, err := NewLoaderWithFS(fs).Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.True(t, errors.Is(err, os.ErrPermission))
}

func TestLoad_HomeDirError_ReturnsDefaults(t *testing.T) {
	fs := &MockFileSystem{HomeDirErr: errors.New("homeless")}

	cfg, err := NewLoaderWithFS(fs).Load()

	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Agent.MaxIterations)
}

func TestLoad_InvalidValues_Rejected(t *testing.T) {
	cfg, err := loaderWith(map[string]string{yamlPath: "tools:\n  shell_timeout_seconds: -1\n"}).Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "validation failed")
}

// --- EDGE CASE TESTS ---

func TestLoad_ExplicitZero_Overrides(t *testing.T) {
	// Present keys overwrite defaults even when zero.
	cfg, err := loaderWith(map[string]string{yamlPath: "agent:\n  transient_retries: 0\n"}).Load()

	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Agent.TransientRetries)
}

func TestLoad_UnknownFields_Ignored(t *testing.T) {
	cfg, err := loaderWith(map[string]string{yamlPath: "agent:\n  max_iterations: 100\nunknown_field: ignored\n"}).Load()

	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Agent.MaxIterations)
}

func TestDefaultConfig_AllFieldsInitialized(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg.Permission.Levels)
	assert.NotEmpty(t, cfg.RateLimit.BackoffLadderSeconds)
	assert.Greater(t, cfg.Agent.MaxIterations, 0)
	assert.Greater(t, cfg.Provider.MaxTokens, 0)
	assert.Greater(t, cfg.Tools.MaxFileSize, int64(0))
}
