package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestConfig writes content to a config file in a temp dir and
// returns its path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeTestConfig(t, `
[server]
url = "https://drive.example.com"

[logging]
log_level = "debug"
log_format = "json"

[network]
timeout = "10s"
user_agent = "custom/1.0"

[paths]
token_file = "/tmp/tok.json"
state_db = "/tmp/state.db"

[tree]
concurrency = 8
max_depth = 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://drive.example.com", cfg.Server.URL)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "json", cfg.Logging.LogFormat)
	assert.Equal(t, "10s", cfg.Network.Timeout)
	assert.Equal(t, "custom/1.0", cfg.Network.UserAgent)
	assert.Equal(t, "/tmp/tok.json", cfg.Paths.TokenFile)
	assert.Equal(t, "/tmp/state.db", cfg.Paths.StateDB)
	assert.Equal(t, 8, cfg.Tree.Concurrency)
	assert.Equal(t, 3, cfg.Tree.MaxDepth)
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := writeTestConfig(t, "[logging]\nlog_level = \"info\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.LogLevel)
	assert.Equal(t, defaultLogFormat, cfg.Logging.LogFormat)
	assert.Equal(t, defaultTimeout, cfg.Network.Timeout)
	assert.Equal(t, defaultTreeConcurrency, cfg.Tree.Concurrency)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeTestConfig(t, "[server\nurl = ")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeTestConfig(t, "[tree]\nconcurrency = 0\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tree.concurrency")
}

func TestLoad_UnknownKeyInSection(t *testing.T) {
	path := writeTestConfig(t, "[server]\nurll = \"https://x\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
	assert.Contains(t, err.Error(), `"server.url"`)
}

func TestLoad_UnknownSection(t *testing.T) {
	path := writeTestConfig(t, "[loging]\nlog_level = \"info\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config section")
	assert.Contains(t, err.Error(), `"logging"`)
}

func TestLoad_UnknownKeyNoSuggestion(t *testing.T) {
	path := writeTestConfig(t, "completely_unrelated_key = 1\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolve_Precedence(t *testing.T) {
	path := writeTestConfig(t, "[server]\nurl = \"https://file.example.com\"\n")

	r, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "https://file.example.com", r.Server.URL)
	assert.Equal(t, path, r.ConfigPath)

	r, err = Resolve(EnvOverrides{ConfigPath: path, ServerURL: "https://env.example.com/"}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", r.Server.URL, "env beats file, trailing slash trimmed")

	cli := "https://cli.example.com"
	r, err = Resolve(EnvOverrides{ConfigPath: path, ServerURL: "https://env.example.com"}, CLIOverrides{ServerURL: &cli})
	require.NoError(t, err)
	assert.Equal(t, "https://cli.example.com", r.Server.URL, "flag beats env")
}

func TestResolve_CLIConfigPathBeatsEnv(t *testing.T) {
	envPath := writeTestConfig(t, "[server]\nurl = \"https://env-file.example.com\"\n")
	cliPath := writeTestConfig(t, "[server]\nurl = \"https://cli-file.example.com\"\n")

	r, err := Resolve(EnvOverrides{ConfigPath: envPath}, CLIOverrides{ConfigPath: cliPath})
	require.NoError(t, err)
	assert.Equal(t, "https://cli-file.example.com", r.Server.URL)
}

func TestResolve_Paths(t *testing.T) {
	data := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)

	path := writeTestConfig(t, "")

	r, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, r.Timeout)
	assert.Equal(t, "token.json", filepath.Base(r.TokenFile))
	assert.Equal(t, "session.db", filepath.Base(r.StateDB))

	r, err = Resolve(EnvOverrides{ConfigPath: path, TokenFile: "/custom/token.json"}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "/custom/token.json", r.TokenFile)
}

func TestResolve_InvalidOverride(t *testing.T) {
	path := writeTestConfig(t, "")
	bad := "ftp://example.com"

	_, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{ServerURL: &bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.url")
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x", "y"), expandTilde("~/x/y"))
	assert.Equal(t, "/abs/path", expandTilde("/abs/path"))
	assert.Equal(t, "~user/x", expandTilde("~user/x"))
}
