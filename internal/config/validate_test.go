package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad scheme", func(c *Config) { c.Server.URL = "ftp://x" }, "scheme must be http or https"},
		{"missing host", func(c *Config) { c.Server.URL = "https://" }, "missing host"},
		{"log level", func(c *Config) { c.Logging.LogLevel = "loud" }, "logging.log_level"},
		{"log format", func(c *Config) { c.Logging.LogFormat = "xml" }, "logging.log_format"},
		{"timeout syntax", func(c *Config) { c.Network.Timeout = "soon" }, "invalid duration"},
		{"timeout too small", func(c *Config) { c.Network.Timeout = "10ms" }, "at least"},
		{"negative rate limit", func(c *Config) { c.Network.MaxRPS = -1 }, "network.max_rps"},
		{"concurrency", func(c *Config) { c.Tree.Concurrency = 100 }, "tree.concurrency"},
		{"depth", func(c *Config) { c.Tree.MaxDepth = -1 }, "tree.max_depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_AccumulatesErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.LogLevel = "loud"
	cfg.Tree.Concurrency = 0

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.log_level")
	assert.Contains(t, err.Error(), "tree.concurrency")
}

func TestValidate_CaseInsensitiveLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.LogLevel = "DEBUG"
	assert.NoError(t, Validate(cfg))
}

func TestClosestMatch(t *testing.T) {
	assert.Equal(t, "timeout", closestMatch("timeuot", knownKeys["network"]))
	assert.Empty(t, closestMatch("zzzzzzzzzz", knownKeys["network"]))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
	assert.Equal(t, 4, levenshtein("", "abcd"))
}
