package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadEnvOverrides(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/drivetree.toml")
	t.Setenv(EnvServerURL, "https://drive.example.com")
	t.Setenv(EnvTokenFile, "/tmp/token.json")

	assert.Equal(t, EnvOverrides{
		ConfigPath: "/etc/drivetree.toml",
		ServerURL:  "https://drive.example.com",
		TokenFile:  "/tmp/token.json",
	}, ReadEnvOverrides())
}

func TestReadEnvOverrides_Empty(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvServerURL, "")
	t.Setenv(EnvTokenFile, "")

	assert.Equal(t, EnvOverrides{}, ReadEnvOverrides())
}
