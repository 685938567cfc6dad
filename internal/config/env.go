package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig    = "DRIVETREE_CONFIG"
	EnvServerURL = "DRIVETREE_SERVER_URL"
	EnvTokenFile = "DRIVETREE_TOKEN_FILE"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // DRIVETREE_CONFIG: override config file path
	ServerURL  string // DRIVETREE_SERVER_URL: backend origin
	TokenFile  string // DRIVETREE_TOKEN_FILE: token file path
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. It does not modify a Config.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		ServerURL:  os.Getenv(EnvServerURL),
		TokenFile:  os.Getenv(EnvTokenFile),
	}
}
