// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for drivetree. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
	Network NetworkConfig `toml:"network"`
	Paths   PathsConfig   `toml:"paths"`
	Tree    TreeConfig    `toml:"tree"`
}

// ServerConfig names the drive backend.
type ServerConfig struct {
	URL string `toml:"url"`
}

// LoggingConfig controls log output: level and format (text, json or auto).
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	Timeout   string `toml:"timeout"`
	UserAgent string `toml:"user_agent"`
	MaxRPS    int    `toml:"max_rps"` // 0 = unlimited
}

// PathsConfig overrides where local state lives. Empty values use the
// platform data directory. A leading "~/" is expanded.
type PathsConfig struct {
	TokenFile string `toml:"token_file"`
	StateDB   string `toml:"state_db"`
}

// TreeConfig bounds the recursive tree listing.
type TreeConfig struct {
	Concurrency int `toml:"concurrency"`
	MaxDepth    int `toml:"max_depth"`
}

// CLIOverrides holds values from CLI flags. Pointer fields distinguish
// "not specified" (nil) from "explicitly set to the zero value".
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	ServerURL  *string // --server flag
}

// Resolved is the configuration after the whole override chain has been
// applied, with durations parsed and paths made absolute.
type Resolved struct {
	Config

	ConfigPath string
	Timeout    time.Duration
	TokenFile  string
	StateDB    string
}
