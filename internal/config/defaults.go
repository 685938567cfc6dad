package config

// Default values for configuration options, layer 0 of the override chain.
const (
	defaultLogLevel        = "warn"
	defaultLogFormat       = "auto"
	defaultTimeout         = "30s"
	defaultTreeConcurrency = 4
	defaultTreeMaxDepth    = 0
	defaultTokenFileName   = "token.json"
	defaultStateDBName     = "session.db"
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset fields keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		Network: NetworkConfig{
			Timeout: defaultTimeout,
		},
		Tree: TreeConfig{
			Concurrency: defaultTreeConcurrency,
			MaxDepth:    defaultTreeMaxDepth,
		},
	}
}
