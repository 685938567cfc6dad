package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Validation range constants.
const (
	minTreeConcurrency = 1
	maxTreeConcurrency = 32
	minTimeout         = 1 * time.Second
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"auto", "text", "json"}
)

// Validate checks all configuration values and returns all errors found,
// so users can fix every issue in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)
	errs = append(errs, validateTree(&cfg.Tree)...)

	return errors.Join(errs...)
}

func validateServer(s *ServerConfig) []error {
	if s.URL == "" {
		return nil
	}

	u, err := url.Parse(s.URL)
	if err != nil {
		return []error{fmt.Errorf("server.url: %w", err)}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return []error{fmt.Errorf("server.url: scheme must be http or https, got %q", u.Scheme)}
	}

	if u.Host == "" {
		return []error{fmt.Errorf("server.url: missing host in %q", s.URL)}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !slices.Contains(validLogLevels, strings.ToLower(l.LogLevel)) {
		errs = append(errs, fmt.Errorf("logging.log_level: must be one of %s, got %q",
			strings.Join(validLogLevels, ", "), l.LogLevel))
	}

	if !slices.Contains(validLogFormats, strings.ToLower(l.LogFormat)) {
		errs = append(errs, fmt.Errorf("logging.log_format: must be one of %s, got %q",
			strings.Join(validLogFormats, ", "), l.LogFormat))
	}

	return errs
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	d, err := time.ParseDuration(n.Timeout)
	if err != nil {
		errs = append(errs, fmt.Errorf("network.timeout: invalid duration %q: %w", n.Timeout, err))
	} else if d < minTimeout {
		errs = append(errs, fmt.Errorf("network.timeout: must be at least %s, got %s", minTimeout, d))
	}

	if n.MaxRPS < 0 {
		errs = append(errs, fmt.Errorf("network.max_rps: must be 0 (unlimited) or positive, got %d", n.MaxRPS))
	}

	return errs
}

func validateTree(t *TreeConfig) []error {
	var errs []error

	if t.Concurrency < minTreeConcurrency || t.Concurrency > maxTreeConcurrency {
		errs = append(errs, fmt.Errorf("tree.concurrency: must be between %d and %d, got %d",
			minTreeConcurrency, maxTreeConcurrency, t.Concurrency))
	}

	if t.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("tree.max_depth: must be 0 (unlimited) or positive, got %d", t.MaxDepth))
	}

	return errs
}
