package config

import (
	"fmt"
	"io"
)

// RenderEffective writes the resolved configuration as an annotated
// summary to w. This powers "config show".
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", r.ConfigPath)

	ew.printf("[server]\n")
	ew.printf("  url = %q\n\n", r.Server.URL)

	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", r.Logging.LogLevel)
	ew.printf("  log_format = %q\n\n", r.Logging.LogFormat)

	ew.printf("[network]\n")
	ew.printf("  timeout = %q\n", r.Timeout.String())
	ew.printf("  max_rps = %d\n", r.Network.MaxRPS)

	if r.Network.UserAgent != "" {
		ew.printf("  user_agent = %q\n", r.Network.UserAgent)
	}

	ew.printf("\n[paths]\n")
	ew.printf("  token_file = %q\n", r.TokenFile)
	ew.printf("  state_db   = %q\n\n", r.StateDB)

	ew.printf("[tree]\n")
	ew.printf("  concurrency = %d\n", r.Tree.Concurrency)
	ew.printf("  max_depth   = %d\n", r.Tree.MaxDepth)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
