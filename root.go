package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivetree/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagServerURL  string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// CLIFlags is the snapshot of global flags a command runs with.
type CLIFlags struct {
	ConfigPath string
	JSON       bool
	Verbose    bool
	Quiet      bool
}

// CLIContext carries what PersistentPreRunE resolved to every command.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.Resolved
	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

type cliContextKey struct{}

func withCLIContext(ctx context.Context, cc *CLIContext) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cc)
}

// cliContextFrom returns the CLIContext stored by PersistentPreRunE.
func cliContextFrom(ctx context.Context) (*CLIContext, bool) {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)

	return cc, ok
}

// mustCLIContext panics if PersistentPreRunE did not run, which is a
// programming error in command registration.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := cliContextFrom(ctx)
	if !ok {
		panic("drivetree: command ran without CLI context")
	}

	return cc
}

// errReported marks a failure the Reporter already showed the user, so
// main exits non-zero without printing it a second time.
var errReported = errors.New("reported")

type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() []error { return []error{e.err, errReported} }

func reported(err error) error {
	if err == nil {
		return nil
	}

	return &reportedError{err: err}
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "drivetree",
		Short:   "Folder-tree client for a personal drive service",
		Long:    "Browse and manage the folders and files of a drive account from the terminal.",
		Version: version,
		// Errors are printed by main.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagServerURL, "server", "", "drive server URL (overrides config)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newCdCmd())
	cmd.AddCommand(newPwdCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newRmdirCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newTreeCmd())
	cmd.AddCommand(newFlushFilesCmd())
	cmd.AddCommand(newDeleteAccountCmd())
	cmd.AddCommand(newShellCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer
// override chain and stores a CLIContext in the command's context.
func loadConfig(cmd *cobra.Command) error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
	}

	// Only pass --server to the resolver if the user explicitly set it.
	if cmd.Flags().Changed("server") {
		cli.ServerURL = &flagServerURL
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Inside the shell the configuration and logger were settled when the
	// shell started; each line only brings its own output flags.
	if parent, ok := cliContextFrom(ctx); ok {
		cc := *parent
		cc.Flags.JSON = flagJSON
		cc.Flags.Quiet = parent.Flags.Quiet || flagQuiet
		cc.Stdout = cmd.OutOrStdout()
		cc.Stderr = cmd.ErrOrStderr()
		cmd.SetContext(withCLIContext(ctx, &cc))

		return nil
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	flags := CLIFlags{
		ConfigPath: flagConfigPath,
		JSON:       flagJSON,
		Verbose:    flagVerbose,
		Quiet:      flagQuiet,
	}

	cc := &CLIContext{
		Flags:  flags,
		Cfg:    resolved,
		Logger: buildLogger(resolved, flags, os.Stderr),
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}

	cmd.SetContext(withCLIContext(ctx, cc))

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win.
func buildLogger(cfg *config.Resolved, flags CLIFlags, w *os.File) *slog.Logger {
	level := slog.LevelWarn
	format := "auto"

	if cfg != nil {
		switch strings.ToLower(cfg.Logging.LogLevel) {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}

		format = strings.ToLower(cfg.Logging.LogFormat)
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if useJSONLogs(format, w) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// useJSONLogs picks the log encoding. "auto" means text on a terminal and
// JSON when stderr is redirected.
func useJSONLogs(format string, w *os.File) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	default:
		return !isTerminal(w)
	}
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
