package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivetree/internal/hierarchy"
	"github.com/tonimelisma/drivetree/internal/tokenfile"
)

// Test seams for user-facing shell output.
var (
	printFn   = fmt.Print
	printlnFn = fmt.Println
)

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Long: `Start an interactive session. Every drivetree command can be typed
without the program name, and the current folder is shown in the prompt.
Names containing spaces can be quoted. Type "exit" or "quit" to leave.`,
		Args: cobra.NoArgs,
		RunE: runShell,
	}
}

func runShell(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	a, err := openApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx = context.WithValue(ctx, appKey{}, a)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	go func() {
		if werr := a.tokens.Watch(watchCtx, a.onTokenChange); werr != nil {
			cc.Logger.Warn("watching token file failed", slog.String("error", werr.Error()))
		}
	}()

	if a.cc.Cfg.Server.URL != "" {
		if err := a.ensureSession(ctx); err != nil && !errors.Is(err, errReported) {
			printlnFn(err.Error())
		}
	}

	runREPL(ctx, a.prompt, bufio.NewScanner(cmd.InOrStdin()), lineRunner(cmd.OutOrStdout(), cmd.ErrOrStderr()))

	return nil
}

// onTokenChange reacts to another process logging in or out.
func (a *app) onTokenChange(c tokenfile.Change) {
	a.cc.Logger.Info("token file changed", slog.String("change", c.String()))

	if c == tokenfile.Removed && a.store.Get().SignedIn() {
		a.store.Reset()
		printlnFn("\nSigned out from another terminal.")
	}
}

// prompt renders the current folder path, or a signed-out marker.
func (a *app) prompt() string {
	sess := a.store.Get()

	if !sess.SignedIn() || a.nav.Destination() == hierarchy.LandingPath {
		return "drivetree (signed out)> "
	}

	return fmt.Sprintf("drivetree:%s> ", crumbPath(sess.BreadCrumb))
}

// lineRunner returns the func that runs one shell line as a drivetree
// command writing to stdout and stderr. The app installed in ctx is
// reused, so the session stays open across lines. Ctrl-C cancels only the
// line in flight.
func lineRunner(stdout, stderr io.Writer) func(context.Context, []string) error {
	return func(ctx context.Context, args []string) error {
		if args[0] == "shell" {
			return errors.New("already in a shell")
		}

		lineCtx, done := shellLines.begin(ctx)
		defer done()

		root := newRootCmd()
		root.SetOut(stdout)
		root.SetErr(stderr)
		root.SetArgs(args)

		return root.ExecuteContext(lineCtx)
	}
}

// runREPL reads lines from scanner and dispatches them to exec until EOF,
// "exit" or "quit". Errors already shown by the reporter are not repeated.
func runREPL(
	ctx context.Context,
	prompt func() string,
	scanner *bufio.Scanner,
	exec func(context.Context, []string) error,
) {
	for {
		if ctx.Err() != nil {
			return
		}

		printFn(prompt())

		if !scanner.Scan() {
			printlnFn()

			return
		}

		args, err := splitArgs(scanner.Text())
		if err != nil {
			printlnFn("Error:", err)

			continue
		}

		if len(args) == 0 {
			continue
		}

		if args[0] == "exit" || args[0] == "quit" {
			printlnFn("Bye!")

			return
		}

		if err := exec(ctx, args); err != nil && !errors.Is(err, errReported) {
			printlnFn("Error:", err)
		}
	}
}

// splitArgs splits a shell line into words. Single and double quotes group
// words containing spaces, and a backslash escapes the next character
// outside single quotes.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}

	if escaped {
		return nil, errors.New("line ends with a backslash")
	}

	if inWord {
		args = append(args, cur.String())
	}

	return args, nil
}
