package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tonimelisma/drivetree/internal/api"
	"github.com/tonimelisma/drivetree/internal/config"
	"github.com/tonimelisma/drivetree/internal/session"
)

// readPassword reads a line from a terminal without echo. Replaced in tests.
var readPassword = term.ReadPassword

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with an access token",
		Long: `Sign in with an access token issued by the drive server.

The token is read from --token, or prompted for without echo when stdin is
a terminal, or read as the first line of stdin otherwise. When --server is
given, the server URL is saved to the config file so later commands can
omit it.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}

	cmd.Flags().String("token", "", "access token (prompted for if omitted)")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved token and session",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the signed-in user and linked accounts",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if cc.Cfg.Server.URL == "" {
		return errNoServer
	}

	token, err := cmd.Flags().GetString("token")
	if err != nil {
		return err
	}

	if token == "" {
		token, err = readToken(cmd.InOrStdin(), cc.Stderr)
		if err != nil {
			return err
		}
	}

	if err := withApp(cmd, func(ctx context.Context, a *app) error {
		return a.login(ctx, token)
	}); err != nil {
		return err
	}

	if cmd.Flags().Changed("server") {
		if err := config.SetKey(cc.Cfg.ConfigPath, "server", "url", cc.Cfg.Server.URL); err != nil {
			cc.Logger.Warn("saving server url failed", slog.String("error", err.Error()))
		}
	}

	return nil
}

// login replaces any previous session with the one token resolves to and
// opens its root folder.
func (a *app) login(ctx context.Context, token string) error {
	a.cc.Logger.Info("login started", slog.String("server", a.cc.Cfg.Server.URL))

	if err := a.tokens.Set(token, a.cc.Cfg.Server.URL); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	a.store.Reset()

	if err := a.syncer.FetchIdentityAndAccounts(ctx); err != nil {
		if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, api.ErrForbidden) {
			if clearErr := a.tokens.Clear(); clearErr != nil {
				a.cc.Logger.Warn("clearing rejected token failed", slog.String("error", clearErr.Error()))
			}
		}

		return reported(err)
	}

	root := a.store.Get().Identity.RootFolderID
	if _, err := a.syncer.FetchNestedFolder(ctx, root); err != nil {
		return reported(err)
	}

	id := a.store.Get().Identity
	a.cc.Logger.Info("login successful", slog.String("user_id", id.ID))
	a.cc.Statusf("Signed in as %s.\n", displayName(id))

	return nil
}

// readToken reads the access token from r, without echo when r is a
// terminal.
func readToken(r io.Reader, prompt io.Writer) (string, error) {
	if f, ok := r.(*os.File); ok && isTerminal(f) {
		// Prompts must always be visible, so this ignores --quiet.
		fmt.Fprint(prompt, "Access token: ")

		b, err := readPassword(int(f.Fd()))
		fmt.Fprintln(prompt)

		if err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}

		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading token: %w", err)
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("no token given; pass --token or pipe it on stdin")
	}

	return line, nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(_ context.Context, a *app) error {
		a.cc.Logger.Info("logout", slog.String("token_file", a.tokens.Path()))

		if err := a.tokens.Clear(); err != nil {
			return fmt.Errorf("removing token: %w", err)
		}

		a.store.Reset()
		a.cc.Statusf("Logged out.\n")

		return nil
	})
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.ensureIdentity(ctx, true); err != nil {
			return err
		}

		sess := a.store.Get()

		if a.cc.Flags.JSON {
			return printJSON(a.cc.Stdout, newWhoamiOutput(sess))
		}

		printWhoamiText(a.cc.Stdout, sess)

		return nil
	})
}

// whoamiOutput is the JSON schema for whoami.
type whoamiOutput struct {
	User     whoamiUser      `json:"user"`
	Accounts []whoamiAccount `json:"accounts"`
}

type whoamiUser struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	RootFolderID string `json:"root_folder_id"`
}

type whoamiAccount struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

func newWhoamiOutput(sess session.Session) whoamiOutput {
	out := whoamiOutput{
		User: whoamiUser{
			ID:           sess.Identity.ID,
			Name:         sess.Identity.Name,
			Email:        sess.Identity.Email,
			RootFolderID: sess.Identity.RootFolderID,
		},
		Accounts: make([]whoamiAccount, 0, len(sess.Accounts)),
	}

	for _, acc := range sess.Accounts {
		out.Accounts = append(out.Accounts, whoamiAccount{
			ID:       acc.ID,
			Provider: acc.Provider,
			Email:    acc.Email,
			Name:     acc.Name,
		})
	}

	return out
}

func printWhoamiText(w io.Writer, sess session.Session) {
	fmt.Fprintf(w, "User:  %s\n", displayName(sess.Identity))
	fmt.Fprintf(w, "ID:    %s\n", sess.Identity.ID)

	if !sess.Identity.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Since: %s\n", formatTime(sess.Identity.CreatedAt))
	}

	for _, acc := range sess.Accounts {
		fmt.Fprintf(w, "\nAccount: %s (%s)\n", acc.Email, acc.Provider)
		fmt.Fprintf(w, "  ID:    %s\n", acc.ID)
	}
}

// displayName renders "Name (email)", falling back to whichever is set.
func displayName(id session.Identity) string {
	switch {
	case id.Name != "" && id.Email != "":
		return fmt.Sprintf("%s (%s)", id.Name, id.Email)
	case id.Name != "":
		return id.Name
	case id.Email != "":
		return id.Email
	default:
		return id.ID
	}
}
