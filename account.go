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
)

var errNotConfirmed = errors.New("not confirmed; pass --yes to proceed")

func newFlushFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flush-files",
		Short: "Delete every file stored under your accounts",
		Long: `Delete every file stored under your linked accounts. Folders are kept.
This cannot be undone.`,
		Args: cobra.NoArgs,
		RunE: runFlushFiles,
	}

	cmd.Flags().Bool("yes", false, "do not ask for confirmation")

	return cmd
}

func newDeleteAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete your user and all of its data",
		Long: `Delete your user on the server together with every folder and file.
The local token and session are removed afterwards. This cannot be undone.`,
		Args: cobra.NoArgs,
		RunE: runDeleteAccount,
	}

	cmd.Flags().Bool("yes", false, "do not ask for confirmation")

	return cmd
}

func runFlushFiles(cmd *cobra.Command, _ []string) error {
	if err := confirmCmd(cmd, "Delete every file in your accounts?"); err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.ensureIdentity(ctx, false); err != nil {
			return err
		}

		if err := a.syncer.FlushAccountFiles(ctx); err != nil {
			return reported(err)
		}

		a.cc.Statusf("All files deleted.\n")

		// The active folder listed files that no longer exist.
		if active := a.active(); !active.IsZero() {
			if _, err := a.syncer.FetchNestedFolder(ctx, active.ID); err != nil {
				a.cc.Logger.Warn("refreshing folder after flush failed", slog.String("error", err.Error()))
			}
		}

		return nil
	})
}

func runDeleteAccount(cmd *cobra.Command, _ []string) error {
	if err := confirmCmd(cmd, "Delete your user and all of its data?"); err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.ensureIdentity(ctx, false); err != nil {
			return err
		}

		if err := a.syncer.DeleteUserAccount(ctx); err != nil {
			return reported(err)
		}

		a.store.Reset()

		if err := a.tokens.Clear(); err != nil {
			return fmt.Errorf("account deleted, but removing token failed: %w", err)
		}

		a.cc.Statusf("Account deleted.\n")

		return nil
	})
}

// confirmCmd asks question on a terminal unless --yes was passed.
func confirmCmd(cmd *cobra.Command, question string) error {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return err
	}

	if yes {
		return nil
	}

	in := cmd.InOrStdin()

	f, ok := in.(*os.File)
	if !ok || !isTerminal(f) {
		return errNotConfirmed
	}

	return confirm(in, cmd.ErrOrStderr(), question)
}

// confirm reads a yes/no answer from r. Anything but "y" or "yes" declines.
func confirm(r io.Reader, w io.Writer, question string) error {
	fmt.Fprintf(w, "%s [y/N] ", question)

	answer, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return errors.New("aborted")
	}
}
