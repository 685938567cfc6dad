package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivetree/internal/api"
	"github.com/tonimelisma/drivetree/internal/hierarchy"
	"github.com/tonimelisma/drivetree/internal/session"
	"github.com/tonimelisma/drivetree/internal/tokenfile"
	"github.com/tonimelisma/drivetree/internal/tree"
)

// stateDirPermissions is the mode for the directory holding the token
// file and session database.
const stateDirPermissions = 0o700

var errNoServer = errors.New("no server configured; pass --server or set server.url")

// app is one open session: the token, the API client, the persisted
// session store and the Syncer that ties them together.
type app struct {
	cc       *CLIContext
	tokens   *tokenfile.Store
	client   *api.Client
	db       *session.StateDB
	store    *session.Store
	syncer   *hierarchy.Syncer
	nav      *cliNavigator
	reporter *cliReporter

	stopPersist func()
}

// openApp wires the session for cc: it opens the state database, restores
// the last saved session into a fresh store and starts persisting changes.
func openApp(ctx context.Context, cc *CLIContext) (*app, error) {
	logger := cc.Logger

	for _, p := range []string{cc.Cfg.TokenFile, cc.Cfg.StateDB} {
		if err := os.MkdirAll(filepath.Dir(p), stateDirPermissions); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}

	tokens := tokenfile.NewStore(cc.Cfg.TokenFile, logger)
	httpClient := &http.Client{Timeout: cc.Cfg.Timeout}
	client := api.NewClient(cc.Cfg.Server.URL, httpClient, tokens, logger, cc.Cfg.Network.UserAgent)
	client.SetRateLimit(cc.Cfg.Network.MaxRPS)

	db, err := session.OpenStateDB(ctx, cc.Cfg.StateDB, logger)
	if err != nil {
		return nil, err
	}

	store := session.NewStore()

	saved, ok, err := db.Load(ctx)
	if err != nil {
		db.Close()

		return nil, err
	}

	if ok {
		store.Restore(saved)
	}

	a := &app{
		cc:       cc,
		tokens:   tokens,
		client:   client,
		db:       db,
		store:    store,
		nav:      &cliNavigator{},
		reporter: newCLIReporter(cc.Stderr, cc.Flags.Quiet),
	}

	a.stopPersist = session.Persist(context.WithoutCancel(ctx), store, db, logger)
	a.syncer = hierarchy.New(store, client, tokens, a.nav, a.reporter, logger)

	logger.Debug("session opened",
		slog.String("server", cc.Cfg.Server.URL),
		slog.String("state_db", cc.Cfg.StateDB),
		slog.Bool("restored", ok),
	)

	return a, nil
}

// Close stops persisting and closes the state database.
func (a *app) Close() error {
	a.stopPersist()

	return a.db.Close()
}

type appKey struct{}

// withApp runs fn with the app for cmd. The shell installs a long-lived
// app in the context; one-shot commands open and close their own.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()

	if shared, ok := ctx.Value(appKey{}).(*app); ok {
		scoped := *shared
		scoped.cc = mustCLIContext(ctx)

		return fn(ctx, &scoped)
	}

	a, err := openApp(ctx, mustCLIContext(ctx))
	if err != nil {
		return err
	}

	runErr := fn(ctx, a)

	if closeErr := a.Close(); closeErr != nil {
		a.cc.Logger.Warn("closing session failed", slog.String("error", closeErr.Error()))
	}

	return runErr
}

// ensureSession makes sure the session has an identity and an active
// folder. A restored session re-fetches its active folder so listings are
// never stale; if that folder is gone the user lands on the root.
func (a *app) ensureSession(ctx context.Context) error {
	if err := a.ensureIdentity(ctx, false); err != nil {
		return err
	}

	sess := a.store.Get()

	target := sess.ActiveFolder.ID
	if target == "" {
		target = sess.Identity.RootFolderID
	}

	_, err := a.syncer.FetchNestedFolder(ctx, target)
	if err == nil {
		return nil
	}

	if errors.Is(err, api.ErrNotFound) && target != sess.Identity.RootFolderID {
		a.cc.Logger.Info("active folder is gone, returning to root", slog.String("folder_id", target))
		a.reporter.Hint("The current folder no longer exists; returning to the root folder.")

		_, err = a.syncer.FetchNestedFolder(ctx, sess.Identity.RootFolderID)
	}

	if errors.Is(err, hierarchy.ErrSuperseded) {
		return errors.New("session changed while loading; try again")
	}

	return reported(err)
}

// ensureIdentity checks the token and loads the identity when the session
// has none, or always when refresh is set.
func (a *app) ensureIdentity(ctx context.Context, refresh bool) error {
	if a.cc.Cfg.Server.URL == "" {
		return errNoServer
	}

	if _, err := a.tokens.Token(); err != nil {
		return a.notSignedIn(err)
	}

	a.dropForeignSession()

	if refresh || !a.store.Get().SignedIn() {
		if err := a.syncer.FetchIdentityAndAccounts(ctx); err != nil {
			return a.notSignedIn(err)
		}
	}

	return nil
}

// dropForeignSession resets a restored session that belongs to a user
// other than the one the token was issued to.
func (a *app) dropForeignSession() {
	_, meta, err := a.tokens.Current()
	if err != nil {
		return
	}

	sess := a.store.Get()
	uid := meta[tokenfile.MetaUserID]

	if uid != "" && sess.SignedIn() && uid != sess.Identity.ID {
		a.cc.Logger.Info("saved session belongs to another user, discarding",
			slog.String("session_user", sess.Identity.ID),
			slog.String("token_user", uid),
		)
		a.store.Reset()
	}
}

// notSignedIn turns an identity failure into a login hint. The session
// is dropped once the token is gone.
func (a *app) notSignedIn(err error) error {
	switch {
	case errors.Is(err, tokenfile.ErrNotLoggedIn):
		a.store.Reset()

		return errors.New("not logged in; run 'drivetree login' first")
	case errors.Is(err, tokenfile.ErrExpired):
		return fmt.Errorf("%w; run 'drivetree login' to sign in again", err)
	case errors.Is(err, api.ErrUserNotFound), errors.Is(err, api.ErrUnauthorized):
		a.store.Reset()
		a.reporter.Hint("Your session has ended. Run 'drivetree login' to sign in again.")
	}

	return reported(err)
}

// active returns the current active folder.
func (a *app) active() tree.Folder {
	return a.store.Get().ActiveFolder
}

// cliNavigator records where the core last asked to send the user. The
// CLI has a single screen, so the destination only shapes messages.
type cliNavigator struct {
	mu   sync.Mutex
	dest string
}

func (n *cliNavigator) Navigate(dest string) {
	n.mu.Lock()
	n.dest = dest
	n.mu.Unlock()
}

// Destination returns the last navigation target.
func (n *cliNavigator) Destination() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.dest
}

// cliReporter renders progress and failures on stderr. The loading
// indicator is drawn only on a terminal.
type cliReporter struct {
	mu          sync.Mutex
	w           io.Writer
	quiet       bool
	interactive bool
	loading     bool
}

func newCLIReporter(w io.Writer, quiet bool) *cliReporter {
	r := &cliReporter{w: w, quiet: quiet}

	if f, ok := w.(*os.File); ok {
		r.interactive = isTerminal(f)
	}

	return r
}

func (r *cliReporter) SetLoading(loading bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loading == loading {
		return
	}

	r.loading = loading

	if !r.interactive || r.quiet {
		return
	}

	if loading {
		fmt.Fprint(r.w, "working...\r")
	} else {
		fmt.Fprint(r.w, "\r\033[K")
	}
}

func (r *cliReporter) SetError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.w, "Error: %s\n", msg)
}

func (r *cliReporter) Notify(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.w, msg)
}

// Hint prints guidance that follows an error, unless quiet.
func (r *cliReporter) Hint(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.quiet {
		fmt.Fprintln(r.w, msg)
	}
}
