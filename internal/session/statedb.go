package session

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".

	"github.com/tonimelisma/drivetree/internal/tree"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// StateDB persists the session position between command invocations:
// identity, accounts, active folder id and breadcrumb. Folder contents are
// never stored; the active folder is re-fetched on every run.
type StateDB struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenStateDB opens (creating if needed) the database at path and applies
// pending migrations.
func OpenStateDB(ctx context.Context, path string, logger *slog.Logger) (*StateDB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("opening session state database", slog.String("path", path))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: opening state database: %w", err)
	}

	// Sole writer; also keeps a ":memory:" database on one connection.
	db.SetMaxOpenConns(1)

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &StateDB{db: db, logger: logger}, nil
}

func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []struct {
		sql  string
		desc string
	}{
		{"PRAGMA journal_mode = WAL", "WAL mode"},
		{"PRAGMA synchronous = NORMAL", "synchronous NORMAL"},
		{"PRAGMA busy_timeout = 5000", "busy timeout"},
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p.sql); err != nil {
			return fmt.Errorf("session: setting pragma %s: %w", p.desc, err)
		}
	}

	return nil
}

func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("session: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("session: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("session: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Close closes the database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

// Load returns the persisted session. The bool is false when nothing has
// been saved (or the saved session was cleared). The returned ActiveFolder
// carries only its id, parent and name, with Path rebuilt from the
// breadcrumb.
func (s *StateDB) Load(ctx context.Context) (Session, bool, error) {
	var (
		sess             Session
		created, updated int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, name, email, picture, created_at, updated_at, root_folder_id
		   FROM identity WHERE id = 1`,
	).Scan(&sess.Identity.ID, &sess.Identity.Name, &sess.Identity.Email, &sess.Identity.Picture,
		&created, &updated, &sess.Identity.RootFolderID)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}

	if err != nil {
		return Session{}, false, fmt.Errorf("session: loading identity: %w", err)
	}

	sess.Identity.CreatedAt = fromNanos(created)
	sess.Identity.UpdatedAt = fromNanos(updated)

	if sess.Accounts, err = s.loadAccounts(ctx); err != nil {
		return Session{}, false, err
	}

	if sess.BreadCrumb, err = s.loadBreadcrumb(ctx); err != nil {
		return Session{}, false, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT folder_id, parent_folder_id, name FROM active_folder WHERE id = 1`,
	).Scan(&sess.ActiveFolder.ID, &sess.ActiveFolder.ParentFolderID, &sess.ActiveFolder.Name)

	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Session{}, false, fmt.Errorf("session: loading active folder: %w", err)
	default:
		sess.ActiveFolder.Path = pathFromCrumbs(sess.BreadCrumb, sess.ActiveFolder.ID)
	}

	return sess, true, nil
}

func (s *StateDB) loadAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id, user_id, provider, email, name, picture, created_at, updated_at
		   FROM accounts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("session: loading accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account

	for rows.Next() {
		var (
			a                Account
			created, updated int64
		)

		if err := rows.Scan(&a.ID, &a.UserID, &a.Provider, &a.Email, &a.Name, &a.Picture, &created, &updated); err != nil {
			return nil, fmt.Errorf("session: scanning account: %w", err)
		}

		a.CreatedAt = fromNanos(created)
		a.UpdatedAt = fromNanos(updated)
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: iterating accounts: %w", err)
	}

	return accounts, nil
}

func (s *StateDB) loadBreadcrumb(ctx context.Context) ([]tree.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT folder_id, parent_folder_id, name FROM breadcrumb ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("session: loading breadcrumb: %w", err)
	}
	defer rows.Close()

	var crumbs []tree.Summary

	for rows.Next() {
		var c tree.Summary
		if err := rows.Scan(&c.ID, &c.ParentFolderID, &c.Name); err != nil {
			return nil, fmt.Errorf("session: scanning breadcrumb: %w", err)
		}

		crumbs = append(crumbs, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: iterating breadcrumb: %w", err)
	}

	return crumbs, nil
}

// Save replaces the persisted session with sess in one transaction. A
// session without an identity is saved as cleared.
func (s *StateDB) Save(ctx context.Context, sess Session) error {
	if !sess.SignedIn() {
		return s.Clear(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: beginning save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := clearTables(ctx, tx); err != nil {
		return err
	}

	id := sess.Identity
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO identity (id, user_id, name, email, picture, created_at, updated_at, root_folder_id)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?)`,
		id.ID, id.Name, id.Email, id.Picture, toNanos(id.CreatedAt), toNanos(id.UpdatedAt), id.RootFolderID,
	); err != nil {
		return fmt.Errorf("session: saving identity: %w", err)
	}

	for i, a := range sess.Accounts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (position, account_id, user_id, provider, email, name, picture, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, a.ID, a.UserID, a.Provider, a.Email, a.Name, a.Picture, toNanos(a.CreatedAt), toNanos(a.UpdatedAt),
		); err != nil {
			return fmt.Errorf("session: saving account %s: %w", a.ID, err)
		}
	}

	for i, c := range sess.BreadCrumb {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO breadcrumb (position, folder_id, parent_folder_id, name) VALUES (?, ?, ?, ?)`,
			i, c.ID, c.ParentFolderID, c.Name,
		); err != nil {
			return fmt.Errorf("session: saving breadcrumb: %w", err)
		}
	}

	if f := sess.ActiveFolder; f.ID != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO active_folder (id, folder_id, parent_folder_id, name) VALUES (1, ?, ?, ?)`,
			f.ID, f.ParentFolderID, f.Name,
		); err != nil {
			return fmt.Errorf("session: saving active folder: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("session: committing save: %w", err)
	}

	return nil
}

// Clear removes the persisted session.
func (s *StateDB) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: beginning clear: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := clearTables(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("session: committing clear: %w", err)
	}

	return nil
}

func clearTables(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"identity", "accounts", "breadcrumb", "active_folder"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("session: clearing %s: %w", table, err)
		}
	}

	return nil
}

// Persist saves every snapshot the store publishes until the returned
// cancel func is called. Save failures are logged, not returned.
func Persist(ctx context.Context, store *Store, db *StateDB, logger *slog.Logger) (cancel func()) {
	if logger == nil {
		logger = slog.Default()
	}

	return store.Subscribe(func(sess Session) {
		if err := db.Save(ctx, sess); err != nil {
			logger.Warn("saving session state failed", slog.String("error", err.Error()))
		}
	})
}

// pathFromCrumbs returns the ancestor ids of activeID recorded in crumbs.
func pathFromCrumbs(crumbs []tree.Summary, activeID string) []string {
	path := make([]string, 0, len(crumbs))

	for _, c := range crumbs {
		if c.ID == activeID {
			break
		}

		path = append(path, c.ID)
	}

	return path
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}

	return time.Unix(0, n).UTC()
}
