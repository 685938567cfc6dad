// Package hierarchy keeps the session's view of the folder tree in step
// with the server. Each operation issues one or two remote calls and, on
// success, applies a deterministic patch to the session store. Reads
// replace local state wholesale; mutations of the active folder's direct
// children are patched locally without a re-fetch.
//
// Every operation both reports a failure to the Reporter and returns it,
// so interactive front ends can render it and scripts can set an exit
// status. Failures never roll back or partially apply local state.
package hierarchy

import (
	"context"
	"log/slog"

	"github.com/tonimelisma/drivetree/internal/api"
	"github.com/tonimelisma/drivetree/internal/session"
	"github.com/tonimelisma/drivetree/internal/tree"
)

// LandingPath is where the user is sent when their identity cannot be
// loaded.
const LandingPath = "/landing"

// NotEmptyMessage is the notification shown when the server refuses to
// delete a folder that still has children.
const NotEmptyMessage = "Cannot delete a non-empty folder"

// Remote is the server surface the operations need. *api.Client
// implements it; the bearer token is bound by the client.
type Remote interface {
	UserInfo(ctx context.Context) (*api.User, error)
	Accounts(ctx context.Context) ([]api.Account, error)
	NestedFolder(ctx context.Context, folderID string) (*tree.Folder, error)
	CreateFolder(ctx context.Context, parentID, name string) (*tree.Folder, error)
	DeleteFolder(ctx context.Context, folderID string) error
	DeleteFile(ctx context.Context, fileID string) error
	FlushFiles(ctx context.Context) error
	DeleteUser(ctx context.Context) error
}

// TokenStore clears both the cached and the persisted bearer token.
type TokenStore interface {
	Clear() error
}

// Navigator moves the user to another screen or location.
type Navigator interface {
	Navigate(dest string)
}

// Reporter presents progress and failures to the user.
type Reporter interface {
	SetLoading(loading bool)
	SetError(msg string)
	Notify(msg string)
}

// Syncer runs the hierarchy operations against one session store.
type Syncer struct {
	store  *session.Store
	remote Remote
	tokens TokenStore
	nav    Navigator
	report Reporter
	logger *slog.Logger
}

// New returns a Syncer. nav and report may be nil, in which case
// navigation and reporting are dropped.
func New(store *session.Store, remote Remote, tokens TokenStore, nav Navigator, report Reporter, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}

	if nav == nil {
		nav = discard{}
	}

	if report == nil {
		report = discard{}
	}

	return &Syncer{
		store:  store,
		remote: remote,
		tokens: tokens,
		nav:    nav,
		report: report,
		logger: logger,
	}
}

// begin raises the loading flag and returns the func that lowers it.
func (s *Syncer) begin() func() {
	s.report.SetLoading(true)

	return func() { s.report.SetLoading(false) }
}

type discard struct{}

func (discard) Navigate(string) {}
func (discard) SetLoading(bool) {}
func (discard) SetError(string) {}
func (discard) Notify(string) {}
