package hierarchy

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/tonimelisma/drivetree/internal/api"
	"github.com/tonimelisma/drivetree/internal/session"
	"github.com/tonimelisma/drivetree/internal/tree"
)

// fakeRemote is a hand-written Remote. Nil funcs succeed with zero values.
type fakeRemote struct {
	mu    sync.Mutex
	calls []string

	userInfo     func() (*api.User, error)
	accounts     func() ([]api.Account, error)
	nestedFolder func(ctx context.Context, id string) (*tree.Folder, error)
	createFolder func(parentID, name string) (*tree.Folder, error)
	deleteFolder func(id string) error
	deleteFile   func(id string) error
	flushFiles   func() error
	deleteUser   func() error
}

func (r *fakeRemote) record(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *fakeRemote) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.calls...)
}

func (r *fakeRemote) UserInfo(context.Context) (*api.User, error) {
	r.record("UserInfo")

	if r.userInfo == nil {
		return &api.User{}, nil
	}

	return r.userInfo()
}

func (r *fakeRemote) Accounts(context.Context) ([]api.Account, error) {
	r.record("Accounts")

	if r.accounts == nil {
		return nil, nil
	}

	return r.accounts()
}

func (r *fakeRemote) NestedFolder(ctx context.Context, id string) (*tree.Folder, error) {
	r.record("NestedFolder " + id)

	if r.nestedFolder == nil {
		return &tree.Folder{ID: id}, nil
	}

	return r.nestedFolder(ctx, id)
}

func (r *fakeRemote) CreateFolder(_ context.Context, parentID, name string) (*tree.Folder, error) {
	r.record("CreateFolder " + parentID + " " + name)

	if r.createFolder == nil {
		return &tree.Folder{ID: "new", ParentFolderID: parentID, Name: name}, nil
	}

	return r.createFolder(parentID, name)
}

func (r *fakeRemote) DeleteFolder(_ context.Context, id string) error {
	r.record("DeleteFolder " + id)

	if r.deleteFolder == nil {
		return nil
	}

	return r.deleteFolder(id)
}

func (r *fakeRemote) DeleteFile(_ context.Context, id string) error {
	r.record("DeleteFile " + id)

	if r.deleteFile == nil {
		return nil
	}

	return r.deleteFile(id)
}

func (r *fakeRemote) FlushFiles(context.Context) error {
	r.record("FlushFiles")

	if r.flushFiles == nil {
		return nil
	}

	return r.flushFiles()
}

func (r *fakeRemote) DeleteUser(context.Context) error {
	r.record("DeleteUser")

	if r.deleteUser == nil {
		return nil
	}

	return r.deleteUser()
}

type fakeTokens struct {
	cleared int
	err     error
}

func (t *fakeTokens) Clear() error {
	t.cleared++
	return t.err
}

// recorder is both the Navigator and the Reporter.
type recorder struct {
	mu       sync.Mutex
	dests    []string
	loading  []bool
	errors   []string
	notified []string
}

func (r *recorder) Navigate(dest string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dests = append(r.dests, dest)
}

func (r *recorder) SetLoading(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = append(r.loading, v)
}

func (r *recorder) SetError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *recorder) Notify(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, msg)
}

func (r *recorder) lastLoading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.loading) == 0 {
		return false
	}

	return r.loading[len(r.loading)-1]
}

type harness struct {
	store  *session.Store
	remote *fakeRemote
	tokens *fakeTokens
	rec    *recorder
	syncer *Syncer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store:  session.NewStore(),
		remote: &fakeRemote{},
		tokens: &fakeTokens{},
		rec:    &recorder{},
	}
	h.syncer = New(h.store, h.remote, h.tokens, h.rec, h.rec, slog.Default())

	return h
}

func ptr[T any](v T) *T { return &v }
