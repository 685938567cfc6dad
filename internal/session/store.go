// Package session holds the client's view of who is signed in and where
// they are in the folder hierarchy, and persists that position between
// command invocations.
package session

import (
	"slices"
	"sync"
	"time"

	"github.com/tonimelisma/drivetree/internal/tree"
)

// Identity is the signed-in user's profile.
type Identity struct {
	ID           string
	Name         string
	Email        string
	Picture      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	RootFolderID string
}

// IdentityPatch carries a partial identity update. Nil fields leave the
// stored value untouched.
type IdentityPatch struct {
	ID           *string
	Name         *string
	Email        *string
	Picture      *string
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
	RootFolderID *string
}

// Account is one storage account linked to the user.
type Account struct {
	ID        string
	UserID    string
	Provider  string
	Email     string
	Name      string
	Picture   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session is a snapshot of the store. Slices inside a snapshot are shared
// with the store and must be treated as read-only.
type Session struct {
	Identity     Identity
	ActiveFolder tree.Folder
	BreadCrumb   []tree.Summary
	Accounts     []Account
}

// SignedIn reports whether an identity has been loaded.
func (s Session) SignedIn() bool {
	return s.Identity.ID != ""
}

// Store is the mutable session. All methods are safe for concurrent use and
// never fail.
type Store struct {
	// notifyMu serializes whole updates, observers included.
	notifyMu  sync.Mutex
	mu        sync.Mutex
	cur       Session
	navGen    uint64
	observers map[int]func(Session)
	nextObsID int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{observers: make(map[int]func(Session))}
}

// Get returns the current snapshot.
func (s *Store) Get() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cur
}

// Restore replaces the whole session, typically with one loaded from disk.
func (s *Store) Restore(sess Session) {
	s.update(func(cur *Session) { *cur = sess })
}

// SetID records the user id.
func (s *Store) SetID(id string) {
	s.update(func(cur *Session) { cur.Identity.ID = id })
}

// SetName records the display name.
func (s *Store) SetName(name string) {
	s.update(func(cur *Session) { cur.Identity.Name = name })
}

// SetEmail records the user's email address.
func (s *Store) SetEmail(email string) {
	s.update(func(cur *Session) { cur.Identity.Email = email })
}

// SetPicture records the avatar URL.
func (s *Store) SetPicture(picture string) {
	s.update(func(cur *Session) { cur.Identity.Picture = picture })
}

// SetCreatedAt records when the account was created.
func (s *Store) SetCreatedAt(t time.Time) {
	s.update(func(cur *Session) { cur.Identity.CreatedAt = t })
}

// SetUpdatedAt records when the profile last changed.
func (s *Store) SetUpdatedAt(t time.Time) {
	s.update(func(cur *Session) { cur.Identity.UpdatedAt = t })
}

// SetRootFolderID records the root folder id. Once set it sticks until
// Reset; later values are ignored.
func (s *Store) SetRootFolderID(id string) {
	s.update(func(cur *Session) { setRoot(&cur.Identity, id) })
}

// SetActiveFolder replaces the folder being browsed.
func (s *Store) SetActiveFolder(f tree.Folder) {
	s.update(func(cur *Session) { cur.ActiveFolder = f })
}

// SetBreadCrumb replaces the root-to-active path with a copy of crumbs.
func (s *Store) SetBreadCrumb(crumbs []tree.Summary) {
	s.update(func(cur *Session) { cur.BreadCrumb = slices.Clone(crumbs) })
}

// SetAccounts replaces the linked accounts with a copy of accounts.
func (s *Store) SetAccounts(accounts []Account) {
	s.update(func(cur *Session) { cur.Accounts = slices.Clone(accounts) })
}

// MergeUser applies every non-nil field of p in one update, so observers
// see a single change.
func (s *Store) MergeUser(p IdentityPatch) {
	s.update(func(cur *Session) {
		id := &cur.Identity
		if p.ID != nil {
			id.ID = *p.ID
		}

		if p.Name != nil {
			id.Name = *p.Name
		}

		if p.Email != nil {
			id.Email = *p.Email
		}

		if p.Picture != nil {
			id.Picture = *p.Picture
		}

		if p.CreatedAt != nil {
			id.CreatedAt = *p.CreatedAt
		}

		if p.UpdatedAt != nil {
			id.UpdatedAt = *p.UpdatedAt
		}

		if p.RootFolderID != nil {
			setRoot(id, *p.RootFolderID)
		}
	})
}

// UpdateActiveFolder replaces the active folder with fn applied to the
// latest value, under the store lock. fn must not call back into the store.
func (s *Store) UpdateActiveFolder(fn func(tree.Folder) tree.Folder) {
	s.update(func(cur *Session) { cur.ActiveFolder = fn(cur.ActiveFolder) })
}

// BeginNavigation starts a navigation and returns its generation. Only the
// most recently begun navigation can commit.
func (s *Store) BeginNavigation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.navGen++

	return s.navGen
}

// CommitNavigation installs folder as the active folder together with its
// breadcrumb, unless a newer navigation has begun since gen was issued.
// It reports whether the commit was applied.
func (s *Store) CommitNavigation(gen uint64, folder tree.Folder, crumbs []tree.Summary) bool {
	applied := false

	s.update(func(cur *Session) {
		if gen != s.navGen {
			return
		}

		cur.ActiveFolder = folder
		cur.BreadCrumb = slices.Clone(crumbs)
		applied = true
	})

	return applied
}

// Subscribe registers fn to receive every snapshot produced by a change.
// fn runs on the goroutine that made the change, after the session lock is
// released. Snapshots reach fn in the order the changes were applied, one
// at a time. fn must not change the store. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(Session)) (cancel func()) {
	s.mu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Reset returns the session to its empty state and aborts any in-flight
// navigation.
func (s *Store) Reset() {
	s.update(func(cur *Session) {
		*cur = Session{}
		s.navGen++
	})
}

// update applies fn under the lock and notifies observers with the
// resulting snapshot. Callers hold no lock. A concurrent update waits until
// every observer has seen this one.
func (s *Store) update(fn func(cur *Session)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	fn(&s.cur)
	snap := s.cur

	observers := make([]func(Session), 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o(snap)
	}
}

func setRoot(id *Identity, root string) {
	if id.RootFolderID == "" {
		id.RootFolderID = root
	}
}
