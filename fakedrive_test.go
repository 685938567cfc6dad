package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
)

const (
	testToken  = "tok-alice"
	testUserID = "u-alice"
	testRootID = "root"
)

// fakeDrive is an in-memory drive server speaking the subset of the API
// the CLI uses.
type fakeDrive struct {
	mu      sync.Mutex
	folders map[string]*fakeFolder
	files   map[string]*fakeFile
	nextID  int
	deleted bool
}

type fakeFolder struct {
	ID, Name, Parent string
	Path             []string
}

type fakeFile struct {
	ID, Name, Parent string
	Size             int64
}

func newFakeDrive(t *testing.T) (*fakeDrive, *httptest.Server) {
	t.Helper()

	d := &fakeDrive{
		folders: map[string]*fakeFolder{testRootID: {ID: testRootID, Name: "root"}},
		files:   map[string]*fakeFile{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/user/info", d.authed(d.userInfo))
	mux.HandleFunc("GET /v1/account/info", d.authed(d.accountInfo))
	mux.HandleFunc("GET /v1/folder/{id}/nestedinfo", d.authed(d.nestedInfo))
	mux.HandleFunc("POST /v1/folder/{id}/create", d.authed(d.createFolder))
	mux.HandleFunc("DELETE /v1/folder/{id}/delete", d.authed(d.deleteFolder))
	mux.HandleFunc("DELETE /v1/file/{id}/delete", d.authed(d.deleteFile))
	mux.HandleFunc("DELETE /v1/user/flushfiles", d.authed(d.flushFiles))
	mux.HandleFunc("DELETE /v1/user/deleteUser", d.authed(d.deleteUser))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return d, srv
}

func (d *fakeDrive) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)

			return
		}

		d.mu.Lock()
		defer d.mu.Unlock()

		h(w, r)
	}
}

// addFolder and addFile seed the drive directly, as another client would.
func (d *fakeDrive) addFolder(parent, name string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.addFolderLocked(parent, name).ID
}

func (d *fakeDrive) addFolderLocked(parent, name string) *fakeFolder {
	d.nextID++
	p := d.folders[parent]
	f := &fakeFolder{
		ID:     fmt.Sprintf("f%d", d.nextID),
		Name:   name,
		Parent: parent,
		Path:   append(slices.Clone(p.Path), p.ID),
	}
	d.folders[f.ID] = f

	return f
}

func (d *fakeDrive) addFile(parent, name string, size int64) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	f := &fakeFile{ID: fmt.Sprintf("x%d", d.nextID), Name: name, Parent: parent, Size: size}
	d.files[f.ID] = f

	return f.ID
}

func (d *fakeDrive) removeFolder(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.folders, id)
}

func (d *fakeDrive) fileCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.files)
}

func (d *fakeDrive) userInfo(w http.ResponseWriter, _ *http.Request) {
	if d.deleted {
		http.Error(w, `{"error":"no such user"}`, http.StatusNotFound)

		return
	}

	writeJSON(w, map[string]any{"user": map[string]any{
		"_id":          testUserID,
		"name":         "Alice",
		"email":        "alice@example.com",
		"createdAt":    "2024-01-02T03:04:05Z",
		"rootFolderId": testRootID,
	}})
}

func (d *fakeDrive) accountInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"accounts": []map[string]any{
		{"_id": "a1", "userId": testUserID, "provider": "google", "email": "alice@gmail.com"},
	}})
}

func (d *fakeDrive) nestedInfo(w http.ResponseWriter, r *http.Request) {
	f, ok := d.folders[r.PathValue("id")]
	if !ok {
		http.Error(w, `{"error":"folder not found"}`, http.StatusNotFound)

		return
	}

	writeJSON(w, map[string]any{"folder": d.folderJSON(f, true)})
}

func (d *fakeDrive) folderJSON(f *fakeFolder, withChildren bool) map[string]any {
	out := map[string]any{
		"_id":            f.ID,
		"name":           f.Name,
		"parentFolderId": f.Parent,
		"userId":         testUserID,
		"path":           f.Path,
	}

	if !withChildren {
		return out
	}

	subFolders := []map[string]any{}
	for _, c := range d.sortedFolders() {
		if c.Parent == f.ID {
			subFolders = append(subFolders, d.folderJSON(c, false))
		}
	}

	subFiles := []map[string]any{}
	for _, c := range d.files {
		if c.Parent == f.ID {
			subFiles = append(subFiles, map[string]any{
				"_id":            c.ID,
				"name":           c.Name,
				"parentFolderId": c.Parent,
				"size":           c.Size,
			})
		}
	}

	out["subFolders"] = subFolders
	out["subFiles"] = subFiles

	return out
}

func (d *fakeDrive) sortedFolders() []*fakeFolder {
	out := make([]*fakeFolder, 0, len(d.folders))
	for _, f := range d.folders {
		out = append(out, f)
	}

	slices.SortFunc(out, func(a, b *fakeFolder) int {
		if a.Name < b.Name {
			return -1
		}

		if a.Name > b.Name {
			return 1
		}

		return 0
	})

	return out
}

func (d *fakeDrive) createFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, `{"error":"bad name"}`, http.StatusBadRequest)

		return
	}

	if _, ok := d.folders[r.PathValue("id")]; !ok {
		http.Error(w, `{"error":"parent not found"}`, http.StatusNotFound)

		return
	}

	f := d.addFolderLocked(r.PathValue("id"), req.Name)
	writeJSON(w, map[string]any{"folder": d.folderJSON(f, true)})
}

func (d *fakeDrive) deleteFolder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	for _, f := range d.folders {
		if f.Parent == id {
			http.Error(w, `{"error":"folder not empty"}`, http.StatusConflict)

			return
		}
	}

	for _, f := range d.files {
		if f.Parent == id {
			http.Error(w, `{"error":"folder not empty"}`, http.StatusConflict)

			return
		}
	}

	delete(d.folders, id)
	w.WriteHeader(http.StatusOK)
}

func (d *fakeDrive) deleteFile(w http.ResponseWriter, r *http.Request) {
	delete(d.files, r.PathValue("id"))
	w.WriteHeader(http.StatusOK)
}

func (d *fakeDrive) flushFiles(w http.ResponseWriter, _ *http.Request) {
	d.files = map[string]*fakeFile{}
	w.WriteHeader(http.StatusOK)
}

func (d *fakeDrive) deleteUser(w http.ResponseWriter, _ *http.Request) {
	d.deleted = true
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
