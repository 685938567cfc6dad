// Package tree defines the folder/file hierarchy as seen by the client and the
// pure functions that patch it. Folder values are treated as immutable: every
// patch returns a new Folder built from the previous one with exactly one field
// replaced, so callers can detect changes by comparing values.
//
// This is a leaf package with zero external dependencies beyond stdlib.
package tree

import (
	"slices"
	"time"
)

// File is a file entry inside a folder. Timestamps are optional; the zero
// time means the server did not send one.
type File struct {
	ID             string
	UserID         string
	ParentFolderID string
	Name           string
	Extension      string
	Size           int64
	ChunkSize      int64
	DownloadedAt   time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Folder is a folder with its direct children. Path holds the ancestor IDs
// from the root down to (but not including) this folder.
type Folder struct {
	ID             string
	UserID         string
	ParentFolderID string
	Name           string
	Size           int64
	SubFolders     []Folder
	SubFiles       []File
	Path           []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Summary is the minimal view of a folder used for breadcrumbs and name
// lookups.
type Summary struct {
	ID             string
	ParentFolderID string
	Name           string
}

// IsZero reports whether no folder has been loaded into f.
func (f Folder) IsZero() bool {
	return f.ID == ""
}

// IsRoot reports whether f sits at the top of the hierarchy. Some servers
// send the root's own ID as its single path element, so both shapes count.
func (f Folder) IsRoot() bool {
	switch len(f.Path) {
	case 0:
		return true
	case 1:
		return f.Path[0] == f.ID
	default:
		return false
	}
}

// Summary returns the breadcrumb view of f.
func (f Folder) Summary() Summary {
	return Summary{ID: f.ID, ParentFolderID: f.ParentFolderID, Name: f.Name}
}

// FindSubFolder returns the direct sub-folder with the given ID.
func (f Folder) FindSubFolder(id string) (Folder, bool) {
	i := slices.IndexFunc(f.SubFolders, func(c Folder) bool { return c.ID == id })
	if i < 0 {
		return Folder{}, false
	}

	return f.SubFolders[i], true
}

// FindSubFile returns the direct file child with the given ID.
func (f Folder) FindSubFile(id string) (File, bool) {
	i := slices.IndexFunc(f.SubFiles, func(c File) bool { return c.ID == id })
	if i < 0 {
		return File{}, false
	}

	return f.SubFiles[i], true
}

// WithSubFolder returns a copy of f with child appended to SubFolders.
// The receiver's slice is never written to.
func WithSubFolder(f Folder, child Folder) Folder {
	subs := make([]Folder, 0, len(f.SubFolders)+1)
	subs = append(subs, f.SubFolders...)
	subs = append(subs, child)

	f.SubFolders = subs

	return f
}

// WithoutSubFolder returns a copy of f without the sub-folder whose ID is id.
// A missing id leaves the children unchanged.
func WithoutSubFolder(f Folder, id string) Folder {
	if _, ok := f.FindSubFolder(id); !ok {
		return f
	}

	subs := make([]Folder, 0, len(f.SubFolders)-1)
	for _, c := range f.SubFolders {
		if c.ID != id {
			subs = append(subs, c)
		}
	}

	f.SubFolders = subs

	return f
}

// WithoutSubFile returns a copy of f without the file whose ID is id.
// A missing id leaves the children unchanged.
func WithoutSubFile(f Folder, id string) Folder {
	if _, ok := f.FindSubFile(id); !ok {
		return f
	}

	files := make([]File, 0, len(f.SubFiles)-1)
	for _, c := range f.SubFiles {
		if c.ID != id {
			files = append(files, c)
		}
	}

	f.SubFiles = files

	return f
}
