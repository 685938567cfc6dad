package tree

import (
	"errors"
	"fmt"
	"slices"
)

// Known maps folder IDs to the summaries the client has seen so far.
type Known map[string]Summary

// Index builds a Known index from the given folders and their direct
// sub-folders. Later folders win, so pass the freshest data last.
func Index(folders ...Folder) Known {
	known := make(Known)

	for _, f := range folders {
		if f.IsZero() {
			continue
		}

		known[f.ID] = f.Summary()

		for _, c := range f.SubFolders {
			known[c.ID] = c.Summary()
		}
	}

	return known
}

// AddCrumbs records every named crumb in k. Crumbs without a name never
// overwrite an entry that has one.
func (k Known) AddCrumbs(crumbs []Summary) {
	for _, c := range crumbs {
		if c.ID == "" {
			continue
		}

		if prev, ok := k[c.ID]; ok && c.Name == "" && prev.Name != "" {
			continue
		}

		k[c.ID] = c
	}
}

// Breadcrumb returns the trail from the root to active. Ancestors come from
// active.Path; names are looked up in known and left empty when unknown.
func Breadcrumb(active Folder, known Known) []Summary {
	if active.IsZero() {
		return nil
	}

	crumbs := make([]Summary, 0, len(active.Path)+1)
	parent := ""

	for _, id := range active.Path {
		if id == "" || id == active.ID {
			continue
		}

		s, ok := known[id]
		if !ok {
			s = Summary{ID: id}
		}

		if s.ParentFolderID == "" {
			s.ParentFolderID = parent
		}

		crumbs = append(crumbs, s)
		parent = id
	}

	return append(crumbs, active.Summary())
}

// ErrInconsistent is returned by CheckConsistency.
var ErrInconsistent = errors.New("tree: inconsistent folder")

// CheckConsistency verifies that every direct child of f names f as its
// parent and that sub-folder paths, when sent, extend f's path by f's ID.
// All problems are reported together.
func CheckConsistency(f Folder) error {
	var errs []error

	want := ChildPath(f)

	for _, c := range f.SubFolders {
		if c.ParentFolderID != f.ID {
			errs = append(errs, fmt.Errorf("%w: sub-folder %s has parent %q, want %q",
				ErrInconsistent, c.ID, c.ParentFolderID, f.ID))
		}

		if len(c.Path) > 0 && !slices.Equal(c.Path, want) {
			errs = append(errs, fmt.Errorf("%w: sub-folder %s has path %v, want %v",
				ErrInconsistent, c.ID, c.Path, want))
		}
	}

	for _, c := range f.SubFiles {
		if c.ParentFolderID != f.ID {
			errs = append(errs, fmt.Errorf("%w: file %s has parent %q, want %q",
				ErrInconsistent, c.ID, c.ParentFolderID, f.ID))
		}
	}

	return errors.Join(errs...)
}

// ChildPath returns the Path a direct sub-folder of f must carry.
func ChildPath(f Folder) []string {
	base := f.Path
	if len(base) == 1 && base[0] == f.ID {
		base = nil
	}

	p := make([]string, 0, len(base)+1)
	p = append(p, base...)

	return append(p, f.ID)
}
