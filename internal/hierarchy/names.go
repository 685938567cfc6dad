package hierarchy

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/drivetree/internal/tree"
)

// NormalizeName trims surrounding space and converts to NFC, so names typed
// on macOS (NFD) match names the server stored in NFC.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// FindSubFolderByName returns the first direct sub-folder of f whose
// normalized name equals name.
func FindSubFolderByName(f tree.Folder, name string) (tree.Folder, bool) {
	want := NormalizeName(name)

	for _, c := range f.SubFolders {
		if NormalizeName(c.Name) == want {
			return c, true
		}
	}

	return tree.Folder{}, false
}

// FindSubFileByName returns the first file in f whose normalized name
// equals name.
func FindSubFileByName(f tree.Folder, name string) (tree.File, bool) {
	want := NormalizeName(name)

	for _, c := range f.SubFiles {
		if NormalizeName(c.Name) == want {
			return c, true
		}
	}

	return tree.File{}, false
}
