package tokenfile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Change describes what happened to the token file.
type Change int

const (
	// Removed means the token file was deleted, e.g. by logout in another
	// terminal.
	Removed Change = iota + 1
	// Replaced means a new token was written, e.g. by login in another
	// terminal.
	Replaced
)

func (c Change) String() string {
	switch c {
	case Removed:
		return "removed"
	case Replaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// Watch calls onChange whenever the token file is removed or replaced by
// another process, until ctx is canceled. The cache is invalidated before
// onChange runs. The parent directory is watched rather than the file so
// atomic renames are seen.
func (s *Store) Watch(ctx context.Context, onChange func(Change)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tokenfile: creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("tokenfile: watching %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != target {
				continue
			}

			change := classify(ev)
			if change == 0 {
				continue
			}

			s.logger.Debug("token file changed", slog.String("change", change.String()))
			s.Invalidate()
			onChange(change)

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			s.logger.Warn("token file watcher error", slog.String("error", werr.Error()))
		}
	}
}

func classify(ev fsnotify.Event) Change {
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return Removed
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		return Replaced
	default:
		return 0
	}
}
