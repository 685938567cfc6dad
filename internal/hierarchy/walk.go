package hierarchy

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/drivetree/internal/tree"
)

const defaultWalkConcurrency = 4

// FolderFetcher fetches one folder with its direct children.
type FolderFetcher interface {
	NestedFolder(ctx context.Context, folderID string) (*tree.Folder, error)
}

// WalkOptions bound a Walk.
type WalkOptions struct {
	// Concurrency is the number of fetches in flight. Zero means 4.
	Concurrency int
	// MaxDepth is the number of levels whose contents are fetched,
	// counting the root as level one. Zero means no limit.
	MaxDepth int
	Logger   *slog.Logger
}

// Node is one folder in a walked tree. Expanded is false for folders below
// MaxDepth, whose Folder holds only what the parent listed.
type Node struct {
	Folder   tree.Folder
	Children []*Node
	Expanded bool
}

// Walk fetches rootID and its descendants level by level and returns the
// assembled tree. It is read-only and never touches a session. The first
// fetch error cancels the walk.
func Walk(ctx context.Context, remote FolderFetcher, rootID string, opts WalkOptions) (*Node, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultWalkConcurrency
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	root := &Node{Folder: tree.Folder{ID: rootID}}
	level := []*Node{root}
	seen := map[string]bool{rootID: true}

	for depth := 1; len(level) > 0; depth++ {
		if opts.MaxDepth > 0 && depth > opts.MaxDepth {
			break
		}

		if err := fetchLevel(ctx, remote, level, opts.Concurrency); err != nil {
			return nil, err
		}

		var next []*Node

		for _, n := range level {
			for _, sub := range n.Folder.SubFolders {
				if seen[sub.ID] {
					logger.Warn("folder appears twice in tree, skipping",
						slog.String("folder_id", sub.ID),
					)

					continue
				}

				seen[sub.ID] = true
				child := &Node{Folder: sub}
				n.Children = append(n.Children, child)
				next = append(next, child)
			}
		}

		logger.Debug("walked tree level",
			slog.Int("depth", depth),
			slog.Int("folders", len(level)),
		)

		level = next
	}

	return root, nil
}

func fetchLevel(ctx context.Context, remote FolderFetcher, level []*Node, concurrency int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, n := range level {
		g.Go(func() error {
			f, err := remote.NestedFolder(gctx, n.Folder.ID)
			if err != nil {
				return fmt.Errorf("hierarchy: walking folder %s: %w", n.Folder.ID, err)
			}

			n.Folder = *f
			n.Expanded = true

			return nil
		})
	}

	return g.Wait()
}
