package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/tonimelisma/drivetree/internal/api"
	"github.com/tonimelisma/drivetree/internal/tree"
)

// ErrSuperseded is returned by FetchNestedFolder when a newer navigation
// began while the fetch was in flight. The fetched folder is returned but
// was not installed.
var ErrSuperseded = errors.New("hierarchy: navigation superseded")

// FetchNestedFolder makes folderID the active folder, replacing the
// previous one wholesale with what the server returns, and rebuilds the
// breadcrumb from its path.
func (s *Syncer) FetchNestedFolder(ctx context.Context, folderID string) (tree.Folder, error) {
	gen := s.store.BeginNavigation()

	defer s.begin()()

	folder, err := s.remote.NestedFolder(ctx, folderID)
	if err != nil {
		s.logger.Error("fetching folder failed",
			slog.String("folder_id", folderID),
			slog.String("error", err.Error()),
		)
		s.report.SetError(err.Error())

		return tree.Folder{}, fmt.Errorf("hierarchy: fetching folder %s: %w", folderID, err)
	}

	if cerr := tree.CheckConsistency(*folder); cerr != nil {
		s.logger.Warn("server returned inconsistent folder",
			slog.String("folder_id", folder.ID),
			slog.String("error", cerr.Error()),
		)
	}

	prev := s.store.Get()

	known := tree.Known{}
	known.AddCrumbs(prev.BreadCrumb)
	maps.Copy(known, tree.Index(prev.ActiveFolder, *folder))

	if !s.store.CommitNavigation(gen, *folder, tree.Breadcrumb(*folder, known)) {
		s.logger.Info("discarding stale folder fetch", slog.String("folder_id", folderID))

		return *folder, ErrSuperseded
	}

	return *folder, nil
}

// CreateFolder creates name under parentID and appends the new folder to
// the active folder's children. The patch is skipped when the active
// folder is no longer the parent, which happens if the user navigated away
// while the request was in flight. The new folder is not grafted onto
// whatever folder is active then, so every child listed under the active
// folder names it as parent. The created folder is returned either way.
func (s *Syncer) CreateFolder(ctx context.Context, name, parentID string) (tree.Folder, error) {
	name = NormalizeName(name)

	defer s.begin()()

	if name == "" {
		s.report.SetError(api.ErrEmptyFolderName.Error())

		return tree.Folder{}, fmt.Errorf("hierarchy: creating folder: %w", api.ErrEmptyFolderName)
	}

	created, err := s.remote.CreateFolder(ctx, parentID, name)
	if err != nil {
		s.logger.Error("creating folder failed",
			slog.String("parent_id", parentID),
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		s.report.SetError(err.Error())

		return tree.Folder{}, fmt.Errorf("hierarchy: creating folder %q: %w", name, err)
	}

	child := *created
	if child.ParentFolderID == "" {
		child.ParentFolderID = parentID
	}

	applied := false

	s.store.UpdateActiveFolder(func(f tree.Folder) tree.Folder {
		if f.ID != child.ParentFolderID {
			return f
		}

		if _, exists := f.FindSubFolder(child.ID); exists {
			return f
		}

		applied = true

		return tree.WithSubFolder(f, child)
	})

	if !applied {
		s.logger.Info("created folder is not a child of the active folder, view not patched",
			slog.String("folder_id", child.ID),
			slog.String("parent_id", child.ParentFolderID),
		)
	}

	return child, nil
}

// DeleteFolder deletes folderID and drops it from the active folder's
// children. A refusal because the folder still has children is shown as
// a notification rather than an error.
func (s *Syncer) DeleteFolder(ctx context.Context, folderID string) error {
	defer s.begin()()

	if err := s.remote.DeleteFolder(ctx, folderID); err != nil {
		s.logger.Error("deleting folder failed",
			slog.String("folder_id", folderID),
			slog.String("error", err.Error()),
		)

		if errors.Is(err, api.ErrFolderNotEmpty) {
			s.report.Notify(NotEmptyMessage)
		} else {
			s.report.SetError(err.Error())
		}

		return fmt.Errorf("hierarchy: deleting folder %s: %w", folderID, err)
	}

	s.store.UpdateActiveFolder(func(f tree.Folder) tree.Folder {
		return tree.WithoutSubFolder(f, folderID)
	})

	return nil
}

// DeleteFile deletes fileID and drops it from the active folder's files.
func (s *Syncer) DeleteFile(ctx context.Context, fileID string) error {
	defer s.begin()()

	if err := s.remote.DeleteFile(ctx, fileID); err != nil {
		s.logger.Error("deleting file failed",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		s.report.SetError(err.Error())

		return fmt.Errorf("hierarchy: deleting file %s: %w", fileID, err)
	}

	s.store.UpdateActiveFolder(func(f tree.Folder) tree.Folder {
		return tree.WithoutSubFile(f, fileID)
	})

	return nil
}
