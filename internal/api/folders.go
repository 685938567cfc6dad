package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tonimelisma/drivetree/internal/tree"
)

// ErrEmptyFolderName is returned by CreateFolder before any request is made.
var ErrEmptyFolderName = errors.New("api: folder name is empty")

// NestedFolder fetches a folder with its direct children and ancestor path.
func (c *Client) NestedFolder(ctx context.Context, folderID string) (*tree.Folder, error) {
	c.logger.Info("fetching nested folder info", slog.String("folder_id", folderID))

	resp, err := c.Do(ctx, http.MethodGet, "/v1/folder/"+url.PathEscape(folderID)+"/nestedinfo", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	folder, err := c.decodeFolder(resp, "nested folder")
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetched nested folder info",
		slog.String("folder_id", folder.ID),
		slog.Int("sub_folders", len(folder.SubFolders)),
		slog.Int("sub_files", len(folder.SubFiles)),
		slog.Int("depth", len(folder.Path)),
	)

	return folder, nil
}

// CreateFolder creates a folder named name under parentID and returns it.
func (c *Client) CreateFolder(ctx context.Context, parentID, name string) (*tree.Folder, error) {
	if name == "" {
		return nil, ErrEmptyFolderName
	}

	c.logger.Info("creating folder",
		slog.String("parent_id", parentID),
		slog.String("name", name),
	)

	body, err := json.Marshal(createFolderRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("api: marshaling create folder request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, "/v1/folder/"+url.PathEscape(parentID)+"/create", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return c.decodeFolder(resp, "create folder")
}

// DeleteFolder deletes an empty folder. The server refuses to delete a
// folder that still has children; that refusal is reported as
// ErrFolderNotEmpty wrapping the underlying APIError.
func (c *Client) DeleteFolder(ctx context.Context, folderID string) error {
	c.logger.Info("deleting folder", slog.String("folder_id", folderID))

	err := c.doDiscard(ctx, http.MethodDelete, "/v1/folder/"+url.PathEscape(folderID)+"/delete")
	if err != nil && isRejection(err) {
		return fmt.Errorf("%w: %w", ErrFolderNotEmpty, err)
	}

	return err
}

// DeleteFile deletes a file.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	c.logger.Info("deleting file", slog.String("file_id", fileID))

	return c.doDiscard(ctx, http.MethodDelete, "/v1/file/"+url.PathEscape(fileID)+"/delete")
}

func (c *Client) decodeFolder(resp *http.Response, what string) (*tree.Folder, error) {
	var env folderEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("api: decoding %s response: %w", what, err)
	}

	if env.Folder == nil {
		return nil, fmt.Errorf("api: %s response has no folder", what)
	}

	folder := env.Folder.toFolder(c.logger)

	return &folder, nil
}
