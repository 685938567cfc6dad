package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// UserInfo returns the profile the bearer token resolves to. A 404 or a
// response without a user both yield ErrUserNotFound.
func (c *Client) UserInfo(ctx context.Context) (*User, error) {
	c.logger.Info("fetching user info")

	resp, err := c.Do(ctx, http.MethodGet, "/v1/user/info", nil)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrUserNotFound, err)
		}

		return nil, err
	}
	defer resp.Body.Close()

	var uir userInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&uir); err != nil {
		return nil, fmt.Errorf("api: decoding user info response: %w", err)
	}

	if uir.User == nil {
		return nil, ErrUserNotFound
	}

	user := uir.User.toUser(c.logger)

	c.logger.Debug("fetched user info",
		slog.String("user_id", user.ID),
		slog.String("root_folder_id", user.RootFolderID),
	)

	return &user, nil
}

// Accounts lists the storage accounts linked to the user.
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	c.logger.Info("fetching accounts")

	resp, err := c.Do(ctx, http.MethodGet, "/v1/account/info", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ar accountsResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("api: decoding accounts response: %w", err)
	}

	accounts := make([]Account, 0, len(ar.Accounts))
	for i := range ar.Accounts {
		accounts = append(accounts, ar.Accounts[i].toAccount(c.logger))
	}

	c.logger.Info("fetched accounts", slog.Int("count", len(accounts)))

	return accounts, nil
}

// FlushFiles deletes every file stored under the user's accounts.
func (c *Client) FlushFiles(ctx context.Context) error {
	c.logger.Info("flushing account files")

	return c.doDiscard(ctx, http.MethodDelete, "/v1/user/flushfiles")
}

// DeleteUser deletes the user and all of their data.
func (c *Client) DeleteUser(ctx context.Context) error {
	c.logger.Info("deleting user")

	return c.doDiscard(ctx, http.MethodDelete, "/v1/user/deleteUser")
}

// doDiscard issues a request whose success status is all the caller needs,
// draining the body so the connection can be reused.
func (c *Client) doDiscard(ctx context.Context, method, path string) error {
	resp, err := c.Do(ctx, method, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, copyErr := io.Copy(io.Discard, resp.Body); copyErr != nil {
		return fmt.Errorf("api: draining %s %s response body: %w", method, path, copyErr)
	}

	return nil
}
