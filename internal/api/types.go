package api

import (
	"log/slog"
	"time"

	"github.com/tonimelisma/drivetree/internal/tree"
)

// User is the authenticated user's profile as returned by /v1/user/info.
// Profile fields the server left out of the response are nil; ID and
// RootFolderID are empty when absent.
type User struct {
	ID           string
	Name         *string
	Email        *string
	Picture      *string
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
	RootFolderID string
}

// Account is one linked storage account as returned by /v1/account/info.
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

// userResponse mirrors the server's user JSON.
// Unexported; callers get a User through toUser().
type userResponse struct {
	ID           string  `json:"_id"` //nolint:tagliatelle // server uses Mongo-style ids
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Picture      *string `json:"picture"`
	CreatedAt    *string `json:"createdAt"`
	UpdatedAt    *string `json:"updatedAt"`
	RootFolderID string  `json:"rootFolderId"`
}

type userInfoResponse struct {
	User *userResponse `json:"user"`
}

type accountResponse struct {
	ID        string `json:"_id"` //nolint:tagliatelle // server uses Mongo-style ids
	UserID    string `json:"userId"`
	Provider  string `json:"provider"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Picture   string `json:"picture"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type accountsResponse struct {
	Accounts []accountResponse `json:"accounts"`
}

type fileResponse struct {
	ID             string `json:"_id"` //nolint:tagliatelle // server uses Mongo-style ids
	UserID         string `json:"userId"`
	ParentFolderID string `json:"parentFolderId"`
	Name           string `json:"name"`
	Extension      string `json:"extention"` //nolint:misspell // server's field name
	Size           int64  `json:"size"`
	ChunkSize      int64  `json:"chunkSize"`
	DownloadedAt   string `json:"downloadedAt"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

type folderResponse struct {
	ID             string           `json:"_id"` //nolint:tagliatelle // server uses Mongo-style ids
	UserID         string           `json:"userId"`
	ParentFolderID string           `json:"parentFolderId"`
	Name           string           `json:"name"`
	Size           int64            `json:"size"`
	SubFolders     []folderResponse `json:"subFolders"`
	SubFiles       []fileResponse   `json:"subFiles"`
	Path           []string         `json:"path"`
	CreatedAt      string           `json:"createdAt"`
	UpdatedAt      string           `json:"updatedAt"`
}

type folderEnvelope struct {
	Folder *folderResponse `json:"folder"`
}

type createFolderRequest struct {
	Name string `json:"name"`
}

func (u *userResponse) toUser(logger *slog.Logger) User {
	return User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Picture:      u.Picture,
		CreatedAt:    parseOptionalTimestamp(u.CreatedAt, "createdAt", u.ID, logger),
		UpdatedAt:    parseOptionalTimestamp(u.UpdatedAt, "updatedAt", u.ID, logger),
		RootFolderID: u.RootFolderID,
	}
}

func (a *accountResponse) toAccount(logger *slog.Logger) Account {
	return Account{
		ID:        a.ID,
		UserID:    a.UserID,
		Provider:  a.Provider,
		Email:     a.Email,
		Name:      a.Name,
		Picture:   a.Picture,
		CreatedAt: parseTimestamp(a.CreatedAt, "createdAt", a.ID, logger),
		UpdatedAt: parseTimestamp(a.UpdatedAt, "updatedAt", a.ID, logger),
	}
}

func (f *fileResponse) toFile(logger *slog.Logger) tree.File {
	return tree.File{
		ID:             f.ID,
		UserID:         f.UserID,
		ParentFolderID: f.ParentFolderID,
		Name:           f.Name,
		Extension:      f.Extension,
		Size:           f.Size,
		ChunkSize:      f.ChunkSize,
		DownloadedAt:   parseTimestamp(f.DownloadedAt, "downloadedAt", f.ID, logger),
		CreatedAt:      parseTimestamp(f.CreatedAt, "createdAt", f.ID, logger),
		UpdatedAt:      parseTimestamp(f.UpdatedAt, "updatedAt", f.ID, logger),
	}
}

// toFolder normalizes a folder response, recursing into whatever depth of
// sub-folders the server chose to populate. Children are always non-nil
// slices so an empty folder compares equal however the server encoded it.
func (f *folderResponse) toFolder(logger *slog.Logger) tree.Folder {
	folder := tree.Folder{
		ID:             f.ID,
		UserID:         f.UserID,
		ParentFolderID: f.ParentFolderID,
		Name:           f.Name,
		Size:           f.Size,
		SubFolders:     make([]tree.Folder, 0, len(f.SubFolders)),
		SubFiles:       make([]tree.File, 0, len(f.SubFiles)),
		Path:           append([]string{}, f.Path...),
		CreatedAt:      parseTimestamp(f.CreatedAt, "createdAt", f.ID, logger),
		UpdatedAt:      parseTimestamp(f.UpdatedAt, "updatedAt", f.ID, logger),
	}

	for i := range f.SubFolders {
		folder.SubFolders = append(folder.SubFolders, f.SubFolders[i].toFolder(logger))
	}

	for i := range f.SubFiles {
		folder.SubFiles = append(folder.SubFiles, f.SubFiles[i].toFile(logger))
	}

	return folder
}

// parseTimestamp parses an RFC3339 timestamp. Empty input is the normal
// "absent" case and yields the zero time silently; malformed input is
// logged and also yields the zero time.
func parseTimestamp(raw, field, id string, logger *slog.Logger) time.Time {
	if raw == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("invalid timestamp, ignoring",
			slog.String("field", field),
			slog.String("id", id),
			slog.String("raw", raw),
			slog.String("error", err.Error()),
		)

		return time.Time{}
	}

	return t.UTC()
}

// parseOptionalTimestamp is parseTimestamp for fields the server may omit.
// Absent and malformed values are both nil.
func parseOptionalTimestamp(raw *string, field, id string, logger *slog.Logger) *time.Time {
	if raw == nil {
		return nil
	}

	t := parseTimestamp(*raw, field, id, logger)
	if t.IsZero() && *raw != "" {
		return nil
	}

	return &t
}
