package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/drivetree/internal/api"
	"github.com/tonimelisma/drivetree/internal/session"
)

// FetchIdentityAndAccounts loads the signed-in user and their accounts into
// the session. Nothing is written unless both calls succeed. If the token
// no longer resolves to a user, the token is cleared; on any failure the
// user is sent to LandingPath.
func (s *Syncer) FetchIdentityAndAccounts(ctx context.Context) error {
	defer s.begin()()

	user, err := s.remote.UserInfo(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUserNotFound) {
			s.logger.Warn("token no longer resolves to a user, signing out")

			if clearErr := s.tokens.Clear(); clearErr != nil {
				s.logger.Error("clearing token failed", slog.String("error", clearErr.Error()))
				err = errors.Join(err, clearErr)
			}
		} else {
			s.logger.Error("fetching user info failed", slog.String("error", err.Error()))
		}

		return s.leave(fmt.Errorf("hierarchy: fetching identity: %w", err))
	}

	accounts, err := s.remote.Accounts(ctx)
	if err != nil {
		s.logger.Error("fetching accounts failed", slog.String("error", err.Error()))

		return s.leave(fmt.Errorf("hierarchy: fetching accounts: %w", err))
	}

	s.store.SetAccounts(toAccounts(accounts))
	s.store.MergeUser(toPatch(user))

	s.logger.Info("identity loaded",
		slog.String("user_id", user.ID),
		slog.Int("accounts", len(accounts)),
	)

	return nil
}

func (s *Syncer) leave(err error) error {
	s.report.SetError(err.Error())
	s.nav.Navigate(LandingPath)

	return err
}

// FlushAccountFiles deletes every file stored under the user's accounts.
// The session is left alone; the caller decides what happens next.
func (s *Syncer) FlushAccountFiles(ctx context.Context) error {
	defer s.begin()()

	if err := s.remote.FlushFiles(ctx); err != nil {
		s.logger.Error("flushing account files failed", slog.String("error", err.Error()))
		s.report.SetError(err.Error())

		return fmt.Errorf("hierarchy: flushing account files: %w", err)
	}

	s.logger.Info("account files flushed")

	return nil
}

// DeleteUserAccount deletes the user on the server. The session is left
// alone; the caller decides what happens next.
func (s *Syncer) DeleteUserAccount(ctx context.Context) error {
	defer s.begin()()

	if err := s.remote.DeleteUser(ctx); err != nil {
		s.logger.Error("deleting user failed", slog.String("error", err.Error()))
		s.report.SetError(err.Error())

		return fmt.Errorf("hierarchy: deleting user: %w", err)
	}

	s.logger.Info("user deleted")

	return nil
}

// toPatch carries over only the fields the server sent, so a partial
// profile never blanks what the session already knows.
func toPatch(u *api.User) session.IdentityPatch {
	return session.IdentityPatch{
		ID:           nonEmpty(u.ID),
		Name:         u.Name,
		Email:        u.Email,
		Picture:      u.Picture,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		RootFolderID: nonEmpty(u.RootFolderID),
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func toAccounts(in []api.Account) []session.Account {
	out := make([]session.Account, 0, len(in))

	for _, a := range in {
		out = append(out, session.Account{
			ID:        a.ID,
			UserID:    a.UserID,
			Provider:  a.Provider,
			Email:     a.Email,
			Name:      a.Name,
			Picture:   a.Picture,
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
		})
	}

	return out
}
