package tokenfile

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

var (
	// ErrNotLoggedIn means no token file exists.
	ErrNotLoggedIn = errors.New("tokenfile: not logged in")

	// ErrExpired means the stored token's expiry has passed.
	ErrExpired = errors.New("tokenfile: token expired")
)

// Store caches the token file at one path. It satisfies the API client's
// token source and the hierarchy package's token clearing. Safe for
// concurrent use.
type Store struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	tok    *oauth2.Token
	meta   map[string]string
	loaded bool
}

// NewStore returns a Store for path. Nothing is read until first use.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{path: path, logger: logger, now: time.Now}
}

// Path returns the token file path.
func (s *Store) Path() string {
	return s.path
}

// Token returns the access token, loading the file on first use.
func (s *Store) Token() (string, error) {
	tok, _, err := s.Current()
	if err != nil {
		return "", err
	}

	if !tok.Expiry.IsZero() && !tok.Expiry.After(s.now()) {
		return "", fmt.Errorf("%w at %s (log in again)", ErrExpired, tok.Expiry.Format(time.RFC3339))
	}

	return tok.AccessToken, nil
}

// Current returns the cached token and metadata, loading the file on first
// use. It returns ErrNotLoggedIn when there is no token file.
func (s *Store) Current() (*oauth2.Token, map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		tok, meta, err := Load(s.path)
		if err != nil {
			return nil, nil, err
		}

		s.tok, s.meta, s.loaded = tok, meta, true
	}

	if s.tok == nil {
		return nil, nil, ErrNotLoggedIn
	}

	return s.tok, s.meta, nil
}

// Set stores a new access token. When the token is a JWT its exp and sub
// claims fill in the expiry and user id; opaque tokens are stored as is.
func (s *Store) Set(access, serverURL string) error {
	access = strings.TrimSpace(access)
	if access == "" {
		return errors.New("tokenfile: empty token")
	}

	claims := ParseClaims(access)

	tok := &oauth2.Token{
		AccessToken: access,
		TokenType:   "Bearer",
		Expiry:      claims.Expiry,
	}

	meta := map[string]string{
		MetaServerURL: serverURL,
		MetaSavedAt:   s.now().UTC().Format(time.RFC3339),
	}

	if claims.Subject != "" {
		meta[MetaUserID] = claims.Subject
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := Save(s.path, tok, meta); err != nil {
		return err
	}

	s.tok, s.meta, s.loaded = tok, meta, true

	s.logger.Info("token saved",
		slog.String("path", s.path),
		slog.Bool("has_expiry", !tok.Expiry.IsZero()),
	)

	return nil
}

// Clear drops the cached token and deletes the token file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tok, s.meta, s.loaded = nil, nil, true

	if err := Remove(s.path); err != nil {
		return err
	}

	s.logger.Info("token cleared", slog.String("path", s.path))

	return nil
}

// Invalidate forgets the cached token so the next use re-reads the file.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.tok, s.meta, s.loaded = nil, nil, false
	s.mu.Unlock()
}

// Claims is what the client reads from a JWT access token. Zero values
// mean the claim was absent or the token is not a JWT.
type Claims struct {
	Subject string
	Expiry  time.Time
}

// ParseClaims decodes exp and sub from a JWT without verifying its
// signature.
func ParseClaims(access string) Claims {
	var claims jwt.RegisteredClaims

	if _, _, err := jwt.NewParser().ParseUnverified(access, &claims); err != nil {
		return Claims{}
	}

	c := Claims{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		c.Expiry = claims.ExpiresAt.UTC()
	}

	return c
}
