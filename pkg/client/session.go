// Package client is a Go client for the bizdesk API: a token session with
// a route guard on top, and typed calls for the association endpoints.
package client

import (
	"context"
	"sync"
)

// Profile is the authenticated user as returned by /api/auth/me.
type Profile struct {
	ID     uint    `json:"id"`
	Email  string  `json:"email"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar"`
}

// ProfileFetcher resolves a token to its user's profile.
type ProfileFetcher interface {
	Me(ctx context.Context, token string) (*Profile, error)
}

// Session holds the client's token and the profile it resolves to. It is
// authenticated only while both are present. Any failed profile fetch ends
// the session.
type Session struct {
	mu      sync.RWMutex
	storage TokenStorage
	fetcher ProfileFetcher
	token   string
	user    *Profile
	lastErr error
}

// NewSession creates an empty session. Call Init to restore a stored token.
func NewSession(storage TokenStorage, fetcher ProfileFetcher) *Session {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &Session{
		storage: storage,
		fetcher: fetcher,
	}
}

// Init restores the persisted token, if any, and verifies it.
func (s *Session) Init(ctx context.Context) error {
	token, err := s.storage.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.user = nil
	s.mu.Unlock()
	return s.FetchUser(ctx)
}

// SetToken persists token. An empty token clears the session; a different
// token drops the cached profile.
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setTokenLocked(token)
}

func (s *Session) setTokenLocked(token string) error {
	if token != s.token {
		s.user = nil
	}
	s.token = token
	if token == "" {
		s.user = nil
		return s.storage.Clear()
	}
	return s.storage.Save(token)
}

// FetchUser loads the profile for the current token. Without a token the
// profile is cleared. A failure clears both token and profile and is not
// retried.
func (s *Session) FetchUser(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	s.lastErr = nil
	if token == "" {
		s.user = nil
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	profile, err := s.fetcher.Me(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != token {
		// The token changed while the request was in flight.
		return nil
	}
	if err != nil {
		s.lastErr = err
		if clearErr := s.setTokenLocked(""); clearErr != nil {
			return clearErr
		}
		return err
	}
	s.user = profile
	return nil
}

// HandleAuthCallback stores the token delivered by the login redirect and
// loads its profile.
func (s *Session) HandleAuthCallback(ctx context.Context, token string) (*Profile, error) {
	if err := s.SetToken(token); err != nil {
		return nil, err
	}
	if err := s.FetchUser(ctx); err != nil {
		return nil, err
	}
	return s.User(), nil
}

// Logout clears the session. The token stays valid on the server until it
// expires.
func (s *Session) Logout() error {
	return s.SetToken("")
}

// Token returns the current token, or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the cached profile, or nil.
func (s *Session) User() *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// IsAuthenticated reports whether both a token and a profile are present.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

// LastError returns the error of the last FetchUser, if it failed.
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
