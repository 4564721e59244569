// Package session holds the driver's authenticated session: the bearer token,
// the user it belongs to, and the sealed copy kept on disk between restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/field-ledger/internal/backend"
	"github.com/Dan9191/field-ledger/internal/models"
)

// ErrNotLoggedIn means there is no active session.
var ErrNotLoggedIn = errors.New("not logged in")

// Authenticator is the part of the backend the session needs
type Authenticator interface {
	Login(ctx context.Context, mobile, password string) (*models.LoginResponse, error)
	Me(ctx context.Context) (*models.User, error)
}

// Session implements backend.TokenSource
type Session struct {
	mu    sync.RWMutex
	token string
	user  *models.User

	store Store
	auth  Authenticator
	log   *logrus.Logger
	now   func() time.Time
	cron  *cron.Cron
}

// New creates an empty session. Call Load to restore a stored token.
func New(store Store, auth Authenticator, log *logrus.Logger) *Session {
	return &Session{
		store: store,
		auth:  auth,
		log:   log,
		now:   time.Now,
	}
}

// SetClock replaces the time source used for token expiry
func (s *Session) SetClock(now func() time.Time) {
	s.now = now
}

// Token returns the bearer token of the active session
func (s *Session) Token() (string, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return "", backend.ErrNoToken
	}
	if s.expired(token) {
		s.Invalidate()
		return "", backend.ErrNoToken
	}
	return token, nil
}

// User returns the logged-in driver, or nil
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Active reports whether a token is held
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Load restores the stored token and fetches its user. An expired or rejected
// token is discarded.
func (s *Session) Load(ctx context.Context) error {
	token, err := s.store.Load()
	if errors.Is(err, ErrNoToken) {
		return ErrNotLoggedIn
	}
	if err != nil {
		s.log.Warnf("Discarding unreadable stored token: %v", err)
		_ = s.store.Clear()
		return ErrNotLoggedIn
	}
	if s.expired(token) {
		s.log.Info("Stored token has expired")
		_ = s.store.Clear()
		return ErrNotLoggedIn
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	user, err := s.auth.Me(ctx)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			s.Invalidate()
			return ErrNotLoggedIn
		}
		return fmt.Errorf("failed to fetch user: %w", err)
	}
	s.setUser(user)
	s.log.WithField("user_id", user.ID).Info("Session restored")
	return nil
}

// Login authenticates and stores the new token. The token is kept only once its
// user is known.
func (s *Session) Login(ctx context.Context, mobile, password string) (*models.User, error) {
	resp, err := s.auth.Login(ctx, mobile, password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.token = resp.Token
	s.user = resp.User
	s.mu.Unlock()

	if resp.User == nil {
		user, err := s.auth.Me(ctx)
		if err != nil {
			s.clear()
			if cerr := s.store.Clear(); cerr != nil {
				s.log.Errorf("Failed to clear stored token: %v", cerr)
			}
			return nil, fmt.Errorf("failed to fetch user: %w", err)
		}
		s.setUser(user)
	}

	if err := s.store.Save(resp.Token); err != nil {
		s.log.Warnf("Failed to persist token: %v", err)
	}

	user := s.User()
	s.log.WithField("user_id", user.ID).Info("Logged in")
	return user, nil
}

// Refresh re-validates the token against /auth/me
func (s *Session) Refresh(ctx context.Context) error {
	if _, err := s.Token(); err != nil {
		return ErrNotLoggedIn
	}
	user, err := s.auth.Me(ctx)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			s.Invalidate()
			return ErrNotLoggedIn
		}
		return fmt.Errorf("failed to refresh session: %w", err)
	}
	s.setUser(user)
	return nil
}

// Logout ends the session
func (s *Session) Logout() error {
	s.clear()
	if err := s.store.Clear(); err != nil {
		return err
	}
	s.log.Info("Logged out")
	return nil
}

// Invalidate drops the session after the backend rejected the token
func (s *Session) Invalidate() {
	if !s.Active() {
		return
	}
	s.clear()
	if err := s.store.Clear(); err != nil {
		s.log.Errorf("Failed to clear stored token: %v", err)
	}
	s.log.Warn("Session invalidated")
}

// Start refreshes the session on the given cron schedule
func (s *Session) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrNotLoggedIn) {
			s.log.Errorf("Session refresh failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	s.cron = c
	c.Start()
	s.log.Infof("Session refresh scheduled: %s", schedule)
	return nil
}

// Stop halts the refresh schedule and waits for a running refresh
func (s *Session) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *Session) setUser(u *models.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func (s *Session) clear() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
}

// expired reads the exp claim without verifying the signature; the backend does
// that. Tokens that are not JWTs or carry no exp never expire locally.
func (s *Session) expired(token string) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !s.now().Before(claims.ExpiresAt.Time)
}
