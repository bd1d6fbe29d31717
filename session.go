package banter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// SignedInKey is the local storage key mirroring the sign-in state.
const SignedInKey = "signedIn"

// Authenticator is the authoritative source of sign-in state.
type Authenticator interface {
	IsSignedIn(ctx context.Context) (bool, error)
	SignIn(ctx context.Context, credential string) error
	SignOut(ctx context.Context) error
}

// FlagStore is durable local key-value storage for small flags.
// Flag returns ErrFlagNotFound for missing keys.
type FlagStore interface {
	Flag(key string) (string, error)
	SetFlag(key, value string) error
}

// ErrAuthUnavailable indicates sign-in was requested without an authenticator.
var ErrAuthUnavailable = errors.New("authentication is not available")

// Session holds the sign-in state. The state starts from the local mirror
// and is corrected by Reconcile. Every change is written back to the mirror.
type Session struct {
	mu       sync.RWMutex
	auth     Authenticator
	store    FlagStore
	logger   *slog.Logger
	signedIn bool
}

// NewSession creates a session warm-started from the mirror in store.
// auth and store may be nil.
func NewSession(auth Authenticator, store FlagStore, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Session{auth: auth, store: store, logger: logger}
	if store == nil {
		return s
	}
	v, err := store.Flag(SignedInKey)
	switch {
	case errors.Is(err, ErrFlagNotFound):
	case err != nil:
		logger.Warn("read session mirror", "error", err)
	default:
		s.signedIn = v == "1" || v == "true"
	}
	return s
}

// SignedIn reports the current sign-in state.
func (s *Session) SignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signedIn
}

// Reconcile replaces the state with the authenticator's. Without an
// authenticator, or when it fails, the state is left unchanged.
func (s *Session) Reconcile(ctx context.Context) error {
	if s.auth == nil {
		return nil
	}
	ok, err := s.auth.IsSignedIn(ctx)
	if err != nil {
		s.logger.Warn("check sign-in", "error", err)
		return fmt.Errorf("check sign-in: %w", err)
	}
	s.set(ok)
	return nil
}

// SignIn delegates to the authenticator and marks the session signed in.
func (s *Session) SignIn(ctx context.Context, credential string) error {
	if s.auth == nil {
		return ErrAuthUnavailable
	}
	if err := s.auth.SignIn(ctx, credential); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	s.set(true)
	return nil
}

// SignOut delegates to the authenticator and marks the session signed out.
func (s *Session) SignOut(ctx context.Context) error {
	if s.auth == nil {
		return ErrAuthUnavailable
	}
	if err := s.auth.SignOut(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	s.set(false)
	return nil
}

func (s *Session) set(v bool) {
	s.mu.Lock()
	s.signedIn = v
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	value := "0"
	if v {
		value = "1"
	}
	if err := s.store.SetFlag(SignedInKey, value); err != nil {
		s.logger.Warn("write session mirror", "error", err)
	}
}
