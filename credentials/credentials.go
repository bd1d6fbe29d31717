// Package credentials keeps provider API keys in a TOML file and reports
// sign-in state from it.
package credentials

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fwojciec/banter"
)

// Interface compliance check.
var _ banter.Authenticator = (*Store)(nil)

// ErrEmptyCredential indicates a sign-in with a blank key.
var ErrEmptyCredential = errors.New("credential is empty")

// entry is one provider section of the credentials file.
type entry struct {
	APIKey string `toml:"api_key"`
}

// Store is an Authenticator over a credentials file holding one API key
// per provider:
//
//	[gemini]
//	api_key = "..."
//
// A key from the environment counts as signed in until SignOut.
type Store struct {
	path     string
	provider string
	envKey   string

	mu        sync.Mutex
	signedOut bool
}

// NewStore returns a store for provider's key in the file at path. envKey
// is used when the file has no key.
func NewStore(path, provider, envKey string) *Store {
	return &Store{path: path, provider: provider, envKey: envKey}
}

// Path returns the credentials file path.
func (s *Store) Path() string { return s.path }

// APIKey returns the key for the provider, or "" when signed out.
func (s *Store) APIKey() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKey()
}

// IsSignedIn reports whether a key is available.
func (s *Store) IsSignedIn(ctx context.Context) (bool, error) {
	key, err := s.APIKey()
	if err != nil {
		return false, err
	}
	return key != "", nil
}

// SignIn stores credential as the provider's key.
func (s *Store) SignIn(ctx context.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return ErrEmptyCredential
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[s.provider] = entry{APIKey: credential}
	if err := s.save(entries); err != nil {
		return err
	}
	s.signedOut = false
	return nil
}

// SignOut removes the provider's key from the file and ignores the
// environment key for the rest of the process.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := entries[s.provider]; ok {
		delete(entries, s.provider)
		if err := s.save(entries); err != nil {
			return err
		}
	}
	s.signedOut = true
	return nil
}

// apiKey must be called with mu held.
func (s *Store) apiKey() (string, error) {
	entries, err := s.load()
	if err != nil {
		return "", err
	}
	if key := entries[s.provider].APIKey; key != "" {
		return key, nil
	}
	if s.signedOut {
		return "", nil
	}
	return s.envKey, nil
}

func (s *Store) load() (map[string]entry, error) {
	entries := make(map[string]entry)
	_, err := toml.DecodeFile(s.path, &entries)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	return entries, nil
}

func (s *Store) save(entries map[string]entry) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(entries); err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
