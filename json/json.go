// Package json persists local flags in a JSON file.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fwojciec/banter"
)

// Interface compliance check.
var _ banter.FlagStore = (*Store)(nil)

// envelope is the v1 wire format for the flag file.
type envelope struct {
	Version int               `json:"version"`
	Flags   map[string]string `json:"flags"`
}

// Store is a FlagStore backed by a single JSON file. Every write rewrites
// the file atomically.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore returns a store for the file at path. The file is created on
// the first write.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Flag returns the value stored under key.
func (s *Store) Flag(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := flags[key]
	if !ok {
		return "", fmt.Errorf("%s: %w", key, banter.ErrFlagNotFound)
	}
	return v, nil
}

// SetFlag stores value under key.
func (s *Store) SetFlag(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, err := s.load()
	if err != nil {
		return err
	}
	flags[key] = value
	return s.save(flags)
}

func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read flags: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return nil, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	if env.Flags == nil {
		env.Flags = make(map[string]string)
	}
	return env.Flags, nil
}

func (s *Store) save(flags map[string]string) error {
	data, err := json.MarshalIndent(envelope{Version: 1, Flags: flags}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
