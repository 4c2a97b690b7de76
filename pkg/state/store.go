// Package state holds session-scoped key-value storage and the onboarding
// message cache built on top of it.
package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrEmptySession   = errors.New("session key is empty")
	ErrEmptyKey       = errors.New("key is empty")
	ErrUnknownBackend = errors.New("unknown store backend")
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Store is a key-value store scoped by an explicit session or user key.
type Store interface {
	// Get returns the value and whether it was present.
	Get(ctx context.Context, session, key string) (string, bool, error)
	Set(ctx context.Context, session, key, value string) error
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, session, key string) error
	Has(ctx context.Context, session, key string) (bool, error)
	// Update replaces the value of key with the result of fn as one atomic
	// step. fn must not call back into the store. An error from fn leaves
	// the value unchanged.
	Update(ctx context.Context, session, key string, fn UpdateFunc) error
}

// UpdateFunc computes a new value from the current one. ok reports whether
// the key was present.
type UpdateFunc func(current string, ok bool) (string, error)

// StoreConfig selects and locates a Store backend.
type StoreConfig struct {
	Backend string `yaml:"backend" json:"backend,omitempty" jsonschema:"enum=memory,enum=file,enum=sqlite"`
	Path    string `yaml:"path" json:"path,omitempty"`
}

// Open builds the store described by cfg. File and SQLite backends default
// to locations under DefaultDir when no path is given. The returned close
// function releases backend resources and is always non-nil.
func Open(cfg StoreConfig) (Store, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendFile:
		dir := cfg.Path
		if dir == "" {
			base, err := DefaultDir()
			if err != nil {
				return nil, noop, err
			}
			dir = filepath.Join(base, "sessions")
		}
		return NewFileStore(dir), noop, nil
	case BackendMemory:
		return NewMemoryStore(), noop, nil
	case BackendSQLite:
		path := cfg.Path
		if path == "" {
			base, err := DefaultDir()
			if err != nil {
				return nil, noop, err
			}
			path = filepath.Join(base, "sessions.db")
		}
		s, err := NewSQLiteStore(path)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// DefaultDir returns the .compass directory at the enclosing git root, or
// under the current directory when there is no git root.
func DefaultDir() (string, error) {
	root, err := ProjectRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, ".compass"), nil
}

// ProjectRoot walks up from the working directory looking for .git and
// falls back to the working directory itself.
func ProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current directory: %w", err)
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

func validate(session, key string) error {
	if session == "" {
		return ErrEmptySession
	}
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
