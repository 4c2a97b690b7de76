package state

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// sessionFile is the on-disk shape of one session.
type sessionFile struct {
	Values map[string]string `yaml:"values,omitempty"`
}

// FileStore keeps one YAML file per session in a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a store rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the directory holding session files.
func (f *FileStore) Dir() string {
	return f.dir
}

func (f *FileStore) path(session string) string {
	return filepath.Join(f.dir, url.PathEscape(session)+".yml")
}

func (f *FileStore) lockPath(session string) string {
	return filepath.Join(f.dir, "."+url.PathEscape(session)+".lock")
}

func (f *FileStore) load(session string) (*sessionFile, error) {
	data, err := os.ReadFile(f.path(session))
	if err != nil {
		if os.IsNotExist(err) {
			return &sessionFile{}, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var sf sessionFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	return &sf, nil
}

func (f *FileStore) save(session string, sf *sessionFile) error {
	path := f.path(session)
	if len(sf.Values) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove session file: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	data, err := yaml.Marshal(sf)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".session-*.yml")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (f *FileStore) Get(_ context.Context, session, key string) (string, bool, error) {
	if err := validate(session, key); err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	sf, err := f.load(session)
	if err != nil {
		return "", false, err
	}
	v, ok := sf.Values[key]
	return v, ok, nil
}

func (f *FileStore) Set(ctx context.Context, session, key, value string) error {
	return f.Update(ctx, session, key, func(string, bool) (string, error) {
		return value, nil
	})
}

// Update holds the session's lock file for the whole read-modify-write, so
// concurrent writers in other processes see each other's changes.
func (f *FileStore) Update(ctx context.Context, session, key string, fn UpdateFunc) error {
	if err := validate(session, key); err != nil {
		return err
	}
	return f.locked(ctx, session, func(sf *sessionFile) (bool, error) {
		current, ok := sf.Values[key]
		next, err := fn(current, ok)
		if err != nil {
			return false, err
		}
		if sf.Values == nil {
			sf.Values = make(map[string]string)
		}
		sf.Values[key] = next
		return true, nil
	})
}

func (f *FileStore) Delete(ctx context.Context, session, key string) error {
	if err := validate(session, key); err != nil {
		return err
	}
	return f.locked(ctx, session, func(sf *sessionFile) (bool, error) {
		if _, ok := sf.Values[key]; !ok {
			return false, nil
		}
		delete(sf.Values, key)
		return true, nil
	})
}

// locked loads the session under both the in-process mutex and the
// session's lock file, applies fn, and saves when fn reports a change.
func (f *FileStore) locked(ctx context.Context, session string, fn func(*sessionFile) (bool, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	return withLockFile(ctx, f.lockPath(session), func() error {
		sf, err := f.load(session)
		if err != nil {
			return err
		}
		changed, err := fn(sf)
		if err != nil || !changed {
			return err
		}
		return f.save(session, sf)
	})
}

func (f *FileStore) Has(ctx context.Context, session, key string) (bool, error) {
	_, ok, err := f.Get(ctx, session, key)
	return ok, err
}
