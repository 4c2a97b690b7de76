package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeBackends(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(t.TempDir(), "sessions")),
		"sqlite": sqliteStore,
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := store.Get(ctx, "user-1", "greeting")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Set(ctx, "user-1", "greeting", "hello"))
			v, ok, err := store.Get(ctx, "user-1", "greeting")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "hello", v)

			has, err := store.Has(ctx, "user-1", "greeting")
			require.NoError(t, err)
			assert.True(t, has)

			// Overwrite.
			require.NoError(t, store.Set(ctx, "user-1", "greeting", "line one\nline \"two\""))
			v, _, err = store.Get(ctx, "user-1", "greeting")
			require.NoError(t, err)
			assert.Equal(t, "line one\nline \"two\"", v)

			// Sessions are isolated.
			has, err = store.Has(ctx, "user-2", "greeting")
			require.NoError(t, err)
			assert.False(t, has)

			require.NoError(t, store.Delete(ctx, "user-1", "greeting"))
			has, err = store.Has(ctx, "user-1", "greeting")
			require.NoError(t, err)
			assert.False(t, has)

			// Deleting again is fine.
			require.NoError(t, store.Delete(ctx, "user-1", "greeting"))
		})
	}
}

func TestStoreRejectsEmptyKeys(t *testing.T) {
	ctx := context.Background()

	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, store.Set(ctx, "", "k", "v"), ErrEmptySession)
			assert.ErrorIs(t, store.Set(ctx, "s", "", "v"), ErrEmptyKey)
			_, _, err := store.Get(ctx, "", "k")
			assert.ErrorIs(t, err, ErrEmptySession)
			_, err = store.Has(ctx, "s", "")
			assert.ErrorIs(t, err, ErrEmptyKey)
			assert.ErrorIs(t, store.Delete(ctx, "", ""), ErrEmptySession)
		})
	}
}

func TestStoreUpdate(t *testing.T) {
	ctx := context.Background()
	errBoom := errors.New("boom")

	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Update(ctx, "s", "count", func(current string, ok bool) (string, error) {
				assert.False(t, ok)
				assert.Empty(t, current)
				return "1", nil
			})
			require.NoError(t, err)

			err = store.Update(ctx, "s", "count", func(current string, ok bool) (string, error) {
				assert.True(t, ok)
				return current + "1", nil
			})
			require.NoError(t, err)

			err = store.Update(ctx, "s", "count", func(string, bool) (string, error) {
				return "lost", errBoom
			})
			assert.ErrorIs(t, err, errBoom)

			v, _, err := store.Get(ctx, "s", "count")
			require.NoError(t, err)
			assert.Equal(t, "11", v)

			assert.ErrorIs(t, store.Update(ctx, "", "k", nil), ErrEmptySession)
		})
	}
}

func TestFileStoreLayout(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "sessions")
	store := NewFileStore(dir)

	require.NoError(t, store.Set(ctx, "team/alice", "k", "v"))
	_, err := os.Stat(filepath.Join(dir, "team%2Falice.yml"))
	require.NoError(t, err, "session names are escaped into a single file")

	// A second store over the same directory sees the value.
	v, ok, err := NewFileStore(dir).Get(ctx, "team/alice", "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	// Removing the last key removes the file.
	require.NoError(t, store.Delete(ctx, "team/alice", "k"))
	_, err = os.Stat(filepath.Join(dir, "team%2Falice.yml"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bob.yml"), []byte("values: [unclosed"), 0644))

	_, _, err := NewFileStore(dir).Get(context.Background(), "bob", "k")
	assert.Error(t, err)
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "kv.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "s", "k", "v"))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(ctx, "s", "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, path, reopened.Path())
}

func TestOpen(t *testing.T) {
	tmp := t.TempDir()

	tests := []struct {
		name    string
		cfg     StoreConfig
		wantErr error
		check   func(t *testing.T, s Store)
	}{
		{
			name: "memory",
			cfg:  StoreConfig{Backend: "memory"},
			check: func(t *testing.T, s Store) {
				_, ok := s.(*MemoryStore)
				assert.True(t, ok)
			},
		},
		{
			name: "file with path",
			cfg:  StoreConfig{Backend: "FILE", Path: filepath.Join(tmp, "files")},
			check: func(t *testing.T, s Store) {
				fs, ok := s.(*FileStore)
				require.True(t, ok)
				assert.Equal(t, filepath.Join(tmp, "files"), fs.Dir())
			},
		},
		{
			name: "sqlite with path",
			cfg:  StoreConfig{Backend: "sqlite", Path: filepath.Join(tmp, "db", "kv.db")},
			check: func(t *testing.T, s Store) {
				_, ok := s.(*SQLiteStore)
				assert.True(t, ok)
			},
		},
		{
			name:    "unknown",
			cfg:     StoreConfig{Backend: "redis"},
			wantErr: ErrUnknownBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, closeFn, err := Open(tt.cfg)
			require.NotNil(t, closeFn)
			defer closeFn()

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}
