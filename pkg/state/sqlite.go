package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/grovetools/compass/pkg/logging"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS session_kv (
	session TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (session, key)
);
CREATE INDEX IF NOT EXISTS idx_session_kv_session ON session_kv(session);
`

// SQLiteStore keeps values in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates or opens the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.NewLogger("compass.state").WithField("path", dbPath).Debug("opened sqlite session store")
	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func (s *SQLiteStore) Get(ctx context.Context, session, key string) (string, bool, error) {
	if err := validate(session, key); err != nil {
		return "", false, err
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_kv WHERE session = ? AND key = ?`, session, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query session value: %w", err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, session, key, value string) error {
	if err := validate(session, key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_kv (session, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(session, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		session, key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store session value: %w", err)
	}
	return nil
}

// Update runs fn inside a BEGIN IMMEDIATE transaction, which takes the
// database write lock before reading.
func (s *SQLiteStore) Update(ctx context.Context, session, key string, fn UpdateFunc) (err error) {
	if err := validate(session, key); err != nil {
		return err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	var current string
	ok := true
	err = conn.QueryRowContext(ctx,
		`SELECT value FROM session_kv WHERE session = ? AND key = ?`, session, key,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		ok, err = false, nil
	}
	if err != nil {
		return fmt.Errorf("query session value: %w", err)
	}

	next, err := fn(current, ok)
	if err != nil {
		return err
	}

	if _, err = conn.ExecContext(ctx, `
		INSERT INTO session_kv (session, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(session, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		session, key, next, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("store session value: %w", err)
	}

	if _, err = conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, session, key string) error {
	if err := validate(session, key); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_kv WHERE session = ? AND key = ?`, session, key,
	); err != nil {
		return fmt.Errorf("delete session value: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Has(ctx context.Context, session, key string) (bool, error) {
	_, ok, err := s.Get(ctx, session, key)
	return ok, err
}
