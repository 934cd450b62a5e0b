package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
)`

// SQLite is a persistent cache in a single file. It survives restarts, so
// chunk vectors computed before a crash are reused afterwards.
//
// expires_at is unix nanoseconds; 0 means the entry never expires.
type SQLite struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewSQLite opens (or creates) the cache file at path and drops entries
// that expired while the process was down.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite cache path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache table: %w", err)
	}

	c := &SQLite{db: db, path: path, now: time.Now}
	if n, err := c.Purge(context.Background()); err != nil {
		log.Printf("SQLiteCache: purge on open failed: %v", err)
	} else if n > 0 {
		log.Printf("SQLiteCache: dropped %d expired entries", n)
	}
	return c, nil
}

func (c *SQLite) Name() string { return "sqlite" }

// Get reports a miss on any database error.
func (c *SQLite) Get(ctx context.Context, key string) ([]byte, bool) {
	var value []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT value FROM cache_entries WHERE key = ? AND (expires_at = 0 OR expires_at > ?)`,
		key, c.now().UnixNano(),
	).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("SQLiteCache: get %s: %v", key, err)
		}
		return nil, false
	}
	return value, true
}

func (c *SQLite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expires int64
	if ttl > 0 {
		expires = c.now().Add(ttl).UnixNano()
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expires,
	)
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

// Purge removes expired entries and returns how many were dropped.
func (c *SQLite) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at != 0 AND expires_at <= ?`, c.now().UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *SQLite) Close() error {
	return c.db.Close()
}
