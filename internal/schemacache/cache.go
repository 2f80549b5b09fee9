// Package schemacache persists hub method schemas per profile in SQLite so
// the CLI can build its command tree without contacting the hub.
package schemacache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hubctl/hubctl/internal/schema"
)

// FileName is the cache database name inside the data directory.
const FileName = "schema.db"

// CurrentDBVersion is the current cache schema version.
const CurrentDBVersion = 1

// ErrNotFound indicates no schema is cached for the profile.
var ErrNotFound = errors.New("no cached schema")

// Entry is a cached schema document.
type Entry struct {
	Profile   string
	FetchedAt time.Time
	Document  *schema.Document
	Raw       []byte
}

// Cache is the SQLite schema cache handle.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema cache: %w", err)
	}

	c := &Cache{db: db}
	if err := c.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) initialize() error {
	ddl := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS schemas (
			profile TEXT PRIMARY KEY,
			fetched_at INTEGER NOT NULL,   -- Unix timestamp
			version TEXT,                  -- Schema version reported by the hub
			document TEXT NOT NULL         -- Raw schema JSON
		);
	`
	if _, err := c.db.Exec(ddl); err != nil {
		return fmt.Errorf("failed to initialize schema cache: %w", err)
	}

	_, err := c.db.Exec(
		"INSERT INTO meta (key, value) VALUES ('version', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		fmt.Sprintf("%d", CurrentDBVersion))
	if err != nil {
		return fmt.Errorf("failed to record cache version: %w", err)
	}
	return nil
}

// Store saves the raw schema document for profile, replacing any previous
// entry. The document must parse.
func (c *Cache) Store(profile string, raw []byte, fetchedAt time.Time) error {
	doc, err := schema.Parse(raw)
	if err != nil {
		return err
	}
	_, err = c.db.Exec(`
		INSERT INTO schemas (profile, fetched_at, version, document) VALUES (?, ?, ?, ?)
		ON CONFLICT(profile) DO UPDATE SET
			fetched_at = excluded.fetched_at,
			version = excluded.version,
			document = excluded.document`,
		profile, fetchedAt.Unix(), doc.Version, string(raw))
	if err != nil {
		return fmt.Errorf("failed to store schema for %s: %w", profile, err)
	}
	return nil
}

// Load returns the cached schema for profile.
func (c *Cache) Load(profile string) (*Entry, error) {
	var fetchedAt int64
	var raw string
	err := c.db.QueryRow("SELECT fetched_at, document FROM schemas WHERE profile = ?", profile).Scan(&fetchedAt, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w for profile '%s'", ErrNotFound, profile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schema cache: %w", err)
	}

	doc, err := schema.Parse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("cached schema for %s: %w", profile, err)
	}
	return &Entry{
		Profile:   profile,
		FetchedAt: time.Unix(fetchedAt, 0),
		Document:  doc,
		Raw:       []byte(raw),
	}, nil
}

// Delete drops the cached schema for profile.
func (c *Cache) Delete(profile string) error {
	if _, err := c.db.Exec("DELETE FROM schemas WHERE profile = ?", profile); err != nil {
		return fmt.Errorf("failed to delete cached schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}
