package geo

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tesseralab/tessera/internal/document"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS geocache (
	place       TEXT PRIMARY KEY,
	lat         REAL NOT NULL,
	lon         REAL NOT NULL,
	resolved_at TEXT NOT NULL
);`

// Cache is a persistent place → coordinates cache backed by SQLite.
// Keys are normalized place names (trimmed, lower-cased).
type Cache struct {
	db *sql.DB
}

// OpenCache opens (creating if needed) the cache database at path.
func OpenCache(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening geocode cache %s: %w", path, err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing geocode cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Get returns the cached coordinates for a normalized place key.
func (c *Cache) Get(ctx context.Context, key string) (document.Coordinates, bool) {
	var coords document.Coordinates
	err := c.db.QueryRowContext(ctx,
		`SELECT lat, lon FROM geocache WHERE place = ?`, key,
	).Scan(&coords.Lat, &coords.Lon)
	if err != nil {
		return document.Coordinates{}, false
	}
	return coords, true
}

// Put stores coordinates for a normalized place key.
func (c *Cache) Put(ctx context.Context, key string, coords document.Coordinates) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO geocache (place, lat, lon, resolved_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(place) DO UPDATE SET lat = excluded.lat, lon = excluded.lon, resolved_at = excluded.resolved_at`,
		key, coords.Lat, coords.Lon, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
