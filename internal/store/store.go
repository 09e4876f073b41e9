// Package store is a small sqlite-backed read-through cache for fetched
// transcripts, used by the CLI and the server so repeated requests for the
// same video don't hit YouTube again.
package store

import (
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	cache_key     TEXT PRIMARY KEY,
	video_id      TEXT NOT NULL,
	language_code TEXT NOT NULL,
	payload       BLOB NOT NULL,
	fetched_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcripts_video ON transcripts(video_id);
`

// Store wraps the cache database. Safe for concurrent use; database/sql
// serializes access.
type Store struct {
	db *sql.DB
}

// Open creates the database (and parent directory) if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Key builds a deterministic cache key from its parts.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("tr:%x", hash[:12])
}

// Get returns the cached payload for key if it is younger than ttl.
// ttl <= 0 means entries never expire.
func (s *Store) Get(key string, ttl time.Duration) ([]byte, bool, error) {
	var payload []byte
	var fetchedAt int64
	err := s.db.QueryRow(
		"SELECT payload, fetched_at FROM transcripts WHERE cache_key = ?", key,
	).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get: %w", err)
	}

	if ttl > 0 && time.Since(time.Unix(fetchedAt, 0)) > ttl {
		return nil, false, nil
	}
	return payload, true, nil
}

// Put stores (or replaces) a payload under key.
func (s *Store) Put(key, videoID, languageCode string, payload []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO transcripts (cache_key, video_id, language_code, payload, fetched_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		   payload = excluded.payload, fetched_at = excluded.fetched_at`,
		key, videoID, languageCode, payload, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: put: %w", err)
	}
	return nil
}

// Purge removes entries older than ttl. Returns the number of rows removed.
func (s *Store) Purge(ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl).Unix()
	res, err := s.db.Exec("DELETE FROM transcripts WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: purge: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
