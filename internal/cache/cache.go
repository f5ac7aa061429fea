// Package cache implements the content-addressed run cache: a SQLite-backed
// store of prior translation runs keyed by a hash of their inputs: a small
// SQLite index (schema creation and WAL pragmas on open) mapping each hash
// to the directory holding that run's factor-table artifacts.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Key identifies a cacheable run: a hash of the actual inputs and
// configuration that determine the output, not the wall-clock date a prior
// incarnation of this tool used — a run with unchanged inputs always hits
// the cache regardless of when it is re-run.
type Key struct {
	ZoneAPath       string
	ZoneBPath       string
	LowerZoningPath string
	LowerYear       string // vintage of the lower zoning, if any; part of the key since the same path can be re-weighted for a different year
	Method          string
	SliverTolerance float64
	FilterSlivers   bool
	PointHandling   bool
	PointTolerance  float64
}

// Hash returns the content-address for k: a hex-encoded sha256 of its
// fields joined in their fixed declared order. Field order is fixed at
// compile time, so there is nothing to canonicalize; sorting the values
// before hashing would instead let two keys that merely swap which path is
// ZoneAPath and which is ZoneBPath collide, which is a real, meaningful
// difference (it flips which side of the pair is "A" vs "B").
func (k Key) Hash() string {
	parts := []string{
		k.ZoneAPath, k.ZoneBPath, k.LowerZoningPath, k.LowerYear, k.Method,
		fmt.Sprintf("%v", k.SliverTolerance),
		fmt.Sprintf("%v", k.FilterSlivers),
		fmt.Sprintf("%v", k.PointHandling),
		fmt.Sprintf("%v", k.PointTolerance),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// Store is a SQLite-backed index of cached runs, plus the content-addressed
// directory holding their artifacts. The SQLite index never stores the
// factor table itself, which lives as atomically-written files on disk; it
// only records which hash maps to which artifact directory, making lookups
// a single indexed query.
type Store struct {
	db  *sql.DB
	dir string
}

// Open creates or attaches to a run cache rooted at dir, applying the WAL
// journal and NORMAL synchronous SQLite pragmas.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	indexPath := filepath.Join(dir, "index.sqlite")
	db, err := sql.Open("sqlite", indexPath)
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		hash TEXT PRIMARY KEY,
		artifact_dir TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	return &Store{db: db, dir: dir}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the artifact directory for key, if a prior run was
// recorded for it.
func (s *Store) Lookup(key Key) (dir string, found bool, err error) {
	hash := key.Hash()
	row := s.db.QueryRow(`SELECT artifact_dir FROM runs WHERE hash = ?`, hash)
	if err := row.Scan(&dir); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("lookup cache entry %s: %w", hash, err)
	}
	return dir, true, nil
}

// Record registers a completed run's artifact directory under key's hash,
// replacing any prior record.
func (s *Store) Record(key Key, artifactDir, createdAt string) error {
	hash := key.Hash()
	_, err := s.db.Exec(
		`INSERT INTO runs (hash, artifact_dir, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET artifact_dir = excluded.artifact_dir, created_at = excluded.created_at`,
		hash, artifactDir, createdAt,
	)
	if err != nil {
		return fmt.Errorf("record cache entry %s: %w", hash, err)
	}
	return nil
}

// ArtifactDir returns the deterministic path a new run for key should write
// its artifacts to, rooted under the cache directory.
func (s *Store) ArtifactDir(key Key) string {
	return filepath.Join(s.dir, "runs", key.Hash())
}

// WriteAtomic writes data to path via a temp-file-then-rename, so
// concurrent readers never observe a partial file.
func WriteAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmp, path, err)
	}
	return nil
}

// WriteJSONAtomic marshals v and writes it atomically, used to serialize
// the run configuration alongside every factor table output.
func WriteJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return WriteAtomic(path, data)
}
