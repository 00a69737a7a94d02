package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/pkg/filesystem"
	"github.com/doeshing/tasq/internal/ports"
)

// SQLiteCache persists interpreted commands keyed by the SHA-256 of the
// normalized input text. Expiry is lazy: stale rows are dropped when read or
// when Cleanup runs.
type SQLiteCache struct {
	db   *sql.DB
	path string
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
}

// NewSQLiteCache opens (or creates) the cache database at path.
func NewSQLiteCache(path string, ttl time.Duration) (*SQLiteCache, error) {
	path = filesystem.ExpandPath(path)
	if err := filesystem.EnsureParentDir(path, domain.DirectoryPermissions); err != nil {
		return nil, &domain.CacheError{Op: "open", Err: err}
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, &domain.CacheError{Op: "open", Err: err}
	}
	if ttl <= 0 {
		ttl = domain.DefaultCacheTTL
	}
	c := &SQLiteCache{db: db, path: path, ttl: ttl, now: time.Now}
	if err := c.init(); err != nil {
		db.Close()
		return nil, &domain.CacheError{Op: "init", Err: err}
	}
	return c, nil
}

func (c *SQLiteCache) init() error {
	_, err := c.db.Exec(`
		PRAGMA busy_timeout = 5000;

		CREATE TABLE IF NOT EXISTS nlp_responses (
			hash TEXT PRIMARY KEY,
			input TEXT NOT NULL,
			response_data BLOB NOT NULL,
			cached_at INTEGER NOT NULL,
			last_accessed INTEGER NOT NULL,
			access_count INTEGER NOT NULL DEFAULT 1
		);
		CREATE INDEX IF NOT EXISTS idx_cached_at ON nlp_responses(cached_at);
	`)
	return err
}

// Normalize is the cache key normalization.
func Normalize(text string) string {
	return domain.NormalizeInput(text)
}

// Key is the hex digest used as the row key for text.
func Key(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached command for text. Expired rows are deleted and
// reported as a miss; storage or decode failures are also misses.
func (c *SQLiteCache) Get(text string) (domain.StructuredCommand, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(text)
	var data []byte
	var cachedAt int64
	err := c.db.QueryRow(`SELECT response_data, cached_at FROM nlp_responses WHERE hash = ?`, key).Scan(&data, &cachedAt)
	if err != nil {
		return domain.StructuredCommand{}, false
	}

	now := c.now().Unix()
	if now-cachedAt > c.ttlSeconds() {
		_, _ = c.db.Exec(`DELETE FROM nlp_responses WHERE hash = ?`, key)
		return domain.StructuredCommand{}, false
	}

	_, _ = c.db.Exec(`UPDATE nlp_responses SET last_accessed = ?, access_count = access_count + 1 WHERE hash = ?`, now, key)

	var cmd domain.StructuredCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return domain.StructuredCommand{}, false
	}
	return cmd, true
}

// Put upserts cmd for text, resetting its access accounting.
func (c *SQLiteCache) Put(text string, cmd domain.StructuredCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return &domain.CacheError{Op: "encode", Err: err}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now().Unix()
	_, err = c.db.Exec(`INSERT OR REPLACE INTO nlp_responses
		(hash, input, response_data, cached_at, last_accessed, access_count)
		VALUES (?, ?, ?, ?, ?, 1)`,
		Key(text), text, data, now, now,
	)
	if err != nil {
		return &domain.CacheError{Op: "put", Err: err}
	}
	return nil
}

// Clear removes every entry.
func (c *SQLiteCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.db.Exec(`DELETE FROM nlp_responses`); err != nil {
		return &domain.CacheError{Op: "clear", Err: err}
	}
	return nil
}

// Cleanup deletes entries older than the TTL and returns how many went.
func (c *SQLiteCache) Cleanup() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Unix() - c.ttlSeconds()
	res, err := c.db.Exec(`DELETE FROM nlp_responses WHERE cached_at < ?`, cutoff)
	if err != nil {
		return 0, &domain.CacheError{Op: "cleanup", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &domain.CacheError{Op: "cleanup", Err: err}
	}
	return int(n), nil
}

// Stats reports totals. Expired entries are counted whether or not Cleanup ran.
func (c *SQLiteCache) Stats() (domain.CacheStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Unix() - c.ttlSeconds()
	stats := domain.CacheStats{TTL: c.ttl}
	err := c.db.QueryRow(`SELECT
			COUNT(*),
			COALESCE(SUM(LENGTH(response_data)), 0),
			COALESCE(SUM(CASE WHEN cached_at < ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(access_count), 0)
		FROM nlp_responses`, cutoff).
		Scan(&stats.TotalEntries, &stats.TotalBytes, &stats.ExpiredEntries, &stats.TotalAccesses)
	if err != nil {
		return domain.CacheStats{}, &domain.CacheError{Op: "stats", Err: err}
	}
	return stats, nil
}

// SetTTL changes the expiry window for subsequent operations.
func (c *SQLiteCache) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
}

// TTL returns the current expiry window.
func (c *SQLiteCache) TTL() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl
}

// Path returns the sqlite database path.
func (c *SQLiteCache) Path() string {
	return c.path
}

// Close releases the database handle.
func (c *SQLiteCache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *SQLiteCache) ttlSeconds() int64 {
	return int64(c.ttl / time.Second)
}

// String is used by `tasq cache stats`.
func (c *SQLiteCache) String() string {
	return fmt.Sprintf("sqlite cache at %s (ttl %s)", c.path, c.ttl)
}

var _ ports.ResponseCache = (*SQLiteCache)(nil)
