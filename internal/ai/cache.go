package ai

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Cache is a content-addressed, time-expiring store of prior AI results,
// local to the device. Keys are digests of the canonicalized request; values
// are the JSON-encoded domain result. Entries are never served past their
// expiry, and the store prunes itself rather than growing without bound.
type Cache struct {
	db     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// pruneDropPercent: a forced prune drops the lowest-expiry ~30% of live
// entries, the ones closest to dying anyway.
const pruneDropPercent = 30

// OpenCache opens (or creates) the sqlite-backed cache at path. Pass
// ":memory:" for an in-memory cache (used by tests).
func OpenCache(path string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Single connection avoids "database is locked" under concurrent ops.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, err
	}

	const schema = `
CREATE TABLE IF NOT EXISTS ai_cache (
	cache_key  TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ai_cache_expires ON ai_cache(expires_at);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Cache{db: db, ttl: ttl, now: time.Now, logger: logger}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// CacheKey derives the stable cache key for an operation and its
// semantically relevant inputs. Inputs are serialized with encoding/json
// (map keys sorted, struct fields in declaration order), so logically equal
// requests hash identically. Order-symmetric operations must canonicalize
// argument order before calling this.
func CacheKey(operation string, payload any) string {
	b, err := json.Marshal(struct {
		Op      string `json:"op"`
		Payload any    `json:"payload"`
	}{Op: operation, Payload: payload})
	if err != nil {
		// unserializable payloads degrade to an operation-scoped key
		b = []byte(operation)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Get loads a cached value into out. Returns false on miss or expiry;
// expired rows are deleted lazily on read.
func (c *Cache) Get(ctx context.Context, key string, out any) bool {
	var payload string
	var expiresAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM ai_cache WHERE cache_key = ?`, key,
	).Scan(&payload, &expiresAt)
	if err != nil {
		return false
	}

	if c.now().Unix() > expiresAt {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM ai_cache WHERE cache_key = ?`, key); err != nil {
			c.logger.Warn("ai.cache.expired_delete_failed", "error", err)
		}
		return false
	}

	if err := json.Unmarshal([]byte(payload), out); err != nil {
		c.logger.Warn("ai.cache.decode_failed", "key", key, "error", err)
		return false
	}
	return true
}

// Set stores a value under key with the configured TTL. On a storage
// failure it force-prunes and retries once; a second failure drops the
// write silently — the cache is an optimization, not a ledger.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("ai.cache.encode_failed", "key", key, "error", err)
		return
	}
	expiresAt := c.now().Add(c.ttl).Unix()

	if err := c.put(ctx, key, string(payload), expiresAt); err != nil {
		c.logger.Warn("ai.cache.write_failed", "key", key, "error", err)
		c.Prune(ctx, true)
		if err := c.put(ctx, key, string(payload), expiresAt); err != nil {
			c.logger.Warn("ai.cache.write_dropped", "key", key, "error", err)
		}
	}
}

func (c *Cache) put(ctx context.Context, key, payload string, expiresAt int64) error {
	_, err := c.db.ExecContext(ctx, `
INSERT INTO ai_cache (cache_key, payload, expires_at) VALUES (?, ?, ?)
ON CONFLICT(cache_key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
		key, payload, expiresAt)
	return err
}

// Prune deletes expired entries. With forceFreeSpace it additionally drops
// the soonest-to-expire pruneDropPercent of the remaining live entries.
// Scheduled opportunistically (shortly after startup) rather than on the
// write path.
func (c *Cache) Prune(ctx context.Context, forceFreeSpace bool) {
	start := time.Now()
	res, err := c.db.ExecContext(ctx, `DELETE FROM ai_cache WHERE expires_at < ?`, c.now().Unix())
	if err != nil {
		c.logger.Warn("ai.cache.prune_failed", "error", err)
		return
	}
	expired, _ := res.RowsAffected()

	var forced int64
	if forceFreeSpace {
		res, err := c.db.ExecContext(ctx, `
DELETE FROM ai_cache WHERE cache_key IN (
	SELECT cache_key FROM ai_cache
	ORDER BY expires_at ASC
	LIMIT (SELECT COUNT(*) * ? / 100 FROM ai_cache)
)`, pruneDropPercent)
		if err != nil {
			c.logger.Warn("ai.cache.prune_force_failed", "error", err)
			return
		}
		forced, _ = res.RowsAffected()
	}

	c.logger.Info("ai.cache.prune_ok",
		"expired", expired,
		"forced", forced,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}
