// Package sqlite implements the durable tier of the content cache.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lumicast-ai/lumicast/pkg/models"
)

// Store persists cache entries in SQLite.
type Store struct {
	db *sql.DB
}

const createTable = `
CREATE TABLE IF NOT EXISTS content_cache (
	id TEXT PRIMARY KEY,
	cache_key TEXT NOT NULL UNIQUE,
	content_hash TEXT NOT NULL,
	cache_type TEXT NOT NULL,
	input_params TEXT NOT NULL,
	normalized_params TEXT NOT NULL,
	content TEXT NOT NULL,
	hit_count INTEGER NOT NULL DEFAULT 0,
	last_accessed DATETIME,
	expires_at DATETIME NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	service TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_type ON content_cache(cache_type, is_active, expires_at);
CREATE INDEX IF NOT EXISTS idx_cache_hash ON content_cache(content_hash);
`

// New opens the cache database and runs auto-migration.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return &Store{db: db}, nil
}

// Upsert inserts a cache entry, or refreshes the payload and expiry of an
// existing entry with the same key. Hit statistics of an existing entry are
// never overwritten.
func (s *Store) Upsert(ctx context.Context, e models.CacheEntry) error {
	input, err := json.Marshal(e.InputParams)
	if err != nil {
		return fmt.Errorf("marshal input params: %w", err)
	}
	normalized, err := json.Marshal(e.NormalizedParams)
	if err != nil {
		return fmt.Errorf("marshal normalized params: %w", err)
	}
	content, err := json.Marshal(e.Content)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}

	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO content_cache
			(id, cache_key, content_hash, cache_type, input_params, normalized_params,
			 content, expires_at, is_active, service, model, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
			content_hash = excluded.content_hash,
			input_params = excluded.input_params,
			normalized_params = excluded.normalized_params,
			content = excluded.content,
			expires_at = excluded.expires_at,
			is_active = 1,
			service = excluded.service,
			model = excluded.model`,
		id, e.CacheKey, e.ContentHash, string(e.CacheType), string(input), string(normalized),
		string(content), e.ExpiresAt.UTC(), e.Service, e.Model, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

const entryColumns = `id, cache_key, content_hash, cache_type, input_params, normalized_params,
	content, hit_count, last_accessed, expires_at, is_active, service, model, created_at`

// GetByKey returns the active, unexpired entry for a canonical key, or
// (nil, nil) when there is none.
func (s *Store) GetByKey(ctx context.Context, key string) (*models.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM content_cache
		 WHERE cache_key = ? AND is_active = 1 AND expires_at > ?`,
		key, time.Now().UTC(),
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	return e, nil
}

// ListActive returns up to limit active, unexpired entries of one cache
// type, most recent first. This is the bounded scan window used by the
// semantic, fuzzy, and template strategies.
func (s *Store) ListActive(ctx context.Context, cacheType models.CacheType, limit int) ([]models.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM content_cache
		 WHERE cache_type = ? AND is_active = 1 AND expires_at > ?
		 ORDER BY created_at DESC LIMIT ?`,
		string(cacheType), time.Now().UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer rows.Close()

	var entries []models.CacheEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Touch increments the hit counter and refreshes the last-access time. This
// is the only mutation lookups perform.
func (s *Store) Touch(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE content_cache SET hit_count = hit_count + 1, last_accessed = ? WHERE cache_key = ?`,
		time.Now().UTC(), key,
	)
	if err != nil {
		return fmt.Errorf("touch cache entry: %w", err)
	}
	return nil
}

// Invalidate soft-deletes the entry for a key.
func (s *Store) Invalidate(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE content_cache SET is_active = 0 WHERE cache_key = ?`, key,
	)
	if err != nil {
		return fmt.Errorf("invalidate cache entry: %w", err)
	}
	return nil
}

// DeleteExpired removes entries past their expiry and returns how many.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM content_cache WHERE expires_at <= ?`, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	return res.RowsAffected()
}

// Stats reports entry counts and accumulated hits, per cache type.
func (s *Store) Stats(ctx context.Context) (models.CacheStats, error) {
	stats := models.CacheStats{ByType: make(map[models.CacheType]int64)}
	now := time.Now().UTC()

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM content_cache`,
	).Scan(&stats.Entries, &stats.TotalHits)
	if err != nil {
		return stats, fmt.Errorf("cache stats: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM content_cache WHERE is_active = 1 AND expires_at > ?`, now,
	).Scan(&stats.ActiveEntries)
	if err != nil {
		return stats, fmt.Errorf("cache stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT cache_type, COUNT(*) FROM content_cache WHERE is_active = 1 GROUP BY cache_type`,
	)
	if err != nil {
		return stats, fmt.Errorf("cache stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ct string
		var n int64
		if err := rows.Scan(&ct, &n); err != nil {
			return stats, fmt.Errorf("scan cache stats: %w", err)
		}
		stats.ByType[models.CacheType(ct)] = n
	}
	return stats, rows.Err()
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*models.CacheEntry, error) {
	var e models.CacheEntry
	var cacheType string
	var input, normalized, content string
	var lastAccessed sql.NullTime
	var active int

	err := row.Scan(&e.ID, &e.CacheKey, &e.ContentHash, &cacheType, &input, &normalized,
		&content, &e.HitCount, &lastAccessed, &e.ExpiresAt, &active, &e.Service, &e.Model, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	e.CacheType = models.CacheType(cacheType)
	e.IsActive = active == 1
	if lastAccessed.Valid {
		e.LastAccessed = lastAccessed.Time
	}
	if err := json.Unmarshal([]byte(input), &e.InputParams); err != nil {
		return nil, fmt.Errorf("unmarshal input params: %w", err)
	}
	if err := json.Unmarshal([]byte(normalized), &e.NormalizedParams); err != nil {
		return nil, fmt.Errorf("unmarshal normalized params: %w", err)
	}
	if err := json.Unmarshal([]byte(content), &e.Content); err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}
	return &e, nil
}
