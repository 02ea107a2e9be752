// Package genlog records the outcome of every pipeline run in a dedicated
// SQLite database for audit and reporting.
package genlog

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/lumicast-ai/lumicast/pkg/models"
)

// Logger writes and queries generation log entries.
type Logger struct {
	db *sql.DB
}

// New opens the generation log database and creates the schema.
func New(dbPath string) (*Logger, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open generation log db: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate generation log db: %w", err)
	}
	return &Logger{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS generation_log (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		capability    TEXT NOT NULL,
		tier          TEXT NOT NULL,
		service       TEXT NOT NULL DEFAULT '',
		model         TEXT NOT NULL DEFAULT '',
		fallback_used INTEGER NOT NULL DEFAULT 0,
		cache_hit     INTEGER NOT NULL DEFAULT 0,
		latency_ms    INTEGER NOT NULL DEFAULT 0,
		cost_entry_id TEXT NOT NULL DEFAULT '',
		creator_id    TEXT NOT NULL,
		created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_genlog_creator ON generation_log(creator_id, created_at)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_genlog_capability ON generation_log(capability)`)
	return err
}

// Append inserts a log entry. A nil Logger is a no-op so logging never
// blocks the pipeline.
func (l *Logger) Append(ctx context.Context, e models.GenerationLogEntry) error {
	if l == nil || l.db == nil {
		return nil
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO generation_log
		(capability, tier, service, model, fallback_used, cache_hit,
		 latency_ms, cost_entry_id, creator_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(e.Capability), string(e.Tier), e.Service, e.Model,
		boolInt(e.FallbackUsed), boolInt(e.CacheHit),
		e.LatencyMs, e.CostEntryID, e.CreatorID, e.CreatedAt.UTC(),
	)
	return err
}

// Recent returns the newest entries, optionally filtered by creator.
func (l *Logger) Recent(ctx context.Context, creatorID string, limit int) ([]models.GenerationLogEntry, error) {
	q := `SELECT id, capability, tier, service, model, fallback_used, cache_hit,
		latency_ms, cost_entry_id, creator_id, created_at
		FROM generation_log`
	var args []any
	if creatorID != "" {
		q += ` WHERE creator_id = ?`
		args = append(args, creatorID)
	}
	if limit <= 0 {
		limit = 100
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query generation log: %w", err)
	}
	defer rows.Close()

	var entries []models.GenerationLogEntry
	for rows.Next() {
		var e models.GenerationLogEntry
		var capability, tier string
		var fallback, cacheHit int
		if err := rows.Scan(&e.ID, &capability, &tier, &e.Service, &e.Model,
			&fallback, &cacheHit, &e.LatencyMs, &e.CostEntryID,
			&e.CreatorID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan generation log row: %w", err)
		}
		e.Capability = models.Capability(capability)
		e.Tier = models.ProviderTier(tier)
		e.FallbackUsed = fallback != 0
		e.CacheHit = cacheHit != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stat aggregates generation counts per capability and day.
type Stat struct {
	Capability string
	Day        string
	Count      int64
	CacheHits  int64
}

// Stats returns daily generation counts grouped by capability.
func (l *Logger) Stats(ctx context.Context) ([]Stat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT capability, date(created_at) as day, count(*) as cnt,
			coalesce(sum(cache_hit), 0) as hits
		 FROM generation_log GROUP BY capability, day ORDER BY day DESC, capability`)
	if err != nil {
		return nil, fmt.Errorf("generation log stats: %w", err)
	}
	defer rows.Close()

	var stats []Stat
	for rows.Next() {
		var s Stat
		var day sql.NullString
		if err := rows.Scan(&s.Capability, &day, &s.Count, &s.CacheHits); err != nil {
			return nil, fmt.Errorf("scan generation log stat: %w", err)
		}
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Close closes the database.
func (l *Logger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
