// Package cache avoids re-paying for near-duplicate generations by matching
// new requests against previously generated, still-valid content across a
// fast volatile tier and a durable SQLite tier.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/lumicast-ai/lumicast/pkg/cache/sqlite"
	"github.com/lumicast-ai/lumicast/pkg/config"
	"github.com/lumicast-ai/lumicast/pkg/models"
)

// Hard keys must match exactly for a fuzzy hit; soft keys tolerate
// proportional deviation. Template matching considers only templateKeys.
var (
	fuzzyHardKeys = []string{"age_group", "subject_area"}
	fuzzySoftKeys = []string{"difficulty_level", "duration"}
	templateKeys  = []string{"age_group", "subject_area", "difficulty_level", "video_duration"}
)

const defaultScanLimit = 10

// Meta records which provider produced a cached payload.
type Meta struct {
	Service string
	Model   string
}

// Manager is the two-tier content cache. Cache failures never propagate to
// callers: a fast-tier outage degrades to durable-only, a durable outage
// degrades to a miss on read and a no-op on write.
type Manager struct {
	store *sqlite.Store
	fast  FastTier // nil when the volatile tier is absent
	types map[models.CacheType]config.CacheType

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Manager. fast may be nil.
func New(store *sqlite.Store, fast FastTier, types map[models.CacheType]config.CacheType) *Manager {
	return &Manager{store: store, fast: fast, types: types}
}

func (m *Manager) typeConfig(ct models.CacheType) config.CacheType {
	tc, ok := m.types[ct]
	if !ok {
		tc = config.CacheType{TTL: 24 * time.Hour, Strategy: models.StrategyExact}
	}
	if tc.ScanLimit <= 0 {
		tc.ScanLimit = defaultScanLimit
	}
	return tc
}

// Lookup finds cached content using the strategy configured for the cache
// type. It returns nil on a miss; it never returns an error.
func (m *Manager) Lookup(ctx context.Context, ct models.CacheType, params models.Params) *models.CacheEntry {
	return m.LookupWithStrategy(ctx, ct, params, m.typeConfig(ct).Strategy)
}

// LookupWithStrategy finds cached content using an explicit strategy,
// overriding the configured one. Every hit, regardless of strategy, bumps
// the entry's hit counter and last-access time.
func (m *Manager) LookupWithStrategy(ctx context.Context, ct models.CacheType, params models.Params, strategy models.CacheStrategy) *models.CacheEntry {
	var entry *models.CacheEntry
	switch strategy {
	case models.StrategyExact:
		entry = m.exactMatch(ctx, ct, params)
	case models.StrategySemantic:
		entry = m.semanticMatch(ctx, ct, params)
	case models.StrategyFuzzy:
		entry = m.fuzzyMatch(ctx, ct, params)
	case models.StrategyTemplate:
		entry = m.templateMatch(ctx, ct, params)
	}

	if entry == nil {
		m.misses.Add(1)
		return nil
	}
	m.hits.Add(1)
	return entry
}

func (m *Manager) exactMatch(ctx context.Context, ct models.CacheType, params models.Params) *models.CacheEntry {
	key := CanonicalKey(ct, params)

	if m.fast != nil {
		data, err := m.fast.Get(ctx, key)
		if err != nil {
			log.Printf("cache: fast tier lookup failed: %v", err)
		} else if data != nil {
			var entry models.CacheEntry
			if err := json.Unmarshal(data, &entry); err == nil {
				// Keep durable-tier hit statistics consistent with
				// fast-tier hits.
				if err := m.store.Touch(ctx, key); err != nil {
					log.Printf("cache: touch failed: %v", err)
				}
				return &entry
			}
		}
	}

	entry, err := m.store.GetByKey(ctx, key)
	if err != nil {
		log.Printf("cache: durable lookup failed: %v", err)
		return nil
	}
	if entry == nil {
		return nil
	}

	m.touch(ctx, entry)
	if remaining := time.Until(entry.ExpiresAt); remaining > 0 {
		m.backfill(ctx, entry, remaining)
	}
	return entry
}

// semanticMatch scans a bounded window of recent same-type entries and
// accepts the most similar prompt strictly above the threshold. The bounded
// window trades recall for scan cost; it is not an exhaustive search.
func (m *Manager) semanticMatch(ctx context.Context, ct models.CacheType, params models.Params) *models.CacheEntry {
	normalized := NormalizeParams(params)
	concept := promptOf(normalized)
	if concept == "" {
		return nil
	}
	ageGroup := stringify(value(normalized, "age_group"))

	candidates, err := m.store.ListActive(ctx, ct, m.typeConfig(ct).ScanLimit)
	if err != nil {
		log.Printf("cache: semantic scan failed: %v", err)
		return nil
	}

	var best *models.CacheEntry
	bestSimilarity := 0.0
	for i := range candidates {
		c := &candidates[i]
		if stringify(value(c.NormalizedParams, "age_group")) != ageGroup {
			continue
		}
		similarity := textSimilarity(concept, promptOf(c.NormalizedParams))
		if similarity > bestSimilarity && similarity > similarityThreshold {
			best = c
			bestSimilarity = similarity
		}
	}

	if best == nil {
		return nil
	}
	log.Printf("cache: semantic hit for %s with %.2f similarity", ct, bestSimilarity)
	m.touch(ctx, best)
	return best
}

func (m *Manager) fuzzyMatch(ctx context.Context, ct models.CacheType, params models.Params) *models.CacheEntry {
	normalized := NormalizeParams(params)

	candidates, err := m.store.ListActive(ctx, ct, m.typeConfig(ct).ScanLimit)
	if err != nil {
		log.Printf("cache: fuzzy scan failed: %v", err)
		return nil
	}

	for i := range candidates {
		c := &candidates[i]
		if fuzzyParamsMatch(normalized, c.NormalizedParams) {
			m.touch(ctx, c)
			return c
		}
	}
	return nil
}

func (m *Manager) templateMatch(ctx context.Context, ct models.CacheType, params models.Params) *models.CacheEntry {
	normalized := NormalizeParams(params)

	candidates, err := m.store.ListActive(ctx, ct, m.typeConfig(ct).ScanLimit)
	if err != nil {
		log.Printf("cache: template scan failed: %v", err)
		return nil
	}

	for i := range candidates {
		c := &candidates[i]
		if templateParamsMatch(normalized, c.NormalizedParams) {
			m.touch(ctx, c)
			return c
		}
	}
	return nil
}

// Put caches a generated payload in both tiers with the cache type's TTL and
// returns the canonical key. Writes are best-effort: a failure in either
// tier is logged and swallowed, never surfaced.
func (m *Manager) Put(ctx context.Context, ct models.CacheType, params models.Params, content models.Payload, meta Meta) string {
	ttl := m.typeConfig(ct).TTL
	now := time.Now().UTC()

	entry := models.CacheEntry{
		CacheKey:         CanonicalKey(ct, params),
		ContentHash:      ContentHash(content),
		CacheType:        ct,
		InputParams:      params,
		NormalizedParams: NormalizeParams(params),
		Content:          content,
		ExpiresAt:        now.Add(ttl),
		IsActive:         true,
		Service:          meta.Service,
		Model:            meta.Model,
		CreatedAt:        now,
	}

	if err := m.store.Upsert(ctx, entry); err != nil {
		log.Printf("cache: durable write failed: %v", err)
	}
	m.backfill(ctx, &entry, ttl)
	return entry.CacheKey
}

// Invalidate soft-deletes the entry for a canonical key in both tiers.
func (m *Manager) Invalidate(ctx context.Context, key string) error {
	if m.fast != nil {
		if err := m.fast.Del(ctx, key); err != nil {
			log.Printf("cache: fast tier delete failed: %v", err)
		}
	}
	return m.store.Invalidate(ctx, key)
}

// CleanupExpired removes expired durable entries and returns how many.
func (m *Manager) CleanupExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx)
}

// Stats combines durable-store counts with this manager's hit/miss counters.
func (m *Manager) Stats(ctx context.Context) (models.CacheStats, error) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		return stats, err
	}
	stats.Hits = m.hits.Load()
	stats.Misses = m.misses.Load()
	return stats, nil
}

// Close releases both tiers.
func (m *Manager) Close() error {
	if m.fast != nil {
		if err := m.fast.Close(); err != nil {
			log.Printf("cache: fast tier close failed: %v", err)
		}
	}
	return m.store.Close()
}

func (m *Manager) touch(ctx context.Context, entry *models.CacheEntry) {
	entry.HitCount++
	entry.LastAccessed = time.Now().UTC()
	if err := m.store.Touch(ctx, entry.CacheKey); err != nil {
		log.Printf("cache: touch failed: %v", err)
	}
}

func (m *Manager) backfill(ctx context.Context, entry *models.CacheEntry, ttl time.Duration) {
	if m.fast == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := m.fast.Set(ctx, entry.CacheKey, data, ttl); err != nil {
		log.Printf("cache: fast tier write failed: %v", err)
	}
}

func value(p models.Params, key string) any {
	if p == nil {
		return nil
	}
	return p[key]
}

func promptOf(normalized models.Params) string {
	if s, ok := value(normalized, "concept").(string); ok && s != "" {
		return s
	}
	if s, ok := value(normalized, "prompt").(string); ok {
		return s
	}
	return ""
}

func fuzzyParamsMatch(a, b models.Params) bool {
	for _, key := range fuzzyHardKeys {
		if stringify(value(a, key)) != stringify(value(b, key)) {
			return false
		}
	}

	matches, total := 0, 0
	for _, key := range fuzzySoftKeys {
		va, okA := a[key]
		vb, okB := b[key]
		if !okA || !okB {
			continue
		}
		total++
		if valueSimilarity(va, vb) >= similarityThreshold {
			matches++
		}
	}
	return total == 0 || float64(matches)/float64(total) >= similarityThreshold
}

func templateParamsMatch(request, stored models.Params) bool {
	for _, key := range templateKeys {
		v, ok := request[key]
		if !ok || v == nil {
			continue
		}
		if stringify(v) != stringify(value(stored, key)) {
			return false
		}
	}
	return true
}
