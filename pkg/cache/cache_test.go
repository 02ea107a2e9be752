package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lumicast-ai/lumicast/pkg/cache/sqlite"
	"github.com/lumicast-ai/lumicast/pkg/config"
	"github.com/lumicast-ai/lumicast/pkg/models"
)

func testTypes() map[models.CacheType]config.CacheType {
	return map[models.CacheType]config.CacheType{
		models.CacheScript: {TTL: 30 * 24 * time.Hour, Strategy: models.StrategySemantic, ScanLimit: 10},
		models.CacheImage:  {TTL: 7 * 24 * time.Hour, Strategy: models.StrategyFuzzy, ScanLimit: 20},
		models.CacheVoice:  {TTL: 14 * 24 * time.Hour, Strategy: models.StrategyExact},
		models.CacheVideo:  {TTL: 7 * 24 * time.Hour, Strategy: models.StrategyTemplate, ScanLimit: 20},
	}
}

func setup(t *testing.T) (*Manager, context.Context) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "cache_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	m := New(store, NewMemoryTier(), testTypes())
	t.Cleanup(func() { m.Close() })
	return m, context.Background()
}

func TestExactHit(t *testing.T) {
	m, ctx := setup(t)

	params := models.Params{"text": "hello world", "voice": "calm"}
	content := models.Payload{"audio_url": "https://mock/audio.mp3"}
	key := m.Put(ctx, models.CacheVoice, params, content, Meta{Service: "elevenlabs"})

	entry := m.Lookup(ctx, models.CacheVoice, params)
	if entry == nil {
		t.Fatal("expected cache hit")
	}
	if entry.CacheKey != key {
		t.Errorf("expected key %s, got %s", key, entry.CacheKey)
	}
	if entry.Content["audio_url"] != "https://mock/audio.mp3" {
		t.Errorf("unexpected content: %v", entry.Content)
	}
	if entry.Service != "elevenlabs" {
		t.Errorf("expected service elevenlabs, got %s", entry.Service)
	}
}

func TestExactMissOnDifferentParams(t *testing.T) {
	m, ctx := setup(t)

	m.Put(ctx, models.CacheVoice, models.Params{"text": "hello"}, models.Payload{"a": 1}, Meta{})
	if entry := m.Lookup(ctx, models.CacheVoice, models.Params{"text": "goodbye"}); entry != nil {
		t.Errorf("expected miss, got %v", entry)
	}
}

func TestExactHitParamOrderInsensitive(t *testing.T) {
	m, ctx := setup(t)

	m.Put(ctx, models.CacheVoice, models.Params{"text": "Hello  World", "voice": "calm"},
		models.Payload{"ok": true}, Meta{})
	entry := m.Lookup(ctx, models.CacheVoice, models.Params{"voice": "calm", "text": "hello world"})
	if entry == nil {
		t.Fatal("expected hit with reordered, re-cased params")
	}
}

func TestPutIdempotent(t *testing.T) {
	m, ctx := setup(t)

	params := models.Params{"text": "same input"}
	k1 := m.Put(ctx, models.CacheVoice, params, models.Payload{"v": 1}, Meta{})
	k2 := m.Put(ctx, models.CacheVoice, params, models.Payload{"v": 2}, Meta{})
	if k1 != k2 {
		t.Fatalf("double write produced different keys: %s vs %s", k1, k2)
	}

	stats, err := m.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry after double write, got %d", stats.Entries)
	}
}

func TestHitCountAccumulates(t *testing.T) {
	m, ctx := setup(t)

	params := models.Params{"text": "counted"}
	m.Put(ctx, models.CacheVoice, params, models.Payload{"ok": true}, Meta{})

	for i := 0; i < 3; i++ {
		if m.Lookup(ctx, models.CacheVoice, params) == nil {
			t.Fatal("expected hit")
		}
	}

	stats, err := m.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalHits != 3 {
		t.Errorf("expected 3 accumulated hits, got %d", stats.TotalHits)
	}
	if stats.Hits != 3 || stats.Misses != 0 {
		t.Errorf("expected 3 hits 0 misses this process, got %d/%d", stats.Hits, stats.Misses)
	}
}

func TestSemanticHitAboveThreshold(t *testing.T) {
	m, ctx := setup(t)

	m.Put(ctx, models.CacheScript, models.Params{
		"concept":   "explain the water cycle evaporation condensation precipitation",
		"age_group": "8-10",
	}, models.Payload{"text": "script"}, Meta{})

	// 7 of 8 union tokens shared: similarity 0.875.
	entry := m.Lookup(ctx, models.CacheScript, models.Params{
		"concept":   "explain the water cycle evaporation condensation precipitation simply",
		"age_group": "8-10",
	})
	if entry == nil {
		t.Fatal("expected semantic hit above threshold")
	}
}

func TestSemanticMissBelowThreshold(t *testing.T) {
	m, ctx := setup(t)

	m.Put(ctx, models.CacheScript, models.Params{
		"concept":   "water cycle explained simply for kids",
		"age_group": "8-10",
	}, models.Payload{"text": "script"}, Meta{})

	if entry := m.Lookup(ctx, models.CacheScript, models.Params{
		"concept":   "the water cycle explained simply",
		"age_group": "8-10",
	}); entry != nil {
		t.Errorf("expected miss below similarity threshold, got %v", entry)
	}
}

func TestSemanticMissOnAgeGroup(t *testing.T) {
	m, ctx := setup(t)

	m.Put(ctx, models.CacheScript, models.Params{
		"concept":   "explain the water cycle evaporation condensation precipitation",
		"age_group": "8-10",
	}, models.Payload{"text": "script"}, Meta{})

	if entry := m.Lookup(ctx, models.CacheScript, models.Params{
		"concept":   "explain the water cycle evaporation condensation precipitation",
		"age_group": "11-13",
	}); entry != nil {
		t.Error("different age group must never be a semantic hit")
	}
}

func TestFuzzyHit(t *testing.T) {
	m, ctx := setup(t)

	m.Put(ctx, models.CacheImage, models.Params{
		"prompt":           "a red fox in the forest",
		"age_group":        "8-10",
		"subject_area":     "biology",
		"difficulty_level": "easy",
		"duration":         10,
	}, models.Payload{"image_url": "https://mock/fox.png"}, Meta{})

	entry := m.Lookup(ctx, models.CacheImage, models.Params{
		"prompt":           "a clever fox in a green forest",
		"age_group":        "8-10",
		"subject_area":     "biology",
		"difficulty_level": "easy",
		"duration":         9,
	})
	if entry == nil {
		t.Fatal("expected fuzzy hit: hard keys equal, soft keys within tolerance")
	}
}

func TestFuzzyMissOnHardKey(t *testing.T) {
	m, ctx := setup(t)

	m.Put(ctx, models.CacheImage, models.Params{
		"prompt":       "a red fox",
		"age_group":    "8-10",
		"subject_area": "biology",
	}, models.Payload{"image_url": "u"}, Meta{})

	if entry := m.Lookup(ctx, models.CacheImage, models.Params{
		"prompt":       "a red fox",
		"age_group":    "8-10",
		"subject_area": "history",
	}); entry != nil {
		t.Error("hard key mismatch must never be a fuzzy hit")
	}
}

func TestTemplateHit(t *testing.T) {
	m, ctx := setup(t)

	m.Put(ctx, models.CacheVideo, models.Params{
		"prompt":           "volcano eruption animation",
		"age_group":        "8-10",
		"subject_area":     "geology",
		"difficulty_level": "medium",
		"video_duration":   60,
	}, models.Payload{"video_url": "https://mock/volcano.mp4"}, Meta{})

	entry := m.Lookup(ctx, models.CacheVideo, models.Params{
		"prompt":           "a totally different prompt",
		"age_group":        "8-10",
		"subject_area":     "geology",
		"difficulty_level": "medium",
		"video_duration":   60,
	})
	if entry == nil {
		t.Fatal("expected template hit when all template keys match")
	}
}

func TestTemplateMissOnKey(t *testing.T) {
	m, ctx := setup(t)

	m.Put(ctx, models.CacheVideo, models.Params{
		"age_group":      "8-10",
		"subject_area":   "geology",
		"video_duration": 60,
	}, models.Payload{"video_url": "u"}, Meta{})

	if entry := m.Lookup(ctx, models.CacheVideo, models.Params{
		"age_group":      "8-10",
		"subject_area":   "geology",
		"video_duration": 90,
	}); entry != nil {
		t.Error("template key mismatch must miss")
	}
}

func TestExpiredEntryMisses(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "cache_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	types := map[models.CacheType]config.CacheType{
		models.CacheVoice: {TTL: -time.Hour, Strategy: models.StrategyExact},
	}
	m := New(store, nil, types)
	t.Cleanup(func() { m.Close() })
	ctx := context.Background()

	params := models.Params{"text": "stale"}
	m.Put(ctx, models.CacheVoice, params, models.Payload{"ok": true}, Meta{})
	if entry := m.Lookup(ctx, models.CacheVoice, params); entry != nil {
		t.Error("expired entry must miss")
	}

	n, err := m.CleanupExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired entry deleted, got %d", n)
	}
}

func TestInvalidate(t *testing.T) {
	m, ctx := setup(t)

	params := models.Params{"text": "doomed"}
	key := m.Put(ctx, models.CacheVoice, params, models.Payload{"ok": true}, Meta{})

	if err := m.Invalidate(ctx, key); err != nil {
		t.Fatal(err)
	}
	if entry := m.Lookup(ctx, models.CacheVoice, params); entry != nil {
		t.Error("invalidated entry must miss")
	}
}

func TestDurableOnlyWithoutFastTier(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "cache_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	m := New(store, nil, testTypes())
	t.Cleanup(func() { m.Close() })
	ctx := context.Background()

	params := models.Params{"text": "no fast tier"}
	m.Put(ctx, models.CacheVoice, params, models.Payload{"ok": true}, Meta{})
	if m.Lookup(ctx, models.CacheVoice, params) == nil {
		t.Fatal("expected durable-only hit")
	}
}

func TestLookupNeverErrorsAfterStoreClose(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "cache_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	m := New(store, nil, testTypes())
	ctx := context.Background()

	m.Put(ctx, models.CacheVoice, models.Params{"text": "x"}, models.Payload{"ok": true}, Meta{})
	m.Close()

	// Both lookup and write degrade silently on a broken durable tier.
	if entry := m.Lookup(ctx, models.CacheVoice, models.Params{"text": "x"}); entry != nil {
		t.Error("expected miss on closed store")
	}
	m.Put(ctx, models.CacheVoice, models.Params{"text": "y"}, models.Payload{"ok": true}, Meta{})
}

func TestMemoryTierExpiry(t *testing.T) {
	mt := NewMemoryTier()
	ctx := context.Background()

	if err := mt.Set(ctx, "k", []byte("v"), -time.Second); err != nil {
		t.Fatal(err)
	}
	data, err := mt.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if data != nil {
		t.Error("expired fast-tier entry must miss")
	}
}
