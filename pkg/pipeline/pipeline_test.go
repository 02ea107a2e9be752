package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumicast-ai/lumicast/pkg/cache"
	cachesqlite "github.com/lumicast-ai/lumicast/pkg/cache/sqlite"
	"github.com/lumicast-ai/lumicast/pkg/config"
	"github.com/lumicast-ai/lumicast/pkg/cost"
	costsqlite "github.com/lumicast-ai/lumicast/pkg/cost/sqlite"
	"github.com/lumicast-ai/lumicast/pkg/genlog"
	"github.com/lumicast-ai/lumicast/pkg/models"
	"github.com/lumicast-ai/lumicast/pkg/provider"
	"github.com/lumicast-ai/lumicast/pkg/router"
)

type fixture struct {
	pipeline  *Pipeline
	costStore *costsqlite.Store
	genlog    *genlog.Logger
	primary   *provider.MockAdapter
	fallback  *provider.MockAdapter
}

func setup(t *testing.T) (*fixture, context.Context) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "pipeline_test.db")

	primary := provider.NewMock("openai", models.CapabilityText)
	primary.SetLatency(0, time.Millisecond)
	fallback := provider.NewMock("anthropic", models.CapabilityText)
	fallback.SetLatency(0, time.Millisecond)
	video := provider.NewMock("runway", models.CapabilityVideo)
	video.SetLatency(0, time.Millisecond)

	rtr, err := router.New(config.RouterConfig{Routes: []config.Route{
		{Capability: models.CapabilityText, Tier: models.TierPremium,
			Primary: "openai", PrimaryModel: "gpt-4",
			Fallback: "anthropic", FallbackModel: "claude-3-sonnet"},
		{Capability: models.CapabilityVideo, Tier: models.TierPremium,
			Primary: "runway", PrimaryModel: "gen-2"},
	}}, []provider.Adapter{primary, fallback, video})
	if err != nil {
		t.Fatal(err)
	}

	costStore, err := costsqlite.New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { costStore.Close() })
	governor := cost.New(costStore, cost.DefaultRates(), config.Default().Budget)

	cacheStore, err := cachesqlite.New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	cm := cache.New(cacheStore, cache.NewMemoryTier(), config.Default().Cache.Types)
	t.Cleanup(func() { cm.Close() })

	gl, err := genlog.New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { gl.Close() })

	return &fixture{
		pipeline:  New(cm, governor, rtr, gl),
		costStore: costStore,
		genlog:    gl,
		primary:   primary,
		fallback:  fallback,
	}, context.Background()
}

func textRequest(prompt string) models.GenerationRequest {
	return models.GenerationRequest{
		Capability: models.CapabilityText,
		Tier:       models.TierPremium,
		Params:     models.Params{"prompt": prompt},
		CreatorID:  "alice",
	}
}

func TestGenerateCompleted(t *testing.T) {
	f, ctx := setup(t)

	outcome, err := f.pipeline.Generate(ctx, textRequest("explain gravity to young learners"))
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", outcome.Status, outcome.Reason)
	}
	if outcome.CacheHit {
		t.Error("first generation cannot be a cache hit")
	}
	if outcome.ServiceUsed != "openai" || outcome.Model != "gpt-4" {
		t.Errorf("expected openai/gpt-4, got %s/%s", outcome.ServiceUsed, outcome.Model)
	}
	if outcome.CacheKey == "" {
		t.Error("completed generation must be cached")
	}
	if outcome.Payload["text"] == nil {
		t.Errorf("expected text payload, got %v", outcome.Payload)
	}

	// Estimate reconciled against what the provider reported.
	entry, err := f.costStore.GetCostEntry(ctx, outcome.CostEntryID)
	if err != nil {
		t.Fatal(err)
	}
	if !entry.ActualCost.Valid {
		t.Error("actual cost must be recorded on completion")
	}
	if entry.Usage.TokensUsed == 0 {
		t.Error("token usage must be extracted from the provider payload")
	}

	logged, err := f.genlog.Recent(ctx, "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logged) != 1 || logged[0].Service != "openai" || logged[0].CacheHit {
		t.Errorf("unexpected generation log: %+v", logged)
	}
}

func TestGenerateCacheHitOnRepeat(t *testing.T) {
	f, ctx := setup(t)
	req := textRequest("explain the water cycle evaporation and condensation")

	first, err := f.pipeline.Generate(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.pipeline.Generate(ctx, req)
	if err != nil {
		t.Fatal(err)
	}

	if !second.CacheHit {
		t.Fatal("repeat of an identical request must hit the cache")
	}
	if second.Status != StatusCompleted {
		t.Errorf("cache hit is a completed outcome, got %s", second.Status)
	}
	if second.CacheKey != first.CacheKey {
		t.Errorf("expected key %s, got %s", first.CacheKey, second.CacheKey)
	}

	// The hit is free.
	entry, err := f.costStore.GetCostEntry(ctx, second.CostEntryID)
	if err != nil {
		t.Fatal(err)
	}
	if !entry.CacheHit || !entry.EstimatedCost.IsZero() {
		t.Errorf("cache hit entry must be zero-cost, got %+v", entry)
	}
}

func TestGeneratePendingApproval(t *testing.T) {
	f, ctx := setup(t)

	// 600s of gen-2 estimates at $7.50, above the auto-approve threshold.
	outcome, err := f.pipeline.Generate(ctx, models.GenerationRequest{
		Capability: models.CapabilityVideo,
		Tier:       models.TierPremium,
		Params:     models.Params{"prompt": "volcano", "duration": 600},
		CreatorID:  "alice",
	})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Status != StatusPendingApproval {
		t.Fatalf("expected pending_approval, got %s", outcome.Status)
	}
	if outcome.ApprovalRequestID == "" {
		t.Error("pending outcome must reference its approval request")
	}
	if outcome.Payload != nil {
		t.Error("no generation may run before approval")
	}
	if outcome.EstimatedCost.String() != "7.5" {
		t.Errorf("expected 7.5 estimate, got %s", outcome.EstimatedCost)
	}
}

func TestGenerateRejectedOverBudget(t *testing.T) {
	f, ctx := setup(t)

	now := time.Now().UTC()
	err := f.costStore.SaveBudget(ctx, models.CreatorBudget{
		CreatorID:            "alice",
		DailyLimit:           decimal.RequireFromString("50"),
		WeeklyLimit:          decimal.RequireFromString("200"),
		MonthlyLimit:         decimal.RequireFromString("500"),
		DailySpent:           decimal.RequireFromString("50"),
		WeeklySpent:          decimal.RequireFromString("50"),
		MonthlySpent:         decimal.RequireFromString("50"),
		AutoApproveThreshold: decimal.RequireFromString("5"),
		RequireApprovalAbove: decimal.RequireFromString("25"),
		DailyResetAt:         now.Add(time.Hour),
		WeeklyResetAt:        now.Add(time.Hour),
		MonthlyResetAt:       now.Add(time.Hour),
		CreatedAt:            now,
		UpdatedAt:            now,
	})
	if err != nil {
		t.Fatal(err)
	}

	outcome, err := f.pipeline.Generate(ctx, textRequest("anything"))
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Status != StatusRejected {
		t.Fatalf("expected rejected, got %s", outcome.Status)
	}
	if outcome.Reason == "" {
		t.Error("rejection must carry a reason")
	}
	if outcome.Payload != nil {
		t.Error("rejected request must not generate")
	}
}

func TestGenerateFallback(t *testing.T) {
	f, ctx := setup(t)
	f.primary.SetError(provider.ErrUnavailable)

	outcome, err := f.pipeline.Generate(ctx, textRequest("explain magnets"))
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.FallbackUsed {
		t.Error("expected fallback")
	}
	if outcome.ServiceUsed != "anthropic" || outcome.Model != "claude-3-sonnet" {
		t.Errorf("expected anthropic/claude-3-sonnet, got %s/%s", outcome.ServiceUsed, outcome.Model)
	}

	logged, err := f.genlog.Recent(ctx, "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logged) != 1 || !logged[0].FallbackUsed {
		t.Errorf("fallback must be logged, got %+v", logged)
	}
}

func TestGenerateExhaustedSurfaces(t *testing.T) {
	f, ctx := setup(t)
	f.primary.SetError(provider.ErrUnavailable)
	f.fallback.SetError(provider.ErrQuotaExceeded)

	_, err := f.pipeline.Generate(ctx, textRequest("explain magnets"))
	var exhausted *router.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
}

func TestGenerateUnknownRoute(t *testing.T) {
	f, ctx := setup(t)

	_, err := f.pipeline.Generate(ctx, models.GenerationRequest{
		Capability: models.CapabilityMusic,
		Tier:       models.TierPremium,
		Params:     models.Params{},
		CreatorID:  "alice",
	})
	if !errors.Is(err, provider.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured for unrouted capability, got %v", err)
	}
}
