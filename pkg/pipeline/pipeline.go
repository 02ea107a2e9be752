// Package pipeline runs the full generation flow: cache lookup, cost
// governance, provider routing, cache write-back, and cost reconciliation,
// in that fixed order.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumicast-ai/lumicast/pkg/cache"
	"github.com/lumicast-ai/lumicast/pkg/cost"
	"github.com/lumicast-ai/lumicast/pkg/genlog"
	"github.com/lumicast-ai/lumicast/pkg/models"
	"github.com/lumicast-ai/lumicast/pkg/router"
)

// Status is the terminal state of one pipeline run.
type Status string

const (
	StatusCompleted       Status = "completed"
	StatusRejected        Status = "rejected"
	StatusPendingApproval Status = "pending_approval"
)

// Outcome is the result of one generation request. Rejection and pending
// approval are outcomes, not errors.
type Outcome struct {
	Status  Status         `json:"status"`
	Payload models.Payload `json:"payload,omitempty"`

	CacheHit bool   `json:"cache_hit"`
	CacheKey string `json:"cache_key,omitempty"`

	CostEntryID       string             `json:"cost_entry_id,omitempty"`
	ApprovalRequestID string             `json:"approval_request_id,omitempty"`
	EstimatedCost     decimal.Decimal    `json:"estimated_cost"`
	Budget            models.BudgetCheck `json:"budget"`

	ServiceUsed  string `json:"service_used,omitempty"`
	Model        string `json:"model,omitempty"`
	FallbackUsed bool   `json:"fallback_used,omitempty"`

	Reason string `json:"reason,omitempty"`
}

// Pipeline executes generation requests end to end.
type Pipeline struct {
	cache    *cache.Manager
	governor *cost.Governor
	router   *router.Router
	log      *genlog.Logger
}

// New creates a Pipeline. cache and log may be nil, which disables caching
// and generation logging respectively.
func New(cm *cache.Manager, governor *cost.Governor, rt *router.Router, gl *genlog.Logger) *Pipeline {
	return &Pipeline{cache: cm, governor: governor, router: rt, log: gl}
}

// Generate runs one request through the pipeline. Errors are reserved for
// infrastructure failures and provider exhaustion; budget rejection and
// pending approval come back as outcomes.
func (p *Pipeline) Generate(ctx context.Context, req models.GenerationRequest) (*Outcome, error) {
	start := time.Now()

	ct := req.CacheType
	if ct == "" {
		ct = models.CacheTypeFor(req.Capability)
	}

	if p.cache != nil {
		if entry := p.cache.Lookup(ctx, ct, req.Params); entry != nil {
			entryID, err := p.governor.RecordCacheHit(ctx, entry.Service, entry.Model, req.CreatorID, req.Params, entry.CacheKey)
			if err != nil {
				log.Printf("pipeline: record cache hit: %v", err)
			}
			p.appendLog(ctx, req, entry.Service, entry.Model, false, true, entryID, start)
			return &Outcome{
				Status:      StatusCompleted,
				Payload:     entry.Content,
				CacheHit:    true,
				CacheKey:    entry.CacheKey,
				CostEntryID: entryID,
				ServiceUsed: entry.Service,
				Model:       entry.Model,
			}, nil
		}
	}

	rt, err := p.router.Resolve(req.Capability, req.Tier)
	if err != nil {
		return nil, err
	}

	operation := fmt.Sprintf("generate_%s", req.Capability)
	decision, err := p.governor.RequestApproval(ctx, rt.Primary, rt.PrimaryModel, operation, req.Params, req.CreatorID)
	if err != nil {
		return nil, err
	}

	switch decision.Entry.Status {
	case models.StatusRejected:
		return &Outcome{
			Status:        StatusRejected,
			CostEntryID:   decision.Entry.ID,
			EstimatedCost: decision.Entry.EstimatedCost,
			Budget:        decision.Budget,
			Reason:        decision.Entry.RejectionReason,
		}, nil
	case models.StatusPending:
		return &Outcome{
			Status:            StatusPendingApproval,
			CostEntryID:       decision.Entry.ID,
			ApprovalRequestID: decision.Approval.ID,
			EstimatedCost:     decision.Entry.EstimatedCost,
			Budget:            decision.Budget,
			Reason:            "approval required before generation",
		}, nil
	}

	result, err := p.router.Route(ctx, req.Capability, req.Tier, req.Params)
	if err != nil {
		return nil, err
	}

	var cacheKey string
	if p.cache != nil {
		cacheKey = p.cache.Put(ctx, ct, req.Params, result.Payload, cache.Meta{
			Service: result.ServiceUsed,
			Model:   result.Model,
		})
	}

	usage := usageFrom(result.Payload, req.Params)
	actual := p.governor.Estimate(result.ServiceUsed, result.Model, actualParams(req.Params, usage))
	if err := p.governor.RecordActualCost(ctx, decision.Entry.ID, actual, usage); err != nil {
		log.Printf("pipeline: record actual cost: %v", err)
	}

	p.appendLog(ctx, req, result.ServiceUsed, result.Model, result.FallbackUsed, false, decision.Entry.ID, start)

	return &Outcome{
		Status:        StatusCompleted,
		Payload:       result.Payload,
		CacheKey:      cacheKey,
		CostEntryID:   decision.Entry.ID,
		EstimatedCost: decision.Entry.EstimatedCost,
		Budget:        decision.Budget,
		ServiceUsed:   result.ServiceUsed,
		Model:         result.Model,
		FallbackUsed:  result.FallbackUsed,
	}, nil
}

// HealthCheck probes every registered provider adapter.
func (p *Pipeline) HealthCheck(ctx context.Context) map[models.Capability]map[string]bool {
	return p.router.HealthCheckAll(ctx)
}

func (p *Pipeline) appendLog(ctx context.Context, req models.GenerationRequest, service, model string, fallback, cacheHit bool, costEntryID string, start time.Time) {
	err := p.log.Append(ctx, models.GenerationLogEntry{
		Capability:   req.Capability,
		Tier:         req.Tier,
		Service:      service,
		Model:        model,
		FallbackUsed: fallback,
		CacheHit:     cacheHit,
		LatencyMs:    time.Since(start).Milliseconds(),
		CostEntryID:  costEntryID,
		CreatorID:    req.CreatorID,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		log.Printf("pipeline: append generation log: %v", err)
	}
}

// usageFrom extracts consumption metrics the provider reported in its
// payload, falling back to request parameters where the payload is silent.
func usageFrom(payload models.Payload, params models.Params) models.UsageMetrics {
	var u models.UsageMetrics
	if raw, ok := payload["usage"].(map[string]any); ok {
		u.TokensUsed = intAt(raw, "total_tokens")
	}
	if text, ok := params["text"].(string); ok {
		u.CharactersProcessed = len(text)
	}
	if d := intAt(payload, "duration"); d > 0 {
		u.DurationSeconds = d
	} else if d := intAt(params, "duration"); d > 0 {
		u.DurationSeconds = d
	}
	if _, ok := payload["image_url"]; ok {
		u.ImageCount = 1
		if n := intAt(params, "n"); n > 0 {
			u.ImageCount = n
		}
	}
	if _, ok := payload["video_url"]; ok {
		u.VideoSeconds = u.DurationSeconds
	}
	return u
}

// actualParams overlays observed consumption onto the request parameters so
// the rate tables price what was actually used, not what was asked for.
func actualParams(params models.Params, u models.UsageMetrics) models.Params {
	out := make(models.Params, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	if u.TokensUsed > 0 {
		out["max_tokens"] = u.TokensUsed
	}
	if u.DurationSeconds > 0 {
		out["duration"] = u.DurationSeconds
	}
	return out
}

func intAt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
