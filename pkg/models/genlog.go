package models

import "time"

// GenerationLogEntry records the outcome of one pipeline run.
type GenerationLogEntry struct {
	ID           int64        `json:"id"`
	Capability   Capability   `json:"capability"`
	Tier         ProviderTier `json:"tier"`
	Service      string       `json:"service,omitempty"`
	Model        string       `json:"model,omitempty"`
	FallbackUsed bool         `json:"fallback_used"`
	CacheHit     bool         `json:"cache_hit"`
	LatencyMs    int64        `json:"latency_ms"`
	CostEntryID  string       `json:"cost_entry_id,omitempty"`
	CreatorID    string       `json:"creator_id"`
	CreatedAt    time.Time    `json:"created_at"`
}
