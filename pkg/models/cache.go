package models

import "time"

// CacheType categorizes cached content. TTL and lookup strategy are
// configured per type.
type CacheType string

const (
	CacheScript          CacheType = "script"
	CacheImage           CacheType = "image"
	CacheVoice           CacheType = "voice"
	CacheVideo           CacheType = "video"
	CacheMusic           CacheType = "music"
	CacheQuiz            CacheType = "quiz"
	CacheCompleteContent CacheType = "complete_content"
)

// CacheTypes lists every cache type.
var CacheTypes = []CacheType{
	CacheScript, CacheImage, CacheVoice, CacheVideo,
	CacheMusic, CacheQuiz, CacheCompleteContent,
}

// CacheTypeFor maps a capability to its default cache type.
func CacheTypeFor(c Capability) CacheType {
	switch c {
	case CapabilityText:
		return CacheScript
	case CapabilityImage:
		return CacheImage
	case CapabilityVoice:
		return CacheVoice
	case CapabilityVideo, CapabilityAvatar:
		return CacheVideo
	case CapabilityMusic:
		return CacheMusic
	default:
		return CacheCompleteContent
	}
}

// CacheStrategy selects how lookups match prior entries.
type CacheStrategy string

const (
	StrategyExact    CacheStrategy = "exact_match"
	StrategySemantic CacheStrategy = "semantic_match"
	StrategyFuzzy    CacheStrategy = "fuzzy_match"
	StrategyTemplate CacheStrategy = "template_match"
)

// CacheEntry stores one generated result keyed by its canonical parameters.
type CacheEntry struct {
	ID               string    `json:"id"`
	CacheKey         string    `json:"cache_key"`
	ContentHash      string    `json:"content_hash"`
	CacheType        CacheType `json:"cache_type"`
	InputParams      Params    `json:"input_params"`
	NormalizedParams Params    `json:"normalized_params"`
	Content          Payload   `json:"content"`
	HitCount         int       `json:"hit_count"`
	LastAccessed     time.Time `json:"last_accessed,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
	IsActive         bool      `json:"is_active"`
	Service          string    `json:"service,omitempty"`
	Model            string    `json:"model,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// CacheStats reports cache contents and performance.
type CacheStats struct {
	Entries       int64               `json:"entries"`
	ActiveEntries int64               `json:"active_entries"`
	TotalHits     int64               `json:"total_hits"`
	ByType        map[CacheType]int64 `json:"by_type"`
	Hits          int64               `json:"hits"`
	Misses        int64               `json:"misses"`
}
