package models

// Params holds generation request parameters: strings, numbers, ordered
// lists, and nested mappings.
type Params map[string]any

// Payload is an opaque capability-specific generation result.
type Payload map[string]any

// GenerationRequest describes one requested generation. It is immutable once
// issued to the router or cache.
type GenerationRequest struct {
	Capability Capability   `json:"capability"`
	Tier       ProviderTier `json:"tier"`
	CacheType  CacheType    `json:"cache_type,omitempty"`
	Params     Params       `json:"params"`
	CreatorID  string       `json:"creator_id"`
}

// RouteResult is the outcome of a routed provider call.
type RouteResult struct {
	Payload      Payload      `json:"payload"`
	ServiceUsed  string       `json:"service_used"`
	Model        string       `json:"model,omitempty"`
	Tier         ProviderTier `json:"tier"`
	FallbackUsed bool         `json:"fallback_used,omitempty"`
}
