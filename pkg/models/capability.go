package models

// Capability is a kind of content a provider can generate.
type Capability string

const (
	CapabilityText   Capability = "text"
	CapabilityImage  Capability = "image"
	CapabilityVoice  Capability = "voice"
	CapabilityVideo  Capability = "video"
	CapabilityMusic  Capability = "music"
	CapabilityAvatar Capability = "avatar"
)

// Capabilities lists every supported capability.
var Capabilities = []Capability{
	CapabilityText,
	CapabilityImage,
	CapabilityVoice,
	CapabilityVideo,
	CapabilityMusic,
	CapabilityAvatar,
}

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	for _, k := range Capabilities {
		if c == k {
			return true
		}
	}
	return false
}

// ProviderTier is a quality/cost class of provider configuration.
type ProviderTier string

const (
	TierPremium  ProviderTier = "premium"
	TierStandard ProviderTier = "standard"
	TierBudget   ProviderTier = "budget"
)
