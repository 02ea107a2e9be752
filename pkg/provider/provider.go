// Package provider defines the capability interface wrapping one external
// AI provider, and the mock adapters used for tests and offline runs.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/lumicast-ai/lumicast/pkg/config"
	"github.com/lumicast-ai/lumicast/pkg/models"
)

// Provider error taxonomy. Unavailable and quota errors are transient and
// fallback-eligible; configuration errors are fatal to the request.
var (
	ErrUnavailable   = errors.New("provider unavailable")
	ErrQuotaExceeded = errors.New("provider quota exceeded")
	ErrNotConfigured = errors.New("provider not configured")
)

// Fallbackable reports whether an error from Generate permits the router to
// try the fallback provider.
func Fallbackable(err error) bool {
	return err != nil && !errors.Is(err, ErrNotConfigured)
}

// Adapter is the uniform capability interface over one external AI provider.
// Adapters never retry internally; retry and fallback policy belongs to the
// router.
type Adapter interface {
	Name() string
	Capability() models.Capability
	// Generate produces a capability-specific payload. It must respect ctx
	// cancellation.
	Generate(ctx context.Context, params models.Params) (models.Payload, error)
	// HealthCheck is a cheap, non-blocking probe: at most one minimal real
	// call, or an immediate true in mock mode.
	HealthCheck(ctx context.Context) bool
}

// FromConfig builds the adapter for one provider config. Mock mode is forced
// in the test environment regardless of the per-provider flag. Real provider
// SDK adapters implement Adapter out of tree and are registered directly with
// the router.
func FromConfig(p config.Provider, env string) (Adapter, error) {
	if !p.Capability.Valid() {
		return nil, fmt.Errorf("provider %s: unknown capability %q", p.Name, p.Capability)
	}
	if p.Mock || env == "test" {
		return NewMock(p.Name, p.Capability), nil
	}
	return nil, fmt.Errorf("provider %s (%s): %w", p.Name, p.Capability, ErrNotConfigured)
}
