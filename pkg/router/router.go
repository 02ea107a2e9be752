// Package router executes generations against the best available provider
// for a capability and tier, masking provider failures behind a single
// fallback hop.
package router

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/lumicast-ai/lumicast/pkg/config"
	"github.com/lumicast-ai/lumicast/pkg/models"
	"github.com/lumicast-ai/lumicast/pkg/provider"
)

// Route is the resolved provider chain for one capability and tier.
type Route struct {
	Primary       string
	PrimaryModel  string
	Fallback      string
	FallbackModel string
}

type routeKey struct {
	capability models.Capability
	tier       models.ProviderTier
}

// ExhaustedError reports that both the primary and (if configured) fallback
// provider failed, or that no fallback was available.
type ExhaustedError struct {
	Capability models.Capability
	Tier       models.ProviderTier
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %s providers exhausted for tier %s", e.Capability, e.Tier)
}

// Router holds the adapter registry and the static route table. It is
// resolved once at construction and safe for concurrent use.
type Router struct {
	adapters map[models.Capability]map[string]provider.Adapter
	routes   map[routeKey]Route

	mu     sync.Mutex
	health map[string]bool // "capability/provider" -> last probe result
}

// New builds a Router from the route table and registered adapters. Every
// route's primary must name a registered adapter for its capability; a
// fallback may be left unregistered and is skipped at call time.
func New(rc config.RouterConfig, adapters []provider.Adapter) (*Router, error) {
	reg := make(map[models.Capability]map[string]provider.Adapter)
	for _, a := range adapters {
		c := a.Capability()
		if reg[c] == nil {
			reg[c] = make(map[string]provider.Adapter)
		}
		reg[c][a.Name()] = a
	}

	routes := make(map[routeKey]Route, len(rc.Routes))
	for _, r := range rc.Routes {
		if !r.Capability.Valid() {
			return nil, fmt.Errorf("route: unknown capability %q", r.Capability)
		}
		if _, ok := reg[r.Capability][r.Primary]; !ok {
			return nil, fmt.Errorf("route %s/%s: primary provider %q not registered", r.Capability, r.Tier, r.Primary)
		}
		routes[routeKey{r.Capability, r.Tier}] = Route{
			Primary:       r.Primary,
			PrimaryModel:  r.PrimaryModel,
			Fallback:      r.Fallback,
			FallbackModel: r.FallbackModel,
		}
	}

	return &Router{
		adapters: reg,
		routes:   routes,
		health:   make(map[string]bool),
	}, nil
}

// Resolve returns the configured route for a capability and tier.
func (r *Router) Resolve(capability models.Capability, tier models.ProviderTier) (Route, error) {
	rt, ok := r.routes[routeKey{capability, tier}]
	if !ok {
		return Route{}, fmt.Errorf("no route for %s/%s: %w", capability, tier, provider.ErrNotConfigured)
	}
	return rt, nil
}

// Route executes a generation against the primary provider for the given
// capability and tier, attempting exactly one fallback hop on a
// fallback-eligible failure. The hops are sequential, never raced, so one
// logical request is never billed to two providers at once.
func (r *Router) Route(ctx context.Context, capability models.Capability, tier models.ProviderTier, params models.Params) (*models.RouteResult, error) {
	rt, err := r.Resolve(capability, tier)
	if err != nil {
		return nil, err
	}

	primary := r.adapters[capability][rt.Primary]
	payload, perr := primary.Generate(ctx, params)
	if perr == nil {
		return &models.RouteResult{
			Payload:     payload,
			ServiceUsed: rt.Primary,
			Model:       rt.PrimaryModel,
			Tier:        tier,
		}, nil
	}
	if !provider.Fallbackable(perr) {
		return nil, fmt.Errorf("route %s/%s: %w", capability, tier, perr)
	}
	log.Printf("router: primary %s failed for %s/%s: %v", rt.Primary, capability, tier, perr)

	fallback, ok := r.adapters[capability][rt.Fallback]
	if rt.Fallback == "" || !ok {
		return nil, &ExhaustedError{Capability: capability, Tier: tier}
	}

	payload, ferr := fallback.Generate(ctx, params)
	if ferr != nil {
		log.Printf("router: fallback %s also failed for %s/%s: %v", rt.Fallback, capability, tier, ferr)
		return nil, &ExhaustedError{Capability: capability, Tier: tier}
	}
	return &models.RouteResult{
		Payload:      payload,
		ServiceUsed:  rt.Fallback,
		Model:        rt.FallbackModel,
		Tier:         tier,
		FallbackUsed: true,
	}, nil
}

// HealthCheckAll probes every registered adapter. Probes are independent,
// read-only, and run concurrently.
func (r *Router) HealthCheckAll(ctx context.Context) map[models.Capability]map[string]bool {
	results := make(map[models.Capability]map[string]bool, len(r.adapters))
	for c := range r.adapters {
		results[c] = make(map[string]bool, len(r.adapters[c]))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for c, byName := range r.adapters {
		for name, a := range byName {
			wg.Add(1)
			go func(c models.Capability, name string, a provider.Adapter) {
				defer wg.Done()
				ok := a.HealthCheck(ctx)
				mu.Lock()
				results[c][name] = ok
				mu.Unlock()
			}(c, name, a)
		}
	}
	wg.Wait()

	r.mu.Lock()
	for c, byName := range results {
		for name, ok := range byName {
			r.health[string(c)+"/"+name] = ok
		}
	}
	r.mu.Unlock()

	return results
}

// Status is a snapshot of the registry and the last health probe results.
type Status struct {
	Providers map[models.Capability][]string `json:"providers"`
	Health    map[string]bool                `json:"health"`
}

// Status reports the registered adapters per capability and the most recent
// health results.
func (r *Router) Status() Status {
	st := Status{
		Providers: make(map[models.Capability][]string, len(r.adapters)),
		Health:    make(map[string]bool),
	}
	for c, byName := range r.adapters {
		for name := range byName {
			st.Providers[c] = append(st.Providers[c], name)
		}
	}
	r.mu.Lock()
	for k, v := range r.health {
		st.Health[k] = v
	}
	r.mu.Unlock()
	return st
}
