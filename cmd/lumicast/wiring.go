package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/lumicast-ai/lumicast/pkg/cache"
	cachesqlite "github.com/lumicast-ai/lumicast/pkg/cache/sqlite"
	"github.com/lumicast-ai/lumicast/pkg/config"
	"github.com/lumicast-ai/lumicast/pkg/cost"
	costsqlite "github.com/lumicast-ai/lumicast/pkg/cost/sqlite"
	"github.com/lumicast-ai/lumicast/pkg/genlog"
	"github.com/lumicast-ai/lumicast/pkg/pipeline"
	"github.com/lumicast-ai/lumicast/pkg/provider"
	"github.com/lumicast-ai/lumicast/pkg/router"
)

// app holds the wired runtime shared by all commands.
type app struct {
	cfg      *config.Config
	cache    *cache.Manager // nil when caching is disabled
	governor *cost.Governor
	router   *router.Router
	log      *genlog.Logger
	pipeline *pipeline.Pipeline

	closers []func() error
}

// loadConfig loads the YAML config, falling back to built-in defaults when
// the file does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return config.Load(path)
}

// openApp wires config, providers, router, stores, governor, cache, and
// pipeline for one command invocation.
func openApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	var adapters []provider.Adapter
	for _, p := range cfg.Providers {
		a, err := provider.FromConfig(p, cfg.Environment)
		if err != nil {
			log.Printf("lumicast: skipping provider %s: %v", p.Name, err)
			continue
		}
		adapters = append(adapters, a)
	}

	rtr, err := router.New(cfg.Router, adapters)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, router: rtr}

	costStore, err := costsqlite.New(cfg.DBPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, costStore.Close)
	a.governor = cost.New(costStore, cost.RatesFromConfig(cfg.Rates), cfg.Budget)

	if cfg.Cache.Enabled {
		store, err := cachesqlite.New(cfg.DBPath)
		if err != nil {
			a.Close()
			return nil, err
		}
		var fast cache.FastTier = cache.NewMemoryTier()
		if cfg.Redis.Addr != "" {
			rt, err := cache.NewRedisTier(ctx, cfg.Redis)
			if err != nil {
				log.Printf("lumicast: redis unavailable, using in-memory fast tier: %v", err)
			} else {
				fast = rt
			}
		}
		a.cache = cache.New(store, fast, cfg.Cache.Types)
		a.closers = append(a.closers, a.cache.Close)
	}

	gl, err := genlog.New(cfg.DBPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, gl.Close)
	a.log = gl

	a.pipeline = pipeline.New(a.cache, a.governor, a.router, a.log)
	return a, nil
}

// Close releases everything openApp wired, newest first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("lumicast: close: %v", err)
		}
	}
}
