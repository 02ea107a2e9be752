package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lumicast-ai/lumicast/pkg/models"
)

// Config holds all Lumicast configuration.
type Config struct {
	Environment string         `yaml:"environment"`
	DBPath      string         `yaml:"db_path"`
	Redis       RedisConfig    `yaml:"redis"`
	Providers   []Provider     `yaml:"providers"`
	Router      RouterConfig   `yaml:"router"`
	Cache       CacheConfig    `yaml:"cache"`
	Budget      BudgetDefaults `yaml:"budget"`
	Rates       []Rate         `yaml:"rates"`
}

// RedisConfig controls the optional fast cache tier. The core runs
// durable-only when Addr is empty.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Provider defines one AI provider adapter for one capability.
type Provider struct {
	Name       string            `yaml:"name"`
	Capability models.Capability `yaml:"capability"`
	APIKey     string            `yaml:"api_key"`
	Mock       bool              `yaml:"mock"`
}

// RouterConfig defines the per-capability, per-tier fallback routes.
type RouterConfig struct {
	Routes []Route `yaml:"routes"`
}

// Route maps a capability and tier to a primary provider and an optional
// single fallback.
type Route struct {
	Capability    models.Capability   `yaml:"capability"`
	Tier          models.ProviderTier `yaml:"tier"`
	Primary       string              `yaml:"primary"`
	PrimaryModel  string              `yaml:"primary_model"`
	Fallback      string              `yaml:"fallback"`
	FallbackModel string              `yaml:"fallback_model"`
}

// CacheConfig controls the content cache.
type CacheConfig struct {
	Enabled bool                           `yaml:"enabled"`
	Types   map[models.CacheType]CacheType `yaml:"types"`
}

// CacheType configures one cache type: how long entries live, how lookups
// match, and how many durable candidates non-exact strategies scan.
type CacheType struct {
	TTL       time.Duration        `yaml:"ttl"`
	Strategy  models.CacheStrategy `yaml:"strategy"`
	ScanLimit int                  `yaml:"scan_limit"`
}

// BudgetDefaults seeds the budget created for a creator on first use.
// Amounts are USD.
type BudgetDefaults struct {
	DailyLimit           float64 `yaml:"daily_limit"`
	WeeklyLimit          float64 `yaml:"weekly_limit"`
	MonthlyLimit         float64 `yaml:"monthly_limit"`
	AutoApproveThreshold float64 `yaml:"auto_approve_threshold"`
	RequireApprovalAbove float64 `yaml:"require_approval_above"`
}

// Rate defines the cost rates for one service/model pair. Only the fields
// relevant to the capability are set.
type Rate struct {
	Service      string             `yaml:"service"`
	Model        string             `yaml:"model"`
	InputPerTok  float64            `yaml:"input_per_token"`
	OutputPerTok float64            `yaml:"output_per_token"`
	PerImage     map[string]float64 `yaml:"per_image"` // keyed by quality
	PerCharacter float64            `yaml:"per_character"`
	PerSecond    float64            `yaml:"per_second"`
}

// Default returns a Config with sensible defaults. The cache table mirrors
// the durability of each content type: scripts and quizzes stay valid for
// months, provider-hosted image and video URLs expire within days.
func Default() *Config {
	return &Config{
		Environment: "development",
		DBPath:      "lumicast.db",
		Providers: []Provider{
			{Name: "openai", Capability: models.CapabilityText, Mock: true},
			{Name: "anthropic", Capability: models.CapabilityText, Mock: true},
			{Name: "dalle", Capability: models.CapabilityImage, Mock: true},
			{Name: "stability", Capability: models.CapabilityImage, Mock: true},
			{Name: "elevenlabs", Capability: models.CapabilityVoice, Mock: true},
			{Name: "runway", Capability: models.CapabilityVideo, Mock: true},
			{Name: "mubert", Capability: models.CapabilityMusic, Mock: true},
			{Name: "did", Capability: models.CapabilityAvatar, Mock: true},
		},
		Router: RouterConfig{
			Routes: []Route{
				{Capability: models.CapabilityText, Tier: models.TierPremium, Primary: "openai", PrimaryModel: "gpt-4", Fallback: "anthropic", FallbackModel: "claude-3-sonnet"},
				{Capability: models.CapabilityText, Tier: models.TierStandard, Primary: "openai", PrimaryModel: "gpt-3.5-turbo", Fallback: "anthropic", FallbackModel: "claude-3-haiku"},
				{Capability: models.CapabilityImage, Tier: models.TierPremium, Primary: "dalle", PrimaryModel: "dall-e-3", Fallback: "stability", FallbackModel: "sdxl"},
				{Capability: models.CapabilityImage, Tier: models.TierStandard, Primary: "dalle", PrimaryModel: "dall-e-2", Fallback: "stability", FallbackModel: "sdxl"},
				{Capability: models.CapabilityVoice, Tier: models.TierPremium, Primary: "elevenlabs", PrimaryModel: "default"},
				{Capability: models.CapabilityVideo, Tier: models.TierPremium, Primary: "runway", PrimaryModel: "gen-2"},
				{Capability: models.CapabilityMusic, Tier: models.TierPremium, Primary: "mubert", PrimaryModel: "default"},
				{Capability: models.CapabilityAvatar, Tier: models.TierPremium, Primary: "did", PrimaryModel: "default"},
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			Types: map[models.CacheType]CacheType{
				models.CacheScript:          {TTL: 30 * 24 * time.Hour, Strategy: models.StrategySemantic, ScanLimit: 10},
				models.CacheImage:           {TTL: 7 * 24 * time.Hour, Strategy: models.StrategyFuzzy, ScanLimit: 20},
				models.CacheVoice:           {TTL: 14 * 24 * time.Hour, Strategy: models.StrategyExact},
				models.CacheVideo:           {TTL: 7 * 24 * time.Hour, Strategy: models.StrategyTemplate, ScanLimit: 20},
				models.CacheMusic:           {TTL: 14 * 24 * time.Hour, Strategy: models.StrategyExact},
				models.CacheQuiz:            {TTL: 60 * 24 * time.Hour, Strategy: models.StrategySemantic, ScanLimit: 10},
				models.CacheCompleteContent: {TTL: 14 * 24 * time.Hour, Strategy: models.StrategyExact},
			},
		},
		Budget: BudgetDefaults{
			DailyLimit:           50.00,
			WeeklyLimit:          200.00,
			MonthlyLimit:         500.00,
			AutoApproveThreshold: 5.00,
			RequireApprovalAbove: 25.00,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// IsTest reports whether this is the designated test environment, which
// forces mock mode on every adapter.
func (c *Config) IsTest() bool {
	return c.Environment == "test"
}
