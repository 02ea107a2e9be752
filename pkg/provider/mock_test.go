package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lumicast-ai/lumicast/pkg/config"
	"github.com/lumicast-ai/lumicast/pkg/models"
)

func TestMockTextPayload(t *testing.T) {
	m := NewMock("openai", models.CapabilityText)
	m.SetLatency(0, time.Millisecond)

	p, err := m.Generate(context.Background(), models.Params{"prompt": "explain gravity"})
	if err != nil {
		t.Fatal(err)
	}
	if p["text"] == "" || p["text"] == nil {
		t.Errorf("expected text, got %v", p)
	}
	usage, ok := p["usage"].(map[string]any)
	if !ok {
		t.Fatalf("expected usage map, got %v", p["usage"])
	}
	if usage["completion_tokens"] != 150 {
		t.Errorf("expected 150 completion tokens, got %v", usage["completion_tokens"])
	}
	if p["service"] != "mock-openai" {
		t.Errorf("expected service mock-openai, got %v", p["service"])
	}
}

func TestMockImagePayload(t *testing.T) {
	m := NewMock("dalle", models.CapabilityImage)
	m.SetLatency(0, time.Millisecond)

	p, err := m.Generate(context.Background(), models.Params{"prompt": "a red fox"})
	if err != nil {
		t.Fatal(err)
	}
	if p["image_url"] == nil || p["revised_prompt"] != "a red fox" {
		t.Errorf("unexpected image payload: %v", p)
	}
}

func TestMockVoiceDuration(t *testing.T) {
	m := NewMock("elevenlabs", models.CapabilityVoice)
	m.SetLatency(0, time.Millisecond)

	p, err := m.Generate(context.Background(), models.Params{"text": "hello world"})
	if err != nil {
		t.Fatal(err)
	}
	// 11 characters at 0.1s each.
	if p["duration"] != 1.1 {
		t.Errorf("expected duration 1.1, got %v", p["duration"])
	}
}

func TestMockForcedError(t *testing.T) {
	m := NewMock("openai", models.CapabilityText)
	m.SetLatency(0, time.Millisecond)
	m.SetError(ErrQuotaExceeded)

	_, err := m.Generate(context.Background(), models.Params{})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("expected quota error, got %v", err)
	}

	m.SetError(nil)
	if _, err := m.Generate(context.Background(), models.Params{}); err != nil {
		t.Errorf("expected recovery after clearing error, got %v", err)
	}
}

func TestMockRespectsContext(t *testing.T) {
	m := NewMock("openai", models.CapabilityText)
	m.SetLatency(time.Second, 2*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Generate(ctx, models.Params{})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected unavailable on cancelled context, got %v", err)
	}
}

func TestFallbackable(t *testing.T) {
	if Fallbackable(nil) {
		t.Error("nil error is not fallback-eligible")
	}
	if !Fallbackable(ErrUnavailable) || !Fallbackable(ErrQuotaExceeded) {
		t.Error("provider failures are fallback-eligible")
	}
	if Fallbackable(ErrNotConfigured) {
		t.Error("configuration errors must not trigger fallback")
	}
}

func TestFromConfigForcesMockInTestEnv(t *testing.T) {
	a, err := FromConfig(config.Provider{
		Name:       "openai",
		Capability: models.CapabilityText,
	}, "test")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := a.(*MockAdapter); !ok {
		t.Errorf("test environment must force mock mode, got %T", a)
	}
}

func TestFromConfigRejectsUnknownCapability(t *testing.T) {
	if _, err := FromConfig(config.Provider{Name: "x", Capability: "hologram"}, "test"); err == nil {
		t.Error("expected error for unknown capability")
	}
}

func TestFromConfigRealProviderNotConfigured(t *testing.T) {
	_, err := FromConfig(config.Provider{
		Name:       "openai",
		Capability: models.CapabilityText,
	}, "production")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
