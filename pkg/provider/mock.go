package provider

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/lumicast-ai/lumicast/pkg/models"
)

var mockScripts = []string{
	"this is a mock educational script about photosynthesis",
	"here is an engaging explanation of gravity for young learners",
	"let's explore the fascinating structure of dna",
}

// MockAdapter produces structurally valid synthetic payloads after a bounded
// simulated latency, without contacting any network.
type MockAdapter struct {
	name       string
	capability models.Capability

	latencyMin time.Duration
	latencyMax time.Duration

	mu  sync.Mutex
	rng *rand.Rand
	err error
}

// NewMock creates a mock adapter for one capability.
func NewMock(name string, capability models.Capability) *MockAdapter {
	return &MockAdapter{
		name:       name,
		capability: capability,
		latencyMin: 10 * time.Millisecond,
		latencyMax: 50 * time.Millisecond,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Name returns the provider identifier.
func (m *MockAdapter) Name() string { return m.name }

// Capability returns the capability this adapter serves.
func (m *MockAdapter) Capability() models.Capability { return m.capability }

// SetError makes every subsequent Generate fail with err. Pass nil to
// restore normal operation. Used to exercise fallback paths.
func (m *MockAdapter) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// SetLatency overrides the simulated latency range.
func (m *MockAdapter) SetLatency(min, max time.Duration) {
	m.mu.Lock()
	m.latencyMin, m.latencyMax = min, max
	m.mu.Unlock()
}

// Generate returns a synthetic payload shaped like the real provider's
// response for this capability.
func (m *MockAdapter) Generate(ctx context.Context, params models.Params) (models.Payload, error) {
	m.mu.Lock()
	forced := m.err
	delay := m.latencyMin
	if span := m.latencyMax - m.latencyMin; span > 0 {
		delay += time.Duration(m.rng.Int63n(int64(span)))
	}
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", m.name, ErrUnavailable)
	case <-time.After(delay):
	}

	if forced != nil {
		return nil, fmt.Errorf("%s: %w", m.name, forced)
	}

	return m.payload(params), nil
}

// HealthCheck always succeeds immediately in mock mode.
func (m *MockAdapter) HealthCheck(ctx context.Context) bool { return true }

func (m *MockAdapter) payload(params models.Params) models.Payload {
	m.mu.Lock()
	n := 1000 + m.rng.Intn(9000)
	pick := m.rng.Intn(len(mockScripts))
	m.mu.Unlock()

	switch m.capability {
	case models.CapabilityText:
		prompt, _ := params["prompt"].(string)
		return models.Payload{
			"text":  mockScripts[pick],
			"model": stringParam(params, "model", "mock-gpt-4"),
			"usage": map[string]any{
				"prompt_tokens":     len(prompt),
				"completion_tokens": 150,
				"total_tokens":      len(prompt) + 150,
			},
			"service": "mock-" + m.name,
		}
	case models.CapabilityImage:
		return models.Payload{
			"image_url":      fmt.Sprintf("https://mock-images.example.com/%d.jpg", n),
			"revised_prompt": stringParam(params, "prompt", "mock image"),
			"service":        "mock-" + m.name,
		}
	case models.CapabilityVoice:
		text, _ := params["text"].(string)
		return models.Payload{
			"audio_url": fmt.Sprintf("https://mock-audio.example.com/%d.mp3", n),
			"duration":  float64(len(text)) * 0.1,
			"service":   "mock-" + m.name,
		}
	case models.CapabilityVideo:
		return models.Payload{
			"video_url": fmt.Sprintf("https://mock-video.example.com/%d.mp4", n),
			"duration":  numberParam(params, "duration", 5),
			"service":   "mock-" + m.name,
		}
	case models.CapabilityMusic:
		return models.Payload{
			"audio_url": fmt.Sprintf("https://mock-music.example.com/%d.mp3", n),
			"duration":  numberParam(params, "duration", 30),
			"service":   "mock-" + m.name,
		}
	case models.CapabilityAvatar:
		return models.Payload{
			"video_url": fmt.Sprintf("https://mock-avatar.example.com/%d.mp4", n),
			"avatar_id": stringParam(params, "avatar_id", "mock-avatar"),
			"service":   "mock-" + m.name,
		}
	default:
		return models.Payload{"service": "mock-" + m.name}
	}
}

func stringParam(params models.Params, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func numberParam(params models.Params, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}
