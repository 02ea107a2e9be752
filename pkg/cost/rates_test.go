package cost

import (
	"testing"

	"github.com/lumicast-ai/lumicast/pkg/config"
	"github.com/lumicast-ai/lumicast/pkg/models"
)

func TestEstimateTokens(t *testing.T) {
	rates := DefaultRates()

	// 1000 input tokens plus the default 150 completion tokens.
	cost, known := rates.Estimate("openai", "gpt-4", models.Params{"input_tokens": 1000})
	if !known {
		t.Fatal("gpt-4 rate should be known")
	}
	if cost.String() != "0.039" {
		t.Errorf("expected 0.039, got %s", cost)
	}
}

func TestEstimateImages(t *testing.T) {
	rates := DefaultRates()

	cost, known := rates.Estimate("dalle", "dall-e-3", models.Params{"n": 2, "quality": "hd"})
	if !known {
		t.Fatal("dall-e-3 rate should be known")
	}
	if cost.String() != "0.16" {
		t.Errorf("expected 0.16, got %s", cost)
	}
}

func TestEstimateCharacters(t *testing.T) {
	rates := DefaultRates()

	cost, known := rates.Estimate("elevenlabs", "any-voice", models.Params{"text": "hello world"})
	if !known {
		t.Fatal("elevenlabs default rate should cover any model")
	}
	// 11 characters at 0.00018.
	if cost.String() != "0.002" {
		t.Errorf("expected 0.002, got %s", cost)
	}
}

func TestEstimateSeconds(t *testing.T) {
	rates := DefaultRates()

	cost, known := rates.Estimate("runway", "gen-2", models.Params{"duration": 8})
	if !known {
		t.Fatal("gen-2 rate should be known")
	}
	if cost.String() != "0.1" {
		t.Errorf("expected 0.1, got %s", cost)
	}
}

func TestEstimateUnknownService(t *testing.T) {
	rates := DefaultRates()

	cost, known := rates.Estimate("nonexistent", "model", models.Params{})
	if known {
		t.Fatal("unknown service must not be known")
	}
	if !cost.Equal(fallbackEstimate) {
		t.Errorf("expected conservative fallback %s, got %s", fallbackEstimate, cost)
	}
}

func TestRatesFromConfigOverlay(t *testing.T) {
	rates := RatesFromConfig([]config.Rate{
		{Service: "customvoice", PerCharacter: 0.001},
	})

	cost, known := rates.Estimate("customvoice", "whatever", models.Params{"text": "abcde"})
	if !known {
		t.Fatal("configured service should be known via the default model entry")
	}
	if cost.String() != "0.005" {
		t.Errorf("expected 0.005, got %s", cost)
	}

	// Built-in defaults survive the overlay.
	if _, known := rates.Estimate("openai", "gpt-4", models.Params{}); !known {
		t.Error("default rates must survive config overlay")
	}
}
