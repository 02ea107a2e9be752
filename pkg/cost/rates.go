package cost

import (
	"github.com/shopspring/decimal"

	"github.com/lumicast-ai/lumicast/pkg/config"
	"github.com/lumicast-ai/lumicast/pkg/models"
)

// fallbackEstimate is the conservative estimate used when no rate is
// configured for a service/model pair.
var fallbackEstimate = decimal.RequireFromString("0.10")

// Rate holds the cost rates for one service/model pair. Only the fields
// matching the billing unit are non-zero.
type Rate struct {
	InputPerTok  decimal.Decimal
	OutputPerTok decimal.Decimal
	PerImage     map[string]decimal.Decimal // keyed by quality
	PerCharacter decimal.Decimal
	PerSecond    decimal.Decimal
}

// Rates maps service -> model -> Rate. A model entry named "default" covers
// any model of that service without its own entry.
type Rates map[string]map[string]Rate

// DefaultRates returns the built-in rate table. Real deployments overlay it
// from configuration; these values exist so estimation works out of the box.
func DefaultRates() Rates {
	perTok := func(in, out float64) Rate {
		return Rate{
			InputPerTok:  decimal.NewFromFloat(in),
			OutputPerTok: decimal.NewFromFloat(out),
		}
	}
	return Rates{
		"openai": {
			"gpt-4":         perTok(0.00003, 0.00006),
			"gpt-3.5-turbo": perTok(0.000001, 0.000002),
		},
		"anthropic": {
			"claude-3-sonnet": perTok(0.000003, 0.000015),
			"claude-3-haiku":  perTok(0.00000025, 0.00000125),
		},
		"dalle": {
			"dall-e-3": {PerImage: map[string]decimal.Decimal{
				"standard": decimal.NewFromFloat(0.040),
				"hd":       decimal.NewFromFloat(0.080),
			}},
			"dall-e-2": {PerImage: map[string]decimal.Decimal{
				"1024x1024": decimal.NewFromFloat(0.020),
				"512x512":   decimal.NewFromFloat(0.018),
			}},
		},
		"elevenlabs": {
			"default": {PerCharacter: decimal.NewFromFloat(0.00018)},
		},
		"runway": {
			"gen-2": {PerSecond: decimal.NewFromFloat(0.0125)},
		},
	}
}

// RatesFromConfig overlays configured rates on top of the defaults.
func RatesFromConfig(cfgRates []config.Rate) Rates {
	rates := DefaultRates()
	for _, c := range cfgRates {
		r := Rate{
			InputPerTok:  decimal.NewFromFloat(c.InputPerTok),
			OutputPerTok: decimal.NewFromFloat(c.OutputPerTok),
			PerCharacter: decimal.NewFromFloat(c.PerCharacter),
			PerSecond:    decimal.NewFromFloat(c.PerSecond),
		}
		if len(c.PerImage) > 0 {
			r.PerImage = make(map[string]decimal.Decimal, len(c.PerImage))
			for quality, rate := range c.PerImage {
				r.PerImage[quality] = decimal.NewFromFloat(rate)
			}
		}
		if rates[c.Service] == nil {
			rates[c.Service] = make(map[string]Rate)
		}
		model := c.Model
		if model == "" {
			model = "default"
		}
		rates[c.Service][model] = r
	}
	return rates
}

// Estimate computes the estimated USD cost of an operation from its declared
// parameters, quantized to 4 decimal digits. The second return value reports
// whether a configured rate was found; when false the result is the fixed
// conservative fallback.
func (r Rates) Estimate(service, model string, params models.Params) (decimal.Decimal, bool) {
	byModel, ok := r[service]
	if !ok {
		return fallbackEstimate, false
	}
	rate, ok := byModel[model]
	if !ok {
		rate, ok = byModel["default"]
	}
	if !ok {
		return fallbackEstimate, false
	}

	var cost decimal.Decimal
	switch {
	case rate.PerImage != nil:
		n := intParam(params, "n", 1)
		quality := strParam(params, "quality", "standard")
		per, ok := rate.PerImage[quality]
		if !ok {
			per, ok = rate.PerImage["standard"]
		}
		if !ok {
			return fallbackEstimate, false
		}
		cost = decimal.NewFromInt(int64(n)).Mul(per)
	case !rate.PerCharacter.IsZero():
		chars := len(strParam(params, "text", ""))
		cost = decimal.NewFromInt(int64(chars)).Mul(rate.PerCharacter)
	case !rate.PerSecond.IsZero():
		duration := intParam(params, "duration", 5)
		cost = decimal.NewFromInt(int64(duration)).Mul(rate.PerSecond)
	default:
		inputTokens := intParam(params, "input_tokens", 0)
		outputTokens := intParam(params, "max_tokens", 150)
		cost = decimal.NewFromInt(int64(inputTokens)).Mul(rate.InputPerTok).
			Add(decimal.NewFromInt(int64(outputTokens)).Mul(rate.OutputPerTok))
	}
	return cost.Round(4), true
}

func intParam(params models.Params, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

func strParam(params models.Params, key, fallback string) string {
	if s, ok := params[key].(string); ok && s != "" {
		return s
	}
	return fallback
}
