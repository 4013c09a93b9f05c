package costmodel

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Pricing is pure and never fails: unknown model tags fall back to a minimal
// flat per-token rate instead of blocking the session ("never block on
// pricing"). All quantities are clamped to >= 0 before use. Amounts are
// decimal credits (1 credit == 1 USD at current rates).

// TokenRate prices a family of models selected by tag prefix.
type TokenRate struct {
	// ModelPrefix is matched with strings.HasPrefix against the model tag.
	ModelPrefix string

	InputPer1K  decimal.Decimal
	OutputPer1K decimal.Decimal

	// AudioPerMinute is zero for text-only models; realtime models bill
	// synthesized/transcribed audio on top of tokens.
	AudioPerMinute decimal.Decimal
}

// RateCard holds every rate the console bills against.
type RateCard struct {
	// TokenRates are evaluated in order; first prefix match wins.
	TokenRates []TokenRate

	// FallbackPer1K applies to (input+output) tokens of unknown models.
	FallbackPer1K decimal.Decimal

	// TelephonyPerMinute is the outbound carrier rate.
	TelephonyPerMinute decimal.Decimal
}

var (
	thousand = decimal.NewFromInt(1000)
	sixty    = decimal.NewFromInt(60)
)

// DefaultRateCard returns the shipped rates.
func DefaultRateCard() RateCard {
	return RateCard{
		TokenRates: []TokenRate{
			{
				ModelPrefix: "ft:gpt-4o-mini",
				InputPer1K:  decimal.RequireFromString("0.15"),
				OutputPer1K: decimal.RequireFromString("0.60"),
			},
			{
				ModelPrefix:    "gpt-4o-realtime",
				InputPer1K:     decimal.RequireFromString("0.60"),
				OutputPer1K:    decimal.RequireFromString("2.40"),
				AudioPerMinute: decimal.RequireFromString("0.48"),
			},
		},
		FallbackPer1K:      decimal.RequireFromString("0.001"),
		TelephonyPerMinute: decimal.RequireFromString("0.013"),
	}
}

// TokenCost prices an LLM interaction: per-1k token rates selected by model
// tag prefix, plus an audio surcharge for rates that carry one.
func (rc RateCard) TokenCost(modelTag string, inputTokens, outputTokens int64, audioSeconds float64) decimal.Decimal {
	in := decimal.NewFromInt(clampInt(inputTokens))
	out := decimal.NewFromInt(clampInt(outputTokens))
	audio := decimal.NewFromFloat(clampFloat(audioSeconds))

	for _, r := range rc.TokenRates {
		if !strings.HasPrefix(modelTag, r.ModelPrefix) {
			continue
		}
		cost := in.Div(thousand).Mul(r.InputPer1K).
			Add(out.Div(thousand).Mul(r.OutputPer1K))
		if !r.AudioPerMinute.IsZero() {
			cost = cost.Add(audio.Div(sixty).Mul(r.AudioPerMinute))
		}
		return cost
	}

	return in.Add(out).Div(thousand).Mul(rc.FallbackPer1K)
}

// TelephonyCost prices carrier minutes for an outbound call.
func (rc RateCard) TelephonyCost(durationSeconds int) decimal.Decimal {
	d := decimal.NewFromInt(clampInt(int64(durationSeconds)))
	return d.Div(sixty).Mul(rc.TelephonyPerMinute)
}

// RealtimeCallCost combines carrier minutes with realtime-model usage for a
// single voice session.
func (rc RateCard) RealtimeCallCost(callDurationSeconds int, inputTokens, outputTokens int64, audioSeconds float64) decimal.Decimal {
	return rc.TelephonyCost(callDurationSeconds).
		Add(rc.TokenCost("gpt-4o-realtime", inputTokens, outputTokens, audioSeconds))
}

func clampInt(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func clampFloat(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
