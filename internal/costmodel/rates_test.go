package costmodel

import (
	"testing"

	"github.com/shopspring/decimal"
)

func mustEq(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("expected %s, got %s", want, got.String())
	}
}

func TestTokenCost_PrefixMatch(t *testing.T) {
	rc := DefaultRateCard()

	// fine-tuned mini: 1000 in * 0.15 + 1000 out * 0.60
	mustEq(t, rc.TokenCost("ft:gpt-4o-mini-2024-07-18:personal:sales-rep", 1000, 1000, 0), "0.75")

	// realtime: tokens plus audio minutes
	// 2000/1000*0.60 + 500/1000*2.40 + 30/60*0.48
	mustEq(t, rc.TokenCost("gpt-4o-realtime-preview", 2000, 500, 30), "2.64")
}

func TestTokenCost_AudioOnlyBilledForRealtime(t *testing.T) {
	rc := DefaultRateCard()
	withAudio := rc.TokenCost("ft:gpt-4o-mini", 1000, 0, 600)
	withoutAudio := rc.TokenCost("ft:gpt-4o-mini", 1000, 0, 0)
	if !withAudio.Equal(withoutAudio) {
		t.Fatalf("audio should not be billed for non-realtime models: %s vs %s", withAudio, withoutAudio)
	}
}

func TestTokenCost_UnknownModelFallsBack(t *testing.T) {
	rc := DefaultRateCard()
	// (1500+500)/1000 * 0.001
	mustEq(t, rc.TokenCost("claude-sonnet", 1500, 500, 0), "0.002")
}

func TestTokenCost_ClampsNegativeInputs(t *testing.T) {
	rc := DefaultRateCard()
	mustEq(t, rc.TokenCost("gpt-4o-realtime", -100, -100, -30), "0")
}

func TestTelephonyCost(t *testing.T) {
	rc := DefaultRateCard()

	// 60s at 0.013/min
	mustEq(t, rc.TelephonyCost(60), "0.013")
	// 90s
	mustEq(t, rc.TelephonyCost(90), "0.0195")
	// negative clamps
	mustEq(t, rc.TelephonyCost(-5), "0")
}

func TestRealtimeCallCost(t *testing.T) {
	rc := DefaultRateCard()
	// 120s call: telephony 0.026; tokens 1000/1000*0.60; audio 120/60*0.48
	mustEq(t, rc.RealtimeCallCost(120, 1000, 0, 120), "1.586")
}
