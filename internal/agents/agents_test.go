package agents

import (
	"context"
	"testing"
	"time"

	"tradearena/internal/market"
)

func testSnapshot() *market.Snapshot {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]market.Candle, 0, 30)
	price := 100.0
	for i := 0; i < 30; i++ {
		price += 0.4
		candles = append(candles, market.Candle{
			OpenTime: base.Add(time.Duration(i) * time.Minute),
			Open:     price - 0.4,
			High:     price + 0.2,
			Low:      price - 0.6,
			Close:    price,
			Volume:   1000 + float64(i)*10,
		})
	}
	return &market.Snapshot{
		Pair:      "BTC-USDT",
		Timeframe: "1m",
		Candles:   candles,
		Funding:   0.0004,
		OpenInt:   1_000_000,
		TakenAt:   base.Add(30 * time.Minute),
	}
}

func TestDefaultRegistry_ClosedRoster(t *testing.T) {
	reg := Default()
	want := []string{
		"funding_skew", "macro_sentiment", "mean_reversion",
		"momentum", "volatility_breakout", "volume_flow",
	}
	got := reg.IDs()
	if len(got) != len(want) {
		t.Fatalf("roster size = %d want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("roster[%d] = %s want %s", i, got[i], want[i])
		}
	}
	if _, ok := reg.Get("momentum"); !ok {
		t.Fatalf("momentum should resolve")
	}
	if _, ok := reg.Get("oracle"); ok {
		t.Fatalf("unknown id should not resolve")
	}
}

func TestAgents_DeterministicOverSameSnapshot(t *testing.T) {
	reg := Default()
	snap := testSnapshot()
	for _, id := range reg.IDs() {
		agent, _ := reg.Get(id)
		first, err := agent.Evaluate(context.Background(), snap)
		if err != nil {
			t.Fatalf("%s: %v", id, err)
		}
		if first.AgentID != id {
			t.Fatalf("%s: signal tagged %q", id, first.AgentID)
		}
		if first.Confidence < 0 || first.Confidence > 100 {
			t.Fatalf("%s: confidence %d out of range", id, first.Confidence)
		}
		again, err := agent.Evaluate(context.Background(), snap)
		if err != nil {
			t.Fatalf("%s second run: %v", id, err)
		}
		if first != again {
			t.Fatalf("%s: non-deterministic output\nfirst=%+v\nagain=%+v", id, first, again)
		}
	}
}

func TestMomentum_UptrendGoesLong(t *testing.T) {
	sig, err := (&MomentumAgent{}).Evaluate(context.Background(), testSnapshot())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sig.Direction != market.DirectionLong {
		t.Fatalf("steady uptrend should read long, got %s", sig.Direction)
	}
}

func TestAgents_InsufficientDataIsAnError(t *testing.T) {
	tiny := &market.Snapshot{Candles: []market.Candle{{Close: 100}}}
	if _, err := (&MomentumAgent{}).Evaluate(context.Background(), tiny); err == nil {
		t.Fatalf("momentum should fail on a one-candle snapshot")
	}
	if _, err := (&VolatilityBreakoutAgent{}).Evaluate(context.Background(), tiny); err == nil {
		t.Fatalf("volatility_breakout should fail on a one-candle snapshot")
	}
}
