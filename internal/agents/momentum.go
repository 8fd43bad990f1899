package agents

import (
	"context"
	"fmt"
	"math"

	"tradearena/internal/market"
)

// MomentumAgent weights short-horizon price changes more heavily than
// long-horizon ones and follows the resulting drift.
type MomentumAgent struct{}

func (a *MomentumAgent) ID() string   { return "momentum" }
func (a *MomentumAgent) Name() string { return "Momentum" }

func (a *MomentumAgent) Evaluate(_ context.Context, snap *market.Snapshot) (market.Signal, error) {
	closes := snap.Closes()
	if len(closes) < 6 {
		return market.Signal{}, fmt.Errorf("%s: %w", a.ID(), errInsufficientData)
	}

	current := closes[len(closes)-1]
	score := 0.5*changePct(closes, 5) + 0.3*changePct(closes, 10) + 0.2*changePct(closes, 20)

	bull := math.Max(score, 0) * 100
	bear := math.Max(-score, 0) * 100
	signal := market.Signal{
		AgentID:   a.ID(),
		Direction: directionFromScores(bull, bear, 0.05),
		BullScore: bull,
		BearScore: bear,
	}
	signal.Confidence = clampConfidence(40 + int(math.Abs(score)*2000))
	signal.Thesis = fmt.Sprintf("weighted momentum %.3f%% at %.2f", score*100, current)
	return signal, nil
}

// changePct is the fractional move over the last n bars, using the earliest
// bar available when the series is shorter than n.
func changePct(closes []float64, n int) float64 {
	idx := len(closes) - 1 - n
	if idx < 0 {
		idx = 0
	}
	prev := closes[idx]
	if prev == 0 {
		return 0
	}
	return (closes[len(closes)-1] - prev) / prev
}
