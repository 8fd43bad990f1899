package agents

import (
	"context"
	"fmt"
	"math"

	"tradearena/internal/market"
)

// MeanReversionAgent fades deviation from the 20-bar moving average.
type MeanReversionAgent struct{}

func (a *MeanReversionAgent) ID() string   { return "mean_reversion" }
func (a *MeanReversionAgent) Name() string { return "Mean Reversion" }

func (a *MeanReversionAgent) Evaluate(_ context.Context, snap *market.Snapshot) (market.Signal, error) {
	closes := snap.Closes()
	if len(closes) < 5 {
		return market.Signal{}, fmt.Errorf("%s: %w", a.ID(), errInsufficientData)
	}

	window := 20
	if len(closes) < window {
		window = len(closes)
	}
	var sum float64
	for _, c := range closes[len(closes)-window:] {
		sum += c
	}
	mean := sum / float64(window)
	current := closes[len(closes)-1]
	if mean == 0 {
		return market.Signal{}, fmt.Errorf("%s: zero mean price", a.ID())
	}
	deviation := (current - mean) / mean

	// Price above the mean argues for a short, and vice versa.
	bull := math.Max(-deviation, 0) * 100
	bear := math.Max(deviation, 0) * 100
	signal := market.Signal{
		AgentID:   a.ID(),
		Direction: directionFromScores(bull, bear, 0.2),
		BullScore: bull,
		BearScore: bear,
	}
	signal.Confidence = clampConfidence(35 + int(math.Abs(deviation)*1500))
	signal.Thesis = fmt.Sprintf("price %.2f vs %d-bar mean %.2f (%.2f%% deviation)", current, window, mean, deviation*100)
	return signal, nil
}
