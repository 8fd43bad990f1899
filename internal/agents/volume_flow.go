package agents

import (
	"context"
	"fmt"

	"tradearena/internal/market"
)

// VolumeFlowAgent tallies volume behind up-bars versus down-bars, an
// on-balance-volume style read of who is pressing.
type VolumeFlowAgent struct{}

func (a *VolumeFlowAgent) ID() string   { return "volume_flow" }
func (a *VolumeFlowAgent) Name() string { return "Volume Flow" }

func (a *VolumeFlowAgent) Evaluate(_ context.Context, snap *market.Snapshot) (market.Signal, error) {
	candles := snap.Candles
	if len(candles) < 4 {
		return market.Signal{}, fmt.Errorf("%s: %w", a.ID(), errInsufficientData)
	}

	var upVol, downVol float64
	for i := 1; i < len(candles); i++ {
		switch {
		case candles[i].Close > candles[i-1].Close:
			upVol += candles[i].Volume
		case candles[i].Close < candles[i-1].Close:
			downVol += candles[i].Volume
		}
	}
	total := upVol + downVol
	if total == 0 {
		return market.Signal{
			AgentID:    a.ID(),
			Direction:  market.DirectionNeutral,
			Confidence: 20,
			Thesis:     "no directional volume in window",
		}, nil
	}

	bull := upVol / total * 100
	bear := downVol / total * 100
	signal := market.Signal{
		AgentID:   a.ID(),
		Direction: directionFromScores(bull, bear, 10),
		BullScore: bull,
		BearScore: bear,
	}
	skew := bull - bear
	if skew < 0 {
		skew = -skew
	}
	signal.Confidence = clampConfidence(30 + int(skew))
	signal.Thesis = fmt.Sprintf("%.0f%% of volume behind up-bars, %.0f%% behind down-bars", bull, bear)
	return signal, nil
}
