package agents

import (
	"context"
	"fmt"

	"tradearena/internal/market"
)

// MacroSentimentAgent blends open interest growth against price drift: rising
// open interest confirming a move, falling open interest fading it. It has
// the least conviction of the roster and mostly votes with the tape.
type MacroSentimentAgent struct{}

func (a *MacroSentimentAgent) ID() string   { return "macro_sentiment" }
func (a *MacroSentimentAgent) Name() string { return "Macro Sentiment" }

func (a *MacroSentimentAgent) Evaluate(_ context.Context, snap *market.Snapshot) (market.Signal, error) {
	closes := snap.Closes()
	if len(closes) < 2 {
		return market.Signal{}, fmt.Errorf("%s: %w", a.ID(), errInsufficientData)
	}

	drift := changePct(closes, len(closes)-1)
	confirm := 1.0
	if snap.OpenInt < 0 {
		confirm = -1.0
	}
	score := drift * confirm * 100

	signal := market.Signal{AgentID: a.ID()}
	switch {
	case score > 0.3:
		signal.Direction = market.DirectionLong
		signal.BullScore = score
	case score < -0.3:
		signal.Direction = market.DirectionShort
		signal.BearScore = -score
	default:
		signal.Direction = market.DirectionNeutral
	}
	signal.Confidence = clampConfidence(25 + int(absFloat(score)*5))
	signal.Thesis = fmt.Sprintf("drift %.2f%% with open interest %.0f", drift*100, snap.OpenInt)
	return signal, nil
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
