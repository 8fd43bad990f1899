package agents

import (
	"context"
	"fmt"

	"tradearena/internal/market"
)

// VolatilityBreakoutAgent looks for the last close escaping the range of
// the preceding bars and follows the break.
type VolatilityBreakoutAgent struct{}

func (a *VolatilityBreakoutAgent) ID() string   { return "volatility_breakout" }
func (a *VolatilityBreakoutAgent) Name() string { return "Volatility Breakout" }

func (a *VolatilityBreakoutAgent) Evaluate(_ context.Context, snap *market.Snapshot) (market.Signal, error) {
	candles := snap.Candles
	if len(candles) < 6 {
		return market.Signal{}, fmt.Errorf("%s: %w", a.ID(), errInsufficientData)
	}

	window := candles[:len(candles)-1]
	if len(window) > 20 {
		window = window[len(window)-20:]
	}
	high := window[0].High
	low := window[0].Low
	for _, c := range window[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	span := high - low
	last := candles[len(candles)-1].Close

	signal := market.Signal{AgentID: a.ID()}
	switch {
	case span <= 0:
		signal.Direction = market.DirectionNeutral
		signal.Confidence = 20
		signal.Thesis = "flat range, no breakout possible"
	case last > high:
		signal.Direction = market.DirectionLong
		signal.BullScore = (last - high) / span * 100
		signal.Confidence = clampConfidence(45 + int(signal.BullScore))
		signal.Thesis = fmt.Sprintf("close %.2f broke above range high %.2f", last, high)
	case last < low:
		signal.Direction = market.DirectionShort
		signal.BearScore = (low - last) / span * 100
		signal.Confidence = clampConfidence(45 + int(signal.BearScore))
		signal.Thesis = fmt.Sprintf("close %.2f broke below range low %.2f", last, low)
	default:
		signal.Direction = market.DirectionNeutral
		signal.Confidence = clampConfidence(20 + int((last-low)/span*20))
		signal.Thesis = fmt.Sprintf("close %.2f inside %.2f-%.2f range", last, low, high)
	}
	return signal, nil
}
