package market

import "math"

// TrailingPolicy is attached to exits in trending regimes: the stop follows
// the best price seen since entry at TrailPct distance.
type TrailingPolicy struct {
	Enabled  bool    `json:"enabled"`
	TrailPct float64 `json:"trail_pct"`
}

// ExitLevels are absolute price levels around the entry price.
type ExitLevels struct {
	TakeProfit float64        `json:"take_profit"`
	StopLoss   float64        `json:"stop_loss"`
	Trailing   TrailingPolicy `json:"trailing"`
}

// AgentExit is the recommended exit for a single agent's signal.
type AgentExit struct {
	AgentID string     `json:"agent_id"`
	Levels  ExitLevels `json:"levels"`
}

// ExitRecommendation is the overall exit plus one recommendation per agent.
type ExitRecommendation struct {
	EntryPrice float64     `json:"entry_price"`
	Overall    ExitLevels  `json:"overall"`
	PerAgent   []AgentExit `json:"per_agent"`
}

const (
	baseTakeProfitPct = 0.010
	confTakeProfitPct = 0.040 // added at confidence 100
	baseStopLossPct   = 0.008
	confStopLossPct   = 0.012 // added at confidence 100
	minOffsetPct      = 0.001
)

// ComputeExit produces take-profit/stop-loss levels scaled by confidence and
// adjusted by regime. Deterministic. The take-profit is always strictly on
// the profit side of entry for the given direction and the stop-loss strictly
// on the loss side; NEUTRAL uses the long-side shape with the offsets intact.
// An empty snapshot yields the zero recommendation.
func ComputeExit(direction string, confidence int, snap *Snapshot, signals []Signal, regime string) ExitRecommendation {
	entry := snap.LastPrice()
	if entry <= 0 {
		return ExitRecommendation{}
	}

	rec := ExitRecommendation{
		EntryPrice: entry,
		Overall:    levelsFor(direction, confidence, entry, regime),
	}
	for _, sig := range signals {
		rec.PerAgent = append(rec.PerAgent, AgentExit{
			AgentID: sig.AgentID,
			Levels:  levelsFor(sig.Direction, sig.Confidence, entry, regime),
		})
	}
	return rec
}

func levelsFor(direction string, confidence int, entry float64, regime string) ExitLevels {
	conf := clampConfidence(confidence)
	frac := float64(conf) / 100

	tpPct := baseTakeProfitPct + frac*confTakeProfitPct
	slPct := baseStopLossPct + (1-frac)*confStopLossPct

	trailing := TrailingPolicy{}
	switch regime {
	case RegimeTrendUp, RegimeTrendDown:
		// Trends get room to run and a trailing stop to keep gains.
		tpPct *= 1.5
		trailing = TrailingPolicy{Enabled: true, TrailPct: slPct * 1.25}
	case RegimeRange:
		tpPct *= 0.7
		slPct *= 0.7
	case RegimeVolatile:
		tpPct *= 0.8
		slPct *= 0.6
	}

	// Hard invariant: offsets are strictly positive distances from entry.
	tpPct = math.Max(tpPct, minOffsetPct)
	slPct = math.Max(slPct, minOffsetPct)

	switch direction {
	case DirectionShort:
		return ExitLevels{
			TakeProfit: entry * (1 - tpPct),
			StopLoss:   entry * (1 + slPct),
			Trailing:   trailing,
		}
	default: // LONG and NEUTRAL
		return ExitLevels{
			TakeProfit: entry * (1 + tpPct),
			StopLoss:   entry * (1 - slPct),
			Trailing:   trailing,
		}
	}
}

func clampConfidence(confidence int) int {
	if confidence < 0 {
		return 0
	}
	if confidence > 100 {
		return 100
	}
	return confidence
}
