package agents

import (
	"context"
	"fmt"
	"math"

	"tradearena/internal/market"
)

// FundingSkewAgent reads the perp funding rate contrarian: heavily positive
// funding means crowded longs paying to stay in, which caps upside.
type FundingSkewAgent struct{}

func (a *FundingSkewAgent) ID() string   { return "funding_skew" }
func (a *FundingSkewAgent) Name() string { return "Funding Skew" }

const fundingNeutralBand = 0.0001 // 1bp per interval is background noise

func (a *FundingSkewAgent) Evaluate(_ context.Context, snap *market.Snapshot) (market.Signal, error) {
	funding := snap.Funding
	signal := market.Signal{AgentID: a.ID()}

	switch {
	case funding > fundingNeutralBand:
		signal.Direction = market.DirectionShort
		signal.BearScore = math.Min(funding*1e4, 100)
	case funding < -fundingNeutralBand:
		signal.Direction = market.DirectionLong
		signal.BullScore = math.Min(-funding*1e4, 100)
	default:
		signal.Direction = market.DirectionNeutral
	}

	signal.Confidence = clampConfidence(25 + int(math.Abs(funding)*1e5))
	signal.Thesis = fmt.Sprintf("funding rate %.5f, crowd positioning %s", funding, signal.Direction)
	return signal, nil
}
