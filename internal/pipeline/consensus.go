package pipeline

import (
	"math"

	"tradearena/internal/market"
)

// VoteTally counts agent votes by direction.
type VoteTally struct {
	Long    int `json:"long"`
	Short   int `json:"short"`
	Neutral int `json:"neutral"`
}

// Consensus is a pure projection of a signal set: it is recomputed on
// demand and never persisted as separate state.
type Consensus struct {
	Direction  string    `json:"direction"`
	Confidence int       `json:"confidence"`
	Votes      VoteTally `json:"votes"`
}

// Aggregate tallies votes by direction and averages confidence. The result
// depends only on vote counts and the confidence multiset, so it is
// invariant under any permutation of the input. The strict majority of
// long vs short wins; a long/short tie or a neutral plurality resolves to
// NEUTRAL. An empty set yields NEUTRAL with confidence 0.
func Aggregate(signals []market.Signal) Consensus {
	c := Consensus{Direction: market.DirectionNeutral}
	if len(signals) == 0 {
		return c
	}

	var confSum float64
	for _, sig := range signals {
		confSum += float64(sig.Confidence)
		switch sig.Direction {
		case market.DirectionLong:
			c.Votes.Long++
		case market.DirectionShort:
			c.Votes.Short++
		default:
			c.Votes.Neutral++
		}
	}

	switch {
	case c.Votes.Neutral >= c.Votes.Long && c.Votes.Neutral >= c.Votes.Short:
		c.Direction = market.DirectionNeutral
	case c.Votes.Long > c.Votes.Short:
		c.Direction = market.DirectionLong
	case c.Votes.Short > c.Votes.Long:
		c.Direction = market.DirectionShort
	default:
		c.Direction = market.DirectionNeutral
	}

	c.Confidence = int(math.Round(confSum / float64(len(signals))))
	return c
}
