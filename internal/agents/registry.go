package agents

import (
	"context"
	"fmt"
	"sort"

	"tradearena/internal/market"
)

// Agent is one named analytical strategy. Evaluate must treat the snapshot
// as read-only and must be deterministic for a given snapshot.
type Agent interface {
	ID() string
	Name() string
	Evaluate(ctx context.Context, snap *market.Snapshot) (market.Signal, error)
}

// Registry is the closed set of agent kinds, built once at startup.
// Lookups are read-only after construction.
type Registry struct {
	byID  map[string]Agent
	order []string
}

func NewRegistry(list ...Agent) *Registry {
	r := &Registry{byID: map[string]Agent{}}
	for _, a := range list {
		if a == nil || a.ID() == "" {
			continue
		}
		if _, ok := r.byID[a.ID()]; ok {
			continue
		}
		r.byID[a.ID()] = a
		r.order = append(r.order, a.ID())
	}
	return r
}

// Default returns the full roster.
func Default() *Registry {
	return NewRegistry(
		&MomentumAgent{},
		&MeanReversionAgent{},
		&VolumeFlowAgent{},
		&FundingSkewAgent{},
		&VolatilityBreakoutAgent{},
		&MacroSentimentAgent{},
	)
}

func (r *Registry) Get(id string) (Agent, bool) {
	a, ok := r.byID[id]
	return a, ok
}

func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	sort.Strings(out)
	return out
}

var errInsufficientData = fmt.Errorf("insufficient candles")

func clampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func directionFromScores(bull, bear float64, deadband float64) string {
	switch {
	case bull-bear > deadband:
		return market.DirectionLong
	case bear-bull > deadband:
		return market.DirectionShort
	default:
		return market.DirectionNeutral
	}
}
