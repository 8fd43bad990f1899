package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"tradearena/internal/agents"
	"tradearena/internal/market"
)

const defaultMaxWorkers = 4

// Output is one succeeding agent's signal tagged with its draft slot.
type Output struct {
	Slot   int           `json:"slot"`
	Signal market.Signal `json:"signal"`
}

// Failure records one agent that did not produce a signal. Failures are
// never fatal to the run.
type Failure struct {
	Slot    int    `json:"slot"`
	AgentID string `json:"agent_id"`
	Reason  string `json:"reason"`
}

// Meta describes how the run went.
type Meta struct {
	Attempted int       `json:"attempted"`
	Succeeded int       `json:"succeeded"`
	Failures  []Failure `json:"failures,omitempty"`
}

// Result is a full pipeline run: per-agent outputs in draft-slot order,
// the consensus over the succeeding agents, and run metadata.
type Result struct {
	Outputs   []Output  `json:"outputs"`
	Consensus Consensus `json:"consensus"`
	Meta      Meta      `json:"meta"`
}

// Runner evaluates a drafted agent list against a snapshot. Evaluations are
// independent and read-only over the snapshot, so they run concurrently,
// capped at MaxWorkers.
type Runner struct {
	Registry *agents.Registry
	Logger   *zap.Logger

	MaxWorkers int
}

// Run evaluates every drafted agent and aggregates the survivors. One
// agent's failure never aborts the run: it is reported in Meta and the
// consensus is computed over the agents that succeeded. Zero successes
// yield a NEUTRAL zero-confidence consensus, not an error.
func (r *Runner) Run(ctx context.Context, draft []string, snap *market.Snapshot) (*Result, error) {
	if r == nil || r.Registry == nil {
		return nil, fmt.Errorf("pipeline runner not configured")
	}
	workers := r.MaxWorkers
	if workers <= 0 {
		workers = defaultMaxWorkers
	}

	type slotResult struct {
		signal market.Signal
		err    error
	}
	results := make([]slotResult, len(draft))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, agentID := range draft {
		agent, ok := r.Registry.Get(agentID)
		if !ok {
			results[i] = slotResult{err: fmt.Errorf("unknown agent %q", agentID)}
			continue
		}
		wg.Add(1)
		go func(slot int, agent agents.Agent) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			sig, err := agent.Evaluate(ctx, snap)
			results[slot] = slotResult{signal: sig, err: err}
		}(i, agent)
	}
	wg.Wait()

	out := &Result{Meta: Meta{Attempted: len(draft)}}
	signals := make([]market.Signal, 0, len(draft))
	for slot, res := range results {
		if res.err != nil {
			out.Meta.Failures = append(out.Meta.Failures, Failure{
				Slot:    slot,
				AgentID: draft[slot],
				Reason:  res.err.Error(),
			})
			if r.Logger != nil {
				r.Logger.Warn("agent evaluation failed",
					zap.String("agent", draft[slot]),
					zap.Int("slot", slot),
					zap.Error(res.err),
				)
			}
			continue
		}
		out.Outputs = append(out.Outputs, Output{Slot: slot, Signal: res.signal})
		signals = append(signals, res.signal)
	}
	out.Meta.Succeeded = len(out.Outputs)
	out.Consensus = Aggregate(signals)
	return out, nil
}
