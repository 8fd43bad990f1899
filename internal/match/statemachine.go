package match

import (
	"encoding/json"
	"fmt"
	"time"

	"tradearena/internal/models"
)

var phaseOrder = []string{
	models.PhaseDraft,
	models.PhaseAnalysis,
	models.PhaseHypothesis,
	models.PhaseBattle,
	models.PhaseResult,
}

// NextPhase returns the immediate successor of current, or false for the
// terminal phase and unknown inputs.
func NextPhase(current string) (string, bool) {
	for i, p := range phaseOrder {
		if p == current && i+1 < len(phaseOrder) {
			return phaseOrder[i+1], true
		}
	}
	return "", false
}

// Budgets are the fixed time budgets per phase. RESULT is terminal and has
// no budget.
type Budgets struct {
	Draft      time.Duration
	Analysis   time.Duration
	Hypothesis time.Duration
	Battle     time.Duration
}

func DefaultBudgets() Budgets {
	return Budgets{
		Draft:      2 * time.Minute,
		Analysis:   time.Minute,
		Hypothesis: 90 * time.Second,
		Battle:     4 * time.Minute,
	}
}

// PhaseMeta is what clients and spectators get back after an advance:
// where the match is, how long the phase lasts, and what is legal next.
type PhaseMeta struct {
	Phase          string     `json:"phase"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Budget         string     `json:"budget,omitempty"`
	AllowedActions []string   `json:"allowed_actions"`
}

// Facts are the stored observations the state machine checks preconditions
// against. The caller (the orchestrating service) reads them inside the
// same per-match critical section as the advance itself.
type Facts struct {
	OutputCount  int
	WindowCount  int
	WindowTotal  int
	HasExitPrice bool
}

// StateMachine owns transition legality and phase deadlines. Deadlines are
// advisory: expiry enforcement is delegated to an external scheduler.
type StateMachine struct {
	Budgets Budgets
}

// ValidateAdvance checks ownership, transition legality, and the per-phase
// precondition for moving m to target. It does not mutate the match.
func (sm *StateMachine) ValidateAdvance(m *models.Match, requesterID, target string, facts Facts) error {
	if m == nil {
		return ErrMatchNotFound
	}
	if m.UserID != requesterID {
		return fmt.Errorf("%w: requester %s does not own match %s", ErrUnauthorized, requesterID, m.ID)
	}
	next, ok := NextPhase(m.Phase)
	if !ok || next != target {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Phase, target)
	}

	switch target {
	case models.PhaseAnalysis:
		if len(DecodeDraft(m)) == 0 {
			return fmt.Errorf("%w: submit a draft before analysis", ErrPreconditionNotMet)
		}
	case models.PhaseHypothesis:
		if facts.OutputCount == 0 {
			return fmt.Errorf("%w: agent outputs required before hypothesis", ErrPreconditionNotMet)
		}
	case models.PhaseBattle:
		if len(m.Hypothesis) == 0 {
			return fmt.Errorf("%w: submit a hypothesis before battle", ErrPreconditionNotMet)
		}
	case models.PhaseResult:
		if facts.WindowCount < facts.WindowTotal && !facts.HasExitPrice {
			return fmt.Errorf("%w: %d/%d windows recorded and no exit price for early resolve",
				ErrPreconditionNotMet, facts.WindowCount, facts.WindowTotal)
		}
	}
	return nil
}

// MetaFor computes the deadline and legal actions for a phase entered at now.
func (sm *StateMachine) MetaFor(phase string, now time.Time) PhaseMeta {
	meta := PhaseMeta{Phase: phase, AllowedActions: allowedActions(phase)}
	budget := sm.budgetFor(phase)
	if budget > 0 {
		expires := now.Add(budget)
		meta.ExpiresAt = &expires
		meta.Budget = budget.String()
	}
	return meta
}

func (sm *StateMachine) budgetFor(phase string) time.Duration {
	b := sm.Budgets
	if b == (Budgets{}) {
		b = DefaultBudgets()
	}
	switch phase {
	case models.PhaseDraft:
		return b.Draft
	case models.PhaseAnalysis:
		return b.Analysis
	case models.PhaseHypothesis:
		return b.Hypothesis
	case models.PhaseBattle:
		return b.Battle
	default:
		return 0
	}
}

func allowedActions(phase string) []string {
	switch phase {
	case models.PhaseDraft:
		return []string{"submit_draft", "advance"}
	case models.PhaseAnalysis:
		return []string{"advance"}
	case models.PhaseHypothesis:
		return []string{"submit_hypothesis", "advance"}
	case models.PhaseBattle:
		return []string{"submit_window", "resolve"}
	default:
		return []string{}
	}
}

// DecodeDraft returns the ordered agent ids of a match draft, or nil.
func DecodeDraft(m *models.Match) []string {
	if m == nil || len(m.Draft) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(m.Draft, &ids); err != nil {
		return nil
	}
	return ids
}
