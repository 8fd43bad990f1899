package match

import (
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"

	"tradearena/internal/models"
)

func draftedMatch(phase string) *models.Match {
	return &models.Match{
		ID:     "11111111-1111-1111-1111-111111111111",
		UserID: "owner-1",
		Pair:   "BTC-USDT",
		Phase:  phase,
		Draft:  datatypes.JSON(`["momentum","mean_reversion","volume_flow"]`),
	}
}

func TestValidateAdvance_NonOwnerUnauthorized(t *testing.T) {
	sm := &StateMachine{}
	err := sm.ValidateAdvance(draftedMatch(models.PhaseDraft), "intruder", models.PhaseAnalysis, Facts{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v want ErrUnauthorized", err)
	}
}

func TestValidateAdvance_NoSkipping(t *testing.T) {
	sm := &StateMachine{}
	err := sm.ValidateAdvance(draftedMatch(models.PhaseDraft), "owner-1", models.PhaseBattle, Facts{})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("DRAFT->BATTLE: err = %v want ErrInvalidTransition", err)
	}
}

func TestValidateAdvance_NoGoingBackward(t *testing.T) {
	sm := &StateMachine{}
	err := sm.ValidateAdvance(draftedMatch(models.PhaseBattle), "owner-1", models.PhaseDraft, Facts{})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("BATTLE->DRAFT: err = %v want ErrInvalidTransition", err)
	}
}

func TestValidateAdvance_DraftRequiredForAnalysis(t *testing.T) {
	sm := &StateMachine{}
	m := draftedMatch(models.PhaseDraft)
	m.Draft = nil
	err := sm.ValidateAdvance(m, "owner-1", models.PhaseAnalysis, Facts{})
	if !errors.Is(err, ErrPreconditionNotMet) {
		t.Fatalf("err = %v want ErrPreconditionNotMet", err)
	}
}

func TestValidateAdvance_OutputsRequiredForHypothesis(t *testing.T) {
	sm := &StateMachine{}
	m := draftedMatch(models.PhaseAnalysis)
	err := sm.ValidateAdvance(m, "owner-1", models.PhaseHypothesis, Facts{OutputCount: 0})
	if !errors.Is(err, ErrPreconditionNotMet) {
		t.Fatalf("err = %v want ErrPreconditionNotMet", err)
	}
	if err := sm.ValidateAdvance(m, "owner-1", models.PhaseHypothesis, Facts{OutputCount: 3}); err != nil {
		t.Fatalf("with outputs: %v", err)
	}
}

func TestValidateAdvance_HypothesisRequiredForBattle(t *testing.T) {
	sm := &StateMachine{}
	m := draftedMatch(models.PhaseHypothesis)
	err := sm.ValidateAdvance(m, "owner-1", models.PhaseBattle, Facts{OutputCount: 3})
	if !errors.Is(err, ErrPreconditionNotMet) {
		t.Fatalf("err = %v want ErrPreconditionNotMet", err)
	}
	m.Hypothesis = datatypes.JSON(`{"direction":"LONG","confidence":70}`)
	if err := sm.ValidateAdvance(m, "owner-1", models.PhaseBattle, Facts{OutputCount: 3}); err != nil {
		t.Fatalf("with hypothesis: %v", err)
	}
}

func TestValidateAdvance_ResultNeedsWindowsOrExitPrice(t *testing.T) {
	sm := &StateMachine{}
	m := draftedMatch(models.PhaseBattle)
	m.Hypothesis = datatypes.JSON(`{"direction":"LONG"}`)

	err := sm.ValidateAdvance(m, "owner-1", models.PhaseResult, Facts{WindowCount: 3, WindowTotal: 8})
	if !errors.Is(err, ErrPreconditionNotMet) {
		t.Fatalf("partial windows: err = %v want ErrPreconditionNotMet", err)
	}
	if err := sm.ValidateAdvance(m, "owner-1", models.PhaseResult, Facts{WindowCount: 8, WindowTotal: 8}); err != nil {
		t.Fatalf("all windows consumed: %v", err)
	}
	if err := sm.ValidateAdvance(m, "owner-1", models.PhaseResult, Facts{WindowCount: 2, WindowTotal: 8, HasExitPrice: true}); err != nil {
		t.Fatalf("early resolve with exit price: %v", err)
	}
}

func TestMetaFor_DeadlinesAndActions(t *testing.T) {
	sm := &StateMachine{Budgets: Budgets{Battle: 4 * time.Minute}}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	meta := sm.MetaFor(models.PhaseBattle, now)
	if meta.ExpiresAt == nil || !meta.ExpiresAt.Equal(now.Add(4*time.Minute)) {
		t.Fatalf("battle expiry = %v", meta.ExpiresAt)
	}
	if len(meta.AllowedActions) == 0 || meta.AllowedActions[0] != "submit_window" {
		t.Fatalf("battle actions = %v", meta.AllowedActions)
	}

	terminal := sm.MetaFor(models.PhaseResult, now)
	if terminal.ExpiresAt != nil {
		t.Fatalf("RESULT is terminal, expiry = %v", terminal.ExpiresAt)
	}
	if len(terminal.AllowedActions) != 0 {
		t.Fatalf("RESULT actions = %v", terminal.AllowedActions)
	}
}

func TestNextPhase_Order(t *testing.T) {
	steps := map[string]string{
		models.PhaseDraft:      models.PhaseAnalysis,
		models.PhaseAnalysis:   models.PhaseHypothesis,
		models.PhaseHypothesis: models.PhaseBattle,
		models.PhaseBattle:     models.PhaseResult,
	}
	for from, want := range steps {
		got, ok := NextPhase(from)
		if !ok || got != want {
			t.Fatalf("NextPhase(%s) = %s,%v want %s", from, got, ok, want)
		}
	}
	if _, ok := NextPhase(models.PhaseResult); ok {
		t.Fatalf("RESULT must be terminal")
	}
}
