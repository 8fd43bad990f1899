package match

import (
	"errors"
	"testing"

	"tradearena/internal/models"
)

func battleMatch() *models.Match {
	m := draftedMatch(models.PhaseBattle)
	return m
}

func TestWindowValidate_OutOfRange(t *testing.T) {
	tr := &WindowTracker{Total: 8}
	err := tr.Validate(battleMatch(), "owner-1", 9, models.ActionBuy, nil)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("index 9 of 8: err = %v want ErrOutOfRange", err)
	}
	if err := tr.Validate(battleMatch(), "owner-1", 0, models.ActionBuy, nil); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("index 0: err = %v want ErrOutOfRange", err)
	}
}

func TestWindowValidate_PhaseViolation(t *testing.T) {
	tr := &WindowTracker{}
	err := tr.Validate(draftedMatch(models.PhaseHypothesis), "owner-1", 1, models.ActionBuy, nil)
	if !errors.Is(err, ErrPhaseViolation) {
		t.Fatalf("err = %v want ErrPhaseViolation", err)
	}
}

func TestWindowValidate_Duplicate(t *testing.T) {
	tr := &WindowTracker{}
	recorded := []models.DecisionWindow{{WindowIndex: 3}}
	err := tr.Validate(battleMatch(), "owner-1", 3, models.ActionHold, recorded)
	if !errors.Is(err, ErrDuplicateWindow) {
		t.Fatalf("err = %v want ErrDuplicateWindow", err)
	}
}

func TestWindowValidate_NonOwner(t *testing.T) {
	tr := &WindowTracker{}
	err := tr.Validate(battleMatch(), "intruder", 1, models.ActionSell, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v want ErrUnauthorized", err)
	}
}

func TestWindowValidate_UnknownAction(t *testing.T) {
	tr := &WindowTracker{}
	err := tr.Validate(battleMatch(), "owner-1", 1, "YOLO", nil)
	if !errors.Is(err, ErrPhaseViolation) {
		t.Fatalf("err = %v want ErrPhaseViolation", err)
	}
}

func TestWindowRemainingAndComplete(t *testing.T) {
	tr := &WindowTracker{Total: 8}
	recorded := make([]models.DecisionWindow, 0, 8)
	for i := 1; i <= 8; i++ {
		if tr.Complete(recorded) {
			t.Fatalf("complete at %d windows", len(recorded))
		}
		recorded = append(recorded, models.DecisionWindow{WindowIndex: i})
		if got, want := tr.Remaining(recorded), 8-i; got != want {
			t.Fatalf("remaining after %d = %d want %d", i, got, want)
		}
	}
	if !tr.Complete(recorded) {
		t.Fatalf("8/8 windows should be complete")
	}
}
