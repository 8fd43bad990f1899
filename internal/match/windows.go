package match

import (
	"fmt"

	"tradearena/internal/models"
)

// DefaultWindowCount is the fixed number of decision windows per match.
const DefaultWindowCount = 8

// WindowTracker validates timed BUY/SELL/HOLD submissions against the fixed
// window count. The (matchID, windowIndex) pair is an at-most-once write;
// the unique index in storage backs the same rule up under races.
type WindowTracker struct {
	Total int
}

func (t *WindowTracker) total() int {
	if t == nil || t.Total <= 0 {
		return DefaultWindowCount
	}
	return t.Total
}

// Validate checks a window submission against the match state and the
// already-recorded windows. It does not write anything.
func (t *WindowTracker) Validate(m *models.Match, requesterID string, index int, action string, recorded []models.DecisionWindow) error {
	if m == nil {
		return ErrMatchNotFound
	}
	if m.UserID != requesterID {
		return fmt.Errorf("%w: requester %s does not own match %s", ErrUnauthorized, requesterID, m.ID)
	}
	if index < 1 || index > t.total() {
		return fmt.Errorf("%w: index %d not in [1, %d]", ErrOutOfRange, index, t.total())
	}
	if m.Phase != models.PhaseBattle {
		return fmt.Errorf("%w: windows are only accepted in BATTLE, match is in %s", ErrPhaseViolation, m.Phase)
	}
	switch action {
	case models.ActionBuy, models.ActionSell, models.ActionHold:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrPhaseViolation, action)
	}
	for _, w := range recorded {
		if w.WindowIndex == index {
			return fmt.Errorf("%w: index %d already recorded", ErrDuplicateWindow, index)
		}
	}
	return nil
}

// Remaining returns how many windows are still open.
func (t *WindowTracker) Remaining(recorded []models.DecisionWindow) int {
	left := t.total() - len(recorded)
	if left < 0 {
		return 0
	}
	return left
}

// Complete reports whether every window has been consumed.
func (t *WindowTracker) Complete(recorded []models.DecisionWindow) bool {
	return len(recorded) >= t.total()
}
