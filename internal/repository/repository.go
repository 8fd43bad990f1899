package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tradearena/internal/models"
)

// Repository is the persistence boundary of the arena. Implementations map
// their backend's failures onto the sentinel errors in errors.go so callers
// can branch with errors.Is.
type Repository interface {
	// Matches.
	CreateMatch(ctx context.Context, item *models.Match) error
	GetMatch(ctx context.Context, id string) (*models.Match, error)
	ListMatches(ctx context.Context, params ListMatchesParams) ([]models.Match, error)
	SaveDraft(ctx context.Context, id string, draft []byte) error
	SaveHypothesis(ctx context.Context, id string, hypothesis []byte) error
	// UpdateMatchPhase persists a phase change with its analysis side
	// effects in one write.
	UpdateMatchPhase(ctx context.Context, id string, update PhaseUpdate) error
	SaveResult(ctx context.Context, id string, result []byte) error
	ListExpiredPhases(ctx context.Context, now time.Time, limit int) ([]models.Match, error)

	// Agent outputs.
	SaveAgentOutputs(ctx context.Context, items []models.AgentOutput) error
	ListAgentOutputs(ctx context.Context, matchID string) ([]models.AgentOutput, error)

	// Decision windows.
	InsertDecisionWindow(ctx context.Context, item *models.DecisionWindow) error
	ListDecisionWindows(ctx context.Context, matchID string) ([]models.DecisionWindow, error)

	// Live sessions.
	CreateLiveSession(ctx context.Context, item *models.LiveSession) error
	GetOpenLiveSessionByMatch(ctx context.Context, matchID string) (*models.LiveSession, error)
	CloseLiveSession(ctx context.Context, id string, closedAt time.Time) error
	ListOpenLiveSessions(ctx context.Context) ([]models.LiveSession, error)

	// War room rounds.
	InsertWarRoomRound(ctx context.Context, item *models.WarRoomRound) error
	ListWarRoomRounds(ctx context.Context, matchID string) ([]models.WarRoomRound, error)
}

// PhaseUpdate carries everything a single phase transition writes. Phase
// and PhaseExpiresAt are always written; a nil PhaseExpiresAt clears the
// deadline. EntryPrice and Regime are written only when set.
type PhaseUpdate struct {
	Phase          string
	PhaseExpiresAt *time.Time
	EntryPrice     *decimal.Decimal
	Regime         string
}

type ListMatchesParams struct {
	UserID string
	Phase  string
	Limit  int
	Offset int
}
