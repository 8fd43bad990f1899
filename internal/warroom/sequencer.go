// Package warroom produces the three-round spectator debate for a match.
// Rounds are strictly sequential per match: round k is generated only after
// rounds 1..k-1 exist, and each round is generated exactly once.
package warroom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tradearena/internal/match"
	"tradearena/internal/models"
	"tradearena/internal/repository"
)

// TotalRounds is the fixed length of a war room debate.
const TotalRounds = 3

// Interaction kinds spectators can contribute to a round.
const (
	InteractionQuestion = "question"
	InteractionReaction = "reaction"
)

// UserInteraction is one spectator contribution threaded into a debate
// round: a question for the agents, or a bare reaction.
type UserInteraction struct {
	ViewerID string `json:"viewer_id"`
	Kind     string `json:"kind"`
	Text     string `json:"text,omitempty"`
}

// TextGenerator renders one debate round from the match's agent outputs,
// the rounds already produced, and the spectator interactions gathered for
// this round. Implementations must be side-effect free; the sequencer calls
// it exactly once per successful round.
type TextGenerator interface {
	GenerateRound(ctx context.Context, round int, outputs []models.AgentOutput, previous []models.WarRoomRound, interactions []UserInteraction) ([]byte, error)
}

type Sequencer struct {
	Repo   repository.Repository
	Gen    TextGenerator
	Logger *zap.Logger
}

// Run generates and persists the requested round. The round number must be
// exactly the next one in sequence; anything else fails with
// ErrOutOfSequence without invoking the generator. Interactions are stored
// with the round, so later rounds see them through previous.
func (s *Sequencer) Run(ctx context.Context, m *models.Match, requesterID string, round int, interactions []UserInteraction) (*models.WarRoomRound, error) {
	if s == nil || s.Repo == nil || s.Gen == nil {
		return nil, errors.New("warroom: sequencer not configured")
	}
	if m == nil {
		return nil, match.ErrMatchNotFound
	}
	if m.UserID != requesterID {
		return nil, fmt.Errorf("%w: requester %s does not own match %s", match.ErrUnauthorized, requesterID, m.ID)
	}
	if round < 1 || round > TotalRounds {
		return nil, fmt.Errorf("%w: round %d not in [1, %d]", match.ErrOutOfSequence, round, TotalRounds)
	}

	outputs, err := s.Repo.ListAgentOutputs(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("%w: match %s has no agent outputs", match.ErrPreconditionNotMet, m.ID)
	}

	previous, err := s.Repo.ListWarRoomRounds(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	if round != len(previous)+1 {
		return nil, fmt.Errorf("%w: next round for match %s is %d, got %d", match.ErrOutOfSequence, m.ID, len(previous)+1, round)
	}

	content, err := s.Gen.GenerateRound(ctx, round, outputs, previous, interactions)
	if err != nil {
		return nil, fmt.Errorf("generate round %d: %w", round, err)
	}

	item := &models.WarRoomRound{
		MatchID: m.ID,
		Round:   round,
		Content: content,
	}
	if len(interactions) > 0 {
		raw, err := json.Marshal(interactions)
		if err != nil {
			return nil, fmt.Errorf("encode interactions: %w", err)
		}
		item.Interactions = raw
	}
	if err := s.Repo.InsertWarRoomRound(ctx, item); err != nil {
		// A concurrent request won the same round.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: round %d already generated", match.ErrOutOfSequence, round)
		}
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("war room round generated",
			zap.String("match_id", m.ID),
			zap.Int("round", round),
		)
	}
	return item, nil
}

// Rounds returns the rounds generated so far, in order.
func (s *Sequencer) Rounds(ctx context.Context, matchID string) ([]models.WarRoomRound, error) {
	if s == nil || s.Repo == nil {
		return nil, errors.New("warroom: sequencer not configured")
	}
	return s.Repo.ListWarRoomRounds(ctx, matchID)
}
