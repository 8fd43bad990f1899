package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tradearena/internal/live"
	"tradearena/internal/match"
	"tradearena/internal/models"
	"tradearena/internal/repository"
	"tradearena/internal/warroom"
)

// WarRoomService drives the spectator debate rounds and pushes each
// generated round onto the match's live session.
type WarRoomService struct {
	Repo   repository.Repository
	Seq    *warroom.Sequencer
	Live   *live.Manager
	Logger *zap.Logger
}

// GenerateRound produces the next debate round for the match, folding the
// spectator interactions gathered since the last round into the script.
func (s *WarRoomService) GenerateRound(ctx context.Context, userID, matchID string, round int, interactions []warroom.UserInteraction) (*models.WarRoomRound, error) {
	m, err := s.Repo.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", match.ErrMatchNotFound, matchID)
		}
		return nil, err
	}
	item, err := s.Seq.Run(ctx, m, userID, round, interactions)
	if err != nil {
		return nil, err
	}
	if s.Live != nil {
		s.Live.BroadcastToMatch(matchID, live.Event{
			Type: live.EventWarRoomRound,
			Payload: map[string]any{
				"round":   item.Round,
				"content": item.Content,
			},
		})
	}
	return item, nil
}

// Rounds lists the debate rounds generated so far.
func (s *WarRoomService) Rounds(ctx context.Context, matchID string) ([]models.WarRoomRound, error) {
	return s.Seq.Rounds(ctx, matchID)
}
