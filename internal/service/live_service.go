package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tradearena/internal/live"
	"tradearena/internal/match"
	"tradearena/internal/models"
	"tradearena/internal/repository"
)

// LiveService pairs the in-process live.Manager with the persisted
// live_sessions rows so sessions survive in listings even after the
// process that hosted them is gone.
type LiveService struct {
	Repo   repository.Repository
	Live   *live.Manager
	Logger *zap.Logger
}

// CreateSession opens a live session for a RESULT-free match owned by the
// requester. The in-process registry is authoritative for fan-out; the row
// is the durable record.
func (s *LiveService) CreateSession(ctx context.Context, userID, matchID string) (live.Session, error) {
	m, err := s.Repo.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return live.Session{}, fmt.Errorf("%w: %s", match.ErrMatchNotFound, matchID)
		}
		return live.Session{}, err
	}
	if m.UserID != userID {
		return live.Session{}, fmt.Errorf("%w: requester %s does not own match %s", match.ErrUnauthorized, userID, matchID)
	}
	if m.Phase == models.PhaseResult {
		return live.Session{}, fmt.Errorf("%w: match %s is already resolved", match.ErrPhaseViolation, matchID)
	}

	session, err := s.Live.CreateSession(matchID, userID, m.Pair)
	if err != nil {
		return live.Session{}, err
	}
	row := &models.LiveSession{
		ID:      session.ID,
		MatchID: matchID,
		OwnerID: userID,
		Pair:    m.Pair,
		Open:    true,
	}
	if err := s.Repo.CreateLiveSession(ctx, row); err != nil {
		s.Live.CloseSession(session.ID)
		if errors.Is(err, repository.ErrDuplicate) {
			return live.Session{}, fmt.Errorf("%w: match %s", match.ErrSessionExists, matchID)
		}
		return live.Session{}, err
	}
	return session, nil
}

// SessionInfo is a session plus its current spectator count.
type SessionInfo struct {
	live.Session
	Spectators int `json:"spectators"`
}

// Info returns the session's public view.
func (s *LiveService) Info(sessionID string) (SessionInfo, error) {
	session, ok := s.Live.Lookup(sessionID)
	if !ok {
		return SessionInfo{}, fmt.Errorf("%w: %s", match.ErrSessionNotFound, sessionID)
	}
	return SessionInfo{Session: session, Spectators: s.Live.SpectatorCount(sessionID)}, nil
}

// CloseSession is the owner's explicit shutdown.
func (s *LiveService) CloseSession(ctx context.Context, userID, sessionID string) error {
	session, ok := s.Live.Lookup(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", match.ErrSessionNotFound, sessionID)
	}
	if session.OwnerID != userID {
		return fmt.Errorf("%w: requester %s does not own session %s", match.ErrUnauthorized, userID, sessionID)
	}
	s.Live.CloseSession(sessionID)
	if err := s.Repo.CloseLiveSession(ctx, sessionID, time.Now().UTC()); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// React validates and broadcasts a spectator reaction.
func (s *LiveService) React(sessionID, viewerID, reaction string) error {
	if !live.ReactionAllowed(reaction) {
		return fmt.Errorf("%w: reaction %q", ErrInvalidInput, reaction)
	}
	return s.Live.StoreReaction(sessionID, viewerID, reaction)
}

// CloseStale closes persisted-open sessions that have no in-process
// registration. The registry is empty after a restart, so any open row left
// by a previous process is unreachable for fan-out and must not block new
// sessions for its match. Run at startup; returns how many were closed.
func (s *LiveService) CloseStale(ctx context.Context) int {
	rows, err := s.Repo.ListOpenLiveSessions(ctx)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("stale session sweep failed", zap.Error(err))
		}
		return 0
	}
	closed := 0
	for _, row := range rows {
		if _, ok := s.Live.Lookup(row.ID); ok {
			continue
		}
		if err := s.Repo.CloseLiveSession(ctx, row.ID, time.Now().UTC()); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("failed to close stale session",
					zap.String("session_id", row.ID),
					zap.Error(err),
				)
			}
			continue
		}
		closed++
	}
	if closed > 0 && s.Logger != nil {
		s.Logger.Info("closed stale live sessions", zap.Int("closed", closed))
	}
	return closed
}

// GC collects closed in-process sessions. Wired to the cron runner.
func (s *LiveService) GC() {
	if n := s.Live.GC(); n > 0 && s.Logger != nil {
		s.Logger.Info("live session gc", zap.Int("collected", n))
	}
}
