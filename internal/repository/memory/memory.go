// Package memrepository is an in-memory Repository used by tests and by
// local runs without Postgres. It enforces the same uniqueness rules the
// SQL schema does and returns the same sentinel errors.
package memrepository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tradearena/internal/models"
	"tradearena/internal/repository"
)

type Store struct {
	mu sync.RWMutex

	matches  map[string]models.Match
	outputs  map[string][]models.AgentOutput
	windows  map[string][]models.DecisionWindow
	sessions map[string]models.LiveSession
	rounds   map[string][]models.WarRoomRound

	// Unavailable makes every call fail with ErrUnavailable, for testing
	// degraded-storage paths.
	Unavailable bool
}

func New() *Store {
	return &Store{
		matches:  map[string]models.Match{},
		outputs:  map[string][]models.AgentOutput{},
		windows:  map[string][]models.DecisionWindow{},
		sessions: map[string]models.LiveSession{},
		rounds:   map[string][]models.WarRoomRound{},
	}
}

func (s *Store) down() bool { return s == nil || s.Unavailable }

func (s *Store) CreateMatch(_ context.Context, item *models.Match) error {
	if s.down() {
		return repository.ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[item.ID]; ok {
		return fmt.Errorf("%w: match %s", repository.ErrDuplicate, item.ID)
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	item.UpdatedAt = item.CreatedAt
	s.matches[item.ID] = *item
	return nil
}

func (s *Store) GetMatch(_ context.Context, id string) (*models.Match, error) {
	if s.down() {
		return nil, repository.ErrUnavailable
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, fmt.Errorf("%w: match %s", repository.ErrNotFound, id)
	}
	return &m, nil
}

func (s *Store) ListMatches(_ context.Context, params repository.ListMatchesParams) ([]models.Match, error) {
	if s.down() {
		return nil, repository.ErrUnavailable
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []models.Match
	for _, m := range s.matches {
		if params.UserID != "" && m.UserID != params.UserID {
			continue
		}
		if params.Phase != "" && m.Phase != params.Phase {
			continue
		}
		items = append(items, m)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	if params.Offset > 0 {
		if params.Offset >= len(items) {
			return nil, nil
		}
		items = items[params.Offset:]
	}
	if params.Limit > 0 && len(items) > params.Limit {
		items = items[:params.Limit]
	}
	return items, nil
}

func (s *Store) SaveDraft(_ context.Context, id string, draft []byte) error {
	return s.mutateMatch(id, func(m *models.Match) { m.Draft = draft })
}

func (s *Store) SaveHypothesis(_ context.Context, id string, hypothesis []byte) error {
	return s.mutateMatch(id, func(m *models.Match) { m.Hypothesis = hypothesis })
}

func (s *Store) UpdateMatchPhase(_ context.Context, id string, update repository.PhaseUpdate) error {
	return s.mutateMatch(id, func(m *models.Match) {
		m.Phase = update.Phase
		m.PhaseExpiresAt = update.PhaseExpiresAt
		if update.EntryPrice != nil {
			m.EntryPrice = *update.EntryPrice
		}
		if update.Regime != "" {
			m.Regime = update.Regime
		}
	})
}

func (s *Store) SaveResult(_ context.Context, id string, result []byte) error {
	return s.mutateMatch(id, func(m *models.Match) { m.Result = result })
}

func (s *Store) ListExpiredPhases(_ context.Context, now time.Time, limit int) ([]models.Match, error) {
	if s.down() {
		return nil, repository.ErrUnavailable
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []models.Match
	for _, m := range s.matches {
		if m.Phase == models.PhaseResult || m.PhaseExpiresAt == nil {
			continue
		}
		if m.PhaseExpiresAt.Before(now) {
			items = append(items, m)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].PhaseExpiresAt.Before(*items[j].PhaseExpiresAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) mutateMatch(id string, fn func(*models.Match)) error {
	if s.down() {
		return repository.ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return fmt.Errorf("%w: match %s", repository.ErrNotFound, id)
	}
	fn(&m)
	m.UpdatedAt = time.Now().UTC()
	s.matches[id] = m
	return nil
}

func (s *Store) SaveAgentOutputs(_ context.Context, items []models.AgentOutput) error {
	if s.down() {
		return repository.ErrUnavailable
	}
	if len(items) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.outputs[item.MatchID] = append(s.outputs[item.MatchID], item)
	}
	return nil
}

func (s *Store) ListAgentOutputs(_ context.Context, matchID string) ([]models.AgentOutput, error) {
	if s.down() {
		return nil, repository.ErrUnavailable
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := append([]models.AgentOutput(nil), s.outputs[matchID]...)
	sort.Slice(items, func(i, j int) bool { return items[i].Slot < items[j].Slot })
	return items, nil
}

func (s *Store) InsertDecisionWindow(_ context.Context, item *models.DecisionWindow) error {
	if s.down() {
		return repository.ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.windows[item.MatchID] {
		if w.WindowIndex == item.WindowIndex {
			return fmt.Errorf("%w: window %d of match %s", repository.ErrDuplicate, item.WindowIndex, item.MatchID)
		}
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.windows[item.MatchID] = append(s.windows[item.MatchID], *item)
	return nil
}

func (s *Store) ListDecisionWindows(_ context.Context, matchID string) ([]models.DecisionWindow, error) {
	if s.down() {
		return nil, repository.ErrUnavailable
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := append([]models.DecisionWindow(nil), s.windows[matchID]...)
	sort.Slice(items, func(i, j int) bool { return items[i].WindowIndex < items[j].WindowIndex })
	return items, nil
}

func (s *Store) CreateLiveSession(_ context.Context, item *models.LiveSession) error {
	if s.down() {
		return repository.ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.MatchID == item.MatchID && existing.Open {
			return fmt.Errorf("%w: open session for match %s", repository.ErrDuplicate, item.MatchID)
		}
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.sessions[item.ID] = *item
	return nil
}

func (s *Store) GetOpenLiveSessionByMatch(_ context.Context, matchID string) (*models.LiveSession, error) {
	if s.down() {
		return nil, repository.ErrUnavailable
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if session.MatchID == matchID && session.Open {
			out := session
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: no open session for match %s", repository.ErrNotFound, matchID)
}

func (s *Store) CloseLiveSession(_ context.Context, id string, closedAt time.Time) error {
	if s.down() {
		return repository.ErrUnavailable
	}
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok || !session.Open {
		return fmt.Errorf("%w: live session %s", repository.ErrNotFound, id)
	}
	session.Open = false
	session.ClosedAt = &closedAt
	s.sessions[id] = session
	return nil
}

func (s *Store) ListOpenLiveSessions(_ context.Context) ([]models.LiveSession, error) {
	if s.down() {
		return nil, repository.ErrUnavailable
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []models.LiveSession
	for _, session := range s.sessions {
		if session.Open {
			items = append(items, session)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (s *Store) InsertWarRoomRound(_ context.Context, item *models.WarRoomRound) error {
	if s.down() {
		return repository.ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rounds[item.MatchID] {
		if r.Round == item.Round {
			return fmt.Errorf("%w: round %d of match %s", repository.ErrDuplicate, item.Round, item.MatchID)
		}
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.rounds[item.MatchID] = append(s.rounds[item.MatchID], *item)
	return nil
}

func (s *Store) ListWarRoomRounds(_ context.Context, matchID string) ([]models.WarRoomRound, error) {
	if s.down() {
		return nil, repository.ErrUnavailable
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := append([]models.WarRoomRound(nil), s.rounds[matchID]...)
	sort.Slice(items, func(i, j int) bool { return items[i].Round < items[j].Round })
	return items, nil
}

var _ repository.Repository = (*Store)(nil)
