package gormrepository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"gorm.io/gorm"

	"tradearena/internal/models"
	"tradearena/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// wrap maps gorm and driver failures onto the repository sentinels.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", repository.ErrNotFound, err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	msg := err.Error()
	// Postgres unique_violation surfaces as SQLSTATE 23505 through the driver.
	if strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key") {
		return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
	}
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return err
}

// --- Matches ----------------------------------------------------------------

func (s *Store) CreateMatch(ctx context.Context, item *models.Match) error {
	if s == nil || s.db == nil || item == nil {
		return repository.ErrUnavailable
	}
	return wrap(s.db.WithContext(ctx).Create(item).Error)
}

func (s *Store) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	if s == nil || s.db == nil {
		return nil, repository.ErrUnavailable
	}
	var item models.Match
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, wrap(err)
	}
	return &item, nil
}

func (s *Store) ListMatches(ctx context.Context, params repository.ListMatchesParams) ([]models.Match, error) {
	if s == nil || s.db == nil {
		return nil, repository.ErrUnavailable
	}
	query := s.db.WithContext(ctx).Model(&models.Match{})
	if strings.TrimSpace(params.UserID) != "" {
		query = query.Where("user_id = ?", strings.TrimSpace(params.UserID))
	}
	if strings.TrimSpace(params.Phase) != "" {
		query = query.Where("phase = ?", strings.TrimSpace(params.Phase))
	}
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Match
	err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error
	if err != nil {
		return nil, wrap(err)
	}
	return items, nil
}

func (s *Store) SaveDraft(ctx context.Context, id string, draft []byte) error {
	return s.updateMatch(ctx, id, map[string]any{"draft": draft})
}

func (s *Store) SaveHypothesis(ctx context.Context, id string, hypothesis []byte) error {
	return s.updateMatch(ctx, id, map[string]any{"hypothesis": hypothesis})
}

func (s *Store) UpdateMatchPhase(ctx context.Context, id string, update repository.PhaseUpdate) error {
	values := map[string]any{
		"phase":            update.Phase,
		"phase_expires_at": update.PhaseExpiresAt,
	}
	if update.EntryPrice != nil {
		values["entry_price"] = *update.EntryPrice
	}
	if update.Regime != "" {
		values["regime"] = update.Regime
	}
	return s.updateMatch(ctx, id, values)
}

func (s *Store) SaveResult(ctx context.Context, id string, result []byte) error {
	return s.updateMatch(ctx, id, map[string]any{"result": result})
}

func (s *Store) ListExpiredPhases(ctx context.Context, now time.Time, limit int) ([]models.Match, error) {
	if s == nil || s.db == nil {
		return nil, repository.ErrUnavailable
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	limit = normalizeLimit(limit, 100)
	var items []models.Match
	err := s.db.WithContext(ctx).
		Model(&models.Match{}).
		Where("phase <> ?", models.PhaseResult).
		Where("phase_expires_at IS NOT NULL").
		Where("phase_expires_at < ?", now).
		Order("phase_expires_at asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, wrap(err)
	}
	return items, nil
}

func (s *Store) updateMatch(ctx context.Context, id string, values map[string]any) error {
	if s == nil || s.db == nil {
		return repository.ErrUnavailable
	}
	res := s.db.WithContext(ctx).Model(&models.Match{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: match %s", repository.ErrNotFound, id)
	}
	return nil
}

// --- Agent outputs ----------------------------------------------------------

func (s *Store) SaveAgentOutputs(ctx context.Context, items []models.AgentOutput) error {
	if s == nil || s.db == nil {
		return repository.ErrUnavailable
	}
	if len(items) == 0 {
		return nil
	}
	return wrap(s.db.WithContext(ctx).Create(&items).Error)
}

func (s *Store) ListAgentOutputs(ctx context.Context, matchID string) ([]models.AgentOutput, error) {
	if s == nil || s.db == nil {
		return nil, repository.ErrUnavailable
	}
	var items []models.AgentOutput
	err := s.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("slot asc").
		Find(&items).Error
	if err != nil {
		return nil, wrap(err)
	}
	return items, nil
}

// --- Decision windows -------------------------------------------------------

func (s *Store) InsertDecisionWindow(ctx context.Context, item *models.DecisionWindow) error {
	if s == nil || s.db == nil || item == nil {
		return repository.ErrUnavailable
	}
	return wrap(s.db.WithContext(ctx).Create(item).Error)
}

func (s *Store) ListDecisionWindows(ctx context.Context, matchID string) ([]models.DecisionWindow, error) {
	if s == nil || s.db == nil {
		return nil, repository.ErrUnavailable
	}
	var items []models.DecisionWindow
	err := s.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("window_index asc").
		Find(&items).Error
	if err != nil {
		return nil, wrap(err)
	}
	return items, nil
}

// --- Live sessions ----------------------------------------------------------

func (s *Store) CreateLiveSession(ctx context.Context, item *models.LiveSession) error {
	if s == nil || s.db == nil || item == nil {
		return repository.ErrUnavailable
	}
	return wrap(s.db.WithContext(ctx).Create(item).Error)
}

func (s *Store) GetOpenLiveSessionByMatch(ctx context.Context, matchID string) (*models.LiveSession, error) {
	if s == nil || s.db == nil {
		return nil, repository.ErrUnavailable
	}
	var item models.LiveSession
	err := s.db.WithContext(ctx).
		Where("match_id = ? AND open = ?", matchID, true).
		Order("created_at desc").
		First(&item).Error
	if err != nil {
		return nil, wrap(err)
	}
	return &item, nil
}

func (s *Store) CloseLiveSession(ctx context.Context, id string, closedAt time.Time) error {
	if s == nil || s.db == nil {
		return repository.ErrUnavailable
	}
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}
	res := s.db.WithContext(ctx).
		Model(&models.LiveSession{}).
		Where("id = ? AND open = ?", id, true).
		Updates(map[string]any{"open": false, "closed_at": closedAt})
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: live session %s", repository.ErrNotFound, id)
	}
	return nil
}

func (s *Store) ListOpenLiveSessions(ctx context.Context) ([]models.LiveSession, error) {
	if s == nil || s.db == nil {
		return nil, repository.ErrUnavailable
	}
	var items []models.LiveSession
	err := s.db.WithContext(ctx).
		Where("open = ?", true).
		Order("created_at asc").
		Find(&items).Error
	if err != nil {
		return nil, wrap(err)
	}
	return items, nil
}

// --- War room rounds --------------------------------------------------------

func (s *Store) InsertWarRoomRound(ctx context.Context, item *models.WarRoomRound) error {
	if s == nil || s.db == nil || item == nil {
		return repository.ErrUnavailable
	}
	return wrap(s.db.WithContext(ctx).Create(item).Error)
}

func (s *Store) ListWarRoomRounds(ctx context.Context, matchID string) ([]models.WarRoomRound, error) {
	if s == nil || s.db == nil {
		return nil, repository.ErrUnavailable
	}
	var items []models.WarRoomRound
	err := s.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("round asc").
		Find(&items).Error
	if err != nil {
		return nil, wrap(err)
	}
	return items, nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

var _ repository.Repository = (*Store)(nil)
