package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradearena/internal/agents"
	"tradearena/internal/live"
	"tradearena/internal/market"
	"tradearena/internal/match"
	"tradearena/internal/models"
	"tradearena/internal/pipeline"
	"tradearena/internal/repository"
)

// ErrInvalidInput covers malformed request payloads: bad directions,
// confidence out of range, draft shape violations.
var ErrInvalidInput = errors.New("service: invalid input")

const (
	minDraftSize = 3
	maxDraftSize = 6

	// Realized moves inside this band (percent) count as flat.
	neutralBandPct = 0.05
)

// Hypothesis is the player's committed call before BATTLE.
type Hypothesis struct {
	Direction  string `json:"direction"`
	Confidence int    `json:"confidence"`
	ExitPreset string `json:"exit_preset,omitempty"`
}

var exitPresets = map[string]struct{}{
	"":             {},
	"conservative": {},
	"standard":     {},
	"aggressive":   {},
}

// Resolution is the final outcome written into the match. Composite
// scoring is produced downstream from the breakdown; only the direction
// component is computed here.
type Resolution struct {
	Winner            string          `json:"winner"`
	ExitPrice         decimal.Decimal `json:"exit_price"`
	RealizedChangePct float64         `json:"realized_change_pct"`
	DirectionHit      bool            `json:"direction_hit"`
	Hypothesis        Hypothesis      `json:"hypothesis"`
}

// Winner values.
const (
	WinnerPlayer = "PLAYER"
	WinnerMarket = "MARKET"
)

// MatchDetail is the read view of a match.
type MatchDetail struct {
	Match            *models.Match           `json:"match"`
	Meta             match.PhaseMeta         `json:"meta"`
	Outputs          []models.AgentOutput    `json:"outputs,omitempty"`
	Windows          []models.DecisionWindow `json:"windows,omitempty"`
	WindowsRemaining int                     `json:"windows_remaining"`
}

// AdvanceResult is what a successful phase transition returns. Pipeline
// and Exit are set only for the transition that runs the analysis.
type AdvanceResult struct {
	Match    *models.Match              `json:"match"`
	Meta     match.PhaseMeta            `json:"meta"`
	Pipeline *pipeline.Result           `json:"pipeline,omitempty"`
	Exit     *market.ExitRecommendation `json:"exit,omitempty"`
}

// MatchService orchestrates the match lifecycle. All writes to one match go
// through its per-match lock, so phase reads and their dependent writes are
// a single critical section.
type MatchService struct {
	Repo     repository.Repository
	Registry *agents.Registry
	Pipeline *pipeline.Runner
	Machine  *match.StateMachine
	Windows  *match.WindowTracker
	Guard    *match.Guard
	Live     *live.Manager
	Logger   *zap.Logger
}

// CreateMatch opens a match in DRAFT with its draft deadline armed.
func (s *MatchService) CreateMatch(ctx context.Context, userID, pair, timeframe string) (*models.Match, error) {
	if userID == "" || pair == "" || timeframe == "" {
		return nil, fmt.Errorf("%w: user, pair and timeframe are required", ErrInvalidInput)
	}
	meta := s.Machine.MetaFor(models.PhaseDraft, time.Now().UTC())
	m := &models.Match{
		ID:             newMatchID(),
		UserID:         userID,
		Pair:           pair,
		Timeframe:      timeframe,
		Phase:          models.PhaseDraft,
		PhaseExpiresAt: meta.ExpiresAt,
	}
	if err := s.Repo.CreateMatch(ctx, m); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("match created",
			zap.String("match_id", m.ID),
			zap.String("user_id", userID),
			zap.String("pair", pair),
		)
	}
	return m, nil
}

// GetMatch returns the match with its outputs, windows and phase meta.
// Matches are public reads; spectators use this too.
func (s *MatchService) GetMatch(ctx context.Context, id string) (*MatchDetail, error) {
	m, err := s.Repo.GetMatch(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", match.ErrMatchNotFound, id)
		}
		return nil, err
	}
	outputs, err := s.Repo.ListAgentOutputs(ctx, id)
	if err != nil {
		return nil, err
	}
	windows, err := s.Repo.ListDecisionWindows(ctx, id)
	if err != nil {
		return nil, err
	}
	meta := s.Machine.MetaFor(m.Phase, time.Now().UTC())
	meta.ExpiresAt = m.PhaseExpiresAt
	return &MatchDetail{
		Match:            m,
		Meta:             meta,
		Outputs:          outputs,
		Windows:          windows,
		WindowsRemaining: s.Windows.Remaining(windows),
	}, nil
}

// ListMatches returns a user's matches, newest first.
func (s *MatchService) ListMatches(ctx context.Context, params repository.ListMatchesParams) ([]models.Match, error) {
	return s.Repo.ListMatches(ctx, params)
}

// SubmitDraft stores the ordered agent roster for a DRAFT-phase match.
func (s *MatchService) SubmitDraft(ctx context.Context, userID, matchID string, agentIDs []string) (*models.Match, error) {
	if err := s.validateDraft(agentIDs); err != nil {
		return nil, err
	}
	unlock := s.Guard.Lock(matchID)
	defer unlock()

	m, err := s.ownedMatch(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}
	if m.Phase != models.PhaseDraft {
		return nil, fmt.Errorf("%w: draft submission in %s", match.ErrPhaseViolation, m.Phase)
	}
	raw, err := json.Marshal(agentIDs)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SaveDraft(ctx, matchID, raw); err != nil {
		return nil, err
	}
	m.Draft = raw
	return m, nil
}

func (s *MatchService) validateDraft(agentIDs []string) error {
	if len(agentIDs) < minDraftSize || len(agentIDs) > maxDraftSize {
		return fmt.Errorf("%w: draft needs %d to %d agents, got %d", ErrInvalidInput, minDraftSize, maxDraftSize, len(agentIDs))
	}
	seen := make(map[string]struct{}, len(agentIDs))
	for _, id := range agentIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: agent %q drafted twice", ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
		if _, ok := s.Registry.Get(id); !ok {
			return fmt.Errorf("%w: unknown agent %q", ErrInvalidInput, id)
		}
	}
	return nil
}

// Advance moves a match to the next phase. The DRAFT -> ANALYSIS transition
// runs the full pipeline against the provided snapshot and persists the
// agent outputs, entry price and regime before the phase flips; a crash in
// between leaves the match re-advanceable, never half-analyzed.
func (s *MatchService) Advance(ctx context.Context, userID, matchID, target string, snap *market.Snapshot) (*AdvanceResult, error) {
	unlock := s.Guard.Lock(matchID)
	defer unlock()

	m, err := s.ownedMatch(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}
	facts, err := s.gatherFacts(ctx, m, target, false)
	if err != nil {
		return nil, err
	}
	if err := s.Machine.ValidateAdvance(m, userID, target, facts); err != nil {
		return nil, err
	}

	if target == models.PhaseResult {
		if _, err := s.finalize(ctx, m, nil); err != nil {
			return nil, err
		}
		return &AdvanceResult{Match: m, Meta: s.Machine.MetaFor(models.PhaseResult, time.Now().UTC())}, nil
	}

	now := time.Now().UTC()
	meta := s.Machine.MetaFor(target, now)
	out := &AdvanceResult{Match: m, Meta: meta}
	update := repository.PhaseUpdate{Phase: target, PhaseExpiresAt: meta.ExpiresAt}

	if target == models.PhaseAnalysis {
		runRes, exit, entry, regime, err := s.runAnalysis(ctx, m, snap)
		if err != nil {
			return nil, err
		}
		update.EntryPrice = &entry
		update.Regime = regime
		out.Pipeline = runRes
		out.Exit = exit
	}

	if err := s.Repo.UpdateMatchPhase(ctx, matchID, update); err != nil {
		return nil, err
	}
	m.Phase = target
	m.PhaseExpiresAt = meta.ExpiresAt
	if update.EntryPrice != nil {
		m.EntryPrice = *update.EntryPrice
	}
	if update.Regime != "" {
		m.Regime = update.Regime
	}

	s.broadcastPhase(m, meta)
	if out.Pipeline != nil {
		s.broadcastAnalysis(m, out.Pipeline)
	}
	if s.Logger != nil {
		s.Logger.Info("match advanced",
			zap.String("match_id", m.ID),
			zap.String("phase", target),
		)
	}
	return out, nil
}

// runAnalysis evaluates the drafted agents and persists their outputs.
func (s *MatchService) runAnalysis(ctx context.Context, m *models.Match, snap *market.Snapshot) (*pipeline.Result, *market.ExitRecommendation, decimal.Decimal, string, error) {
	var zero decimal.Decimal
	if snap == nil || len(snap.Candles) == 0 {
		return nil, nil, zero, "", fmt.Errorf("%w: a market snapshot is required for analysis", match.ErrPreconditionNotMet)
	}
	draft := match.DecodeDraft(m)
	runRes, err := s.Pipeline.Run(ctx, draft, snap)
	if err != nil {
		return nil, nil, zero, "", err
	}

	regime := market.DetectRegime(snap.Closes())
	signals := make([]market.Signal, 0, len(runRes.Outputs))
	for _, o := range runRes.Outputs {
		signals = append(signals, o.Signal)
	}
	exit := market.ComputeExit(runRes.Consensus.Direction, runRes.Consensus.Confidence, snap, signals, regime)

	rows := make([]models.AgentOutput, 0, len(runRes.Outputs))
	for i, o := range runRes.Outputs {
		row := models.AgentOutput{
			MatchID:    m.ID,
			AgentID:    o.Signal.AgentID,
			Slot:       o.Slot,
			Direction:  o.Signal.Direction,
			Confidence: o.Signal.Confidence,
			Thesis:     o.Signal.Thesis,
			BullScore:  o.Signal.BullScore,
			BearScore:  o.Signal.BearScore,
		}
		if i < len(exit.PerAgent) {
			levels := exit.PerAgent[i].Levels
			row.TakeProfit = decimal.NewFromFloat(levels.TakeProfit)
			row.StopLoss = decimal.NewFromFloat(levels.StopLoss)
			if policy, err := json.Marshal(levels); err == nil {
				row.ExitPolicy = policy
			}
		}
		rows = append(rows, row)
	}
	if err := s.Repo.SaveAgentOutputs(ctx, rows); err != nil {
		return nil, nil, zero, "", err
	}
	entry := decimal.NewFromFloat(snap.LastPrice())
	return runRes, &exit, entry, regime, nil
}

// SubmitHypothesis commits the player's call during HYPOTHESIS.
func (s *MatchService) SubmitHypothesis(ctx context.Context, userID, matchID string, h Hypothesis) (*models.Match, error) {
	switch h.Direction {
	case market.DirectionLong, market.DirectionShort, market.DirectionNeutral:
	default:
		return nil, fmt.Errorf("%w: direction %q", ErrInvalidInput, h.Direction)
	}
	if h.Confidence < 0 || h.Confidence > 100 {
		return nil, fmt.Errorf("%w: confidence %d not in [0, 100]", ErrInvalidInput, h.Confidence)
	}
	if _, ok := exitPresets[h.ExitPreset]; !ok {
		return nil, fmt.Errorf("%w: exit preset %q", ErrInvalidInput, h.ExitPreset)
	}

	unlock := s.Guard.Lock(matchID)
	defer unlock()

	m, err := s.ownedMatch(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}
	if m.Phase != models.PhaseHypothesis {
		return nil, fmt.Errorf("%w: hypothesis submission in %s", match.ErrPhaseViolation, m.Phase)
	}
	raw, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SaveHypothesis(ctx, matchID, raw); err != nil {
		return nil, err
	}
	m.Hypothesis = raw
	return m, nil
}

// SubmitWindow records one timed BUY/SELL/HOLD action during BATTLE and
// returns how many windows remain.
func (s *MatchService) SubmitWindow(ctx context.Context, userID, matchID string, index int, action string, price decimal.Decimal) (int, error) {
	unlock := s.Guard.Lock(matchID)
	defer unlock()

	m, err := s.ownedMatch(ctx, matchID, userID)
	if err != nil {
		return 0, err
	}
	recorded, err := s.Repo.ListDecisionWindows(ctx, matchID)
	if err != nil {
		return 0, err
	}
	if err := s.Windows.Validate(m, userID, index, action, recorded); err != nil {
		return 0, err
	}

	item := &models.DecisionWindow{
		MatchID:     matchID,
		WindowIndex: index,
		Action:      action,
		Price:       price,
		DecidedAt:   time.Now().UTC(),
	}
	if err := s.Repo.InsertDecisionWindow(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return 0, fmt.Errorf("%w: index %d already recorded", match.ErrDuplicateWindow, index)
		}
		return 0, err
	}
	remaining := s.Windows.Remaining(append(recorded, *item))
	s.broadcast(matchID, live.Event{
		Type: live.EventDecisionWindow,
		Payload: map[string]any{
			"window_index": index,
			"action":       action,
			"price":        price.String(),
			"remaining":    remaining,
		},
	})
	return remaining, nil
}

// Resolve ends the match. With an exit price it is an early resolve; without
// one every decision window must have been consumed.
func (s *MatchService) Resolve(ctx context.Context, userID, matchID string, exitPrice *decimal.Decimal) (*Resolution, error) {
	unlock := s.Guard.Lock(matchID)
	defer unlock()

	m, err := s.ownedMatch(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}
	facts, err := s.gatherFacts(ctx, m, models.PhaseResult, exitPrice != nil)
	if err != nil {
		return nil, err
	}
	if err := s.Machine.ValidateAdvance(m, userID, models.PhaseResult, facts); err != nil {
		return nil, err
	}
	return s.finalize(ctx, m, exitPrice)
}

// finalize computes and persists the resolution and flips the match into
// RESULT. Callers must have validated the transition already.
func (s *MatchService) finalize(ctx context.Context, m *models.Match, exitPrice *decimal.Decimal) (*Resolution, error) {
	windows, err := s.Repo.ListDecisionWindows(ctx, m.ID)
	if err != nil {
		return nil, err
	}

	exit := m.EntryPrice
	if exitPrice != nil {
		exit = *exitPrice
	} else if len(windows) > 0 {
		exit = windows[len(windows)-1].Price
	}

	var h Hypothesis
	if len(m.Hypothesis) > 0 {
		_ = json.Unmarshal(m.Hypothesis, &h)
	}

	changePct := 0.0
	if m.EntryPrice.IsPositive() {
		changePct, _ = exit.Sub(m.EntryPrice).Div(m.EntryPrice).Mul(decimal.NewFromInt(100)).Float64()
	}
	realized := market.DirectionNeutral
	switch {
	case changePct > neutralBandPct:
		realized = market.DirectionLong
	case changePct < -neutralBandPct:
		realized = market.DirectionShort
	}
	hit := h.Direction == realized
	winner := WinnerMarket
	if hit {
		winner = WinnerPlayer
	}

	res := &Resolution{
		Winner:            winner,
		ExitPrice:         exit,
		RealizedChangePct: changePct,
		DirectionHit:      hit,
		Hypothesis:        h,
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SaveResult(ctx, m.ID, raw); err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateMatchPhase(ctx, m.ID, repository.PhaseUpdate{Phase: models.PhaseResult}); err != nil {
		return nil, err
	}
	m.Phase = models.PhaseResult
	m.PhaseExpiresAt = nil
	m.Result = raw

	s.broadcast(m.ID, live.Event{
		Type: live.EventMatchResult,
		Payload: map[string]any{
			"winner":              res.Winner,
			"exit_price":          res.ExitPrice.String(),
			"realized_change_pct": res.RealizedChangePct,
			"direction_hit":       res.DirectionHit,
		},
	})
	if s.Live != nil {
		s.Live.CloseSessionsForMatch(m.ID)
	}
	s.closeStoredSession(ctx, m.ID)

	if s.Logger != nil {
		s.Logger.Info("match resolved",
			zap.String("match_id", m.ID),
			zap.String("winner", res.Winner),
			zap.Float64("realized_change_pct", res.RealizedChangePct),
		)
	}
	return res, nil
}

func (s *MatchService) closeStoredSession(ctx context.Context, matchID string) {
	stored, err := s.Repo.GetOpenLiveSessionByMatch(ctx, matchID)
	if err != nil {
		return
	}
	if err := s.Repo.CloseLiveSession(ctx, stored.ID, time.Now().UTC()); err != nil && s.Logger != nil {
		s.Logger.Warn("failed to close stored live session",
			zap.String("session_id", stored.ID),
			zap.Error(err),
		)
	}
}

func (s *MatchService) gatherFacts(ctx context.Context, m *models.Match, target string, hasExitPrice bool) (match.Facts, error) {
	facts := match.Facts{WindowTotal: s.Windows.Total, HasExitPrice: hasExitPrice}
	if facts.WindowTotal <= 0 {
		facts.WindowTotal = match.DefaultWindowCount
	}
	switch target {
	case models.PhaseHypothesis:
		outputs, err := s.Repo.ListAgentOutputs(ctx, m.ID)
		if err != nil {
			return facts, err
		}
		facts.OutputCount = len(outputs)
	case models.PhaseResult:
		windows, err := s.Repo.ListDecisionWindows(ctx, m.ID)
		if err != nil {
			return facts, err
		}
		facts.WindowCount = len(windows)
	}
	return facts, nil
}

func (s *MatchService) ownedMatch(ctx context.Context, matchID, userID string) (*models.Match, error) {
	m, err := s.Repo.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", match.ErrMatchNotFound, matchID)
		}
		return nil, err
	}
	if m.UserID != userID {
		return nil, fmt.Errorf("%w: requester %s does not own match %s", match.ErrUnauthorized, userID, matchID)
	}
	return m, nil
}

func (s *MatchService) broadcastPhase(m *models.Match, meta match.PhaseMeta) {
	payload := map[string]any{
		"phase":           m.Phase,
		"allowed_actions": meta.AllowedActions,
	}
	if meta.ExpiresAt != nil {
		payload["expires_at"] = meta.ExpiresAt
	}
	s.broadcast(m.ID, live.Event{Type: live.EventPhaseChange, Payload: payload})
}

func (s *MatchService) broadcast(matchID string, ev live.Event) {
	if s.Live != nil {
		s.Live.BroadcastToMatch(matchID, ev)
	}
}

func newMatchID() string {
	return uuid.NewString()
}

// ExpireSweep notifies spectators of matches whose phase deadline has
// passed. Deadlines are advisory: the sweep nudges, it never forces a
// transition. Wired to the cron runner.
func (s *MatchService) ExpireSweep(ctx context.Context, now time.Time, limit int) int {
	expired, err := s.Repo.ListExpiredPhases(ctx, now, limit)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("expiry sweep failed", zap.Error(err))
		}
		return 0
	}
	for _, m := range expired {
		s.broadcast(m.ID, live.Event{
			Type: live.EventPhaseExpired,
			Payload: map[string]any{
				"phase":      m.Phase,
				"expired_at": m.PhaseExpiresAt,
			},
		})
	}
	if len(expired) > 0 && s.Logger != nil {
		s.Logger.Info("phase deadlines passed", zap.Int("matches", len(expired)))
	}
	return len(expired)
}

func (s *MatchService) broadcastAnalysis(m *models.Match, res *pipeline.Result) {
	for _, o := range res.Outputs {
		s.broadcast(m.ID, live.Event{
			Type: live.EventAgentOutput,
			Payload: map[string]any{
				"slot":       o.Slot,
				"agent_id":   o.Signal.AgentID,
				"direction":  o.Signal.Direction,
				"confidence": o.Signal.Confidence,
				"thesis":     o.Signal.Thesis,
			},
		})
	}
	s.broadcast(m.ID, live.Event{
		Type: live.EventConsensus,
		Payload: map[string]any{
			"direction":  res.Consensus.Direction,
			"confidence": res.Consensus.Confidence,
			"votes": map[string]int{
				"long":    res.Consensus.Votes.Long,
				"short":   res.Consensus.Votes.Short,
				"neutral": res.Consensus.Votes.Neutral,
			},
		},
	})
}
