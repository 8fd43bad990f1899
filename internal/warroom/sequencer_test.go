package warroom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"tradearena/internal/match"
	"tradearena/internal/models"
	memrepository "tradearena/internal/repository/memory"
)

type countingGen struct {
	inner    TextGenerator
	calls    int
	previous []models.WarRoomRound
	asked    []UserInteraction
}

func (g *countingGen) GenerateRound(ctx context.Context, round int, outputs []models.AgentOutput, previous []models.WarRoomRound, interactions []UserInteraction) ([]byte, error) {
	g.calls++
	g.previous = previous
	g.asked = interactions
	return g.inner.GenerateRound(ctx, round, outputs, previous, interactions)
}

func seededMatch(t *testing.T, repo *memrepository.Store) *models.Match {
	t.Helper()
	m := &models.Match{
		ID:     "22222222-2222-2222-2222-222222222222",
		UserID: "owner-1",
		Pair:   "ETH-USDT",
		Phase:  models.PhaseBattle,
	}
	if err := repo.CreateMatch(context.Background(), m); err != nil {
		t.Fatalf("create match: %v", err)
	}
	outputs := []models.AgentOutput{
		{MatchID: m.ID, AgentID: "momentum", Slot: 0, Direction: "LONG", Confidence: 80, Thesis: "trend intact", BullScore: 4, BearScore: 1},
		{MatchID: m.ID, AgentID: "mean_reversion", Slot: 1, Direction: "SHORT", Confidence: 55, Thesis: "stretched above mean", BullScore: 1, BearScore: 3},
		{MatchID: m.ID, AgentID: "volume_flow", Slot: 2, Direction: "LONG", Confidence: 60, Thesis: "buyers absorbing", BullScore: 3, BearScore: 2},
	}
	if err := repo.SaveAgentOutputs(context.Background(), outputs); err != nil {
		t.Fatalf("save outputs: %v", err)
	}
	return m
}

func TestSequencer_ThreeRoundsInOrder(t *testing.T) {
	repo := memrepository.New()
	m := seededMatch(t, repo)
	gen := &countingGen{inner: ScriptGenerator{}}
	seq := &Sequencer{Repo: repo, Gen: gen}

	for round := 1; round <= TotalRounds; round++ {
		item, err := seq.Run(context.Background(), m, "owner-1", round, nil)
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if item.Round != round {
			t.Fatalf("round %d: persisted as %d", round, item.Round)
		}
	}
	if gen.calls != TotalRounds {
		t.Fatalf("generator called %d times, want %d", gen.calls, TotalRounds)
	}

	rounds, err := seq.Rounds(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("list rounds: %v", err)
	}
	if len(rounds) != TotalRounds {
		t.Fatalf("stored %d rounds, want %d", len(rounds), TotalRounds)
	}
}

func TestSequencer_OutOfSequenceRejected(t *testing.T) {
	repo := memrepository.New()
	m := seededMatch(t, repo)
	gen := &countingGen{inner: ScriptGenerator{}}
	seq := &Sequencer{Repo: repo, Gen: gen}

	if _, err := seq.Run(context.Background(), m, "owner-1", 2, nil); !errors.Is(err, match.ErrOutOfSequence) {
		t.Fatalf("round 2 first: err = %v want ErrOutOfSequence", err)
	}
	if _, err := seq.Run(context.Background(), m, "owner-1", 4, nil); !errors.Is(err, match.ErrOutOfSequence) {
		t.Fatalf("round 4: err = %v want ErrOutOfSequence", err)
	}
	if _, err := seq.Run(context.Background(), m, "owner-1", 0, nil); !errors.Is(err, match.ErrOutOfSequence) {
		t.Fatalf("round 0: err = %v want ErrOutOfSequence", err)
	}
	if gen.calls != 0 {
		t.Fatalf("generator invoked %d times on rejected rounds", gen.calls)
	}

	if _, err := seq.Run(context.Background(), m, "owner-1", 1, nil); err != nil {
		t.Fatalf("round 1: %v", err)
	}
	if _, err := seq.Run(context.Background(), m, "owner-1", 1, nil); !errors.Is(err, match.ErrOutOfSequence) {
		t.Fatalf("replayed round 1: err = %v want ErrOutOfSequence", err)
	}
}

func TestSequencer_InteractionsPersistAndCarry(t *testing.T) {
	repo := memrepository.New()
	m := seededMatch(t, repo)
	gen := &countingGen{inner: ScriptGenerator{}}
	seq := &Sequencer{Repo: repo, Gen: gen}

	asked := []UserInteraction{
		{ViewerID: "viewer-9", Kind: InteractionQuestion, Text: "why long into resistance?"},
		{ViewerID: "viewer-3", Kind: InteractionReaction},
	}
	first, err := seq.Run(context.Background(), m, "owner-1", 1, asked)
	if err != nil {
		t.Fatalf("round 1: %v", err)
	}
	if len(gen.asked) != 2 || gen.asked[0].ViewerID != "viewer-9" {
		t.Fatalf("generator saw interactions %+v", gen.asked)
	}
	var stored []UserInteraction
	if err := json.Unmarshal(first.Interactions, &stored); err != nil {
		t.Fatalf("unmarshal stored interactions: %v", err)
	}
	if len(stored) != 2 || stored[0].Text != "why long into resistance?" {
		t.Fatalf("stored interactions %+v", stored)
	}

	// Round 2 sees round 1's interactions through the previous rounds.
	if _, err := seq.Run(context.Background(), m, "owner-1", 2, nil); err != nil {
		t.Fatalf("round 2: %v", err)
	}
	if len(gen.previous) != 1 {
		t.Fatalf("round 2 got %d previous rounds", len(gen.previous))
	}
	if !bytes.Contains(gen.previous[0].Interactions, []byte("viewer-9")) {
		t.Fatalf("round 1 interactions missing from previous: %s", gen.previous[0].Interactions)
	}
	if len(gen.asked) != 0 {
		t.Fatalf("round 2 got round 1's interactions as its own: %+v", gen.asked)
	}
}

func TestSequencer_RequiresOutputs(t *testing.T) {
	repo := memrepository.New()
	m := &models.Match{ID: "33333333-3333-3333-3333-333333333333", UserID: "owner-1", Phase: models.PhaseBattle}
	if err := repo.CreateMatch(context.Background(), m); err != nil {
		t.Fatalf("create match: %v", err)
	}
	seq := &Sequencer{Repo: repo, Gen: ScriptGenerator{}}
	if _, err := seq.Run(context.Background(), m, "owner-1", 1, nil); !errors.Is(err, match.ErrPreconditionNotMet) {
		t.Fatalf("err = %v want ErrPreconditionNotMet", err)
	}
}

func TestSequencer_NonOwnerRejected(t *testing.T) {
	repo := memrepository.New()
	m := seededMatch(t, repo)
	seq := &Sequencer{Repo: repo, Gen: ScriptGenerator{}}
	if _, err := seq.Run(context.Background(), m, "intruder", 1, nil); !errors.Is(err, match.ErrUnauthorized) {
		t.Fatalf("err = %v want ErrUnauthorized", err)
	}
}

func TestScriptGenerator_DeterministicAndThemed(t *testing.T) {
	outputs := []models.AgentOutput{
		{AgentID: "momentum", Direction: "LONG", Confidence: 80, Thesis: "trend intact", BullScore: 4, BearScore: 1},
		{AgentID: "mean_reversion", Direction: "SHORT", Confidence: 55, Thesis: "stretched", BullScore: 1, BearScore: 3},
	}
	gen := ScriptGenerator{}

	first, err := gen.GenerateRound(context.Background(), 2, outputs, nil, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := gen.GenerateRound(context.Background(), 2, outputs, nil, nil)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("same inputs produced different scripts")
	}

	var doc struct {
		Round int    `json:"round"`
		Theme string `json:"theme"`
		Lines []struct {
			AgentID string `json:"agent_id"`
			Text    string `json:"text"`
		} `json:"lines"`
	}
	if err := json.Unmarshal(first, &doc); err != nil {
		t.Fatalf("unmarshal script: %v", err)
	}
	if doc.Round != 2 || doc.Theme != "cross_examination" {
		t.Fatalf("round/theme = %d/%s", doc.Round, doc.Theme)
	}
	if len(doc.Lines) != len(outputs) {
		t.Fatalf("got %d lines for %d agents", len(doc.Lines), len(outputs))
	}
	for _, line := range doc.Lines {
		if line.Text == "" {
			t.Fatalf("agent %s has an empty line", line.AgentID)
		}
	}
}

func TestScriptGenerator_AnswersSpectatorQuestions(t *testing.T) {
	outputs := []models.AgentOutput{
		{AgentID: "momentum", Direction: "LONG", Confidence: 80, Thesis: "trend intact"},
		{AgentID: "mean_reversion", Direction: "SHORT", Confidence: 55, Thesis: "stretched"},
	}
	interactions := []UserInteraction{
		{ViewerID: "viewer-7", Kind: InteractionQuestion, Text: "what flips you short?"},
		{ViewerID: "viewer-2", Kind: InteractionReaction},
	}
	raw, err := ScriptGenerator{}.GenerateRound(context.Background(), 1, outputs, nil, interactions)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var doc struct {
		Lines []struct {
			AgentID string `json:"agent_id"`
			Text    string `json:"text"`
		} `json:"lines"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal script: %v", err)
	}
	// One line per agent plus one answer; bare reactions produce no line.
	if len(doc.Lines) != len(outputs)+1 {
		t.Fatalf("got %d lines, want %d", len(doc.Lines), len(outputs)+1)
	}
	answer := doc.Lines[len(doc.Lines)-1]
	if answer.AgentID != "momentum" {
		t.Fatalf("question answered by %s, want the highest-confidence agent", answer.AgentID)
	}
	if !strings.Contains(answer.Text, "viewer-7") || !strings.Contains(answer.Text, "what flips you short?") {
		t.Fatalf("answer does not quote the question: %s", answer.Text)
	}
}
