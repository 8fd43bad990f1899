package warroom

import (
	"context"
	"encoding/json"
	"fmt"

	"tradearena/internal/market"
	"tradearena/internal/models"
)

// Round themes, in play order.
var roundThemes = [TotalRounds]string{
	"opening_theses",
	"cross_examination",
	"closing_arguments",
}

// ScriptGenerator is the built-in TextGenerator: a deterministic template
// renderer over the agent outputs. Same inputs, same script.
type ScriptGenerator struct{}

type scriptLine struct {
	AgentID string `json:"agent_id"`
	Text    string `json:"text"`
}

type script struct {
	Round int          `json:"round"`
	Theme string       `json:"theme"`
	Lines []scriptLine `json:"lines"`
}

func (ScriptGenerator) GenerateRound(_ context.Context, round int, outputs []models.AgentOutput, _ []models.WarRoomRound, interactions []UserInteraction) ([]byte, error) {
	if round < 1 || round > TotalRounds {
		return nil, fmt.Errorf("round %d out of range", round)
	}
	doc := script{
		Round: round,
		Theme: roundThemes[round-1],
		Lines: make([]scriptLine, 0, len(outputs)+len(interactions)),
	}
	for i, out := range outputs {
		doc.Lines = append(doc.Lines, scriptLine{
			AgentID: out.AgentID,
			Text:    lineFor(round, out, opponent(outputs, i)),
		})
	}
	// Spectator questions are fielded by the most confident agent, in the
	// order they were asked.
	if lead, ok := strongest(outputs); ok {
		for _, q := range interactions {
			if q.Kind != InteractionQuestion || q.Text == "" {
				continue
			}
			doc.Lines = append(doc.Lines, scriptLine{
				AgentID: lead.AgentID,
				Text: fmt.Sprintf("%s asks %q. My answer stands at %s, %d%% conviction.",
					q.ViewerID, q.Text, lead.Direction, lead.Confidence),
			})
		}
	}
	return json.Marshal(doc)
}

// strongest returns the highest-confidence output, earliest slot winning ties.
func strongest(outputs []models.AgentOutput) (models.AgentOutput, bool) {
	if len(outputs) == 0 {
		return models.AgentOutput{}, false
	}
	lead := outputs[0]
	for _, out := range outputs[1:] {
		if out.Confidence > lead.Confidence {
			lead = out
		}
	}
	return lead, true
}

// opponent picks the strongest dissenting output, falling back to the next
// slot, so cross-examination always has a target.
func opponent(outputs []models.AgentOutput, self int) models.AgentOutput {
	best := -1
	for i, out := range outputs {
		if i == self || out.Direction == outputs[self].Direction {
			continue
		}
		if best < 0 || out.Confidence > outputs[best].Confidence {
			best = i
		}
	}
	if best < 0 {
		best = (self + 1) % len(outputs)
	}
	return outputs[best]
}

func lineFor(round int, out models.AgentOutput, opp models.AgentOutput) string {
	switch round {
	case 1:
		return fmt.Sprintf("I am %s at %d%% confidence. %s", out.Direction, out.Confidence, out.Thesis)
	case 2:
		if opp.AgentID == out.AgentID {
			return fmt.Sprintf("No one here disputes %s. The question is only conviction, and mine is %d%%.", out.Direction, out.Confidence)
		}
		return fmt.Sprintf("%s calls %s, but my read scores bull %.1f against bear %.1f. I hold %s.",
			opp.AgentID, opp.Direction, out.BullScore, out.BearScore, out.Direction)
	default:
		stance := "I keep my call"
		if out.Direction == market.DirectionNeutral {
			stance = "I stay flat"
		}
		return fmt.Sprintf("%s: %s at %d%%. The tape will settle it.", stance, out.Direction, out.Confidence)
	}
}

var _ TextGenerator = ScriptGenerator{}
