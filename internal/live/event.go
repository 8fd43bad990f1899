package live

import "time"

// Event types pushed to spectator connections.
const (
	EventPhaseChange    = "phase_change"
	EventAgentOutput    = "agent_output"
	EventConsensus      = "consensus"
	EventDecisionWindow = "decision_window"
	EventMatchResult    = "match_result"
	EventSpectatorCount = "spectator_count"
	EventReaction       = "reaction"
	EventWarRoomRound   = "war_room_round"
	EventPhaseExpired   = "phase_expired"
	EventSessionClosed  = "session_closed"
)

// Event is one server-pushed message on a spectator stream: a type tag
// plus a free-shape payload.
type Event struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	MatchID   string         `json:"match_id"`
	At        time.Time      `json:"at"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Reactions spectators may send. Anything else is rejected.
var allowedReactions = map[string]struct{}{
	"fire":       {},
	"rocket":     {},
	"skull":      {},
	"chart_down": {},
	"clap":       {},
	"mind_blown": {},
}

// ReactionAllowed reports whether a reaction is on the allow-list.
func ReactionAllowed(reaction string) bool {
	_, ok := allowedReactions[reaction]
	return ok
}
