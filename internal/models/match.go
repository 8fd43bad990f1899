package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Match phases. A match only moves forward through this sequence.
const (
	PhaseDraft      = "DRAFT"
	PhaseAnalysis   = "ANALYSIS"
	PhaseHypothesis = "HYPOTHESIS"
	PhaseBattle     = "BATTLE"
	PhaseResult     = "RESULT"
)

// Match is one play-through: draft, analysis, hypothesis, battle, result.
type Match struct {
	ID     string `gorm:"type:uuid;primaryKey"`
	UserID string `gorm:"type:varchar(100);not null;index"`

	Pair      string `gorm:"type:varchar(30);not null"`
	Timeframe string `gorm:"type:varchar(10);not null"`

	Phase          string     `gorm:"type:varchar(20);not null;index;default:'DRAFT'"`
	PhaseExpiresAt *time.Time `gorm:"type:timestamptz"`

	// Draft is the ordered list of chosen agent ids.
	Draft datatypes.JSON `gorm:"type:jsonb"`

	// Hypothesis is {direction, confidence, exit_preset}; null until submitted.
	Hypothesis datatypes.JSON `gorm:"type:jsonb"`

	// EntryPrice is set when agent outputs are persisted. Zero means unset.
	EntryPrice decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	Regime     string          `gorm:"type:varchar(20)"`

	// Result is {winner, exit_price, realized_change_pct, score}; null until resolved.
	Result datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Match) TableName() string {
	return "matches"
}
