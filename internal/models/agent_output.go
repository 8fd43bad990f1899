package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// AgentOutput is one drafted agent's analysis for one pipeline run.
// Written exactly once per agent per run, never mutated.
type AgentOutput struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	MatchID string `gorm:"type:uuid;not null;index"`

	AgentID string `gorm:"type:varchar(40);not null"`
	Slot    int    `gorm:"not null"`

	Direction  string  `gorm:"type:varchar(10);not null"`
	Confidence int     `gorm:"not null"`
	Thesis     string  `gorm:"type:text"`
	BullScore  float64 `gorm:"not null"`
	BearScore  float64 `gorm:"not null"`

	TakeProfit decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	StopLoss   decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	ExitPolicy datatypes.JSON  `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (AgentOutput) TableName() string {
	return "agent_outputs"
}
