package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Decision window actions.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// DecisionWindow is one timed BUY/SELL/HOLD action inside BATTLE.
// (match_id, window_index) is the idempotency key: at most one write per index.
type DecisionWindow struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	MatchID     string `gorm:"type:uuid;not null;uniqueIndex:idx_match_window"`
	WindowIndex int    `gorm:"not null;uniqueIndex:idx_match_window"`

	Action string          `gorm:"type:varchar(10);not null"`
	Price  decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	DecidedAt time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (DecisionWindow) TableName() string {
	return "decision_windows"
}
