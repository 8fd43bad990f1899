package models

import (
	"time"

	"gorm.io/datatypes"
)

// WarRoomRound is one of three sequential debate segments generated for
// spectators. Round k is only written once round k-1 exists.
type WarRoomRound struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	MatchID string `gorm:"type:uuid;not null;uniqueIndex:idx_match_round"`
	Round   int    `gorm:"not null;uniqueIndex:idx_match_round"`

	// Content is the generated debate script, keyed by agent.
	Content datatypes.JSON `gorm:"type:jsonb;not null"`
	// Interactions are the spectator questions/emoji threaded into this round.
	Interactions datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (WarRoomRound) TableName() string {
	return "war_room_rounds"
}
