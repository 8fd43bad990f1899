package models

import "time"

// LiveSession is one broadcast channel for one match. Policy: at most one
// open session per match.
type LiveSession struct {
	ID      string `gorm:"type:uuid;primaryKey"`
	MatchID string `gorm:"type:uuid;not null;index"`
	OwnerID string `gorm:"type:varchar(100);not null"`
	Pair    string `gorm:"type:varchar(30);not null"`

	Open     bool       `gorm:"not null;index;default:true"`
	ClosedAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (LiveSession) TableName() string {
	return "live_sessions"
}
