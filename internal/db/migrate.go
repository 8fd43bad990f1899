package db

import (
	"tradearena/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Match{},
		&models.AgentOutput{},
		&models.DecisionWindow{},
		&models.LiveSession{},
		&models.WarRoomRound{},
	)
}
