package postgres

import (
	"github.com/dom/gauntlet/internal/domain"
	"github.com/dom/gauntlet/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewConnection(databaseURL string, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate tables
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		return nil, err
	}

	return db, nil
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		User:        NewUserRepository(db),
		Session:     NewSessionRepository(db),
		Tourney:     NewTourneyRepository(db),
		Player:      NewPlayerRepository(db),
		Round:       NewRoundRepository(db),
		PlayerRound: NewPlayerRoundRepository(db),
		Chart:       NewChartRepository(db),
		Stage:       NewStageRepository(db),
		Score:       NewScoreRepository(db),
	}
}
