package postgres

import (
	"context"

	"github.com/dom/gauntlet/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type playerRoundRepository struct {
	db *gorm.DB
}

func NewPlayerRoundRepository(db *gorm.DB) *playerRoundRepository {
	return &playerRoundRepository{db: db}
}

func (r *playerRoundRepository) Create(ctx context.Context, entry *domain.PlayerRound) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error
	return translate(err, "player round", domain.ErrDuplicateRegistration)
}

func (r *playerRoundRepository) GetByID(ctx context.Context, id uint) (*domain.PlayerRound, error) {
	var entry domain.PlayerRound
	if err := r.db.WithContext(ctx).Preload("Player").First(&entry, id).Error; err != nil {
		return nil, translate(err, "player round", nil)
	}
	withName(&entry)
	return &entry, nil
}

func (r *playerRoundRepository) GetByRoundID(ctx context.Context, roundID uint) ([]*domain.PlayerRound, error) {
	var entries []*domain.PlayerRound
	err := r.db.WithContext(ctx).
		Preload("Player").
		Where("round_id = ?", roundID).
		Order("id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		withName(entry)
	}
	return entries, nil
}

func (r *playerRoundRepository) CountByRoundID(ctx context.Context, roundID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.PlayerRound{}).
		Where("round_id = ?", roundID).
		Count(&count).Error
	return count, err
}

func withName(entry *domain.PlayerRound) {
	if entry.Player != nil {
		entry.PlayerName = entry.Player.Name
	}
}
