package postgres

import (
	"context"

	"github.com/dom/gauntlet/internal/domain"
	"gorm.io/gorm"
)

type playerRepository struct {
	db *gorm.DB
}

func NewPlayerRepository(db *gorm.DB) *playerRepository {
	return &playerRepository{db: db}
}

func (r *playerRepository) Create(ctx context.Context, player *domain.Player) error {
	return translate(r.db.WithContext(ctx).Create(player).Error, "player", domain.ErrValidation)
}

func (r *playerRepository) GetByID(ctx context.Context, id uint) (*domain.Player, error) {
	var player domain.Player
	if err := r.db.WithContext(ctx).First(&player, id).Error; err != nil {
		return nil, translate(err, "player", nil)
	}
	return &player, nil
}

func (r *playerRepository) GetByTourneyID(ctx context.Context, tourneyID uint) ([]*domain.Player, error) {
	var players []*domain.Player
	err := r.db.WithContext(ctx).
		Where("tourney_id = ?", tourneyID).
		Order("id").
		Find(&players).Error
	if err != nil {
		return nil, err
	}
	return players, nil
}
