package postgres

import (
	"context"

	"github.com/dom/gauntlet/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type roundRepository struct {
	db *gorm.DB
}

func NewRoundRepository(db *gorm.DB) *roundRepository {
	return &roundRepository{db: db}
}

func (r *roundRepository) Create(ctx context.Context, round *domain.Round) error {
	if round.PointsPerStage == nil {
		round.PointsPerStage = datatypes.JSONSlice[int]{}
	}
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(round).Error
	return translate(err, "round", domain.ErrValidation)
}

func (r *roundRepository) GetByID(ctx context.Context, id uint) (*domain.Round, error) {
	var round domain.Round
	if err := r.db.WithContext(ctx).First(&round, id).Error; err != nil {
		return nil, translate(err, "round", nil)
	}
	return &round, nil
}

func (r *roundRepository) GetByTourneyID(ctx context.Context, tourneyID uint) ([]*domain.Round, error) {
	var rounds []*domain.Round
	err := r.db.WithContext(ctx).
		Where("tourney_id = ?", tourneyID).
		Order("id").
		Find(&rounds).Error
	if err != nil {
		return nil, err
	}
	return rounds, nil
}

func (r *roundRepository) GetEarliest(ctx context.Context, tourneyID uint) (*domain.Round, error) {
	var round domain.Round
	err := r.db.WithContext(ctx).
		Where("tourney_id = ?", tourneyID).
		Order("id").
		First(&round).Error
	if err != nil {
		return nil, translate(err, "round", nil)
	}
	return &round, nil
}

func (r *roundRepository) GetRedemption(ctx context.Context, parentID uint) (*domain.Round, error) {
	var round domain.Round
	err := r.db.WithContext(ctx).
		Where("parent_round_id = ?", parentID).
		Order("id").
		First(&round).Error
	if err != nil {
		return nil, translate(err, "redemption round", nil)
	}
	return &round, nil
}

func (r *roundRepository) Update(ctx context.Context, round *domain.Round) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Save(round).Error
	return translate(err, "round", domain.ErrValidation)
}
