package postgres

import (
	"context"

	"github.com/dom/gauntlet/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type stageRepository struct {
	db *gorm.DB
}

func NewStageRepository(db *gorm.DB) *stageRepository {
	return &stageRepository{db: db}
}

func (r *stageRepository) Create(ctx context.Context, stage *domain.Stage) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(stage).Error
	return translate(err, "stage", domain.ErrValidation)
}

// hydrated preloads every relation the ranking and score index read.
func (r *stageRepository) hydrated(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Scores", func(db *gorm.DB) *gorm.DB { return db.Order("scores.id") }).
		Preload("ChartPool", func(db *gorm.DB) *gorm.DB { return db.Order("stage_charts.id") }).
		Preload("ChartPool.Chart").
		Preload("ChosenChart")
}

func (r *stageRepository) GetByID(ctx context.Context, id uint) (*domain.Stage, error) {
	var stage domain.Stage
	if err := r.hydrated(ctx).First(&stage, id).Error; err != nil {
		return nil, translate(err, "stage", nil)
	}
	return &stage, nil
}

func (r *stageRepository) GetByRoundID(ctx context.Context, roundID uint) ([]*domain.Stage, error) {
	var stages []*domain.Stage
	err := r.hydrated(ctx).
		Where("round_id = ?", roundID).
		Order("id").
		Find(&stages).Error
	if err != nil {
		return nil, err
	}
	return stages, nil
}

func (r *stageRepository) Update(ctx context.Context, stage *domain.Stage) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Save(stage).Error
	return translate(err, "stage", domain.ErrValidation)
}

func (r *stageRepository) AddToPool(ctx context.Context, entry *domain.StageChart) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error
	return translate(err, "chart pool entry", domain.ErrValidation)
}

func (r *stageRepository) RemoveFromPool(ctx context.Context, stageID, chartID uint) error {
	var entry domain.StageChart
	err := r.db.WithContext(ctx).
		Where("stage_id = ? AND chart_id = ?", stageID, chartID).
		First(&entry).Error
	if err != nil {
		return translate(err, "chart pool entry", nil)
	}
	return r.db.WithContext(ctx).Delete(&entry).Error
}
