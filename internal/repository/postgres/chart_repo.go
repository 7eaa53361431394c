package postgres

import (
	"context"

	"github.com/dom/gauntlet/internal/domain"
	"gorm.io/gorm"
)

type chartRepository struct {
	db *gorm.DB
}

func NewChartRepository(db *gorm.DB) *chartRepository {
	return &chartRepository{db: db}
}

func (r *chartRepository) Create(ctx context.Context, chart *domain.Chart) error {
	return translate(r.db.WithContext(ctx).Create(chart).Error, "chart", domain.ErrValidation)
}

func (r *chartRepository) GetByID(ctx context.Context, id uint) (*domain.Chart, error) {
	var chart domain.Chart
	if err := r.db.WithContext(ctx).First(&chart, id).Error; err != nil {
		return nil, translate(err, "chart", nil)
	}
	return &chart, nil
}

func (r *chartRepository) List(ctx context.Context) ([]*domain.Chart, error) {
	var charts []*domain.Chart
	if err := r.db.WithContext(ctx).Order("name, id").Find(&charts).Error; err != nil {
		return nil, err
	}
	return charts, nil
}
