package postgres

import (
	"context"

	"github.com/dom/gauntlet/internal/domain"
	"gorm.io/gorm"
)

type scoreRepository struct {
	db *gorm.DB
}

func NewScoreRepository(db *gorm.DB) *scoreRepository {
	return &scoreRepository{db: db}
}

func (r *scoreRepository) Create(ctx context.Context, score *domain.Score) error {
	return translate(r.db.WithContext(ctx).Create(score).Error, "score", domain.ErrDuplicateScore)
}

func (r *scoreRepository) GetByID(ctx context.Context, id uint) (*domain.Score, error) {
	var score domain.Score
	if err := r.db.WithContext(ctx).First(&score, id).Error; err != nil {
		return nil, translate(err, "score", nil)
	}
	return &score, nil
}

func (r *scoreRepository) Update(ctx context.Context, score *domain.Score) error {
	return translate(r.db.WithContext(ctx).Save(score).Error, "score", domain.ErrDuplicateScore)
}

// Delete loads the row first so the change feed carries its stage.
func (r *scoreRepository) Delete(ctx context.Context, id uint) error {
	score, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(score).Error
}
