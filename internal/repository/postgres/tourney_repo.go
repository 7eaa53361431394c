package postgres

import (
	"context"

	"github.com/dom/gauntlet/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type tourneyRepository struct {
	db *gorm.DB
}

func NewTourneyRepository(db *gorm.DB) *tourneyRepository {
	return &tourneyRepository{db: db}
}

func (r *tourneyRepository) Create(ctx context.Context, tourney *domain.Tourney) error {
	return translate(r.db.WithContext(ctx).Create(tourney).Error, "tourney", domain.ErrValidation)
}

func (r *tourneyRepository) GetByID(ctx context.Context, id uint) (*domain.Tourney, error) {
	var tourney domain.Tourney
	if err := r.db.WithContext(ctx).First(&tourney, id).Error; err != nil {
		return nil, translate(err, "tourney", nil)
	}
	return &tourney, nil
}

func (r *tourneyRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tourney, error) {
	var tourney domain.Tourney
	if err := r.db.WithContext(ctx).First(&tourney, "slug = ?", slug).Error; err != nil {
		return nil, translate(err, "tourney", nil)
	}
	return &tourney, nil
}

func (r *tourneyRepository) List(ctx context.Context, limit, offset int) ([]*domain.Tourney, error) {
	var tourneys []*domain.Tourney
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&tourneys).Error
	if err != nil {
		return nil, err
	}
	return tourneys, nil
}

func (r *tourneyRepository) Update(ctx context.Context, tourney *domain.Tourney) error {
	return translate(r.db.WithContext(ctx).Save(tourney).Error, "tourney", domain.ErrValidation)
}

func (r *tourneyRepository) AddAdmin(ctx context.Context, tourneyID uint, userID uuid.UUID) error {
	admin := &domain.TourneyAdmin{TourneyID: tourneyID, UserID: userID}
	err := r.db.WithContext(ctx).Create(admin).Error
	return translate(err, "tourney admin", domain.ErrValidation)
}

func (r *tourneyRepository) IsAdmin(ctx context.Context, tourneyID uint, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.TourneyAdmin{}).
		Where("tourney_id = ? AND user_id = ?", tourneyID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *tourneyRepository) ListAdministered(ctx context.Context, userID uuid.UUID) ([]*domain.Tourney, error) {
	var tourneys []*domain.Tourney
	err := r.db.WithContext(ctx).
		Joins("JOIN tourney_admins ON tourney_admins.tourney_id = tourneys.id").
		Where("tourney_admins.user_id = ?", userID).
		Order("tourneys.id DESC").
		Find(&tourneys).Error
	if err != nil {
		return nil, err
	}
	return tourneys, nil
}
