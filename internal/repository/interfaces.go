package repository

import (
	"context"
	"time"

	"github.com/dom/gauntlet/internal/domain"
	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByDisplayName(ctx context.Context, displayName string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.UserSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.UserSession, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type TourneyRepository interface {
	Create(ctx context.Context, tourney *domain.Tourney) error
	GetByID(ctx context.Context, id uint) (*domain.Tourney, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tourney, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Tourney, error)
	Update(ctx context.Context, tourney *domain.Tourney) error
	AddAdmin(ctx context.Context, tourneyID uint, userID uuid.UUID) error
	IsAdmin(ctx context.Context, tourneyID uint, userID uuid.UUID) (bool, error)
	// ListAdministered returns the tourneys userID administers, newest first.
	ListAdministered(ctx context.Context, userID uuid.UUID) ([]*domain.Tourney, error)
}

type PlayerRepository interface {
	Create(ctx context.Context, player *domain.Player) error
	GetByID(ctx context.Context, id uint) (*domain.Player, error)
	GetByTourneyID(ctx context.Context, tourneyID uint) ([]*domain.Player, error)
}

type RoundRepository interface {
	Create(ctx context.Context, round *domain.Round) error
	GetByID(ctx context.Context, id uint) (*domain.Round, error)
	GetByTourneyID(ctx context.Context, tourneyID uint) ([]*domain.Round, error)
	// GetEarliest returns the tourney's round with the lowest id.
	GetEarliest(ctx context.Context, tourneyID uint) (*domain.Round, error)
	// GetRedemption returns the first round whose parent is parentID.
	GetRedemption(ctx context.Context, parentID uint) (*domain.Round, error)
	Update(ctx context.Context, round *domain.Round) error
}

type PlayerRoundRepository interface {
	// Create returns domain.ErrDuplicateRegistration when the player already
	// has an entry in the round.
	Create(ctx context.Context, entry *domain.PlayerRound) error
	GetByID(ctx context.Context, id uint) (*domain.PlayerRound, error)
	GetByRoundID(ctx context.Context, roundID uint) ([]*domain.PlayerRound, error)
	CountByRoundID(ctx context.Context, roundID uint) (int64, error)
}

type ChartRepository interface {
	Create(ctx context.Context, chart *domain.Chart) error
	GetByID(ctx context.Context, id uint) (*domain.Chart, error)
	List(ctx context.Context) ([]*domain.Chart, error)
}

type StageRepository interface {
	Create(ctx context.Context, stage *domain.Stage) error
	// GetByID loads the stage with its scores, chart pool and chosen chart.
	GetByID(ctx context.Context, id uint) (*domain.Stage, error)
	// GetByRoundID loads every stage of a round with its relations.
	GetByRoundID(ctx context.Context, roundID uint) ([]*domain.Stage, error)
	Update(ctx context.Context, stage *domain.Stage) error
	AddToPool(ctx context.Context, entry *domain.StageChart) error
	RemoveFromPool(ctx context.Context, stageID, chartID uint) error
}

type ScoreRepository interface {
	// Create returns domain.ErrDuplicateScore when the entry already has a
	// score on the stage.
	Create(ctx context.Context, score *domain.Score) error
	GetByID(ctx context.Context, id uint) (*domain.Score, error)
	Update(ctx context.Context, score *domain.Score) error
	Delete(ctx context.Context, id uint) error
}

type Repositories struct {
	User        UserRepository
	Session     SessionRepository
	Tourney     TourneyRepository
	Player      PlayerRepository
	Round       RoundRepository
	PlayerRound PlayerRoundRepository
	Chart       ChartRepository
	Stage       StageRepository
	Score       ScoreRepository
}
