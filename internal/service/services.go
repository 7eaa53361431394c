package service

import (
	"log/slog"

	"github.com/dom/gauntlet/internal/cache"
	"github.com/dom/gauntlet/internal/config"
	"github.com/dom/gauntlet/internal/repository"
)

type Services struct {
	Auth        *AuthService
	Tourney     *TourneyService
	Stage       *StageService
	Score       *ScoreService
	Progression *ProgressionService
}

func NewServices(repos *repository.Repositories, standings *cache.StandingsCache, cfg *config.Config, logger *slog.Logger) *Services {
	return &Services{
		Auth:        NewAuthService(repos, cfg, logger),
		Tourney:     NewTourneyService(repos, logger),
		Stage:       NewStageService(repos, logger),
		Score:       NewScoreService(repos, standings, cfg, logger),
		Progression: NewProgressionService(repos, logger),
	}
}

// values copies repository results into a value slice.
func values[T any](ptrs []*T) []T {
	out := make([]T, 0, len(ptrs))
	for _, p := range ptrs {
		out = append(out, *p)
	}
	return out
}
