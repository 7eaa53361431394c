package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/dom/gauntlet/internal/domain"
	"github.com/dom/gauntlet/internal/repository"
)

type StageService struct {
	roundRepo repository.RoundRepository
	stageRepo repository.StageRepository
	chartRepo repository.ChartRepository
	logger    *slog.Logger

	// pick chooses an index in [0, n) for random chart selection.
	pick func(n int) int
}

func NewStageService(repos *repository.Repositories, logger *slog.Logger) *StageService {
	return &StageService{
		roundRepo: repos.Round,
		stageRepo: repos.Stage,
		chartRepo: repos.Chart,
		logger:    logger,
		pick:      rand.Intn,
	}
}

type CreateChartInput struct {
	Name       string
	Artist     string
	Difficulty int
}

func (s *StageService) CreateChart(ctx context.Context, input CreateChartInput) (*domain.Chart, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: chart name is required", domain.ErrValidation)
	}
	if input.Difficulty < 0 {
		return nil, fmt.Errorf("%w: difficulty must not be negative", domain.ErrValidation)
	}
	chart := &domain.Chart{
		Name:       name,
		Artist:     strings.TrimSpace(input.Artist),
		Difficulty: input.Difficulty,
	}
	if err := s.chartRepo.Create(ctx, chart); err != nil {
		return nil, err
	}
	return chart, nil
}

func (s *StageService) ListCharts(ctx context.Context) ([]*domain.Chart, error) {
	return s.chartRepo.List(ctx)
}

// editableRound loads the round of a stage and rejects rounds that already
// finished.
func (s *StageService) editableRound(ctx context.Context, roundID uint) (*domain.Round, error) {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status == domain.StatusComplete {
		return nil, fmt.Errorf("%w: round %d is complete", domain.ErrPrecondition, roundID)
	}
	return round, nil
}

// CreateStage adds a stage to a round with an optional initial chart pool.
func (s *StageService) CreateStage(ctx context.Context, roundID uint, chartIDs []uint) (*domain.Stage, error) {
	if _, err := s.editableRound(ctx, roundID); err != nil {
		return nil, err
	}
	for _, id := range chartIDs {
		if _, err := s.chartRepo.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}

	stage := &domain.Stage{RoundID: roundID}
	if err := s.stageRepo.Create(ctx, stage); err != nil {
		return nil, err
	}
	seen := make(map[uint]bool, len(chartIDs))
	for _, id := range chartIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if err := s.stageRepo.AddToPool(ctx, &domain.StageChart{StageID: stage.ID, ChartID: id}); err != nil {
			return nil, err
		}
	}

	s.logger.Info("stage created", "round_id", roundID, "stage_id", stage.ID, "pool_size", len(seen))
	return s.stageRepo.GetByID(ctx, stage.ID)
}

func (s *StageService) GetStage(ctx context.Context, stageID uint) (*domain.Stage, error) {
	return s.stageRepo.GetByID(ctx, stageID)
}

func (s *StageService) ListStages(ctx context.Context, roundID uint) ([]*domain.Stage, error) {
	return s.stageRepo.GetByRoundID(ctx, roundID)
}

func (s *StageService) AddChartToPool(ctx context.Context, stageID, chartID uint) (*domain.Stage, error) {
	stage, err := s.stageRepo.GetByID(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.editableRound(ctx, stage.RoundID); err != nil {
		return nil, err
	}
	if _, err := s.chartRepo.GetByID(ctx, chartID); err != nil {
		return nil, err
	}
	if stage.PoolChart(chartID) != nil {
		return nil, fmt.Errorf("%w: chart %d is already in the pool of stage %d", domain.ErrValidation, chartID, stageID)
	}
	if err := s.stageRepo.AddToPool(ctx, &domain.StageChart{StageID: stageID, ChartID: chartID}); err != nil {
		return nil, err
	}
	return s.stageRepo.GetByID(ctx, stageID)
}

func (s *StageService) RemoveChartFromPool(ctx context.Context, stageID, chartID uint) (*domain.Stage, error) {
	stage, err := s.stageRepo.GetByID(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.editableRound(ctx, stage.RoundID); err != nil {
		return nil, err
	}
	if stage.ChosenChartID != nil && *stage.ChosenChartID == chartID {
		return nil, fmt.Errorf("%w: chart %d is the chosen chart of stage %d", domain.ErrPrecondition, chartID, stageID)
	}
	if err := s.stageRepo.RemoveFromPool(ctx, stageID, chartID); err != nil {
		return nil, err
	}
	return s.stageRepo.GetByID(ctx, stageID)
}

// PickChart sets the stage's chosen chart. An explicit chart must be in the
// pool; a nil chartID picks one of the pool at random. The choice is locked
// once the stage has scores.
func (s *StageService) PickChart(ctx context.Context, stageID uint, chartID *uint) (*domain.Stage, error) {
	stage, err := s.stageRepo.GetByID(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.editableRound(ctx, stage.RoundID); err != nil {
		return nil, err
	}
	if len(stage.ChartPool) == 0 {
		return nil, fmt.Errorf("%w: stage %d has an empty chart pool", domain.ErrPrecondition, stageID)
	}
	if len(stage.Scores) > 0 {
		return nil, fmt.Errorf("%w: stage %d already has scores", domain.ErrPrecondition, stageID)
	}

	var chosen uint
	if chartID != nil {
		if stage.PoolChart(*chartID) == nil {
			return nil, fmt.Errorf("%w: chart %d is not in the pool of stage %d", domain.ErrValidation, *chartID, stageID)
		}
		chosen = *chartID
	} else {
		chosen = stage.ChartPool[s.pick(len(stage.ChartPool))].ChartID
	}

	stage.ChosenChartID = &chosen
	if err := s.stageRepo.Update(ctx, stage); err != nil {
		return nil, err
	}

	s.logger.Info("chart picked", "stage_id", stageID, "chart_id", chosen, "random", chartID == nil)
	return s.stageRepo.GetByID(ctx, stageID)
}
