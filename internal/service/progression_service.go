package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dom/gauntlet/internal/domain"
	"github.com/dom/gauntlet/internal/ranking"
	"github.com/dom/gauntlet/internal/repository"
)

// ProgressionService drives the tourney and round state machines:
// not_started -> in_progress -> complete, never skipped or reversed.
//
// Transitions and their registration inserts are separate writes. The
// inserts come first and skip existing entries, so a call that failed part
// way through can be repeated.
type ProgressionService struct {
	tourneyRepo     repository.TourneyRepository
	playerRepo      repository.PlayerRepository
	roundRepo       repository.RoundRepository
	playerRoundRepo repository.PlayerRoundRepository
	stageRepo       repository.StageRepository
	logger          *slog.Logger
}

func NewProgressionService(repos *repository.Repositories, logger *slog.Logger) *ProgressionService {
	return &ProgressionService{
		tourneyRepo:     repos.Tourney,
		playerRepo:      repos.Player,
		roundRepo:       repos.Round,
		playerRoundRepo: repos.PlayerRound,
		stageRepo:       repos.Stage,
		logger:          logger,
	}
}

// StartTourney moves a tourney to in_progress. With seedEarliestRound set,
// every tourney player is first registered into the round with the lowest
// id; players already registered there are skipped. The status is written
// last, so a start that failed while seeding can be repeated.
func (s *ProgressionService) StartTourney(ctx context.Context, tourneyID uint, seedEarliestRound bool) (*domain.Tourney, error) {
	tourney, err := s.tourneyRepo.GetByID(ctx, tourneyID)
	if err != nil {
		return nil, err
	}
	if tourney.Status != domain.StatusNotStarted {
		return nil, fmt.Errorf("%w: tourney %d is %s", domain.ErrPrecondition, tourneyID, tourney.Status)
	}

	if seedEarliestRound {
		if err := s.seed(ctx, tourneyID); err != nil {
			return nil, fmt.Errorf("seeding tourney %d: %w", tourneyID, err)
		}
	}

	tourney.Status = domain.StatusInProgress
	if err := s.tourneyRepo.Update(ctx, tourney); err != nil {
		return nil, err
	}
	s.logger.Info("tourney started", "tourney_id", tourneyID, "seed", seedEarliestRound)
	return tourney, nil
}

func (s *ProgressionService) seed(ctx context.Context, tourneyID uint) error {
	earliest, err := s.roundRepo.GetEarliest(ctx, tourneyID)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("tourney has no rounds to seed", "tourney_id", tourneyID)
		return nil
	}
	if err != nil {
		return err
	}
	players, err := s.playerRepo.GetByTourneyID(ctx, tourneyID)
	if err != nil {
		return err
	}
	ids := make([]uint, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	registered, err := s.registerAll(ctx, earliest.ID, ids)
	if err != nil {
		return err
	}
	s.logger.Debug("seeded earliest round", "tourney_id", tourneyID, "round_id", earliest.ID, "registered", len(registered))
	return nil
}

// StartRound opens a round for scoring once it has at least two entries and
// a stage with a non-empty chart pool.
func (s *ProgressionService) StartRound(ctx context.Context, roundID uint) (*domain.Round, error) {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	tourney, err := s.tourneyRepo.GetByID(ctx, round.TourneyID)
	if err != nil {
		return nil, err
	}
	if tourney.Status != domain.StatusInProgress {
		return nil, fmt.Errorf("%w: tourney %d is %s", domain.ErrPrecondition, tourney.ID, tourney.Status)
	}
	if round.Status != domain.StatusNotStarted {
		return nil, fmt.Errorf("%w: round %d is %s", domain.ErrPrecondition, roundID, round.Status)
	}

	count, err := s.playerRoundRepo.CountByRoundID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if count < 2 {
		return nil, fmt.Errorf("%w: round %d needs at least 2 players, has %d", domain.ErrPrecondition, roundID, count)
	}

	stages, err := s.stageRepo.GetByRoundID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("%w: round %d has no stages", domain.ErrPrecondition, roundID)
	}
	pooled := false
	for _, stage := range stages {
		if len(stage.ChartPool) > 0 {
			pooled = true
			break
		}
	}
	if !pooled {
		return nil, fmt.Errorf("%w: every stage of round %d has an empty chart pool", domain.ErrPrecondition, roundID)
	}

	round.Status = domain.StatusInProgress
	if err := s.roundRepo.Update(ctx, round); err != nil {
		return nil, err
	}
	s.logger.Info("round started", "tourney_id", round.TourneyID, "round_id", roundID, "players", count, "stages", len(stages))
	return round, nil
}

type EndRoundResult struct {
	Round       *domain.Round   `json:"round"`
	Tourney     *domain.Tourney `json:"tourney"`
	Ranking     ranking.Result  `json:"ranking"`
	Advancement *Advancement    `json:"advancement"`
}

// EndRound ranks an in-progress round, fans its players out to the successor
// and redemption rounds, and completes it. A round without a successor also
// completes its tourney. If the fan-out fails the round stays in_progress.
func (s *ProgressionService) EndRound(ctx context.Context, tourneyID, roundID uint) (*EndRoundResult, error) {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.TourneyID != tourneyID {
		return nil, fmt.Errorf("%w: round %d does not belong to tourney %d", domain.ErrPrecondition, roundID, tourneyID)
	}
	if round.Status != domain.StatusInProgress {
		return nil, fmt.Errorf("%w: round %d is %s", domain.ErrPrecondition, roundID, round.Status)
	}

	entries, err := s.playerRoundRepo.GetByRoundID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	stages, err := s.stageRepo.GetByRoundID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	result := ranking.Calculate(values(entries), values(stages), round.PointsPerStage)

	advancement, err := s.fanOut(ctx, round, entries, result)
	if err != nil {
		return nil, fmt.Errorf("advancing players of round %d: %w", roundID, err)
	}

	round.Status = domain.StatusComplete
	if err := s.roundRepo.Update(ctx, round); err != nil {
		return nil, err
	}
	s.logger.Info("round ended", "tourney_id", tourneyID, "round_id", roundID,
		"advanced", len(advancement.Advanced), "redeemed", len(advancement.Redeemed))

	tourney, err := s.tourneyRepo.GetByID(ctx, tourneyID)
	if err != nil {
		return nil, err
	}
	if round.NextRoundID == nil && tourney.Status != domain.StatusComplete {
		tourney.Status = domain.StatusComplete
		if err := s.tourneyRepo.Update(ctx, tourney); err != nil {
			return nil, err
		}
		s.logger.Info("tourney complete", "tourney_id", tourneyID, "final_round_id", roundID)
	}

	return &EndRoundResult{
		Round:       round,
		Tourney:     tourney,
		Ranking:     result,
		Advancement: advancement,
	}, nil
}
