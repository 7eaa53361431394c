package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/dom/gauntlet/internal/cache"
	"github.com/dom/gauntlet/internal/changefeed"
	"github.com/dom/gauntlet/internal/config"
	"github.com/dom/gauntlet/internal/domain"
	"github.com/dom/gauntlet/internal/ranking"
	"github.com/dom/gauntlet/internal/repository"
)

type ScoreService struct {
	roundRepo       repository.RoundRepository
	stageRepo       repository.StageRepository
	playerRoundRepo repository.PlayerRoundRepository
	scoreRepo       repository.ScoreRepository
	standings       *cache.StandingsCache
	maxScore        float64
	logger          *slog.Logger
}

func NewScoreService(repos *repository.Repositories, standings *cache.StandingsCache, cfg *config.Config, logger *slog.Logger) *ScoreService {
	return &ScoreService{
		roundRepo:       repos.Round,
		stageRepo:       repos.Stage,
		playerRoundRepo: repos.PlayerRound,
		scoreRepo:       repos.Score,
		standings:       standings,
		maxScore:        cfg.MaxScore,
		logger:          logger,
	}
}

func (s *ScoreService) validateValue(v float64) error {
	switch {
	case math.IsNaN(v), math.IsInf(v, 0):
		return fmt.Errorf("%w: score must be a finite number", domain.ErrValidation)
	case v < 0:
		return fmt.Errorf("%w: score must not be negative", domain.ErrValidation)
	case v > s.maxScore:
		return fmt.Errorf("%w: score exceeds the maximum of %v", domain.ErrValidation, s.maxScore)
	}
	return nil
}

// scoringRound returns the round of a stage when it accepts scores.
func (s *ScoreService) scoringRound(ctx context.Context, stage *domain.Stage) (*domain.Round, error) {
	round, err := s.roundRepo.GetByID(ctx, stage.RoundID)
	if err != nil {
		return nil, err
	}
	if round.Status != domain.StatusInProgress {
		return nil, fmt.Errorf("%w: round %d is %s", domain.ErrPrecondition, round.ID, round.Status)
	}
	return round, nil
}

type SubmitScoreInput struct {
	StageID       uint
	PlayerRoundID uint
	Value         float64
}

// SubmitScore records a player's score on a stage. A second submission for
// the same stage and entry fails with domain.ErrDuplicateScore; corrections
// go through UpdateScore.
func (s *ScoreService) SubmitScore(ctx context.Context, input SubmitScoreInput) (*domain.Score, error) {
	if err := s.validateValue(input.Value); err != nil {
		return nil, err
	}
	stage, err := s.stageRepo.GetByID(ctx, input.StageID)
	if err != nil {
		return nil, err
	}
	entry, err := s.playerRoundRepo.GetByID(ctx, input.PlayerRoundID)
	if err != nil {
		return nil, err
	}
	if entry.RoundID != stage.RoundID {
		return nil, fmt.Errorf("%w: entry %d is not in the round of stage %d", domain.ErrValidation, entry.ID, stage.ID)
	}
	if _, err := s.scoringRound(ctx, stage); err != nil {
		return nil, err
	}

	score := &domain.Score{
		StageID:       stage.ID,
		PlayerRoundID: entry.ID,
		Value:         input.Value,
	}
	if err := s.scoreRepo.Create(ctx, score); err != nil {
		return nil, err
	}
	s.invalidate(ctx, stage.RoundID)

	s.logger.Info("score submitted", "round_id", stage.RoundID, "stage_id", stage.ID, "player_round_id", entry.ID, "value", score.Value)
	return score, nil
}

func (s *ScoreService) GetScore(ctx context.Context, scoreID uint) (*domain.Score, error) {
	return s.scoreRepo.GetByID(ctx, scoreID)
}

func (s *ScoreService) UpdateScore(ctx context.Context, scoreID uint, value float64) (*domain.Score, error) {
	if err := s.validateValue(value); err != nil {
		return nil, err
	}
	score, err := s.scoreRepo.GetByID(ctx, scoreID)
	if err != nil {
		return nil, err
	}
	stage, err := s.stageRepo.GetByID(ctx, score.StageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.scoringRound(ctx, stage); err != nil {
		return nil, err
	}

	score.Value = value
	if err := s.scoreRepo.Update(ctx, score); err != nil {
		return nil, err
	}
	s.invalidate(ctx, stage.RoundID)

	s.logger.Info("score corrected", "score_id", score.ID, "value", value)
	return score, nil
}

func (s *ScoreService) DeleteScore(ctx context.Context, scoreID uint) error {
	score, err := s.scoreRepo.GetByID(ctx, scoreID)
	if err != nil {
		return err
	}
	stage, err := s.stageRepo.GetByID(ctx, score.StageID)
	if err != nil {
		return err
	}
	if _, err := s.scoringRound(ctx, stage); err != nil {
		return err
	}
	if err := s.scoreRepo.Delete(ctx, scoreID); err != nil {
		return err
	}
	s.invalidate(ctx, stage.RoundID)
	return nil
}

// StageCell is one stage column of a standings row.
type StageCell struct {
	StageID   uint     `json:"stage_id"`
	ChartID   *uint    `json:"chart_id,omitempty"`
	ChartName string   `json:"chart_name,omitempty"`
	Score     *float64 `json:"score,omitempty"`
	Points    *int     `json:"points,omitempty"`
}

type StandingRow struct {
	Rank          int         `json:"rank"`
	PlayerRoundID uint        `json:"player_round_id"`
	PlayerID      uint        `json:"player_id"`
	PlayerName    string      `json:"player_name"`
	Total         float64     `json:"total"`
	Cumulative    float64     `json:"cumulative"`
	Advancing     bool        `json:"advancing"`
	Stages        []StageCell `json:"stages"`
}

type RoundStandings struct {
	RoundID    uint          `json:"round_id"`
	Status     domain.Status `json:"status"`
	PointsMode bool          `json:"points_mode"`
	Rows       []StandingRow `json:"rows"`
}

// Standings ranks a round from its current scores. Results are served from
// the standings cache when it holds them.
func (s *ScoreService) Standings(ctx context.Context, roundID uint) (*RoundStandings, error) {
	cacheable := true
	version, err := s.standings.Version(ctx, roundID)
	if err != nil {
		s.logger.Warn("standings cache read failed", "round_id", roundID, "error", err)
		cacheable = false
	}
	var cached RoundStandings
	if cacheable {
		if hit, err := s.standings.Get(ctx, roundID, &cached); err != nil {
			s.logger.Warn("standings cache read failed", "round_id", roundID, "error", err)
		} else if hit {
			return &cached, nil
		}
	}

	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	entries, err := s.playerRoundRepo.GetByRoundID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	stages, err := s.stageRepo.GetByRoundID(ctx, roundID)
	if err != nil {
		return nil, err
	}

	out := buildStandings(round, values(entries), values(stages))
	if !cacheable {
		return out, nil
	}
	if stored, err := s.standings.Set(ctx, roundID, version, out); err != nil {
		s.logger.Warn("standings cache write failed", "round_id", roundID, "error", err)
	} else if !stored {
		s.logger.Debug("standings changed while loading, not cached", "round_id", roundID)
	}
	return out, nil
}

func buildStandings(round *domain.Round, entries []domain.PlayerRound, stages []domain.Stage) *RoundStandings {
	result := ranking.Calculate(entries, stages, round.PointsPerStage)
	advancing, _ := result.Advancing(round.PlayersAdvancing)
	advances := make(map[uint]bool, len(advancing))
	for _, id := range advancing {
		advances[id] = true
	}
	byID := make(map[uint]domain.PlayerRound, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	out := &RoundStandings{
		RoundID:    round.ID,
		Status:     round.Status,
		PointsMode: round.PointsMode(),
		Rows:       make([]StandingRow, 0, len(result.Standings)),
	}
	for i, standing := range result.Standings {
		entry := byID[standing.PlayerRoundID]
		row := StandingRow{
			Rank:          i + 1,
			PlayerRoundID: entry.ID,
			PlayerID:      entry.PlayerID,
			PlayerName:    entry.PlayerName,
			Total:         standing.Total,
			Cumulative:    result.Cumulative[entry.ID],
			Advancing:     advances[entry.ID],
		}
		for _, r := range ranking.IndexScores(entry, stages) {
			cell := StageCell{StageID: r.Stage.ID}
			if r.Chart != nil {
				cell.ChartID = &r.Chart.ID
				cell.ChartName = r.Chart.Name
			}
			if r.Score != nil {
				value := r.Score.Value
				cell.Score = &value
			}
			if points, ok := result.Points[entry.ID][r.Stage.ID]; ok {
				cell.Points = &points
			}
			row.Stages = append(row.Stages, cell)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func (s *ScoreService) invalidate(ctx context.Context, roundIDs ...uint) {
	if err := s.standings.Invalidate(ctx, roundIDs...); err != nil {
		s.logger.Warn("standings cache invalidation failed", "round_ids", roundIDs, "error", err)
	}
}

// HandleChange drops cached standings touched by a change-feed event.
func (s *ScoreService) HandleChange(ev changefeed.Event) {
	if !s.standings.Enabled() {
		return
	}
	var ref struct {
		ID      uint `json:"id"`
		RoundID uint `json:"round_id"`
		StageID uint `json:"stage_id"`
	}
	if err := json.Unmarshal(ev.Row, &ref); err != nil {
		return
	}

	ctx := context.Background()
	switch ev.Table {
	case changefeed.TableRounds:
		s.invalidate(ctx, ref.ID)
	case changefeed.TableStages, changefeed.TablePlayerRounds:
		s.invalidate(ctx, ref.RoundID)
	case changefeed.TableScores, changefeed.TableStageCharts:
		stage, err := s.stageRepo.GetByID(ctx, ref.StageID)
		if err != nil {
			return
		}
		s.invalidate(ctx, stage.RoundID)
	}
}
