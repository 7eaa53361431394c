package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dom/gauntlet/internal/domain"
	"github.com/dom/gauntlet/internal/reconcile"
	"github.com/dom/gauntlet/internal/repository"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"
)

type TourneyService struct {
	tourneyRepo     repository.TourneyRepository
	playerRepo      repository.PlayerRepository
	roundRepo       repository.RoundRepository
	playerRoundRepo repository.PlayerRoundRepository
	stageRepo       repository.StageRepository
	logger          *slog.Logger
}

func NewTourneyService(repos *repository.Repositories, logger *slog.Logger) *TourneyService {
	return &TourneyService{
		tourneyRepo:     repos.Tourney,
		playerRepo:      repos.Player,
		roundRepo:       repos.Round,
		playerRoundRepo: repos.PlayerRound,
		stageRepo:       repos.Stage,
		logger:          logger,
	}
}

type CreateTourneyInput struct {
	Name      string
	Type      domain.TourneyType
	CreatedBy uuid.UUID
}

func (s *TourneyService) CreateTourney(ctx context.Context, input CreateTourneyInput) (*domain.Tourney, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: tourney name is required", domain.ErrValidation)
	}
	if input.Type == "" {
		input.Type = domain.TourneyTypeGauntlet
	}
	if !input.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown tourney type %q", domain.ErrValidation, input.Type)
	}

	tourneySlug, err := s.uniqueSlug(ctx, name)
	if err != nil {
		return nil, err
	}

	tourney := &domain.Tourney{
		Name:      name,
		Slug:      tourneySlug,
		Status:    domain.StatusNotStarted,
		Type:      input.Type,
		CreatedBy: input.CreatedBy,
	}
	if err := s.tourneyRepo.Create(ctx, tourney); err != nil {
		return nil, err
	}
	if err := s.tourneyRepo.AddAdmin(ctx, tourney.ID, input.CreatedBy); err != nil {
		return nil, err
	}

	s.logger.Info("tourney created", "tourney_id", tourney.ID, "slug", tourney.Slug, "type", tourney.Type)
	return tourney, nil
}

// uniqueSlug derives a slug from name, suffixing a counter until it is free.
func (s *TourneyService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "tourney"
	}
	candidate := base
	for n := 2; ; n++ {
		_, err := s.tourneyRepo.GetBySlug(ctx, candidate)
		if errors.Is(err, domain.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}

// GetTourney accepts either a numeric id or a slug.
func (s *TourneyService) GetTourney(ctx context.Context, idOrSlug string) (*domain.Tourney, error) {
	if id, err := strconv.ParseUint(idOrSlug, 10, 64); err == nil {
		return s.tourneyRepo.GetByID(ctx, uint(id))
	}
	return s.tourneyRepo.GetBySlug(ctx, strings.ToLower(idOrSlug))
}

func (s *TourneyService) ListTourneys(ctx context.Context, limit, offset int) ([]*domain.Tourney, error) {
	return s.tourneyRepo.List(ctx, limit, offset)
}

// IsAdmin reports whether userID may drive the tourney.
func (s *TourneyService) IsAdmin(ctx context.Context, tourneyID uint, userID uuid.UUID) (bool, error) {
	return s.tourneyRepo.IsAdmin(ctx, tourneyID, userID)
}

func (s *TourneyService) AddAdmin(ctx context.Context, tourneyID uint, userID uuid.UUID) error {
	if _, err := s.tourneyRepo.GetByID(ctx, tourneyID); err != nil {
		return err
	}
	return s.tourneyRepo.AddAdmin(ctx, tourneyID, userID)
}

type AddPlayerInput struct {
	Name   string
	Seed   *int
	UserID *uuid.UUID
}

func (s *TourneyService) AddPlayer(ctx context.Context, tourneyID uint, input AddPlayerInput) (*domain.Player, error) {
	tourney, err := s.tourneyRepo.GetByID(ctx, tourneyID)
	if err != nil {
		return nil, err
	}
	if tourney.Status == domain.StatusComplete {
		return nil, fmt.Errorf("%w: tourney %d is complete", domain.ErrPrecondition, tourneyID)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: player name is required", domain.ErrValidation)
	}

	player := &domain.Player{
		TourneyID: tourneyID,
		Name:      name,
		Seed:      input.Seed,
		UserID:    input.UserID,
	}
	if err := s.playerRepo.Create(ctx, player); err != nil {
		return nil, err
	}
	return player, nil
}

func (s *TourneyService) ListPlayers(ctx context.Context, tourneyID uint) ([]*domain.Player, error) {
	return s.playerRepo.GetByTourneyID(ctx, tourneyID)
}

type CreateRoundInput struct {
	Name             string
	PlayersAdvancing int
	PointsPerStage   []int
	NextRoundID      *uint
	ParentRoundID    *uint
}

func (s *TourneyService) CreateRound(ctx context.Context, tourneyID uint, input CreateRoundInput) (*domain.Round, error) {
	tourney, err := s.tourneyRepo.GetByID(ctx, tourneyID)
	if err != nil {
		return nil, err
	}
	if tourney.Status == domain.StatusComplete {
		return nil, fmt.Errorf("%w: tourney %d is complete", domain.ErrPrecondition, tourneyID)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: round name is required", domain.ErrValidation)
	}
	if input.PlayersAdvancing <= 0 {
		return nil, fmt.Errorf("%w: players_advancing must be positive", domain.ErrValidation)
	}
	for _, p := range input.PointsPerStage {
		if p < 0 {
			return nil, fmt.Errorf("%w: points_per_stage must not contain negative values", domain.ErrValidation)
		}
	}
	if err := s.checkLinks(ctx, tourneyID, input.NextRoundID, input.ParentRoundID); err != nil {
		return nil, err
	}

	round := &domain.Round{
		TourneyID:        tourneyID,
		Name:             name,
		Status:           domain.StatusNotStarted,
		PlayersAdvancing: input.PlayersAdvancing,
		PointsPerStage:   datatypes.JSONSlice[int](append([]int{}, input.PointsPerStage...)),
		NextRoundID:      input.NextRoundID,
		ParentRoundID:    input.ParentRoundID,
	}
	if err := s.roundRepo.Create(ctx, round); err != nil {
		return nil, err
	}

	s.logger.Info("round created", "tourney_id", tourneyID, "round_id", round.ID, "points_mode", round.PointsMode())
	return round, nil
}

// checkLinks verifies a round's successor and parent belong to the tourney.
// A parent must itself be top-level.
func (s *TourneyService) checkLinks(ctx context.Context, tourneyID uint, nextID, parentID *uint) error {
	if nextID != nil {
		next, err := s.roundRepo.GetByID(ctx, *nextID)
		if err != nil {
			return err
		}
		if next.TourneyID != tourneyID {
			return fmt.Errorf("%w: next round %d belongs to another tourney", domain.ErrValidation, *nextID)
		}
	}
	if parentID != nil {
		parent, err := s.roundRepo.GetByID(ctx, *parentID)
		if err != nil {
			return err
		}
		if parent.TourneyID != tourneyID {
			return fmt.Errorf("%w: parent round %d belongs to another tourney", domain.ErrValidation, *parentID)
		}
		if parent.IsRedemption() {
			return fmt.Errorf("%w: parent round %d is itself a redemption round", domain.ErrValidation, *parentID)
		}
	}
	return nil
}

// SetNextRound links a not yet started round to its successor.
func (s *TourneyService) SetNextRound(ctx context.Context, roundID uint, nextID *uint) (*domain.Round, error) {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status != domain.StatusNotStarted {
		return nil, fmt.Errorf("%w: round %d is %s", domain.ErrPrecondition, roundID, round.Status)
	}
	if nextID != nil && *nextID == roundID {
		return nil, fmt.Errorf("%w: round cannot succeed itself", domain.ErrValidation)
	}
	if err := s.checkLinks(ctx, round.TourneyID, nextID, nil); err != nil {
		return nil, err
	}

	round.NextRoundID = nextID
	if err := s.roundRepo.Update(ctx, round); err != nil {
		return nil, err
	}
	return round, nil
}

func (s *TourneyService) GetRound(ctx context.Context, roundID uint) (*domain.Round, error) {
	return s.roundRepo.GetByID(ctx, roundID)
}

func (s *TourneyService) ListRounds(ctx context.Context, tourneyID uint) ([]*domain.Round, error) {
	return s.roundRepo.GetByTourneyID(ctx, tourneyID)
}

// RegisterPlayer enters a tourney player into a round by hand. Unlike
// advancement, a second registration is reported as
// domain.ErrDuplicateRegistration.
func (s *TourneyService) RegisterPlayer(ctx context.Context, roundID, playerID uint) (*domain.PlayerRound, error) {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status == domain.StatusComplete {
		return nil, fmt.Errorf("%w: round %d is complete", domain.ErrPrecondition, roundID)
	}
	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player.TourneyID != round.TourneyID {
		return nil, fmt.Errorf("%w: player %d belongs to another tourney", domain.ErrValidation, playerID)
	}

	entry := &domain.PlayerRound{RoundID: roundID, PlayerID: playerID}
	if err := s.playerRoundRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	entry.PlayerName = player.Name
	return entry, nil
}

func (s *TourneyService) ListEntries(ctx context.Context, roundID uint) ([]*domain.PlayerRound, error) {
	return s.playerRoundRepo.GetByRoundID(ctx, roundID)
}

// LoadState hydrates a snapshot of every collection the live channel mirrors
// for one tourney.
func (s *TourneyService) LoadState(ctx context.Context, tourneyID uint) (reconcile.State, error) {
	if _, err := s.tourneyRepo.GetByID(ctx, tourneyID); err != nil {
		return reconcile.State{}, err
	}
	players, err := s.playerRepo.GetByTourneyID(ctx, tourneyID)
	if err != nil {
		return reconcile.State{}, err
	}
	rounds, err := s.roundRepo.GetByTourneyID(ctx, tourneyID)
	if err != nil {
		return reconcile.State{}, err
	}

	var stages []domain.Stage
	var entries []domain.PlayerRound
	for _, round := range rounds {
		roundStages, err := s.stageRepo.GetByRoundID(ctx, round.ID)
		if err != nil {
			return reconcile.State{}, err
		}
		roundEntries, err := s.playerRoundRepo.GetByRoundID(ctx, round.ID)
		if err != nil {
			return reconcile.State{}, err
		}
		stages = append(stages, values(roundStages)...)
		entries = append(entries, values(roundEntries)...)
	}

	return reconcile.NewState(values(players), values(rounds), stages, entries), nil
}
