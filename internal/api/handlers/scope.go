package handlers

import (
	"net/http"

	"github.com/dom/gauntlet/internal/service"
)

// Scope resolves the tourney behind a route's resource id for
// middleware.RequireTourneyAdmin.
type Scope struct {
	tourneys *service.TourneyService
	stages   *service.StageService
	scores   *service.ScoreService
}

func NewScope(services *service.Services) *Scope {
	return &Scope{
		tourneys: services.Tourney,
		stages:   services.Stage,
		scores:   services.Score,
	}
}

func (s *Scope) Tourney(r *http.Request) (uint, error) {
	return pathID(r, "id")
}

func (s *Scope) Round(r *http.Request) (uint, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return 0, err
	}
	round, err := s.tourneys.GetRound(r.Context(), id)
	if err != nil {
		return 0, err
	}
	return round.TourneyID, nil
}

func (s *Scope) Stage(r *http.Request) (uint, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return 0, err
	}
	return s.stageTourney(r, id)
}

func (s *Scope) Score(r *http.Request) (uint, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return 0, err
	}
	score, err := s.scores.GetScore(r.Context(), id)
	if err != nil {
		return 0, err
	}
	return s.stageTourney(r, score.StageID)
}

func (s *Scope) stageTourney(r *http.Request, stageID uint) (uint, error) {
	stage, err := s.stages.GetStage(r.Context(), stageID)
	if err != nil {
		return 0, err
	}
	round, err := s.tourneys.GetRound(r.Context(), stage.RoundID)
	if err != nil {
		return 0, err
	}
	return round.TourneyID, nil
}
