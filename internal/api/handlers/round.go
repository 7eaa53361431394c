package handlers

import (
	"net/http"

	"github.com/dom/gauntlet/internal/api/middleware"
	"github.com/dom/gauntlet/internal/service"
)

type RoundHandler struct {
	tourneyService     *service.TourneyService
	stageService       *service.StageService
	scoreService       *service.ScoreService
	progressionService *service.ProgressionService
}

func NewRoundHandler(services *service.Services) *RoundHandler {
	return &RoundHandler{
		tourneyService:     services.Tourney,
		stageService:       services.Stage,
		scoreService:       services.Score,
		progressionService: services.Progression,
	}
}

type SetNextRoundRequest struct {
	NextRoundID *uint `json:"next_round_id"`
}

type RegisterPlayerRequest struct {
	PlayerID uint `json:"player_id"`
}

type CreateStageRequest struct {
	ChartIDs []uint `json:"chart_ids"`
}

func (h *RoundHandler) Get(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	round, err := h.tourneyService.GetRound(r.Context(), roundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *RoundHandler) Start(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	round, err := h.progressionService.StartRound(r.Context(), roundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *RoundHandler) End(w http.ResponseWriter, r *http.Request) {
	tourneyID, _ := middleware.GetTourneyID(r.Context())
	roundID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.progressionService.EndRound(r.Context(), tourneyID, roundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *RoundHandler) SetNext(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req SetNextRoundRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	round, err := h.tourneyService.SetNextRound(r.Context(), roundID, req.NextRoundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *RoundHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := h.tourneyService.ListEntries(r.Context(), roundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *RoundHandler) RegisterPlayer(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req RegisterPlayerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := h.tourneyService.RegisterPlayer(r.Context(), roundID, req.PlayerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *RoundHandler) ListStages(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	stages, err := h.stageService.ListStages(r.Context(), roundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stages)
}

func (h *RoundHandler) CreateStage(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req CreateStageRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	stage, err := h.stageService.CreateStage(r.Context(), roundID, req.ChartIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stage)
}

func (h *RoundHandler) Standings(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	standings, err := h.scoreService.Standings(r.Context(), roundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}
