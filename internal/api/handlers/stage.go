package handlers

import (
	"net/http"

	"github.com/dom/gauntlet/internal/service"
)

type StageHandler struct {
	stageService *service.StageService
	scoreService *service.ScoreService
}

func NewStageHandler(stageService *service.StageService, scoreService *service.ScoreService) *StageHandler {
	return &StageHandler{
		stageService: stageService,
		scoreService: scoreService,
	}
}

type PoolRequest struct {
	ChartID uint `json:"chart_id"`
}

// PickChartRequest leaves ChartID nil to pick from the pool at random.
type PickChartRequest struct {
	ChartID *uint `json:"chart_id"`
}

type SubmitScoreRequest struct {
	PlayerRoundID uint    `json:"player_round_id"`
	Value         float64 `json:"value"`
}

type UpdateScoreRequest struct {
	Value float64 `json:"value"`
}

func (h *StageHandler) Get(w http.ResponseWriter, r *http.Request) {
	stageID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	stage, err := h.stageService.GetStage(r.Context(), stageID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stage)
}

func (h *StageHandler) AddToPool(w http.ResponseWriter, r *http.Request) {
	stageID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req PoolRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	stage, err := h.stageService.AddChartToPool(r.Context(), stageID, req.ChartID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stage)
}

func (h *StageHandler) RemoveFromPool(w http.ResponseWriter, r *http.Request) {
	stageID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	chartID, err := pathID(r, "chartId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	stage, err := h.stageService.RemoveChartFromPool(r.Context(), stageID, chartID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stage)
}

func (h *StageHandler) Pick(w http.ResponseWriter, r *http.Request) {
	stageID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req PickChartRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	stage, err := h.stageService.PickChart(r.Context(), stageID, req.ChartID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stage)
}

func (h *StageHandler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	stageID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req SubmitScoreRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	score, err := h.scoreService.SubmitScore(r.Context(), service.SubmitScoreInput{
		StageID:       stageID,
		PlayerRoundID: req.PlayerRoundID,
		Value:         req.Value,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, score)
}

func (h *StageHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	scoreID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req UpdateScoreRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	score, err := h.scoreService.UpdateScore(r.Context(), scoreID, req.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (h *StageHandler) DeleteScore(w http.ResponseWriter, r *http.Request) {
	scoreID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.scoreService.DeleteScore(r.Context(), scoreID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
