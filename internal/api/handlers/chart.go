package handlers

import (
	"net/http"

	"github.com/dom/gauntlet/internal/service"
)

type ChartHandler struct {
	stageService *service.StageService
}

func NewChartHandler(stageService *service.StageService) *ChartHandler {
	return &ChartHandler{stageService: stageService}
}

type CreateChartRequest struct {
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Difficulty int    `json:"difficulty"`
}

func (h *ChartHandler) List(w http.ResponseWriter, r *http.Request) {
	charts, err := h.stageService.ListCharts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, charts)
}

func (h *ChartHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateChartRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	chart, err := h.stageService.CreateChart(r.Context(), service.CreateChartInput{
		Name:       req.Name,
		Artist:     req.Artist,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, chart)
}
