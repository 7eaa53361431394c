package handlers

import (
	"net/http"

	"github.com/dom/gauntlet/internal/api/middleware"
	"github.com/dom/gauntlet/internal/domain"
	"github.com/dom/gauntlet/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type TourneyHandler struct {
	tourneyService     *service.TourneyService
	progressionService *service.ProgressionService
}

func NewTourneyHandler(tourneyService *service.TourneyService, progressionService *service.ProgressionService) *TourneyHandler {
	return &TourneyHandler{
		tourneyService:     tourneyService,
		progressionService: progressionService,
	}
}

type CreateTourneyRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type AddPlayerRequest struct {
	Name   string     `json:"name"`
	Seed   *int       `json:"seed"`
	UserID *uuid.UUID `json:"user_id"`
}

type AddAdminRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

type StartTourneyRequest struct {
	SeedEarliestRound bool `json:"seed_earliest_round"`
}

type CreateRoundRequest struct {
	Name             string `json:"name"`
	PlayersAdvancing int    `json:"players_advancing"`
	PointsPerStage   []int  `json:"points_per_stage"`
	NextRoundID      *uint  `json:"next_round_id"`
	ParentRoundID    *uint  `json:"parent_round_id"`
}

func (h *TourneyHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateTourneyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tourney, err := h.tourneyService.CreateTourney(r.Context(), service.CreateTourneyInput{
		Name:      req.Name,
		Type:      domain.TourneyType(req.Type),
		CreatedBy: userID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tourney)
}

func (h *TourneyHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := min(queryInt(r, "limit", 20), 100)
	offset := queryInt(r, "offset", 0)

	tourneys, err := h.tourneyService.ListTourneys(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tourneys)
}

// Get accepts a numeric id or a slug.
func (h *TourneyHandler) Get(w http.ResponseWriter, r *http.Request) {
	tourney, err := h.tourneyService.GetTourney(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tourney)
}

func (h *TourneyHandler) Start(w http.ResponseWriter, r *http.Request) {
	tourneyID, _ := middleware.GetTourneyID(r.Context())

	var req StartTourneyRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	tourney, err := h.progressionService.StartTourney(r.Context(), tourneyID, req.SeedEarliestRound)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tourney)
}

func (h *TourneyHandler) AddAdmin(w http.ResponseWriter, r *http.Request) {
	tourneyID, _ := middleware.GetTourneyID(r.Context())

	var req AddAdminRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.tourneyService.AddAdmin(r.Context(), tourneyID, req.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *TourneyHandler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	tourneyID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	players, err := h.tourneyService.ListPlayers(r.Context(), tourneyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (h *TourneyHandler) AddPlayer(w http.ResponseWriter, r *http.Request) {
	tourneyID, _ := middleware.GetTourneyID(r.Context())

	var req AddPlayerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	player, err := h.tourneyService.AddPlayer(r.Context(), tourneyID, service.AddPlayerInput{
		Name:   req.Name,
		Seed:   req.Seed,
		UserID: req.UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

func (h *TourneyHandler) ListRounds(w http.ResponseWriter, r *http.Request) {
	tourneyID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rounds, err := h.tourneyService.ListRounds(r.Context(), tourneyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (h *TourneyHandler) CreateRound(w http.ResponseWriter, r *http.Request) {
	tourneyID, _ := middleware.GetTourneyID(r.Context())

	var req CreateRoundRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	round, err := h.tourneyService.CreateRound(r.Context(), tourneyID, service.CreateRoundInput{
		Name:             req.Name,
		PlayersAdvancing: req.PlayersAdvancing,
		PointsPerStage:   req.PointsPerStage,
		NextRoundID:      req.NextRoundID,
		ParentRoundID:    req.ParentRoundID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, round)
}
