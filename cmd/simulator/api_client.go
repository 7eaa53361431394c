package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIClient handles HTTP communication with the backend
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL + "/api/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Response types matching backend

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type AuthResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Tourney struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Status string `json:"status"`
}

type Player struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type Round struct {
	ID               uint   `json:"id"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	PlayersAdvancing int    `json:"players_advancing"`
	NextRoundID      *uint  `json:"next_round_id"`
	ParentRoundID    *uint  `json:"parent_round_id"`
}

type Chart struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type Stage struct {
	ID            uint  `json:"id"`
	RoundID       uint  `json:"round_id"`
	ChosenChartID *uint `json:"chosen_chart_id"`
}

type PlayerRound struct {
	ID         uint   `json:"id"`
	PlayerID   uint   `json:"player_id"`
	PlayerName string `json:"player_name"`
}

type StandingRow struct {
	Rank       int     `json:"rank"`
	PlayerName string  `json:"player_name"`
	Total      float64 `json:"total"`
	Cumulative float64 `json:"cumulative"`
	Advancing  bool    `json:"advancing"`
}

type Standings struct {
	RoundID    uint          `json:"round_id"`
	PointsMode bool          `json:"points_mode"`
	Rows       []StandingRow `json:"rows"`
}

type EndRoundResult struct {
	Tourney     Tourney `json:"tourney"`
	Advancement struct {
		NextRoundID       *uint  `json:"next_round_id"`
		Advanced          []uint `json:"advanced"`
		RedemptionRoundID *uint  `json:"redemption_round_id"`
		Redeemed          []uint `json:"redeemed"`
	} `json:"advancement"`
}

// RoundSpec describes a round to create
type RoundSpec struct {
	Name             string `json:"name"`
	PlayersAdvancing int    `json:"players_advancing"`
	PointsPerStage   []int  `json:"points_per_stage,omitempty"`
	NextRoundID      *uint  `json:"next_round_id,omitempty"`
	ParentRoundID    *uint  `json:"parent_round_id,omitempty"`
}

// RegisterAdmin creates a new user account and keeps its token for later calls
func (c *APIClient) RegisterAdmin(baseName string) (*User, error) {
	displayName := fmt.Sprintf("%s_%d", baseName, time.Now().UnixNano()%100000)

	body := map[string]string{
		"display_name": displayName,
		"password":     "testpassword123",
	}

	var result AuthResponse
	if err := c.do(http.MethodPost, "/auth/register", body, http.StatusOK, &result); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	c.token = result.AccessToken

	return &result.User, nil
}

// Login authenticates an existing user
func (c *APIClient) Login(displayName, password string) error {
	body := map[string]string{
		"display_name": displayName,
		"password":     password,
	}

	var result AuthResponse
	if err := c.do(http.MethodPost, "/auth/login", body, http.StatusOK, &result); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.token = result.AccessToken
	return nil
}

func (c *APIClient) CreateTourney(name string) (*Tourney, error) {
	var tourney Tourney
	if err := c.do(http.MethodPost, "/tourneys", map[string]string{"name": name}, http.StatusCreated, &tourney); err != nil {
		return nil, fmt.Errorf("create tourney: %w", err)
	}
	return &tourney, nil
}

func (c *APIClient) GetTourney(idOrSlug string) (*Tourney, error) {
	var tourney Tourney
	if err := c.do(http.MethodGet, "/tourneys/"+idOrSlug, nil, http.StatusOK, &tourney); err != nil {
		return nil, fmt.Errorf("get tourney: %w", err)
	}
	return &tourney, nil
}

func (c *APIClient) AddPlayer(tourneyID uint, name string, seed int) (*Player, error) {
	body := map[string]interface{}{"name": name, "seed": seed}

	var player Player
	if err := c.do(http.MethodPost, fmt.Sprintf("/tourneys/%d/players", tourneyID), body, http.StatusCreated, &player); err != nil {
		return nil, fmt.Errorf("add player %s: %w", name, err)
	}
	return &player, nil
}

func (c *APIClient) CreateRound(tourneyID uint, spec RoundSpec) (*Round, error) {
	var round Round
	if err := c.do(http.MethodPost, fmt.Sprintf("/tourneys/%d/rounds", tourneyID), spec, http.StatusCreated, &round); err != nil {
		return nil, fmt.Errorf("create round %s: %w", spec.Name, err)
	}
	return &round, nil
}

func (c *APIClient) SetNextRound(roundID, nextID uint) error {
	if err := c.do(http.MethodPut, fmt.Sprintf("/rounds/%d/next", roundID), map[string]uint{"next_round_id": nextID}, http.StatusOK, nil); err != nil {
		return fmt.Errorf("set next round: %w", err)
	}
	return nil
}

func (c *APIClient) CreateChart(name string, difficulty int) (*Chart, error) {
	body := map[string]interface{}{"name": name, "difficulty": difficulty}

	var chart Chart
	if err := c.do(http.MethodPost, "/charts", body, http.StatusCreated, &chart); err != nil {
		return nil, fmt.Errorf("create chart %s: %w", name, err)
	}
	return &chart, nil
}

func (c *APIClient) CreateStage(roundID uint, chartIDs []uint) (*Stage, error) {
	var stage Stage
	if err := c.do(http.MethodPost, fmt.Sprintf("/rounds/%d/stages", roundID), map[string][]uint{"chart_ids": chartIDs}, http.StatusCreated, &stage); err != nil {
		return nil, fmt.Errorf("create stage: %w", err)
	}
	return &stage, nil
}

func (c *APIClient) ListStages(roundID uint) ([]Stage, error) {
	var stages []Stage
	if err := c.do(http.MethodGet, fmt.Sprintf("/rounds/%d/stages", roundID), nil, http.StatusOK, &stages); err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	return stages, nil
}

func (c *APIClient) ListEntries(roundID uint) ([]PlayerRound, error) {
	var entries []PlayerRound
	if err := c.do(http.MethodGet, fmt.Sprintf("/rounds/%d/players", roundID), nil, http.StatusOK, &entries); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (c *APIClient) StartTourney(tourneyID uint, seed bool) error {
	if err := c.do(http.MethodPost, fmt.Sprintf("/tourneys/%d/start", tourneyID), map[string]bool{"seed_earliest_round": seed}, http.StatusOK, nil); err != nil {
		return fmt.Errorf("start tourney: %w", err)
	}
	return nil
}

func (c *APIClient) StartRound(roundID uint) error {
	if err := c.do(http.MethodPost, fmt.Sprintf("/rounds/%d/start", roundID), nil, http.StatusOK, nil); err != nil {
		return fmt.Errorf("start round: %w", err)
	}
	return nil
}

// PickChart draws a chart from the stage pool at random
func (c *APIClient) PickChart(stageID uint) (*Stage, error) {
	var stage Stage
	if err := c.do(http.MethodPost, fmt.Sprintf("/stages/%d/pick", stageID), map[string]interface{}{}, http.StatusOK, &stage); err != nil {
		return nil, fmt.Errorf("pick chart: %w", err)
	}
	return &stage, nil
}

func (c *APIClient) SubmitScore(stageID, playerRoundID uint, value float64) error {
	body := map[string]interface{}{"player_round_id": playerRoundID, "value": value}
	if err := c.do(http.MethodPost, fmt.Sprintf("/stages/%d/scores", stageID), body, http.StatusCreated, nil); err != nil {
		return fmt.Errorf("submit score: %w", err)
	}
	return nil
}

func (c *APIClient) Standings(roundID uint) (*Standings, error) {
	var standings Standings
	if err := c.do(http.MethodGet, fmt.Sprintf("/rounds/%d/standings", roundID), nil, http.StatusOK, &standings); err != nil {
		return nil, fmt.Errorf("standings: %w", err)
	}
	return &standings, nil
}

func (c *APIClient) EndRound(roundID uint) (*EndRoundResult, error) {
	var result EndRoundResult
	if err := c.do(http.MethodPost, fmt.Sprintf("/rounds/%d/end", roundID), nil, http.StatusOK, &result); err != nil {
		return nil, fmt.Errorf("end round: %w", err)
	}
	return &result, nil
}

// do sends a request and decodes the response into out when it is non-nil
func (c *APIClient) do(method, path string, body interface{}, wantStatus int, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(bodyBytes))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
