package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dom/gauntlet/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	displayName string
	password    string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		displayName: fmt.Sprintf("testuser_%s", uuid.New().String()[:8]),
		password:    "testpassword123",
	}
}

// WithDisplayName sets the display name
func (b *UserBuilder) WithDisplayName(name string) *UserBuilder {
	b.displayName = name
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// Build creates the user in the database and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		DisplayName:  b.displayName,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	User struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// BuildAndAuthenticate creates a user via API and returns the user and access token
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.User, string) {
	t.Helper()

	reqBody := map[string]string{
		"display_name": b.displayName,
		"password":     b.password,
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(ts.APIURL("/auth/register"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	userID, _ := uuid.Parse(authResp.User.ID)
	user := &domain.User{
		ID:          userID,
		DisplayName: authResp.User.DisplayName,
	}

	return user, authResp.AccessToken
}

// TourneyBuilder creates test tourneys with a builder pattern
type TourneyBuilder struct {
	name    string
	status  domain.Status
	kind    domain.TourneyType
	creator *domain.User
}

// NewTourneyBuilder creates a new TourneyBuilder with default values
func NewTourneyBuilder() *TourneyBuilder {
	return &TourneyBuilder{
		name:   fmt.Sprintf("Test Tourney %s", uuid.New().String()[:8]),
		status: domain.StatusNotStarted,
		kind:   domain.TourneyTypeGauntlet,
	}
}

// WithName sets the tourney name
func (b *TourneyBuilder) WithName(name string) *TourneyBuilder {
	b.name = name
	return b
}

// WithStatus sets the tourney status
func (b *TourneyBuilder) WithStatus(status domain.Status) *TourneyBuilder {
	b.status = status
	return b
}

// WithType sets the tourney format
func (b *TourneyBuilder) WithType(kind domain.TourneyType) *TourneyBuilder {
	b.kind = kind
	return b
}

// WithCreator sets the tourney creator, who also becomes its admin
func (b *TourneyBuilder) WithCreator(user *domain.User) *TourneyBuilder {
	b.creator = user
	return b
}

// Build creates the tourney and its admin row in the database
func (b *TourneyBuilder) Build(t *testing.T, db *gorm.DB) *domain.Tourney {
	t.Helper()

	if b.creator == nil {
		user, _ := NewUserBuilder().Build(t, db)
		b.creator = user
	}

	tourney := &domain.Tourney{
		Name:      b.name,
		Slug:      uuid.New().String(),
		Status:    b.status,
		Type:      b.kind,
		CreatedBy: b.creator.ID,
	}
	if err := db.Create(tourney).Error; err != nil {
		t.Fatalf("failed to create tourney: %v", err)
	}

	admin := &domain.TourneyAdmin{TourneyID: tourney.ID, UserID: b.creator.ID}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("failed to create tourney admin: %v", err)
	}

	return tourney
}

// CreatePlayers adds one tourney player per name
func CreatePlayers(t *testing.T, db *gorm.DB, tourneyID uint, names ...string) []*domain.Player {
	t.Helper()

	players := make([]*domain.Player, len(names))
	for i, name := range names {
		players[i] = &domain.Player{TourneyID: tourneyID, Name: name}
		if err := db.Create(players[i]).Error; err != nil {
			t.Fatalf("failed to create player %s: %v", name, err)
		}
	}
	return players
}

// RoundBuilder creates test rounds with a builder pattern
type RoundBuilder struct {
	tourneyID uint
	name      string
	status    domain.Status
	advancing int
	points    []int
	next      *uint
	parent    *uint
}

// NewRoundBuilder creates a new RoundBuilder for a tourney
func NewRoundBuilder(tourneyID uint) *RoundBuilder {
	return &RoundBuilder{
		tourneyID: tourneyID,
		name:      "Round",
		status:    domain.StatusNotStarted,
		advancing: 1,
	}
}

// WithName sets the round name
func (b *RoundBuilder) WithName(name string) *RoundBuilder {
	b.name = name
	return b
}

// WithStatus sets the round status
func (b *RoundBuilder) WithStatus(status domain.Status) *RoundBuilder {
	b.status = status
	return b
}

// WithAdvancing sets how many players advance
func (b *RoundBuilder) WithAdvancing(n int) *RoundBuilder {
	b.advancing = n
	return b
}

// WithPoints switches the round to points mode
func (b *RoundBuilder) WithPoints(points ...int) *RoundBuilder {
	b.points = points
	return b
}

// WithNext sets the successor round
func (b *RoundBuilder) WithNext(roundID uint) *RoundBuilder {
	b.next = &roundID
	return b
}

// WithParent makes the round a redemption round of parent
func (b *RoundBuilder) WithParent(roundID uint) *RoundBuilder {
	b.parent = &roundID
	return b
}

// Build creates the round in the database
func (b *RoundBuilder) Build(t *testing.T, db *gorm.DB) *domain.Round {
	t.Helper()

	round := &domain.Round{
		TourneyID:        b.tourneyID,
		Name:             b.name,
		Status:           b.status,
		PlayersAdvancing: b.advancing,
		PointsPerStage:   datatypes.JSONSlice[int](append([]int{}, b.points...)),
		NextRoundID:      b.next,
		ParentRoundID:    b.parent,
	}
	if err := db.Create(round).Error; err != nil {
		t.Fatalf("failed to create round: %v", err)
	}
	return round
}

// CreateChart adds a chart to the catalog
func CreateChart(t *testing.T, db *gorm.DB, name string) *domain.Chart {
	t.Helper()

	chart := &domain.Chart{Name: name, Artist: "Test Artist", Difficulty: 10}
	if err := db.Create(chart).Error; err != nil {
		t.Fatalf("failed to create chart: %v", err)
	}
	return chart
}

// CreateStage adds a stage to a round with the given chart pool
func CreateStage(t *testing.T, db *gorm.DB, roundID uint, chartIDs ...uint) *domain.Stage {
	t.Helper()

	stage := &domain.Stage{RoundID: roundID}
	if err := db.Create(stage).Error; err != nil {
		t.Fatalf("failed to create stage: %v", err)
	}
	for _, chartID := range chartIDs {
		entry := domain.StageChart{StageID: stage.ID, ChartID: chartID}
		if err := db.Create(&entry).Error; err != nil {
			t.Fatalf("failed to add chart %d to pool: %v", chartID, err)
		}
		stage.ChartPool = append(stage.ChartPool, entry)
	}
	return stage
}

// Register enters a player into a round
func Register(t *testing.T, db *gorm.DB, roundID, playerID uint) *domain.PlayerRound {
	t.Helper()

	entry := &domain.PlayerRound{RoundID: roundID, PlayerID: playerID}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed to register player %d in round %d: %v", playerID, roundID, err)
	}
	return entry
}

// CreateScore records a score directly in the database
func CreateScore(t *testing.T, db *gorm.DB, stageID, playerRoundID uint, value float64) *domain.Score {
	t.Helper()

	score := &domain.Score{StageID: stageID, PlayerRoundID: playerRoundID, Value: value}
	if err := db.Create(score).Error; err != nil {
		t.Fatalf("failed to create score: %v", err)
	}
	return score
}

// CreateAuthenticatedRequest creates an HTTP request with auth token
func CreateAuthenticatedRequest(t *testing.T, method, url string, body interface{}, token string) *http.Request {
	t.Helper()

	var bodyReader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	} else {
		bodyReader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// Do sends an authenticated JSON request and returns the response
func Do(t *testing.T, method, url string, body interface{}, token string) *http.Response {
	t.Helper()

	resp, err := http.DefaultClient.Do(CreateAuthenticatedRequest(t, method, url, body, token))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
