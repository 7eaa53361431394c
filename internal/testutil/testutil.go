package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/gauntlet/internal/api"
	"github.com/dom/gauntlet/internal/cache"
	"github.com/dom/gauntlet/internal/changefeed"
	"github.com/dom/gauntlet/internal/config"
	"github.com/dom/gauntlet/internal/domain"
	"github.com/dom/gauntlet/internal/repository"
	repoPostgres "github.com/dom/gauntlet/internal/repository/postgres"
	"github.com/dom/gauntlet/internal/service"
	"github.com/dom/gauntlet/internal/websocket"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_gauntlet"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{
		"scores",
		"stage_charts",
		"stages",
		"player_rounds",
		"rounds",
		"charts",
		"players",
		"tourney_admins",
		"tourneys",
		"user_sessions",
		"users",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:               "0", // Random port
		Environment:        "test",
		AllowedOrigins:     []string{"*"},
		JWTSecret:          "test-jwt-secret-key-for-testing-only",
		JWTExpirationHours: 1,
		ChangefeedSubject:  "gauntlet.test",
		StandingsTTL:       time.Minute,
		MaxScore:           1_000_000,
	}
}

// Logger discards everything written to it.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewServices wires every service against db with the standings cache
// disabled.
func NewServices(db *gorm.DB) (*repository.Repositories, *service.Services) {
	repos := repoPostgres.NewRepositories(db)
	return repos, service.NewServices(repos, cache.NewStandingsCache("", 0), TestConfig(), Logger())
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	DB       *TestDB
	Repos    *repository.Repositories
	Services *service.Services
	Hub      *websocket.Hub
	Bus      *changefeed.LocalBus
	Config   *config.Config
}

// NewTestServer creates a complete test server with all dependencies. Writes
// go through the change feed on an in-process bus.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	testDB := NewTestDB(t)
	cfg := TestConfig()
	log := Logger()

	bus := changefeed.NewLocalBus()
	if err := changefeed.RegisterCallbacks(testDB.DB, bus, log); err != nil {
		t.Fatalf("failed to register change feed: %v", err)
	}

	repos := repoPostgres.NewRepositories(testDB.DB)
	services := service.NewServices(repos, cache.NewStandingsCache("", 0), cfg, log)

	hub := websocket.NewHub(services.Tourney, log)
	go hub.Run()
	unsubscribe, err := bus.Subscribe(hub.HandleEvent)
	if err != nil {
		t.Fatalf("failed to subscribe hub: %v", err)
	}

	router := api.NewRouter(services, hub, cfg)
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		DB:       testDB,
		Repos:    repos,
		Services: services,
		Hub:      hub,
		Bus:      bus,
		Config:   cfg,
	}

	t.Cleanup(func() {
		server.Close()
		unsubscribe()
		hub.Stop()
		bus.Close()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}

// WebSocketURL returns the WebSocket URL with token
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + ts.Server.URL[4:] // Replace "http" with "ws"
	return fmt.Sprintf("%s/api/v1/ws?token=%s", wsURL, token)
}
