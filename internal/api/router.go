package api

import (
	"net/http"

	"github.com/dom/gauntlet/internal/api/handlers"
	"github.com/dom/gauntlet/internal/api/middleware"
	"github.com/dom/gauntlet/internal/config"
	"github.com/dom/gauntlet/internal/service"
	"github.com/dom/gauntlet/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(services *service.Services, hub *websocket.Hub, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth)
	tourneyHandler := handlers.NewTourneyHandler(services.Tourney, services.Progression)
	roundHandler := handlers.NewRoundHandler(services)
	stageHandler := handlers.NewStageHandler(services.Stage, services.Score)
	chartHandler := handlers.NewChartHandler(services.Stage)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth)

	scope := handlers.NewScope(services)
	authed := middleware.Auth(services.Auth)
	adminOf := func(resolve middleware.TourneyResolver) func(http.Handler) http.Handler {
		return middleware.RequireTourneyAdmin(services.Tourney, resolve)
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(authed)
				r.Get("/me", authHandler.Me)
				r.Post("/logout", authHandler.Logout)
			})
		})

		r.Route("/charts", func(r chi.Router) {
			r.Get("/", chartHandler.List)
			r.With(authed).Post("/", chartHandler.Create)
		})

		r.Route("/tourneys", func(r chi.Router) {
			r.Get("/", tourneyHandler.List)
			r.With(authed).Post("/", tourneyHandler.Create)
			r.Get("/{id}", tourneyHandler.Get)
			r.Get("/{id}/players", tourneyHandler.ListPlayers)
			r.Get("/{id}/rounds", tourneyHandler.ListRounds)

			// Tourney admin routes
			r.Group(func(r chi.Router) {
				r.Use(authed, adminOf(scope.Tourney))
				r.Post("/{id}/start", tourneyHandler.Start)
				r.Post("/{id}/players", tourneyHandler.AddPlayer)
				r.Post("/{id}/rounds", tourneyHandler.CreateRound)
				r.Post("/{id}/admins", tourneyHandler.AddAdmin)
			})
		})

		r.Route("/rounds/{id}", func(r chi.Router) {
			r.Get("/", roundHandler.Get)
			r.Get("/players", roundHandler.ListEntries)
			r.Get("/stages", roundHandler.ListStages)
			r.Get("/standings", roundHandler.Standings)

			r.Group(func(r chi.Router) {
				r.Use(authed, adminOf(scope.Round))
				r.Post("/start", roundHandler.Start)
				r.Post("/end", roundHandler.End)
				r.Put("/next", roundHandler.SetNext)
				r.Post("/players", roundHandler.RegisterPlayer)
				r.Post("/stages", roundHandler.CreateStage)
			})
		})

		r.Route("/stages/{id}", func(r chi.Router) {
			r.Get("/", stageHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(authed, adminOf(scope.Stage))
				r.Post("/pool", stageHandler.AddToPool)
				r.Delete("/pool/{chartId}", stageHandler.RemoveFromPool)
				r.Post("/pick", stageHandler.Pick)
				r.Post("/scores", stageHandler.SubmitScore)
			})
		})

		r.Route("/scores/{id}", func(r chi.Router) {
			r.Use(authed, adminOf(scope.Score))
			r.Put("/", stageHandler.UpdateScore)
			r.Delete("/", stageHandler.DeleteScore)
		})

		// WebSocket endpoint
		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
