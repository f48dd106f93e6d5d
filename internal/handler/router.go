package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"squadhub/internal/container"
	"squadhub/internal/middleware"
)

// NewRouter configures and returns the HTTP router
func NewRouter(c *container.Container) http.Handler {
	cfg := c.GetConfig()
	log := c.GetLogger()
	services := c.Services

	r := chi.NewRouter()

	corsConfig := &middleware.CORSConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization",
			"X-Request-ID", middleware.HeaderUserID, middleware.HeaderUserName, middleware.HeaderUserEmail, middleware.HeaderUserPremium},
		ExposedHeaders:   []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           86400,
	}

	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	healthHandler := NewHealthHandler(c)
	postingHandler := NewPostingHandler(services.Recruitment, log)
	teamHandler := NewTeamHandler(services.Membership, services.Applications, log)
	chatHandler := NewChatHandler(services.Chat, cfg.ChatWindow, log)
	activityHandler := NewActivityHandler(services.Activity, log)
	tournamentHandler := NewTournamentHandler(services.Tournaments, log)
	wsHandler := NewWSHandler(services, cfg.ChatWindow, cfg.AllowedOrigins, log)

	// Long-lived sockets stay clear of compression and request timeouts
	r.Route("/ws", func(r chi.Router) {
		r.Use(middleware.Identity(log))

		r.Get("/teams/{teamID}", wsHandler.Team)
		r.Get("/tournaments/{tournamentID}/matches/{matchID}", wsHandler.Match)
		r.Get("/me/notices", wsHandler.Notices)
	})

	r.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Compress(5))
		r.Use(chiMiddleware.Timeout(60 * time.Second))

		r.Get("/health", healthHandler.Check)

		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.Identity(log))

			r.Route("/posts", func(r chi.Router) {
				r.Get("/", postingHandler.List)
				r.Post("/", postingHandler.Create)
				r.Get("/{postID}", postingHandler.Get)
			})

			r.Route("/teams/{teamID}", func(r chi.Router) {
				r.Delete("/", teamHandler.Disband)
				r.Post("/leave", teamHandler.Leave)

				r.Post("/members/{uid}/promote", teamHandler.Promote)
				r.Post("/members/{uid}/demote", teamHandler.Demote)
				r.Delete("/members/{uid}", teamHandler.Kick)

				r.Get("/applications", teamHandler.ListApplications)
				r.Post("/applications", teamHandler.Apply)
				r.Post("/applications/{appID}/accept", teamHandler.Accept)
				r.Post("/applications/{appID}/reject", teamHandler.Reject)
				r.Delete("/applications/{appID}", teamHandler.Withdraw)

				r.Get("/messages", chatHandler.TeamHistory)
				r.Post("/messages", chatHandler.TeamSend)

				r.Get("/activity", activityHandler.Team)
			})

			r.Route("/me", func(r chi.Router) {
				r.Get("/applications", teamHandler.MyApplications)
				r.Get("/notices", teamHandler.Notices)
				r.Delete("/notices/{teamID}/{appID}", teamHandler.DismissNotice)
				r.Get("/activity", activityHandler.Mine)
			})

			r.Route("/tournaments", func(r chi.Router) {
				r.Get("/", tournamentHandler.List)
				r.Get("/{tournamentID}", tournamentHandler.Get)

				// Match chat is open to every signed-in viewer
				r.Get("/{tournamentID}/matches/{matchID}/messages", chatHandler.MatchHistory)
				r.Post("/{tournamentID}/matches/{matchID}/messages", chatHandler.MatchSend)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin(services.Tournaments.IsAdmin, log))

					r.Post("/", tournamentHandler.Create)
					r.Put("/{tournamentID}/participants", tournamentHandler.UpdateParticipants)
					r.Post("/{tournamentID}/bracket", tournamentHandler.GenerateBracket)
					r.Post("/{tournamentID}/matches/{matchID}/winner", tournamentHandler.DeclareWinner)
					r.Put("/{tournamentID}/matches/{matchID}/scores", tournamentHandler.UpdateScores)
					r.Post("/{tournamentID}/matches/{matchID}/reset", tournamentHandler.ResetMatch)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
