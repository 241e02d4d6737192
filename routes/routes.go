package routes

import (
	"github.com/Rosdorosh/Crypto-Liga/handlers"
	"github.com/Rosdorosh/Crypto-Liga/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

type Handlers struct {
	User       *handlers.UserHandler
	Tournament *handlers.TournamentHandler
	Admin      *handlers.AdminHandler
}

func InitRoutes(h Handlers, adminToken string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Публичные маршруты для просмотра турнира
	router.Get("/teams", h.Tournament.ListTeams)
	router.Get("/matches", h.Tournament.ListMatches)
	router.Get("/prices", h.Tournament.LivePrices)
	router.Get("/prize-fund", h.Tournament.PrizeFund)
	router.Get("/results", h.Tournament.LatestResults)
	router.Get("/tournament", h.Tournament.GetStatus)

	router.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/finance", h.User.GetFinance)
		r.Get("/wallet", h.User.GetWalletBalance)
		r.Post("/deposit", h.User.Deposit)
		r.Post("/withdraw", h.User.Withdraw)
		r.Post("/reserve", h.User.ReserveTeam)
		r.Get("/ref-code", h.User.GetRefCode)
		r.Post("/ref-code", h.User.ApplyRefCode)
		r.Get("/payments/{paymentID}", h.User.VerifyPayment)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(adminToken))

		r.Post("/tournament/start", h.Admin.StartTournament)
		r.Post("/tournament/stop", h.Admin.StopTournament)
		r.Post("/tournament/draw", h.Admin.DrawBracket)
		r.Get("/settings", h.Admin.GetSettings)
		r.Put("/settings", h.Admin.UpdateSettings)
		r.Post("/matches/{matchID}/start", h.Admin.StartMatch)
		r.Post("/matches/{matchID}/complete", h.Admin.CompleteMatch)
		r.Post("/prices/reset", h.Admin.ResetPrices)
		r.Get("/feed/health", h.Admin.FeedHealth)
		r.Get("/balance", h.Admin.GetBalance)
	})

	return router
}
