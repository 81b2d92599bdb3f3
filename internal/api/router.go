package api

import (
	"net/http"
	"time"

	"cparena/internal/api/handler"
	"cparena/internal/api/middleware"
	"cparena/internal/app/service"
	"cparena/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	policyService *service.PolicyService,
	accountService *service.AccountService,
	challengeService *service.ChallengeService,
	contestService *service.ContestService,
	scoreService *service.ScoreService,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger) // Chi's logger
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// JWT Auth Middleware Setup. Searches for a token in
	// "Authorization: Bearer T" and puts claims in context.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		// Auth routes (public)
		authHandler := handler.NewAuthHandler(authService, policyService)
		v1.Group(func(publicAuth chi.Router) {
			authHandler.RegisterRoutes(publicAuth)
		})

		// Leaderboard routes (public)
		leaderboardHandler := handler.NewLeaderboardHandler(scoreService)
		v1.Route("/leaderboard", leaderboardHandler.RegisterRoutes)

		// Everything below requires authentication.
		v1.Group(func(authed chi.Router) {
			authed.Use(middleware.Authenticator)

			accountHandler := handler.NewAccountHandler(accountService)
			authed.Route("/account", accountHandler.RegisterRoutes)

			challengeHandler := handler.NewChallengeHandler(challengeService)
			authed.Route("/challenges", challengeHandler.RegisterRoutes)

			contestHandler := handler.NewContestHandler(contestService)
			authed.Route("/contests", contestHandler.RegisterRoutes)

			authHandler.RegisterAdminRoutes(authed)
		})
	})

	return r
}
