package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/templui/repcycle/internal/app"
	"github.com/templui/repcycle/internal/handler"
	"github.com/templui/repcycle/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService, app.Cfg)
	account := handler.NewAccountHandler(app.UserService, app.AuthService)
	goal := handler.NewGoalHandler(app.GoalStores, app.CycleEngine)
	cycle := handler.NewCycleHandler(app.CycleEngine, app.GoalStores)
	export := handler.NewExportHandler(app.ExportService, app.CycleEngine)
	workout := handler.NewWorkoutHandler(app.WorkoutService, app.CycleEngine)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /healthz", handler.Health(app.DB))
	if app.Cfg.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{Registry: app.Registry}))
	}

	// Auth (rate limited)
	rateLimiter := middleware.RateLimit(app.AuthLimiter, app.Metrics)

	mux.HandleFunc("POST /api/auth/signup", rateLimiter(middleware.RequireGuest(auth.SignUp)))
	mux.HandleFunc("POST /api/auth/signin", rateLimiter(middleware.RequireGuest(auth.SignIn)))
	mux.HandleFunc("POST /api/auth/signout", auth.SignOut)
	mux.HandleFunc("GET /api/auth/session", auth.Session)

	// OAuth
	mux.HandleFunc("GET /auth/google", rateLimiter(middleware.RequireGuest(auth.GoogleAuth)))
	mux.HandleFunc("GET /auth/google/callback", rateLimiter(auth.GoogleCallback))
	mux.HandleFunc("GET /auth/github", rateLimiter(middleware.RequireGuest(auth.GitHubAuth)))
	mux.HandleFunc("GET /auth/github/callback", rateLimiter(auth.GitHubCallback))

	// ============================================================================
	// PROTECTED ROUTES (/api/*)
	// ============================================================================

	// Account
	mux.HandleFunc("PUT /api/account/password", middleware.RequireAuth(account.UpdatePassword))
	mux.HandleFunc("DELETE /api/account", middleware.RequireAuth(account.Delete))

	// Goals
	mux.HandleFunc("GET /api/goals", middleware.RequireAuth(goal.List))
	mux.HandleFunc("GET /api/goals/export", middleware.RequireAuth(export.Export))
	mux.HandleFunc("POST /api/goals", middleware.RequireAuth(goal.Create))
	mux.HandleFunc("PATCH /api/goals/{id}", middleware.RequireAuth(goal.Update))
	mux.HandleFunc("DELETE /api/goals/{id}", middleware.RequireAuth(goal.Delete))
	mux.HandleFunc("PUT /api/goals/{id}/active", middleware.RequireAuth(goal.SetActive))
	mux.HandleFunc("POST /api/goals/{id}/toggle", middleware.RequireAuth(goal.Toggle))
	mux.HandleFunc("GET /api/categories", middleware.RequireAuth(export.Categories))

	// Microcycles
	mux.HandleFunc("GET /api/cycles", middleware.RequireAuth(cycle.State))
	mux.HandleFunc("POST /api/cycles/advance", middleware.RequireAuth(cycle.Advance))
	mux.HandleFunc("POST /api/cycles/{n}/archive", middleware.RequireAuth(export.Archive))

	// Workout
	mux.HandleFunc("GET /api/workout/next", middleware.RequireAuth(workout.Next))
	mux.HandleFunc("POST /api/workout/done", middleware.RequireAuth(workout.Done))
	mux.HandleFunc("POST /api/workout/pause", middleware.RequireAuth(workout.Pause))
	mux.HandleFunc("GET /api/workout/history", middleware.RequireAuth(workout.History))

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.RequestLogging,
		middleware.Recovery(app.Metrics),
		middleware.SecurityHeaders,
		middleware.Config(app.Cfg),
		middleware.AuthMiddleware(app.AuthService),
		middleware.CSRFProtection,
		middleware.Metrics(app.Metrics), // innermost: reads r.Pattern set by the mux
	)

	return handler
}
