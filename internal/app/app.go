package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/templui/repcycle/internal/config"
	"github.com/templui/repcycle/internal/db"
	"github.com/templui/repcycle/internal/metrics"
	"github.com/templui/repcycle/internal/middleware"
	"github.com/templui/repcycle/internal/repository"
	"github.com/templui/repcycle/internal/service"
	"github.com/templui/repcycle/internal/storage"
)

type App struct {
	Cfg            *config.Config
	DB             *sqlx.DB
	Registry       *prometheus.Registry
	Metrics        *metrics.Manager
	AuthLimiter    *middleware.RateLimiter
	AuthService    *service.AuthService
	UserService    *service.UserService
	EmailService   *service.EmailService
	GoalStores     *service.GoalStores
	CycleEngine    *service.CycleEngine
	WorkoutService *service.WorkoutService
	ExportService  *service.ExportService

	unsubscribe func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrationsContext(ctx, database.DB, cfg.DBDriver)
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewManager("server", registry)

	// Repositories
	userRepository := repository.NewUserRepository(database)
	goalRepository := repository.NewGoalRepository(database)
	doneRepository := repository.NewDoneRepository(database)

	// Storage
	archiveStorage, err := storage.New(ctx, cfg)
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	authService := service.NewAuthService(
		userRepository,
		emailService,
		m,
		cfg.JWTSecret,
		cfg.JWTExpiry,
		cfg.IsProduction(),
	)
	userService := service.NewUserService(userRepository, authService, emailService)

	goalStores := service.NewGoalStores(goalRepository, m)
	unsubscribe := authService.OnSessionChange(goalStores.HandleSessionChange)

	cycleEngine := service.NewCycleEngine(goalRepository, nil, m)
	workoutService := service.NewWorkoutService(cycleEngine, goalStores, goalRepository, doneRepository, m)
	exportService := service.NewExportService(goalRepository, archiveStorage, cfg.S3PresignExpiry)

	return &App{
		Cfg:            cfg,
		DB:             database,
		Registry:       registry,
		Metrics:        m,
		AuthLimiter:    middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateLimitWindow),
		AuthService:    authService,
		UserService:    userService,
		EmailService:   emailService,
		GoalStores:     goalStores,
		CycleEngine:    cycleEngine,
		WorkoutService: workoutService,
		ExportService:  exportService,
		unsubscribe:    unsubscribe,
	}, nil
}

// Close stops background work and releases the database.
func (a *App) Close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.AuthLimiter != nil {
		a.AuthLimiter.Stop()
	}
	if a.GoalStores != nil {
		a.GoalStores.Close()
	}
	return db.Close(a.DB)
}
