package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"fanarena/internal/config"
	"fanarena/internal/handler"
	"fanarena/internal/middleware"
	"fanarena/internal/scheduler"
	"fanarena/internal/service"
	"fanarena/internal/store"
	"fanarena/pkg/logger"
	"fanarena/pkg/redis"
)

// Resources holds all resources that need cleanup
type Resources struct {
	pgStore     *store.PostgresStore
	redisClient *redis.Client
	sched       *scheduler.Scheduler
	server      *http.Server
	log         *logger.Logger
	mu          sync.Mutex
	closed      bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error

	r.log.Info("Starting graceful shutdown...")

	// Stop accepting new requests first
	if r.server != nil {
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
	}

	// Let a running sweep finish before the store goes away
	if r.sched != nil {
		r.sched.Stop()
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close Redis connection")
			errs = append(errs, fmt.Errorf("Redis close: %w", err))
		}
	}

	if r.pgStore != nil {
		r.pgStore.Close()
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errs), errs)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Starting fanarena server")

	ctx := context.Background()

	// Document store: Postgres when configured, in-memory otherwise
	var docStore store.Store
	var pgStore *store.PostgresStore
	if cfg.DatabaseURL != "" {
		pgStore, err = store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to database")
		}
		docStore = pgStore
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		docStore = store.NewMemoryStore()
	}

	// Redis read cache is optional
	var redisClient *redis.Client
	var cacheService *service.CacheService
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
		cacheService = service.NewCacheService(redisClient, log.Logger)
	} else {
		log.Warn("REDIS_URL not set, fight reads are uncached")
	}

	// Collaborators and services
	resolver := service.NewStaticResolver(nil)
	notifier := service.NewLogNotifier(log)
	awarder := service.NewStoreCreditAwarder()

	tournamentService := service.NewTournamentService(docStore, resolver, notifier, awarder, log)
	seasonService := service.NewSeasonService(docStore, log)
	fightService := service.NewFightService(docStore, resolver, cacheService, log)

	// Periodic sweeps
	sweeper := scheduler.NewSweeper(docStore, tournamentService, seasonService, scheduler.SweeperConfig{
		VoteThreshold:    cfg.VoteThreshold,
		BattleTolerance:  time.Duration(cfg.SweepToleranceMin) * time.Minute,
		IterationTimeout: time.Duration(cfg.SweepIterationSec) * time.Second,
	}, log)
	sched := scheduler.NewScheduler(sweeper, log)
	if err := sched.Start(ctx); err != nil {
		log.WithError(err).Fatal("Failed to start scheduler")
	}

	router := setupRouter(cfg, log, tournamentService, seasonService, fightService)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	resources := &Resources{
		pgStore:     pgStore,
		redisClient: redisClient,
		sched:       sched,
		server:      server,
		log:         log,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(cfg *config.Config, log *logger.Logger, tournaments *service.TournamentService, seasons *service.SeasonService, fights *service.FightService) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "Authorization"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	tournamentHandler := handler.NewTournamentHandler(tournaments, log)
	divisionHandler := handler.NewDivisionHandler(seasons, fights, log)

	authRequired := middleware.Auth(cfg.JWTSecret, log)
	authOptional := middleware.OptionalAuth(cfg.JWTSecret, log)
	moderatorOnly := middleware.RequireModerator(log)

	r.Get("/health", handler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tournaments", func(r chi.Router) {
			// Public reads
			r.Group(func(r chi.Router) {
				r.Use(authOptional)
				r.Get("/", tournamentHandler.List)
				r.Get("/{id}", tournamentHandler.Get)
			})

			// Authenticated participation
			r.Group(func(r chi.Router) {
				r.Use(authRequired)
				r.Post("/{id}/join", tournamentHandler.Join)
				r.Post("/{id}/leave", tournamentHandler.Leave)
				r.Post("/{id}/matches/{matchId}/vote", tournamentHandler.Vote)
			})

			// Moderator lifecycle
			r.Group(func(r chi.Router) {
				r.Use(authRequired, moderatorOnly)
				r.Post("/", tournamentHandler.Create)
				r.Put("/{id}", tournamentHandler.Update)
				r.Delete("/{id}", tournamentHandler.Delete)
				r.Post("/{id}/start", tournamentHandler.Start)
				r.Post("/{id}/matches/{matchId}/advance", tournamentHandler.AdvanceMatch)
			})
		})

		r.Route("/divisions", func(r chi.Router) {
			// Public reads
			r.Group(func(r chi.Router) {
				r.Use(authOptional)
				r.Get("/seasons", divisionHandler.ListSeasons)
				r.Get("/overview", divisionHandler.Overview)
				r.Get("/{id}/fights", divisionHandler.ListFights)
				r.Get("/fights/{fightId}", divisionHandler.GetFight)
			})

			// Authenticated membership and voting
			r.Group(func(r chi.Router) {
				r.Use(authRequired)
				r.Post("/join", divisionHandler.Join)
				r.Post("/leave", divisionHandler.Leave)
				r.Post("/vote", divisionHandler.Vote)
			})

			// Moderator season and fight management
			r.Group(func(r chi.Router) {
				r.Use(authRequired, moderatorOnly)
				r.Post("/seasons", divisionHandler.CreateSeason)
				r.Patch("/seasons/{id}", divisionHandler.PatchSeason)
				r.Post("/seasons/{id}/activate", divisionHandler.ActivateSeason)
				r.Post("/seasons/{id}/deactivate", divisionHandler.DeactivateSeason)
				r.Post("/{id}/title-fight", divisionHandler.CreateTitleFight)
				r.Post("/{id}/contender-match", divisionHandler.CreateContenderMatch)
				r.Post("/{id}/official-fight", divisionHandler.CreateOfficialFight)
			})
		})
	})

	return r
}
