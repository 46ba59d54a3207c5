package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicore/clinicore/internal/app"
	"github.com/clinicore/clinicore/internal/assignments"
	"github.com/clinicore/clinicore/internal/auth"
	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/catalog"
	"github.com/clinicore/clinicore/internal/observability"
	"github.com/clinicore/clinicore/internal/platform/cache"
	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/internal/practiceroles"
	"github.com/clinicore/clinicore/internal/shared"
	"github.com/clinicore/clinicore/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	activityLog := shared.NewActivityLogger(pool)
	metrics := observability.NewMetrics()

	authzRepo := authz.NewRepository(pool)
	resolver := authz.NewResolver(authzRepo)
	cachedResolver := authz.NewCachedResolver(resolver, redisClient, cfg.AuthzCacheTTL, logger)
	cachedResolver.SetCounters(
		metrics.CacheHit,
		func() { metrics.CacheMiss(); metrics.ResolutionComputed() },
		metrics.PracticeInvalidated,
	)
	guard := authz.Middleware{Source: cachedResolver, Logger: logger}

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService, cfg.PlatformKeyHash)

	practiceRolesRepo := practiceroles.NewRepository(pool)
	practiceRolesService := practiceroles.NewService(practiceRolesRepo, cachedResolver, activityLog, logger)
	practiceRolesHandler := practiceroles.NewHandler(logger, practiceRolesService)

	assignmentsRepo := assignments.NewRepository(pool)
	assignmentsService := assignments.NewService(assignmentsRepo, cachedResolver, activityLog, logger)
	assignmentsHandler := assignments.NewHandler(logger, assignmentsService)

	authzHandler := authz.NewHandler(logger, cachedResolver)
	authHandler := auth.NewHandler(logger, assignmentsRepo, cfg.PlatformKeyHash)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, logger)
	usersHandler := users.NewHandler(logger, usersService)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		AuthHandler:          authHandler,
		CatalogHandler:       catalogHandler,
		PracticeRolesHandler: practiceRolesHandler,
		AssignmentsHandler:   assignmentsHandler,
		AuthzHandler:         authzHandler,
		UsersHandler:         usersHandler,
		Guard:                guard,
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
