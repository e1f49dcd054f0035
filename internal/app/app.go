package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/flag-practice/internal/auth/jwt"
	"github.com/gokatarajesh/flag-practice/internal/catalog"
	"github.com/gokatarajesh/flag-practice/internal/config"
	"github.com/gokatarajesh/flag-practice/internal/db/repository"
	"github.com/gokatarajesh/flag-practice/internal/logging"
	"github.com/gokatarajesh/flag-practice/internal/practice"
	"github.com/gokatarajesh/flag-practice/internal/server"
	ws "github.com/gokatarajesh/flag-practice/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	hub   *ws.Hub
	http  *http.Server
}

// New bootstraps logger, Postgres, Redis, the practice engine and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	tokens := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		Issuer: cfg.Security.JWTIssuer,
	})

	catalogSvc := catalog.NewService(
		repository.NewFlagRepository(pool),
		catalog.NewCache(redisClient, cfg.Catalog.CacheTTL),
		logger,
	)

	practiceSvc := practice.NewService(
		repository.NewSessionRepository(pool),
		catalogSvc,
		practice.NewRedisLocker(redisClient, cfg.Practice.SubmitLockTTL, logger),
		practice.NewMetrics(prometheus.DefaultRegisterer),
		practice.ServiceOptions{
			Generator: practice.GeneratorOptions{
				WarnThreshold:    cfg.Practice.GenerationWarnThreshold,
				MaxSessionLength: cfg.Practice.MaxSessionLength,
			},
		},
		logger,
	)

	hub := ws.NewHub(logger)
	wsHandler := practice.NewWSHandler(practiceSvc, hub, server.NewUpgrader(cfg.CORS), logger)

	router := server.NewRouter(cfg, logger, tokens, server.Handlers{
		Catalog:    catalog.NewHTTPHandler(catalogSvc, logger),
		Practice:   practice.NewHTTPHandler(practiceSvc, wsHandler, logger),
		PracticeWS: wsHandler,
		Metrics:    promhttp.Handler(),
		Ping: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		},
	})

	return &Application{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		redis:  redisClient,
		hub:    hub,
		http:   server.NewHTTPServer(cfg, router),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}
	// hijacked websocket connections are not closed by Shutdown
	a.hub.CloseAll()

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
