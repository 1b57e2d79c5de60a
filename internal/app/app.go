package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rafaelguerrae/TeamSync/api"
	"github.com/rafaelguerrae/TeamSync/internal/auth"
	"github.com/rafaelguerrae/TeamSync/internal/config"
	"github.com/rafaelguerrae/TeamSync/internal/database"
	"github.com/rafaelguerrae/TeamSync/internal/event"
	"github.com/rafaelguerrae/TeamSync/internal/handler"
	"github.com/rafaelguerrae/TeamSync/internal/middleware"
	"github.com/rafaelguerrae/TeamSync/internal/repository"
	"github.com/rafaelguerrae/TeamSync/internal/router"
	"github.com/rafaelguerrae/TeamSync/internal/service"
)

type App struct {
	server       *http.Server
	logger       *slog.Logger
	cleanupFuncs []func()
}

type stores struct {
	users  service.UserStore
	teams  service.TeamStore
	health *handler.HealthHandler
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{logger: logger}
	defer func() {
		if err != nil {
			a.cleanup()
		}
	}()

	st, err := a.openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	access, err := auth.NewCodec(auth.KindAccess, cfg.JWTAccessSecret, cfg.JWTAccessTTL,
		auth.WithIssuer(cfg.JWTIssuer), auth.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize access token codec: %w", err)
	}
	refresh, err := auth.NewCodec(auth.KindRefresh, cfg.JWTRefreshSecret, cfg.JWTRefreshTTL,
		auth.WithIssuer(cfg.JWTIssuer), auth.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize refresh token codec: %w", err)
	}

	bus := event.NewBus()
	a.cleanupFuncs = append(a.cleanupFuncs, bus.Close)
	if cfg.AMQPURL != "" {
		forwarder, err := event.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
		}
		forwarder.Start(bus)
		a.cleanupFuncs = append(a.cleanupFuncs, func() {
			if err := forwarder.Close(); err != nil {
				logger.Warn("failed to close AMQP forwarder", "error", err)
			}
		})
		logger.Info("forwarding events to AMQP", "exchange", cfg.AMQPExchange)
	}

	auditService, err := service.NewAuditService(cfg.AuditLogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit log: %w", err)
	}
	auditService.Start(bus)
	a.cleanupFuncs = append(a.cleanupFuncs, auditService.Close)

	rateOpts, err := a.rateLimitOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}

	authService := service.NewAuthService(st.users, access, refresh, bus)
	userService := service.NewUserService(st.users, st.teams)
	teamService := service.NewTeamService(st.teams, bus)

	docsHandler, err := handler.NewDocsHandler(ctx, api.OpenAPI)
	if err != nil {
		return nil, fmt.Errorf("failed to load API document: %w", err)
	}

	appRouter := router.New(cfg, logger,
		middleware.NewAuthMiddleware(authService),
		middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM, rateOpts...),
		router.Handlers{
			Auth:   handler.NewAuthHandler(authService, handler.NewRefreshCookie(cfg.IsProduction(), authService.RefreshTTL())),
			User:   handler.NewUserHandler(userService),
			Team:   handler.NewTeamHandler(teamService),
			Audit:  handler.NewAuditHandler(auditService),
			Docs:   docsHandler,
			Health: st.health,
		},
	)

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	if cfg.StorageDriver == config.DriverMemory {
		a.logger.Warn("using in-memory storage; data is lost on restart")
		mem := repository.NewMemoryStore()
		return stores{users: mem.Users(), teams: mem.Teams(), health: handler.NewHealthHandler(nil)}, nil
	}

	a.logger.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, database.Options{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return stores{}, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.cleanupFuncs = append(a.cleanupFuncs, db.Close)

	if err := db.Migrate(ctx); err != nil {
		return stores{}, fmt.Errorf("failed to migrate database: %w", err)
	}
	a.logger.Info("database ready")

	return stores{
		users:  repository.NewUserRepository(db.Pool),
		teams:  repository.NewTeamRepository(db.Pool),
		health: handler.NewHealthHandler(db),
	}, nil
}

func (a *App) rateLimitOptions(ctx context.Context, cfg *config.Config) ([]middleware.RateLimitOption, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = client.Close() })

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	a.logger.Info("rate limit windows shared through redis")

	return []middleware.RateLimitOption{
		middleware.WithRateBackend(middleware.NewRedisRateBackend(client, "teamsync:ratelimit")),
	}, nil
}

// cleanup runs in reverse registration order.
func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then drains
// in-flight requests before releasing the store and broker connections.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		a.cleanup()
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)
	a.cleanup()
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	a.logger.Info("server stopped")
	return nil
}
