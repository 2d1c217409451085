package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/olegbrv/storefront/backend/internal/config"
	pgrepo "github.com/olegbrv/storefront/backend/internal/repo/postgres"
	redrepo "github.com/olegbrv/storefront/backend/internal/repo/redis"
	authsvc "github.com/olegbrv/storefront/backend/internal/services/auth"
	ratesvc "github.com/olegbrv/storefront/backend/internal/services/rate"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	codec, err := authsvc.NewTokenCodec(
		cfg.Auth.AccessSecret,
		cfg.Auth.RefreshSecret,
		cfg.Auth.AccessTTL,
		cfg.Auth.RefreshTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("create token codec: %w", err)
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, poolErr := pgrepo.NewPool(ctx, cfg.Postgres.DSN); poolErr != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(poolErr))
	} else {
		pool = p
		if migrateErr := pgrepo.RunMigrations(ctx, cfg.Postgres.DSN); migrateErr != nil {
			log.Warn("schema migrations failed", zap.Error(migrateErr))
		}
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateRepo := redrepo.NewRateRepo(redisClient)
	userRepo := pgrepo.NewUserRepo(pool)

	authService := authsvc.NewService(codec, userRepo, cfg.Auth.BcryptCost)
	loginLimiter := ratesvc.NewLimiter(rateRepo, cfg.Limits.LoginPerMinute, cfg.Limits.LoginPerQuarterHour)
	authService.AttachLoginLimiter(loginLimiter)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		AuthService:   authService,
		TokenCodec:    codec,
		UserLoader:    userRepo,
		UserLister:    userRepo,
		RefreshWindow: cfg.Auth.RefreshWindow,
		Logger:        log,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
