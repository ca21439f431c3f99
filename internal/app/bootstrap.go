package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"videotube-accounts/internal/account"
	"videotube-accounts/internal/auth"
	"videotube-accounts/internal/config"
	"videotube-accounts/internal/db"
	"videotube-accounts/internal/maintenance"
	"videotube-accounts/internal/media"
	"videotube-accounts/internal/observability"
	"videotube-accounts/internal/profile"
)

type Options struct {
	LoadDotEnv bool
}

type Runtime struct {
	Handler http.Handler
	Config  config.Config
	Logger  *observability.Logger
	Close   func() error
}

func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		config.LoadDotEnv()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.LogLevel)

	if err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	database, err := db.Open(ctx, cfg.DatabaseURL, db.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		PingAttempts:    cfg.DBPingAttempts,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrationsOnStartup {
		if err := db.RunMigrations(ctx, database, logger); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	cloudinary, err := media.NewCloudinary(cfg.CloudinaryURL, media.WithFolder(cfg.CloudinaryFolder))
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}

	repo := account.NewRepository(database)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	authService, err := auth.NewService(repo, hasher, auth.Config{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenExpiry,
		RefreshTTL:    cfg.RefreshTokenExpiry,
	}, logger)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("init auth service: %w", err)
	}

	handler := Routes(Deps{
		Auth:          authService,
		Profile:       profile.NewService(repo, hasher, cloudinary, logger),
		Cleanup:       maintenance.NewCleanupHandler(repo, logger, cfg.CronSecret, cfg.CleanupBatchSize),
		LoginLimiter:  auth.NewLoginRateLimiter(cfg.LoginRateLimitMax, cfg.LoginRateLimitWindow),
		Database:      database,
		Logger:        logger,
		SecureCookies: cfg.Production(),
		CORSOrigins:   cfg.CORSOrigins,
	})

	return &Runtime{
		Handler: handler,
		Config:  cfg,
		Logger:  logger,
		Close: func() error {
			observability.FlushSentry()
			return database.Close()
		},
	}, nil
}
