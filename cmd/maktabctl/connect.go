package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/maktab-api/internal/repository"
	"github.com/noah-isme/maktab-api/internal/service"
	"github.com/noah-isme/maktab-api/pkg/cache"
	"github.com/noah-isme/maktab-api/pkg/config"
	"github.com/noah-isme/maktab-api/pkg/database"
	"github.com/noah-isme/maktab-api/pkg/database/migrations"
	"github.com/noah-isme/maktab-api/pkg/logger"
)

// connect wires the command line to the configured database.
func connect(cli *commandLine) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	redisClient, err := cache.NewRedis(context.Background(), cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache will not be invalidated", zap.Error(err))
		redisClient = nil
	}

	validate := service.NewValidator()
	classes := repository.NewClassRepository(db)
	fields := repository.NewFieldRepository(db)
	dashboardCache := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), nil, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	cli.users = service.NewUserService(repository.NewUserRepository(db), validate, logr)
	cli.rolls = service.NewStudentService(repository.NewStudentRepository(db), classes, fields, dashboardCache, validate, logr)
	cli.migrate = func(ctx context.Context, command string, args ...string) error {
		return migrations.Run(ctx, db, logr, command, args...)
	}
	cli.close = func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		_ = db.Close()
		_ = logr.Sync()
	}
	return nil
}
