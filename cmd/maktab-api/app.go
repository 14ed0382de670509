package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-api/internal/handler"
	"github.com/noah-isme/maktab-api/internal/repository"
	"github.com/noah-isme/maktab-api/internal/service"
	"github.com/noah-isme/maktab-api/pkg/cache"
	"github.com/noah-isme/maktab-api/pkg/config"
	"github.com/noah-isme/maktab-api/pkg/database"
	"github.com/noah-isme/maktab-api/pkg/database/migrations"
	"github.com/noah-isme/maktab-api/pkg/jobs"
	"github.com/noah-isme/maktab-api/pkg/storage"
)

// application owns the long lived resources of the server process.
type application struct {
	Router *gin.Engine

	db     *sqlx.DB
	redis  *redis.Client
	queue  *jobs.Queue
	cron   *cron.Cron
	logger *zap.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*application, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	app := &application{db: db, logger: logr}

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(ctx, db, logr); err != nil {
			app.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		// the dashboard works uncached, so a redis outage is not fatal
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		redisClient = nil
	}
	app.redis = redisClient

	metrics := service.NewMetricsService()
	validate := service.NewValidator()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	fieldRepo := repository.NewFieldRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	bookRepo := repository.NewBookRepository(db)
	educationRepo := repository.NewEducationRepository(db)
	reportRepo := repository.NewReportRepository(db)
	reportJobRepo := repository.NewReportJobRepository(db)
	userRepo := repository.NewUserRepository(db)

	classSvc := service.NewClassService(classRepo, cacheSvc, validate, logr)
	fieldSvc := service.NewFieldService(fieldRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, classRepo, fieldRepo, cacheSvc, validate, logr)
	holidaySvc := service.NewHolidayService(holidayRepo, cacheSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, holidaySvc, studentRepo, cacheSvc, metrics, validate, logr)
	bookSvc := service.NewBookService(bookRepo, classRepo, cacheSvc, validate, logr)
	educationSvc := service.NewEducationService(educationRepo, classRepo, bookRepo, cacheSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Stats:      reportRepo,
		Attendance: attendanceRepo,
		Holidays:   holidayRepo,
		Cache:      cacheSvc,
		Metrics:    metrics,
		Logger:     logr,
		Config:     service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	reportSvc := service.NewReportService(reportRepo, educationRepo, logr)
	authSvc := service.NewAuthService(userRepo, metrics, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	limiter := service.NewLoginLimiter(service.LoginLimiterConfig{
		MaxAttempts:  cfg.Auth.MaxAttempts,
		Lockout:      cfg.Auth.LockoutWindow,
		CleanupAge:   cfg.Auth.CleanupAge,
		CleanupEvery: cfg.Auth.CleanupEvery,
	})

	disk, err := storage.NewDisk(cfg.Reports.StorageDir)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("prepare export storage: %w", err)
	}
	exportSvc := service.NewExportService(service.ExportServiceParams{
		Jobs:      reportJobRepo,
		Tables:    reportSvc,
		Files:     disk,
		Signer:    storage.NewSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL),
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
		Config: service.ExportConfig{
			DownloadPath: cfg.APIPrefix + "/reports/download",
			ResultTTL:    cfg.Reports.ResultTTL,
		},
	})
	app.queue = jobs.NewQueue(service.ReportTaskKind, exportSvc.Process, jobs.Options{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Backoff:    2 * time.Second,
		OnGiveUp:   exportSvc.MarkFailed,
		Logger:     logr,
	})
	app.queue.Start(ctx)
	exportSvc.AttachQueue(app.queue)
	if n := exportSvc.RecoverPendingJobs(ctx); n > 0 {
		logr.Info("requeued unfinished export jobs", zap.Int("count", n))
	}

	app.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := app.cron.AddFunc(cfg.Reports.CleanupCron, func() {
		runCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		removed, err := exportSvc.Cleanup(runCtx)
		if err != nil {
			logr.Warn("export cleanup failed", zap.Error(err))
			return
		}
		logr.Info("export cleanup finished", zap.Int("removed", removed))
	}); err != nil {
		app.Close()
		return nil, fmt.Errorf("schedule export cleanup %q: %w", cfg.Reports.CleanupCron, err)
	}
	app.cron.Start()

	app.Router = handler.NewRouter(handler.RouterDeps{
		Config: handler.RouterConfig{
			APIPrefix:      cfg.APIPrefix,
			StaticDir:      cfg.StaticDir,
			AuthEnabled:    cfg.Auth.Enabled,
			EnableDocs:     cfg.Env != config.EnvProduction,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
		},
		Handlers: handler.Handlers{
			Students:   handler.NewStudentHandler(studentSvc),
			Classes:    handler.NewClassHandler(classSvc),
			Fields:     handler.NewFieldHandler(fieldSvc),
			Attendance: handler.NewAttendanceHandler(attendanceSvc),
			Holidays:   handler.NewHolidayHandler(holidaySvc),
			Books:      handler.NewBookHandler(bookSvc),
			Education:  handler.NewEducationHandler(educationSvc),
			Dashboard:  handler.NewDashboardHandler(dashboardSvc),
			Reports:    handler.NewReportHandler(reportSvc, exportSvc),
			Auth:       handler.NewAuthHandler(authSvc),
			Users:      handler.NewUserHandler(userSvc),
			Metrics:    handler.NewMetricsHandler(metrics, db, cacheRepo),
		},
		Auth:    authSvc,
		Limiter: limiter,
		Metrics: metrics,
		Logger:  logr,
	})

	if !cfg.Auth.Enabled {
		logr.Warn("authentication disabled, mutating endpoints are open")
	} else if n, err := userRepo.Count(ctx); err == nil && n == 0 {
		logr.Warn("no user accounts exist, create one with: maktabctl create-user --username admin")
	}
	return app, nil
}

// Close stops background work and releases connections.
func (a *application) Close() {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.queue != nil {
		if n := a.queue.Pending(); n > 0 {
			a.logger.Info("stopping export queue with pending tasks, they resume on next boot", zap.Int("pending", n))
		}
		a.queue.Stop()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", zap.Error(err))
		}
	}
}
