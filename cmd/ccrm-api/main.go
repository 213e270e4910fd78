package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ccrm-api/api/swagger"
	"github.com/noah-isme/ccrm-api/internal/handler"
	"github.com/noah-isme/ccrm-api/internal/registry"
	"github.com/noah-isme/ccrm-api/internal/repository"
	"github.com/noah-isme/ccrm-api/internal/service"
	"github.com/noah-isme/ccrm-api/pkg/cache"
	"github.com/noah-isme/ccrm-api/pkg/config"
	"github.com/noah-isme/ccrm-api/pkg/database"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/logger"
	"github.com/noah-isme/ccrm-api/pkg/storage"
)

// @title CCRM API
// @version 1.0.0
// @description Campus course and records management: students, courses, enrollments, transcripts and CSV interchange.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New()
	locks := service.NewKeyedMutex()
	metrics := service.NewMetricsService()
	metrics.TrackRecordCounts(reg.Counts)

	var redisClient *redis.Client
	if cfg.Transcript.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, transcript cache disabled", zap.Error(err))
			redisClient = nil
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, repository.DefaultCachePrefix, logr)
	defer cacheRepo.Close() //nolint:errcheck
	transcriptCache := service.NewTranscriptCache(cacheRepo, metrics, cfg.Transcript.CacheTTL, logr, redisClient != nil)

	var db *sqlx.DB
	if cfg.Mirror.Enabled {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer db.Close() //nolint:errcheck
	}
	snapshots := repository.NewSnapshotRepository(db)
	if db != nil {
		if err := snapshots.EnsureSchema(ctx); err != nil {
			logr.Fatal("failed to prepare mirror schema", zap.Error(err))
		}
	}

	auth := service.NewAuthService(nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		AdminEmail:        cfg.Admin.Email,
		AdminPasswordHash: cfg.Admin.PasswordHash,
	})
	students := service.NewStudentService(reg, locks, nil, logr)
	courses := service.NewCourseService(reg, locks, nil, logr)
	instructors := service.NewInstructorService(reg, locks, nil, logr)
	enrollments := service.NewEnrollmentService(reg, locks, cfg.Records.MaxCreditsPerSemester, metrics, logr)
	transcripts := service.NewTranscriptService(reg, transcriptCache, logr)
	enrollments.SetTranscriptInvalidator(transcripts)

	signer := storage.NewSignedURLSigner(cfg.Records.DownloadSecret, cfg.Records.DownloadTTL)
	interchange := service.NewInterchangeService(reg, locks, signer, metrics, service.InterchangeConfig{
		DataDir:   cfg.Records.DataDir,
		APIPrefix: cfg.APIPrefix,
	}, logr)
	mirror := service.NewMirrorService(reg, locks, snapshots, metrics, logr, db != nil)

	backups, err := service.NewBackupService(service.BackupConfig{
		Dir:        cfg.Backups.Dir,
		Workers:    cfg.Backups.WorkerConcurrency,
		MaxRetries: cfg.Backups.WorkerRetries,
		RetryDelay: 2 * time.Second,
	}, interchange, metrics, logr)
	if err != nil {
		logr.Fatal("failed to prepare backups", zap.Error(err))
	}
	backups.Start(ctx)
	defer backups.Stop()

	if cfg.Records.LoadOnStart {
		loadOnStart(ctx, interchange, logr)
	}

	checks := map[string]handler.ReadinessCheck{}
	if redisClient != nil {
		checks["redis"] = func(c *gin.Context) error { return redisClient.Ping(c.Request.Context()).Err() }
	}
	if db != nil {
		checks["postgres"] = func(c *gin.Context) error { return db.PingContext(c.Request.Context()) }
	}

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Metrics:        metrics,
		Tokens:         auth,
		Logger:         logr,
	}, handler.Handlers{
		Auth:        handler.NewAuthHandler(auth),
		Students:    handler.NewStudentHandler(students, enrollments),
		Courses:     handler.NewCourseHandler(courses, enrollments),
		Instructors: handler.NewInstructorHandler(instructors),
		Enrollments: handler.NewEnrollmentHandler(enrollments),
		Transcripts: handler.NewTranscriptHandler(transcripts),
		Interchange: handler.NewInterchangeHandler(interchange),
		Backups:     handler.NewBackupHandler(backups, cfg.Backups.RetentionDays),
		Mirror:      handler.NewMirrorHandler(mirror),
		Metrics:     handler.NewMetricsHandler(metrics, checks),
	})

	if cfg.Env != config.EnvProduction {
		router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}

	if cfg.Records.SaveOnShutdown {
		report, err := interchange.ExportAll(shutdownCtx, interchange.DataDir())
		if err != nil {
			logr.Error("failed to save registry", zap.Error(err))
		} else {
			logr.Info("registry saved", zap.String("dir", report.Dir), zap.Any("rows", report.Rows))
		}
	}
}

func loadOnStart(ctx context.Context, interchange *service.InterchangeService, logr *zap.Logger) {
	report, err := interchange.ImportAll(ctx, interchange.DataDir())
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrIOFailure.Code) {
			logr.Warn("no data loaded, starting with an empty registry", zap.String("dir", interchange.DataDir()), zap.Error(err))
			return
		}
		logr.Fatal("failed to load registry", zap.Error(err))
	}
	logr.Info("registry loaded",
		zap.Int("students", report.Students),
		zap.Int("courses", report.Courses),
		zap.Int("enrollments", report.Enrollments),
		zap.Int("instructors", report.Instructors),
		zap.Int("skipped", len(report.Skipped)))
}
