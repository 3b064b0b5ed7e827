package main

import (
	"context"
	"fmt"
	"log"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-adp-api/api/swagger"
	internalhandler "github.com/noah-isme/sma-adp-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-adp-api/internal/middleware"
	"github.com/noah-isme/sma-adp-api/internal/repository"
	"github.com/noah-isme/sma-adp-api/internal/scheduler"
	"github.com/noah-isme/sma-adp-api/internal/service"
	"github.com/noah-isme/sma-adp-api/pkg/cache"
	"github.com/noah-isme/sma-adp-api/pkg/config"
	"github.com/noah-isme/sma-adp-api/pkg/database"
	"github.com/noah-isme/sma-adp-api/pkg/jobs"
	"github.com/noah-isme/sma-adp-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-adp-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-adp-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-adp-api/pkg/storage"
)

// @title Timetable Scheduler API
// @version 0.1.0
// @description Constraint-based timetable generation service
// @BasePath /
// @schemes http

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

	metricsSvc := service.NewMetricsService()
	metricsHandler := internalhandler.NewMetricsHandler(metricsSvc)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise database", "error", err)
	}
	defer db.Close()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/snapshot", metricsHandler.Snapshot)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		registerPprof(r)
	}

	api := r.Group(cfg.APIPrefix)

	batchRepo := repository.NewBatchRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	labRepo := repository.NewLabRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	jobRepo := repository.NewJobRepository(db)

	var cacheSvc *service.CacheService
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("resource index cache disabled", "error", err)
	} else {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, 0, logr, true)
		defer redisClient.Close()
	}

	var schedulerHandler *internalhandler.ScheduleGeneratorHandler
	if cfg.Scheduler.Enabled {
		schedulerSvc := service.NewScheduleGeneratorService(
			db,
			batchRepo,
			courseRepo,
			labRepo,
			facultyRepo,
			roomRepo,
			availabilityRepo,
			timetableRepo,
			jobRepo,
			nil,
			nil,
			logr,
			cacheSvc,
			service.ScheduleGeneratorConfig{
				PopulationSize: cfg.Scheduler.PopulationSize,
				Iterations:     cfg.Scheduler.Iterations,
				Mode: scheduler.Mode{
					Strict:                  cfg.Scheduler.Strict,
					MaxFacultyPerDayStrict:  cfg.Scheduler.MaxFacultyPerDayStrict,
					MaxFacultyPerDayRelaxed: cfg.Scheduler.MaxFacultyPerDayRelaxed,
					MaxConsecutive:          cfg.Scheduler.MaxConsecutive,
				},
				Seed:        cfg.Scheduler.Seed,
				MaxAttempts: cfg.Scheduler.MaxAttempts,
				GAWorkers:   cfg.Scheduler.GAWorkers,
			},
		)

		workers := cfg.Scheduler.WorkerConcurrency
		if workers <= 0 {
			workers = 1
		}
		queueCfg := jobs.QueueConfig{
			Workers:    workers,
			BufferSize: cfg.Scheduler.WorkerBufferSize,
			MaxRetries: cfg.Scheduler.WorkerRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		}
		queue := jobs.NewQueue("schedule-generate", schedulerSvc.Process, queueCfg)
		queueCtx, cancel := context.WithCancel(context.Background())
		queue.Start(queueCtx)
		defer func() {
			cancel()
			queue.Stop()
		}()
		schedulerSvc.SetQueue(queue)

		fileStore, err := storage.NewLocalStorage(cfg.Export.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Export.SignedURLSecret, cfg.Export.SignedURLTTL)
		exportSvc := service.NewExportService(fileStore, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Export.SignedURLTTL,
		}, logr, nil, nil)

		schedulerHandler = internalhandler.NewScheduleGeneratorHandler(schedulerSvc, exportSvc)
	}

	if schedulerHandler != nil {
		jobsGroup := api.Group("/scheduler/jobs")
		jobsGroup.POST("", schedulerHandler.Generate)
		jobsGroup.GET("/:id", schedulerHandler.Status)
		jobsGroup.POST("/:id/cancel", schedulerHandler.Cancel)
		jobsGroup.GET("/:id/stream", schedulerHandler.Stream)

		batchesGroup := api.Group("/scheduler/batches")
		batchesGroup.GET("/:batchId/timetables", schedulerHandler.Versions)
		batchesGroup.GET("/:batchId/timetable", schedulerHandler.PublishedGrid)

		timetablesGroup := api.Group("/scheduler/timetables")
		timetablesGroup.GET("/:id", schedulerHandler.Grid)
		timetablesGroup.DELETE("/:id", schedulerHandler.DeleteTimetable)
		timetablesGroup.GET("/:id/export", schedulerHandler.ExportTimetable)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func registerPprof(r *gin.Engine) {
	group := r.Group("/debug/pprof")
	group.GET("/", gin.WrapF(pprof.Index))
	group.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	group.GET("/profile", gin.WrapF(pprof.Profile))
	group.POST("/symbol", gin.WrapF(pprof.Symbol))
	group.GET("/symbol", gin.WrapF(pprof.Symbol))
	group.GET("/trace", gin.WrapF(pprof.Trace))
	group.GET("/allocs", gin.WrapH(pprof.Handler("allocs")))
	group.GET("/block", gin.WrapH(pprof.Handler("block")))
	group.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
	group.GET("/heap", gin.WrapH(pprof.Handler("heap")))
	group.GET("/mutex", gin.WrapH(pprof.Handler("mutex")))
	group.GET("/threadcreate", gin.WrapH(pprof.Handler("threadcreate")))
}
