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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/rusa-rba/route-assign/api/swagger"
	"github.com/rusa-rba/route-assign/internal/handler"
	"github.com/rusa-rba/route-assign/internal/middleware"
	"github.com/rusa-rba/route-assign/internal/repository"
	"github.com/rusa-rba/route-assign/internal/service"
	"github.com/rusa-rba/route-assign/pkg/cache"
	"github.com/rusa-rba/route-assign/pkg/config"
	"github.com/rusa-rba/route-assign/pkg/database"
	"github.com/rusa-rba/route-assign/pkg/jobs"
	"github.com/rusa-rba/route-assign/pkg/logger"
	"github.com/rusa-rba/route-assign/pkg/mailer"
	corsmiddleware "github.com/rusa-rba/route-assign/pkg/middleware/cors"
	reqidmiddleware "github.com/rusa-rba/route-assign/pkg/middleware/requestid"
	"github.com/rusa-rba/route-assign/pkg/storage"
)

// @title RUSA RBA Route Assignment API
// @version 1.0.0
// @description Lets Regional Brevet Administrators assign approved routes to calendared events.
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	validate := validator.New()

	var cacheRepo *repository.CacheRepository
	cacheEnabled := false
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, running without cache", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client)
			cacheEnabled = true
			defer cacheRepo.Close() //nolint:errcheck
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cacheEnabled)

	regionRepo := repository.NewRegionRepository(db)
	eventRepo := repository.NewEventRepository(db)
	routeRepo := repository.NewRouteRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	var backend service.CalendarBackend
	switch cfg.Calendar.Backend {
	case config.CalendarBackendHTTP:
		backend = repository.NewHTTPCalendarBackend(cfg.Calendar.APIURL, cfg.Calendar.APITimeout, nil)
	default:
		backend = repository.NewSQLCalendarBackend(db)
	}

	submissionOpts := []service.SubmissionServiceOption{
		service.WithAuditLogger(auditRepo),
		service.WithCommitMetrics(metrics),
		service.WithOpsMailbox(cfg.Notify.OpsMailbox),
	}
	if cfg.Notify.Enabled {
		mail := service.NewMailNotifier(mailer.NewSMTPSender(cfg.SMTP), cfg.SMTP.From, logr)
		queued := service.NewQueuedNotifier(mail, jobs.QueueConfig{
			Workers:    cfg.Notify.Workers,
			MaxRetries: cfg.Notify.Retries,
			RetryDelay: 30 * time.Second,
			Logger:     logr,
			OnGiveUp: func(jobID string, err error) {
				metrics.ObserveNotification(false)
				logr.Error("notification abandoned", zap.String("job_id", jobID), zap.Error(err))
			},
		})
		queued.Start(ctx)
		defer queued.Stop()
		submissionOpts = append(submissionOpts, service.WithNotifier(queued))
	}
	var receipts *service.ReceiptService
	if cfg.Receipts.Enabled {
		store, err := storage.NewLocalStorage(cfg.Receipts.Dir)
		if err != nil {
			logr.Fatal("receipt storage unavailable", zap.Error(err))
		}
		receipts = service.NewReceiptService(store, storage.NewSigner(cfg.Receipts.Secret, cfg.Receipts.LinkTTL), service.ReceiptConfig{
			APIPrefix: cfg.APIPrefix,
			Retention: cfg.Receipts.Retention,
		}, logr)
		submissionOpts = append(submissionOpts, service.WithReceipts(receipts))
		go runReceiptCleanup(ctx, receipts, logr)
	}
	submissions := service.NewSubmissionService(backend, logr, submissionOpts...)

	workflow := service.NewWorkflowService(regionRepo, eventRepo, routeRepo, directoryRepo, submissions, validate, logr,
		service.WithWorkflowCache(cacheSvc),
		service.WithWorkflowMetrics(metrics),
	)
	routes := service.NewRouteService(regionRepo, routeRepo, logr)
	codec := service.NewStateCodec(cfg.State.Secret, cfg.State.TTL)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	workflowHandler := handler.NewWorkflowHandler(workflow, routes, codec, validate)
	api := r.Group(cfg.APIPrefix)
	rba := api.Group("/rba")
	rba.POST("/workflow", workflowHandler.Start)
	rba.POST("/workflow/transition", workflowHandler.Transition)
	rba.GET("/regions/:regionId/routes/eligible", workflowHandler.EligibleRoutes)
	if receipts != nil {
		rba.GET("/receipts/:token", handler.NewReceiptHandler(receipts).Download)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "calendar_backend", cfg.Calendar.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func runReceiptCleanup(ctx context.Context, receipts *service.ReceiptService, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := receipts.Cleanup(); err != nil {
				logr.Warn("receipt cleanup failed", zap.Error(err))
			}
		}
	}
}
