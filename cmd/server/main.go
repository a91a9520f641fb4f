package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alcyxob/plan-calendar/internal/api"
	"alcyxob/plan-calendar/internal/config"
	"alcyxob/plan-calendar/internal/generator"
	"alcyxob/plan-calendar/internal/logging"
	"alcyxob/plan-calendar/internal/metrics"
	"alcyxob/plan-calendar/internal/repository/mongo"
	"alcyxob/plan-calendar/internal/service"
	"alcyxob/plan-calendar/internal/storage"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// @title Training Calendar API
// @version 1.0
// @description Plan generation, calendar rescheduling and session logs for training plans.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logging.Setup(logging.SetupParams{
		LogLevel:      cfg.Log.Level,
		LogFormatJSON: cfg.Log.JSON,
	})
	log.Info("starting plan calendar server")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Info("disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Errorf("failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	// --- Ensure Indexes ---
	// The log key index is what makes log upserts idempotent, so startup waits for it.
	idxCtx, idxCancel := context.WithTimeout(context.Background(), time.Minute)
	if err := mongo.EnsureIndexes(idxCtx, appDB); err != nil {
		idxCancel()
		log.Fatalf("could not ensure indexes: %v", err)
	}
	idxCancel()

	// --- Initialize Storage ---
	// Export is optional; without a bucket the endpoint answers 503.
	var fileStorage storage.FileStorage
	if cfg.S3.BucketName != "" {
		fileStorage, err = storage.NewS3Storage(context.Background(), cfg.S3)
		if err != nil {
			log.Fatalf("failed to initialize S3 storage: %v", err)
		}
	} else {
		log.Warn("s3.bucket_name not set, calendar export disabled")
	}

	// --- Metrics ---
	registry := metrics.NewRegistry()
	metricsManager := metrics.NewManager("plan_calendar", "server", registry)

	// --- Initialize Repositories ---
	trainingPlanRepo := mongo.NewMongoTrainingPlanRepository(appDB)
	sessionLogRepo := mongo.NewMongoSessionLogRepository(appDB)
	raceEventRepo := mongo.NewMongoRaceEventRepository(appDB)

	// --- Initialize Services ---
	planGenerator := generator.NewClient(cfg.Generator.WebhookURL, cfg.Generator.Secret, cfg.Generator.Timeout,
		generator.WithRetryMax(cfg.Generator.RetryMax),
		generator.WithRetryWait(cfg.Generator.RetryWaitMin, cfg.Generator.RetryWaitMax),
	)
	// The overall deadline covers every attempt plus the backoff between them
	generatorBudget := time.Duration(cfg.Generator.RetryMax+1)*cfg.Generator.Timeout +
		time.Duration(cfg.Generator.RetryMax)*cfg.Generator.RetryWaitMax
	services := api.Services{
		Plans: service.NewPlanService(trainingPlanRepo, planGenerator, metricsManager, service.PlanServiceConfig{
			MinInterval:      cfg.Generator.MinInterval,
			GeneratorTimeout: generatorBudget,
			PendingTimeout:   cfg.Generator.PendingTimeout,
		}),
		Calendar: service.NewCalendarService(trainingPlanRepo, sessionLogRepo, metricsManager),
		Logs:     service.NewSessionLogService(trainingPlanRepo, sessionLogRepo),
		Progress: service.NewProgressService(trainingPlanRepo, sessionLogRepo),
		Export:   service.NewExportService(trainingPlanRepo, fileStorage, cfg.Export.URLExpiry),
		Events:   service.NewEventService(raceEventRepo),
	}

	// --- Initialize Gin Engine ---
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	api.SetupRoutes(router, api.RouterConfig{
		JWTSecret:     cfg.JWT.Secret,
		WebhookSecret: cfg.Webhook.Secret,
		Metrics:       metricsManager,
		Gatherer:      registry,
	}, services)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infof("server listening on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}

	log.Info("server exiting")
}
