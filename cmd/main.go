package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/recoveryplus/recoveryplus-backend/internal/clients/redis"
	"github.com/recoveryplus/recoveryplus-backend/internal/db"
	"github.com/recoveryplus/recoveryplus-backend/internal/handlers"
	"github.com/recoveryplus/recoveryplus-backend/internal/jobs"
	"github.com/recoveryplus/recoveryplus-backend/internal/jobs/runtime"
	"github.com/recoveryplus/recoveryplus-backend/internal/jobs/worker"
	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/middleware"
	"github.com/recoveryplus/recoveryplus-backend/internal/repos"
	"github.com/recoveryplus/recoveryplus-backend/internal/server"
	"github.com/recoveryplus/recoveryplus-backend/internal/services"
	"github.com/recoveryplus/recoveryplus-backend/internal/sse"
	"github.com/recoveryplus/recoveryplus-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	webhookToken := utils.GetEnv("WEBHOOK_TOKEN", "", log)
	allowedOrigins := strings.Split(utils.GetEnv("ALLOWED_ORIGINS", "", log), ",")
	if len(allowedOrigins) == 1 && allowedOrigins[0] == "" {
		allowedOrigins = nil
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	metricSampleRepo := repos.NewMetricSampleRepo(thePG, log)
	sessionSurveyRepo := repos.NewSessionSurveyRepo(thePG, log)
	readinessScoreRepo := repos.NewReadinessScoreRepo(thePG, log)
	ruleRepo := repos.NewRuleRepo(thePG, log)
	protocolRepo := repos.NewProtocolRepo(thePG, log)
	prescriptionRepo := repos.NewPrescriptionRepo(thePG, log)
	featureFlagRepo := repos.NewFeatureFlagRepo(thePG, log)
	sourceAccountRepo := repos.NewSourceAccountRepo(thePG, log)
	jobRunRepo := repos.NewJobRunRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewHub(log)
	var eventBus services.EventPublisher
	sseBus, err := redis.NewSSEBus(log)
	if err != nil {
		log.Warn("Redis SSE bus unavailable; delivering events through the in-process hub", "error", err)
		eventBus = sseHub
	} else {
		eventBus = sseBus
		if err := sseBus.StartForwarder(context.Background(), func(m sse.Message) {
			sseHub.Broadcast(m)
		}); err != nil {
			log.Warn("Could not start SSE forwarder", "error", err)
		}
	}

	// Services
	log.Info("Setting up Services from main...")
	jobService := services.NewJobService(thePG, log, jobRunRepo)
	flagService := services.NewFlagService(thePG, log, featureFlagRepo)
	authService := services.NewAuthService(thePG, log, userRepo, jwtSecretKey)
	ingestService := services.NewIngestService(thePG, log, metricSampleRepo, sourceAccountRepo)
	readinessService := services.NewReadinessService(thePG, log, userRepo, metricSampleRepo, sessionSurveyRepo, readinessScoreRepo)
	prescriptionEngine := services.NewPrescriptionEngine(thePG, log, readinessScoreRepo, metricSampleRepo, sessionSurveyRepo, ruleRepo, protocolRepo, prescriptionRepo)
	surveyService := services.NewSurveyService(thePG, log, sessionSurveyRepo, jobService)
	dashboardService := services.NewDashboardService(thePG, log, readinessScoreRepo, metricSampleRepo, sessionSurveyRepo, prescriptionRepo)
	notifier := services.NewNotifier(log, eventBus)

	// Job workers
	log.Info("Setting up job workers from main...")
	registry := runtime.NewRegistry()
	for _, h := range []runtime.Handler{
		jobs.NewIngestHandler(log, ingestService, jobService),
		jobs.NewReadinessHandler(log, readinessService, jobService, notifier),
		jobs.NewPrescriptionHandler(log, prescriptionEngine, flagService, notifier),
		jobs.NewNotificationHandler(log, flagService, notifier),
	} {
		if err := registry.Register(h); err != nil {
			log.Fatal("Failed to register job handler", "error", err)
		}
	}
	pool := worker.NewPool(thePG, log, jobRunRepo, registry)
	pool.Start(context.Background())

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(log, authService)
	ingestHandler := handlers.NewIngestHandler(log, jobService, webhookToken)
	surveyHandler := handlers.NewSurveyHandler(log, surveyService)
	dashboardHandler := handlers.NewDashboardHandler(log, dashboardService)
	prescriptionHandler := handlers.NewPrescriptionHandler(log, prescriptionRepo)
	adminHandler := handlers.NewAdminHandler(log, ruleRepo, protocolRepo, flagService)
	jobsHandler := handlers.NewJobsHandler(log, jobService)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:         authHandler,
		AuthMiddleware:      authMiddleware,
		IngestHandler:       ingestHandler,
		SurveyHandler:       surveyHandler,
		DashboardHandler:    dashboardHandler,
		PrescriptionHandler: prescriptionHandler,
		AdminHandler:        adminHandler,
		JobsHandler:         jobsHandler,
		SSEHandler:          sseHandler,
		AllowedOrigins:      allowedOrigins,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server failed", "error", err)
	}
}
