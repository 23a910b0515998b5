package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
	"gopkg.in/telebot.v3"

	"golang-task-automation-engine/internal/api/handlers"
	"golang-task-automation-engine/internal/api/routes"
	"golang-task-automation-engine/internal/config"
	"golang-task-automation-engine/internal/repository"
	"golang-task-automation-engine/internal/services/executor"
	"golang-task-automation-engine/internal/services/gemini_ai"
	"golang-task-automation-engine/internal/services/mailer"
	"golang-task-automation-engine/internal/services/sandbox"
	"golang-task-automation-engine/internal/services/scheduler"
	"golang-task-automation-engine/internal/services/scraper"
	"golang-task-automation-engine/internal/services/tasks"
	"golang-task-automation-engine/internal/services/telegram_notifier"
	"golang-task-automation-engine/internal/services/workspace"
	"golang-task-automation-engine/pkg/postgres"
	"golang-task-automation-engine/pkg/ratelimit"
	"golang-task-automation-engine/pkg/redis"
)

func main() {
	ctxCancel, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	logrusLevel, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.WithError(err).Fatal("Failed to parse log level")
	}
	logger.SetLevel(logrusLevel)

	// Set Gin mode based on environment
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Setup CORS
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize repositories
	tasksRepository := repository.NewTasksRepository(db.DB)
	executionsRepository := repository.NewExecutionsRepository(db.DB)
	unitOfWork := repository.NewUnitOfWork(db.DB)

	genClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.Gemini.APIKey,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize Gemini client")
	}
	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize Redis client")
	}

	// Initialize action collaborators
	geminiClient := gemini_ai.NewClient(&cfg.Gemini, logger, genClient)
	deps := executor.Dependencies{
		LLM:     geminiClient,
		Sandbox: sandbox.New(&cfg.Sandbox, logger),
		Scraper: scraper.New(&cfg.Scraper, logger),
	}
	if cfg.SMTP.Host != "" {
		deps.Email = mailer.New(&cfg.SMTP, logger)
	}
	if cfg.Workspace.BaseURL != "" {
		deps.Workspace = workspace.NewClient(&cfg.Workspace, logger)
	}
	actionExecutor := executor.New(logger, deps)

	// Initialize notification sink when a bot token is configured
	workerOpts := []scheduler.Option{scheduler.WithRedis(redisClient)}
	var telegramRateLimiter *ratelimit.TelegramRateLimiter
	if cfg.Telegram.BotToken != "" {
		bot, err := telebot.NewBot(telebot.Settings{
			Token:  cfg.Telegram.BotToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				logger.WithError(err).Error("Telegram bot error")
			},
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to create telegram bot")
		}
		telegramRateLimiter = ratelimit.NewTelegramRateLimiter(&cfg.Telegram, logger, bot)
		telegramRateLimiter.StartCleanupExpired(ctxCancel)
		workerOpts = append(workerOpts, scheduler.WithNotifier(telegram_notifier.New(logger, telegramRateLimiter)))
	}

	// Initialize services
	taskService := tasks.NewTaskService(cfg, logger, tasksRepository)
	worker := scheduler.NewWorker(
		&cfg.Scheduler,
		logger,
		tasksRepository,
		executionsRepository,
		unitOfWork,
		actionExecutor,
		workerOpts...,
	)

	// Initialize handlers
	schedulerHandler := handlers.NewSchedulerHandler(worker, taskService, logger)

	// Setup routes
	routes.SetupRoutes(router, schedulerHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start the scheduler worker
	if err := worker.Start(ctxCancel); err != nil {
		logger.WithError(err).Fatal("Failed to start scheduler")
	}

	// Start server in a goroutine
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Stop the scheduler before the HTTP surface so in-flight tasks settle
	schedulerDone := make(chan struct{})
	go func() {
		worker.Stop()
		close(schedulerDone)
	}()
	select {
	case <-schedulerDone:
		logger.Info("Scheduler stopped successfully")
	case <-time.After(30 * time.Second):
		logger.Warn("Timeout waiting for scheduler to stop, proceeding with server shutdown")
	}

	cancel()
	if telegramRateLimiter != nil {
		telegramRateLimiter.StopCleanupExpired()
	}

	logger.Info("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	} else {
		logger.Info("HTTP server shutdown completed successfully")
	}

	logger.Info("Server exited")
}
