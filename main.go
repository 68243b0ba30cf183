package main

import (
	"context"
	"log"
	"os"
	"time"

	"leadflow/config"
	"leadflow/middleware"
	"leadflow/nurturing"
	"leadflow/routes"
	"leadflow/utils"
	"leadflow/worker"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
)

func main() {
	logger := log.New(os.Stdout, "NURTURE: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()
	app.Use(middleware.CORS())

	// Wire the nurturing engine
	store := nurturing.NewGormStore(config.DB)
	mailer := utils.NewSMTPMailer(config.AppConfig.SMTP)
	engine := nurturing.NewEngine(store, mailer, logger, config.AppConfig.NurtureScanLimit)

	lock := newRunLock(logger)

	// Start the nurturing worker
	interval := time.Duration(config.AppConfig.NurtureIntervalMinutes) * time.Minute
	nurtureWorker := worker.NewNurtureWorker(engine, lock, interval, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go nurtureWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, config.DB, engine, lock)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}

// newRunLock picks the Redis lease when configured, otherwise the
// in-process lock that covers the single-scheduler deployment.
func newRunLock(logger *log.Logger) nurturing.RunLock {
	cfg := config.AppConfig.Redis
	if !cfg.Enabled {
		return nurturing.NewLocalRunLock()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ttl := time.Duration(config.AppConfig.NurtureLockTTLMinutes) * time.Minute
	logger.Printf("Using Redis run lock at %s", cfg.Address)
	return nurturing.NewRedisRunLock(client, ttl)
}
