package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/vidasmart/coach-backend/database"
	"github.com/vidasmart/coach-backend/internal/config"
	"github.com/vidasmart/coach-backend/internal/jobs"
	"github.com/vidasmart/coach-backend/internal/models"
	"github.com/vidasmart/coach-backend/internal/routes"
	"github.com/vidasmart/coach-backend/internal/services"
	"github.com/vidasmart/coach-backend/internal/storage"
)

func main() {
	cfg := config.Load()

	// Initialize storage
	var store storage.Store

	if cfg.UseMemoryStore {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		if err := database.Connect(cfg.DBUser, cfg.DBPass, cfg.DBName, cfg.DBHost); err != nil {
			log.Fatal("Failed to connect to database:", err)
		}

		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.WhatsAppMessage{},
			&models.EmergencyAlert{},
			&models.ClientStage{},
			&models.UserProfile{},
			&models.CarePlan{},
			&models.PlanItemCompletion{},
			&models.GamificationStats{},
			&models.ActivityRecord{},
			&models.Mission{},
			&models.Goal{},
			&models.PendingAction{},
			&models.CoachMemory{},
			&models.PendingFeedback{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")
	}

	// Initialize messaging gateway
	var messenger services.Messenger
	if cfg.GatewayProvider == "twilio" {
		twilioMessenger, err := services.NewTwilioMessenger(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom)
		if err != nil {
			log.Printf("⚠️  Twilio gateway not initialized: %v", err)
		} else {
			messenger = twilioMessenger
			log.Println("✅ Twilio gateway initialized")
		}
	} else {
		evolutionClient, err := services.NewEvolutionClient(cfg.EvolutionBaseURL, cfg.EvolutionAPIKey, cfg.EvolutionInstance)
		if err != nil {
			log.Printf("⚠️  Evolution gateway not initialized: %v", err)
		} else {
			messenger = evolutionClient
			log.Println("✅ Evolution gateway initialized")
		}
	}

	// Initialize services
	services.SetDefaultCountryCode(cfg.DefaultCountryCode)
	coach := services.NewCoachService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.LLMTimeout)
	limiter := services.NewReplyLimiter(cfg.ReplyRatePerMinute, cfg.ReplyBurst)
	stageRouter := services.NewStageRouter(store)
	conversation := services.NewConversationService(store, coach, messenger, stageRouter, limiter)
	emergency := services.NewEmergencyService(store, messenger)

	// Start scheduled jobs
	engagementJob := jobs.NewEngagementJob(store, conversation, messenger, limiter)
	engagementJob.Start()

	log.Println("✅ All services initialized and scheduled jobs started")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "VidaSmart Coach Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": "Internal server error",
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	// Health check endpoint with service status
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "VidaSmart Coach Backend",
			"version": "1.0.0",
			"status":  "healthy",
			"endpoints": fiber.Map{
				"health":  "/health",
				"webhook": "/webhook/evolution",
				"chat":    "/chat",
			},
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		status := "healthy"
		statusCode := 200

		if !cfg.UseMemoryStore && database.DB != nil {
			sqlDB, err := database.DB.DB()
			if err != nil || sqlDB.Ping() != nil {
				status = "unhealthy"
				statusCode = 503
			}
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"services": fiber.Map{
				"database": status == "healthy",
				"gateway":  messenger != nil,
				"ai":       coach.Enabled(),
			},
		})
	})

	routes.SetupRoutes(app, cfg, store, conversation, emergency)

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		engagementJob.Stop()
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("🚀 VidaSmart Coach Backend starting on port %s", cfg.Port)
	log.Printf("📊 Storage: %s", storageType(cfg))
	log.Printf("📱 Gateway: %s", gatewayStatus(cfg, messenger))
	log.Printf("🤖 AI replies: %s", aiStatus(coach))
	log.Println("========================================")

	log.Fatal(app.Listen(":" + cfg.Port))
}

func storageType(cfg *config.Config) string {
	if cfg.UseMemoryStore {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

func gatewayStatus(cfg *config.Config, messenger services.Messenger) string {
	if messenger == nil {
		return "Not configured"
	}
	return cfg.GatewayProvider
}

func aiStatus(coach *services.CoachService) string {
	if !coach.Enabled() {
		return "Disabled"
	}
	return "Enabled"
}
