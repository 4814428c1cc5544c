package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"event-arena-system/handlers"
	"event-arena-system/middleware"
	"event-arena-system/models"
	"event-arena-system/services"
	"event-arena-system/utils"
	"event-arena-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 512 * 1024 * 1024, // 512MB — video proof artifacts
	})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Event{},
		&models.RewardTier{},
		&models.Participant{},
		&models.Submission{},
		&models.LeaderboardEntry{},
		&models.ReminderRule{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	eventService := services.NewEventService(db)
	eventService.StartDraftCleanup()
	submissionService := services.NewSubmissionService(db)
	leaderboardService := services.NewLeaderboardService(db)

	// Reminder dispatch goes to the notification service when configured,
	// otherwise to the log-only fallback.
	var notifier services.Notifier = workers.LogNotifier{}
	if notifyURL := os.Getenv("NOTIFY_SERVICE_URL"); notifyURL != "" {
		notifier = workers.NewNotificationDispatcher(notifyURL, os.Getenv("ARENA_SERVICE_TOKEN"))
	} else {
		log.Println("⚠️  NOTIFY_SERVICE_URL not set — reminders will only be logged")
	}
	reminderService := services.NewReminderService(db, notifier)
	reminderService.StartReminderScheduler()

	handlers.SetupEventRoutes(app, eventService)
	handlers.SetupSubmissionRoutes(app, submissionService, leaderboardService)
	handlers.SetupReminderRoutes(app, reminderService)

	app.Static("/uploads", "./uploads")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Reminder scheduler running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
