package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"quest-campaign-system/handlers"
	"quest-campaign-system/middleware"
	"quest-campaign-system/models"
	"quest-campaign-system/services"
	"quest-campaign-system/utils"
	"quest-campaign-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // proof screenshots
	})

	// Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
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
		&models.User{},
		&models.Campaign{},
		&models.CampaignParticipation{},
		&models.Task{},
		&models.SubTask{},
		&models.TaskSubmission{},
		&models.Achievement{},
		&models.UserAchievement{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// --- external collaborators ---
	verifyURL := os.Getenv("VERIFICATION_PROVIDER_URL")
	if verifyURL == "" {
		log.Fatal("VERIFICATION_PROVIDER_URL environment variable not set")
	}
	verifyToken := os.Getenv("VERIFICATION_PROVIDER_TOKEN")
	moderationURL := os.Getenv("MODERATION_PROVIDER_URL")
	if moderationURL == "" {
		log.Fatal("MODERATION_PROVIDER_URL environment variable not set")
	}
	moderationToken := os.Getenv("MODERATION_PROVIDER_TOKEN")

	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}
	questServiceToken := os.Getenv("QUEST_SERVICE_TOKEN")
	if questServiceToken == "" {
		log.Fatal("QUEST_SERVICE_TOKEN environment variable not set")
	}
	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}

	// --- services ---
	userService := services.NewUserService(db)
	campaignService := services.NewCampaignService(db)
	achievementService := services.NewAchievementService(db)
	if err := achievementService.Seed(); err != nil {
		log.Fatal("failed to seed achievements:", err)
	}
	progressionService := services.NewProgressionService(db, achievementService)

	store := services.NewSubmissionStore(db)
	eligibilityService := services.NewEligibilityService(db)
	verifier := services.NewProofVerifier(
		services.NewVerificationClient(verifyURL, verifyToken),
		services.NewModerationClient(moderationURL, moderationToken),
	)
	queue := workers.NewVerificationQueue(256, 8)
	submissionService := services.NewSubmissionService(db, store, eligibilityService, progressionService, verifier, queue)

	authClient := services.NewAuthServiceClient(authServiceURL, questServiceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- background work ---
	queue.Start(ctx)

	syncWorker := workers.NewUserSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", questServiceToken)
	syncWorker.Start(ctx)

	campaignService.StartPublishScheduler()
	submissionService.StartStalePendingSweep(24 * time.Hour)

	// --- routes ---
	limiter := middleware.NewTTLRateLimiter(10, time.Minute, 100000)
	handlers.SetupCampaignRoutes(app, campaignService)
	handlers.SetupSubmissionRoutes(app, submissionService, userService, middleware.SubmissionRateLimit(limiter))
	handlers.SetupProgressionRoutes(app, progressionService, achievementService, userService, authClient)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("server running on http://localhost:5300")
	log.Println("verification workers and user sync running")
	log.Println("GatewayAuthMiddleware enforced globally — all requests must come from Gateway")

	<-ctx.Done()
	log.Println("shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
