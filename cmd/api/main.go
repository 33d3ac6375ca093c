package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"projecthub/recommender/internal/config"
	"projecthub/recommender/internal/handlers"
	"projecthub/recommender/internal/repositories"
	"projecthub/recommender/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Initialize repositories
	studentRepo := repositories.NewStudentRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	recRepo := repositories.NewRecommendationRepository(db)
	feedbackRepo := repositories.NewFeedbackRepository(db)
	activityRepo := repositories.NewActivityRepository(db)
	log.Println("✅ Repositories initialized successfully")

	// Initialize Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	log.Println("✅ Redis connected successfully")

	// Initialize embedding service client
	embedder := services.NewEmbeddingService(cfg.Embedding.ServiceURL, cfg.Embedding.Timeout)

	// Initialize Qdrant
	vectorStore, err := services.NewProjectVectorStore(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
	}
	if err := vectorStore.InitCollection(); err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant collection: %v", err)
	}
	log.Println("✅ Qdrant initialized successfully")

	// Initialize AI providers
	geminiProvider, err := services.NewGeminiProvider(cfg.Gemini.APIKey)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini provider: %v", err)
	}
	providers := map[string]services.ChatProvider{
		"openai": services.NewOpenAIProvider(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Timeout),
		"gemini": geminiProvider,
	}
	log.Println("✅ AI providers initialized")

	// Initialize guards and router
	breakers := services.NewBreakerRegistry(cfg.Breaker)
	limiter := services.NewRedisRateLimiter(redisClient, cfg.RateLimit, cfg.Budget)
	router := services.NewModelRouter(
		providers,
		embedder,
		limiter,
		breakers,
		cfg.Budget,
		cfg.Recommender.RetryMaxAttempts,
		cfg.Recommender.RetryDelay,
	)
	log.Println("✅ Model router initialized")

	// Initialize recommendation pipeline
	scorer := services.NewFallbackScorer()
	cache := services.NewRedisRecommendationCache(redisClient)
	recommender := services.NewRecommendationService(
		studentRepo,
		projectRepo,
		recRepo,
		cache,
		scorer,
		router,
		vectorStore,
		cfg.Recommender,
		cfg.Cache,
	)
	analytics := services.NewQualityAnalytics(feedbackRepo, activityRepo)
	log.Println("✅ Recommendation services initialized")

	// Initialize and start scheduler
	scheduler, err := services.NewRefreshScheduler(recommender, recRepo, activityRepo, cache, cfg.Scheduler)
	if err != nil {
		log.Fatalf("❌ Failed to initialize scheduler: %v", err)
	}
	scheduler.Start(context.Background())
	log.Println("✅ Refresh scheduler started")

	// Initialize handlers
	validate := validator.New()
	recommendationHandler := handlers.NewRecommendationHandler(recommender, validate)
	feedbackHandler := handlers.NewFeedbackHandler(analytics, validate)
	modelHandler := handlers.NewModelHandler(router, validate)
	refreshHandler := handlers.NewRefreshHandler(scheduler)
	healthHandler := handlers.NewHealthHandler(router)
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "ProjectHub Recommendation API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")

	api.Get("/health", healthHandler.HandleHealth)

	api.Post("/recommendations/:studentId", recommendationHandler.HandleRecommend)
	api.Post("/feedback", feedbackHandler.HandleCreateFeedback)
	api.Get("/analytics/quality", feedbackHandler.HandleQualityReport)

	api.Get("/models", modelHandler.HandleListModels)
	api.Patch("/models/:modelId/availability", modelHandler.HandleUpdateAvailability)
	api.Get("/budget", modelHandler.HandleBudgetStatus)

	api.Get("/refresh/stats", refreshHandler.HandleStats)
	api.Post("/refresh/:studentId", refreshHandler.HandleForceRefresh)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "ProjectHub Recommendation API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/recommendations/:studentId",
				"POST /api/v1/feedback",
				"GET /api/v1/analytics/quality",
				"GET /api/v1/models",
				"PATCH /api/v1/models/:modelId/availability",
				"GET /api/v1/budget",
				"GET /api/v1/refresh/stats",
				"POST /api/v1/refresh/:studentId",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		scheduler.Stop()
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
