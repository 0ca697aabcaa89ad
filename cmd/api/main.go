package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"yesteryear/internal/adapter"
	"yesteryear/internal/adapter/gcs"
	"yesteryear/internal/adapter/llm"
	"yesteryear/internal/adapter/wiki"
	"yesteryear/internal/cache"
	"yesteryear/internal/config"
	"yesteryear/internal/handler"
	"yesteryear/internal/logger"
	"yesteryear/internal/middleware"
	"yesteryear/internal/repository"
	"yesteryear/internal/service"
	"yesteryear/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// requestLogger logs every HTTP request with a per-request id.
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := util.NewULID()
		c.Locals("requestID", requestID)

		err := c.Next()

		logger.Get().Info("HTTP Request",
			zap.String("requestId", requestID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", c.IP()),
		)
		return err
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	ctx := context.Background()

	db, err := repository.NewMongoDatabase(ctx, cfg.Mongo)
	if err != nil {
		appLogger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	appLogger.Info("Successfully connected to MongoDB", zap.String("database", cfg.Mongo.Database))

	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	appLogger.Info("Successfully connected to Redis")
	rateLimiter := adapter.NewRedisRateLimiter(redisClient)

	bucket, err := gcs.NewBucket(ctx, cfg.Storage.Bucket)
	if err != nil {
		appLogger.Fatal("Failed to create storage bucket client", zap.Error(err))
	}
	defer bucket.Close()
	appLogger.Info("Object storage initialized", zap.String("bucket", cfg.Storage.Bucket))

	if cfg.OpenAI.APIKey == "" {
		appLogger.Fatal("OPENAI_API_KEY is not configured")
	}
	chatHTTPClient := &http.Client{Timeout: cfg.OpenAI.ChatTimeout}
	chatModel, err := openai.New(
		openai.WithToken(cfg.OpenAI.APIKey),
		openai.WithModel(cfg.OpenAI.ChatModel),
		openai.WithHTTPClient(chatHTTPClient),
	)
	if err != nil {
		appLogger.Fatal("Failed to create LLM client", zap.Error(err))
	}
	imageGenerator := llm.NewImageGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.ImageModel, cfg.OpenAI.ChatTimeout, bucket)
	modelClient := llm.NewClient(chatModel, imageGenerator, cfg.OpenAI.ChatTimeout, llm.DefaultBackoff)
	appLogger.Info("Model client initialized", zap.String("chatModel", cfg.OpenAI.ChatModel))

	wikiClient := wiki.NewClient()
	imageResolver := service.NewImageResolver(wikiClient, modelClient)

	groupRepository := repository.NewMongoGroupRepository(db)
	quizRepository := repository.NewMongoQuizRepository(db)
	newsRepository := repository.NewMongoNewsRepository(db)

	quizService := service.NewQuizService(groupRepository, quizRepository, modelClient, rateLimiter)
	newsService := service.NewNewsService(newsRepository, modelClient, rateLimiter, imageResolver)
	chatService := service.NewChatService(groupRepository, modelClient, rateLimiter)

	quizHandler := handler.NewQuizHandler(quizService)
	newsHandler := handler.NewNewsHandler(newsService)
	chatHandler := handler.NewChatHandler(chatService)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  20 * time.Second,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(requestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
		MaxAge:       300,
	}))
	app.Use(recover.New())

	apiGroup := app.Group("/api", middleware.Protected(cfg.Auth.JWTSecret))
	apiGroup.Post("/quiz/weekly", quizHandler.GenerateWeeklyQuiz)
	apiGroup.Post("/news/package", newsHandler.GeneratePackage)
	apiGroup.Post("/news/article", newsHandler.GenerateArticle)
	apiGroup.Post("/chat", chatHandler.Reply)

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", os.Getenv("ENV")))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
