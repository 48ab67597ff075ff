package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/cv-validator/internal/config"
	"alfredoptarigan/cv-validator/internal/handlers"
	"alfredoptarigan/cv-validator/internal/logger"
	"alfredoptarigan/cv-validator/internal/repositories"
	"alfredoptarigan/cv-validator/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.IsDevelopment())
	if err != nil {
		stdlog.Fatalf("❌ %v", err)
	}
	defer func() { _ = log.Sync() }()
	log.Info("✅ Config loaded successfully", zap.String("env", cfg.Server.Env))

	// Initialize database
	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize database", zap.Error(err))
	}

	// Initialize repositories
	docRepo := repositories.NewDocumentRepository(db)
	subRepo := repositories.NewSubmissionRepository(db)
	log.Info("✅ Repositories initialized successfully")

	// Initialize services
	storageService := services.NewStorageService(cfg.Storage.UploadPath, cfg.Storage.FetchTimeout)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatal("❌ Failed to create upload directory", zap.Error(err))
	}

	pdfParser := services.NewPDFParserService()
	log.Info("✅ Services initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Gemini AI
	geminiService, err := services.NewGeminiService(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize Gemini AI", zap.Error(err))
	}
	log.Info("✅ Gemini AI initialized successfully", zap.String("model", cfg.Gemini.Model))

	// Initialize Qdrant
	qdrantService, err := services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		log,
	)
	if err != nil {
		log.Fatal("❌ Failed to initialize Qdrant", zap.Error(err))
	}
	if err := qdrantService.InitCollection(ctx); err != nil {
		log.Fatal("❌ Failed to initialize Qdrant collection", zap.Error(err))
	}
	log.Info("✅ Qdrant initialized successfully", zap.String("collection", cfg.Qdrant.Collection))

	cvIndex := services.NewCVIndexService(
		geminiService,
		qdrantService,
		pdfParser,
		services.NewTextChunker(),
		log,
	)

	// Initialize validator
	validatorService := services.NewValidatorService(
		subRepo,
		docRepo,
		storageService,
		geminiService,
		cvIndex,
		cfg.Gemini.Temperature,
		cfg.Worker.TaskTimeout,
		log,
	)
	log.Info("✅ Validator service initialized")

	// Initialize worker
	worker := services.NewWorker(
		subRepo,
		validatorService,
		services.WorkerOptions{
			Concurrency:  cfg.Worker.Concurrency,
			QueueSize:    cfg.Worker.QueueSize,
			PollSchedule: cfg.Worker.PollSchedule,
			PollBatch:    cfg.Worker.PollBatch,
		},
		log,
	)
	if err := worker.Start(ctx); err != nil {
		log.Fatal("❌ Failed to start worker", zap.Error(err))
	}
	log.Info("✅ Worker started successfully", zap.Int("concurrency", cfg.Worker.Concurrency))

	// Initialize handlers
	submissionHandler := handlers.NewSubmissionHandler(
		subRepo,
		docRepo,
		storageService,
		pdfParser,
		worker,
		cfg.Storage.MaxFileSize,
		log,
	)
	resultHandler := handlers.NewResultHandler(subRepo, log)
	searchHandler := handlers.NewSearchHandler(cvIndex, log)
	log.Info("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "CV Form Validator API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		// Leave room for the text fields around the CV file.
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1<<20,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	handlers.RegisterRoutes(app, submissionHandler, resultHandler, searchHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("🛑 Shutting down server...")
		// In-flight validations finish before the context goes away.
		worker.Stop()
		cancel()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("❌ Server forced to shutdown", zap.Error(err))
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("🚀 Server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		log.Fatal("❌ Failed to start server", zap.Error(err))
	}
}
