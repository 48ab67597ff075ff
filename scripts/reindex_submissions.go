package main

import (
	"context"
	stdlog "log"
	"os"

	"go.uber.org/zap"

	"alfredoptarigan/cv-validator/internal/config"
	"alfredoptarigan/cv-validator/internal/logger"
	"alfredoptarigan/cv-validator/internal/repositories"
	"alfredoptarigan/cv-validator/internal/services"
)

const pageSize = 50

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.IsDevelopment())
	if err != nil {
		stdlog.Fatalf("❌ %v", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("🚀 Starting CV reindex...")

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize database", zap.Error(err))
	}
	subRepo := repositories.NewSubmissionRepository(db)

	geminiService, err := services.NewGeminiService(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize Gemini", zap.Error(err))
	}

	qdrantService, err := services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		log,
	)
	if err != nil {
		log.Fatal("❌ Failed to initialize Qdrant", zap.Error(err))
	}

	ctx := context.Background()
	if err := qdrantService.InitCollection(ctx); err != nil {
		log.Fatal("❌ Failed to initialize collection", zap.Error(err))
	}

	storageService := services.NewStorageService(cfg.Storage.UploadPath, cfg.Storage.FetchTimeout)
	cvIndex := services.NewCVIndexService(
		geminiService,
		qdrantService,
		services.NewPDFParserService(),
		services.NewTextChunker(),
		log,
	)

	successCount := 0
	failCount := 0

	for offset := 0; ; offset += pageSize {
		subs, err := subRepo.FindValidated(pageSize, offset)
		if err != nil {
			log.Fatal("❌ Failed to load validated submissions", zap.Error(err))
		}
		if len(subs) == 0 {
			break
		}

		for _, sub := range subs {
			subLog := log.With(zap.Stringer("submission_id", sub.ID))

			content, err := storageService.ReadDocument(sub.Document.FilePath)
			if err != nil {
				subLog.Warn("⚠️ CV file unavailable, skipping", zap.Error(err))
				failCount++
				continue
			}

			chunks, err := cvIndex.IndexDocument(ctx, sub.ID.String(), sub.DocumentID.String(), content)
			if err != nil {
				subLog.Error("❌ Failed to index CV", zap.Error(err))
				failCount++
				continue
			}

			subLog.Info("✅ Indexed CV", zap.Int("chunks", chunks))
			successCount++
		}
	}

	log.Info("📊 Reindex summary",
		zap.Int("successful", successCount),
		zap.Int("failed", failCount),
	)

	if failCount > 0 {
		log.Warn("⚠️ Some submissions failed to reindex. Please check the logs above.")
		os.Exit(1)
	}

	log.Info("✅ All validated CVs reindexed successfully!")
}
