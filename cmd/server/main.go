package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"invoice-rag/internal/ai"
	"invoice-rag/internal/config"
	"invoice-rag/internal/extract"
	httpserver "invoice-rag/internal/interfaces/http"
	"invoice-rag/internal/pipeline"
	"invoice-rag/internal/report"
	"invoice-rag/internal/service"
	"invoice-rag/internal/store"
	"invoice-rag/pkg/database"
	"invoice-rag/pkg/utils"
)

func main() {
	// Load .env if present (API keys in development)
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting invoice reimbursement analysis service",
		zap.Int("port", cfg.Server.Port),
		zap.String("model", cfg.OpenAI.Model))

	if err := os.MkdirAll("data", 0755); err != nil {
		logger.Fatal("Failed to create data directory", zap.Error(err))
	}

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := database.NewMigrator(db, logger).Run(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// One completion client per process, shared by classifier and answerer
	completion := ai.NewOpenAIClient(ai.CompletionConfig{
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
	}, logger)

	extractor := extract.NewExtractor(logger)
	analysisStore := store.New(db, store.NewHashEmbedder(cfg.Store.EmbeddingDimension), logger)
	classifier := ai.NewClassifier(completion, logger)
	processor := pipeline.NewProcessor(classifier, analysisStore, logger)
	coordinator := pipeline.NewCoordinator(processor, pipeline.CoordinatorConfig{
		GroupTimeout: cfg.Processing.GroupTimeout,
		ItemPause:    cfg.Processing.ItemPause,
		PauseEvery:   cfg.Processing.PauseEvery,
		GroupPause:   cfg.Processing.GroupPause,
	}, logger)

	var reporter service.ReportWriter
	if cfg.Report.Enabled {
		reporter = report.NewExporter(cfg.Report.OutputDir, logger)
	}

	analysisService := service.NewAnalysisService(extractor, coordinator, reporter, cfg.Processing, logger)
	chatService := service.NewChatService(analysisStore, ai.NewAnswerer(completion, logger), logger)

	handlers := httpserver.NewHandlers(analysisService, chatService, cfg.Processing, logger)
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}

	logger.Info("Server exited")
}
