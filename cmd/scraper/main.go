package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/telegram-product-scraper/internal/biz/repo"
	"github.com/anthropics/telegram-product-scraper/internal/biz/usecase"
	"github.com/anthropics/telegram-product-scraper/internal/conf"
	"github.com/anthropics/telegram-product-scraper/internal/data"
	"github.com/anthropics/telegram-product-scraper/internal/service"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	channels, err := conf.LoadChannels(cfg.ChannelsPath)
	if err != nil {
		log.Fatalf("Failed to load channels: %v", err)
	}
	fmt.Printf("[Scraper] %d channels configured, mode %s\n", len(channels), cfg.Scraper.Mode)

	// Initialize the message source
	source, err := data.NewBotSource(cfg.Telegram.BotToken)
	if err != nil {
		log.Fatalf("Failed to connect to Telegram: %v", err)
	}

	// Initialize storage
	products, err := data.NewProductStore(cfg.Store.DBPath)
	if err != nil {
		log.Fatalf("Failed to open product store: %v", err)
	}
	defer products.Close()
	fmt.Printf("[Scraper] Product DB: %s\n", cfg.Store.DBPath)

	media, err := data.NewMediaDir(cfg.Store.MediaDir, source.Download, cfg.Scraper.MaxRetries)
	if err != nil {
		log.Fatalf("Failed to create media dir: %v", err)
	}

	// AI extraction is optional; without keys the rule-based extractor
	// handles everything
	var aiClient repo.AIClient
	if len(cfg.Gemini.APIKeys) > 0 {
		aiClient = data.NewGeminiClient()
		fmt.Printf("[Scraper] AI extraction enabled: %d keys, %d models\n",
			len(cfg.Gemini.APIKeys), len(cfg.Gemini.Models))
	} else {
		fmt.Println("[Scraper] No Gemini keys, using rule-based extraction only")
	}
	ai := usecase.NewAIExtractor(aiClient, cfg.Gemini.APIKeys, cfg.Gemini.Models)

	// Backend delivery is optional; without a URL products queue offline
	var backend repo.BackendRepo
	if cfg.Backend.URL != "" {
		backend = data.NewBackendClient(cfg.Backend.URL, cfg.Backend.Token, cfg.Backend.TenantID)
		fmt.Printf("[Scraper] Backend: %s (tenant %s)\n", cfg.Backend.URL, cfg.Backend.TenantID)
	} else {
		fmt.Println("[Scraper] No backend configured, products will queue offline")
	}

	lookback := usecase.NewLookbackCollector(source)
	assembler := usecase.NewAssembler(ai, lookback, media, cfg.Scraper.MaxLookback)
	deliverer := usecase.NewDeliverer(products, backend)
	pipeline := service.NewPipeline(source, assembler, deliverer, products, cfg.Scraper.StopDate, cfg.Scraper.BatchSize)

	specs := make([]service.ChannelSpec, 0, len(channels))
	for _, ch := range channels {
		specs = append(specs, service.ChannelSpec{Ref: ch.Ref, Name: ch.Name})
	}

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cfg.Scraper.Mode {
	case "history":
		err = pipeline.RunHistory(ctx, specs)
	case "live":
		err = pipeline.RunLive(ctx, specs)
	default:
		err = pipeline.RunHybrid(ctx, specs)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Printf("[Scraper] Run failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("[Scraper] Shutdown complete")
}
