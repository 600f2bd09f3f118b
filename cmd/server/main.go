package main

import (
	"fmt"
	"os"

	"github.com/substifinder/backend/config"
	httpDelivery "github.com/substifinder/backend/internal/delivery/http"
	"github.com/substifinder/backend/internal/domain"
	"github.com/substifinder/backend/internal/infrastructure/catalog"
	"github.com/substifinder/backend/internal/infrastructure/ledger"
	"github.com/substifinder/backend/internal/infrastructure/openai"
	"github.com/substifinder/backend/internal/infrastructure/termcache"
	"github.com/substifinder/backend/internal/infrastructure/worklist"
	"github.com/substifinder/backend/internal/logger"
	"github.com/substifinder/backend/internal/usecase"
)

func main() {
	log := logger.New("server")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", "err", err)
	}

	log.Info("starting substifinder backend v1.0.0",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port)

	// Load the data files the engine works with
	catalogIndex, err := catalog.Load(cfg.Data.CatalogPath, logger.New("catalog"))
	if err != nil {
		log.Fatal("failed to load catalog", "path", cfg.Data.CatalogPath, "err", err)
	}
	log.Info("catalog loaded", "products", catalogIndex.Size())

	workList, err := worklist.Load(cfg.Data.WorkListPath, logger.New("worklist"))
	if err != nil {
		log.Fatal("failed to load work list", "path", cfg.Data.WorkListPath, "err", err)
	}
	log.Info("work list loaded", "items", workList.Len())

	if err := os.MkdirAll(cfg.Data.BackupDir, 0o755); err != nil {
		log.Fatal("failed to create backup directory", "dir", cfg.Data.BackupDir, "err", err)
	}

	selectionLedger := ledger.Open(cfg.Data.LedgerPath, cfg.Data.BackupDir, cfg.Data.MaxBackups, logger.New("ledger"))
	if err := selectionLedger.Initialize(workList.MaxIteration()); err != nil {
		log.Fatal("failed to initialize selection ledger", "path", cfg.Data.LedgerPath, "err", err)
	}
	log.Info("selection ledger ready",
		"completed", selectionLedger.CompletedCount(),
		"total", selectionLedger.TotalCount())

	cache := termcache.Open(cfg.Data.TermCachePath, logger.New("termcache"))
	log.Info("term cache ready", "entries", cache.Size())

	// Without an API key term generation runs on the deterministic fallback
	var termClient domain.TermClient
	if cfg.OpenAI.APIKey != "" {
		termClient = openai.NewClient(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.BaseURL,
			cfg.OpenAI.Model,
			cfg.OpenAI.Timeout,
			logger.New("openai"),
		)
		log.Info("term generation service configured", "model", cfg.OpenAI.Model)
	} else {
		log.Warn("no API key configured, term generation uses local fallback only")
	}

	// Initialize usecase layer
	termService := usecase.NewTermService(cache, termClient, logger.New("terms"))
	searchService := usecase.NewSearchService(catalogIndex, usecase.SearchConfig{
		MaxResults:      cfg.Search.MaxResults,
		MinSimilarity:   cfg.Search.MinSimilarity,
		FuzzySampleSize: cfg.Search.FuzzySampleSize,
	}, logger.New("search"))
	substituteService := usecase.NewSubstituteService(
		catalogIndex,
		workList,
		selectionLedger,
		termService,
		searchService,
		logger.New("substitutes"),
	)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(substituteService)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server listening", "addr", addr)

	if err := router.Run(addr); err != nil {
		log.Fatal("failed to start server", "err", err)
	}
}
