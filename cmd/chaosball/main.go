package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chaosball/internal/broadcast"
	"chaosball/internal/config"
	"chaosball/internal/server"
	"chaosball/pkg/audio"
	"chaosball/pkg/generation"
	ledgerRepo "chaosball/pkg/repositories/ledger"
	playlogRepo "chaosball/pkg/repositories/playlog"
	ledgerService "chaosball/pkg/services/ledger"
	matchService "chaosball/pkg/services/match"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ledger storage
	var betRepo ledgerRepo.Repository
	if cfg.StorageType == "sqlite" {
		log.Printf("Initializing SQLite ledger at %s", cfg.SQLitePath)
		sqliteRepo, err := ledgerRepo.NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			log.Printf("Failed to initialize SQLite ledger: %v", err)
			log.Println("Falling back to in-memory ledger")
			betRepo = ledgerRepo.NewMemoryRepository()
		} else {
			betRepo = sqliteRepo
			log.Println("Successfully initialized SQLite ledger")
		}
	} else {
		betRepo = ledgerRepo.NewMemoryRepository()
		log.Println("Using in-memory ledger (wagers are lost on restart)")
	}
	defer betRepo.Close()

	// Play archive
	var playLog playlogRepo.Repository = playlogRepo.NewMemoryRepository()
	if cfg.ElasticsearchURL != "" {
		esConfig := playlogRepo.DefaultElasticsearchConfig()
		esConfig.URL = cfg.ElasticsearchURL
		esRepo, err := playlogRepo.NewElasticsearchRepository(playLog, esConfig)
		if err != nil {
			log.Printf("Failed to initialize Elasticsearch play log: %v", err)
			log.Println("Falling back to in-memory play log")
		} else {
			playLog = esRepo
			log.Printf("Archiving plays to Elasticsearch at %s", cfg.ElasticsearchURL)
		}
	}
	defer playLog.Close()

	// Generation client
	genClient, err := generation.NewGeminiClient(ctx, cfg.GeminiAPIKey,
		generation.WithPollInterval(cfg.ReplayPollEvery),
		generation.WithMaxPolls(cfg.ReplayMaxPolls),
	)
	if err != nil {
		log.Fatalf("Error creating generation client: %v", err)
	}

	// Wager ledger
	wagers, err := ledgerService.NewService(ctx, betRepo, ledgerService.NewRandomResolver(), cfg.StartingBalance)
	if err != nil {
		log.Fatalf("Error creating ledger service: %v", err)
	}

	// Match orchestrator
	orchestrator := matchService.NewService(genClient, wagers, playLog, audio.NewPlayer(), matchService.Config{
		Theme:         cfg.Theme,
		QuarterLength: cfg.QuarterLength,
	})

	// Snapshot broadcast
	hub := broadcast.NewHub()
	go hub.Run(ctx)
	orchestrator.Subscribe(hub.Publish)

	// HTTP server
	srv := server.New(ctx, orchestrator, wagers, playLog, hub)
	httpServer := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: srv.Router(),
	}

	go func() {
		log.Printf("ChaosBall network live on %s", cfg.ServerAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
	cancel()
}
