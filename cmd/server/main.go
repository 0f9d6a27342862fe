package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"purser/internal/api"
	"purser/internal/config"
	"purser/internal/database"
	"purser/internal/notify"
	"purser/internal/scraper"
	"purser/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	if err := database.Initialize(cfg.DBPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	// Pick the notification channel: email when configured, otherwise
	// telegram, otherwise the process log.
	notifier := selectNotifier(cfg)
	log.Printf("Notifications will be delivered via %s", notifier.Name())

	// Initialize services
	watchlist := services.NewWatchlistService(db)
	fetcher := scraper.NewFetcher(cfg.FetchTimeout)
	registry := scraper.NewRegistry()
	checker := services.NewChecker(db, fetcher, registry, notifier, cfg.DomainRate)
	worker := services.NewCheckWorker(db, checker, cfg.CheckInterval, cfg.CheckBatchSize, cfg.CheckConcurrency, cfg.BackoffBase)

	digestHour, digestMinute, err := config.ParseClock(cfg.DigestTime)
	if err != nil {
		log.Fatalf("Bad digest time: %v", err)
	}
	digest := services.NewDigestService(db, notifier, digestHour, digestMinute)

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start check worker in background with panic recovery
	go func() {
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("PANIC in check worker: %v - restarting in 30 seconds", r)
					}
				}()
				worker.Start(ctx)
			}()

			select {
			case <-ctx.Done():
				return
			case <-time.After(30 * time.Second):
				log.Println("Check worker restarting after panic recovery...")
			}
		}
	}()

	// Start digest service in background
	go digest.Start(ctx)

	// Setup router
	router := api.SetupRouter(cfg.CORSOrigins, watchlist, worker, digest)

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cancel the context to stop the background workers
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func selectNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Email.Configured() {
		return notify.NewEmailNotifier(cfg.Email)
	}
	if cfg.Telegram.Configured() {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram)
		if err != nil {
			log.Printf("Telegram notifier unavailable (%v), falling back to log", err)
			return notify.NewLogNotifier()
		}
		return tg
	}
	return notify.NewLogNotifier()
}
