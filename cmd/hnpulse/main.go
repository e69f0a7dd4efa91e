package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hnpulse/hnpulse/internal/api"
	"github.com/hnpulse/hnpulse/internal/auth"
	"github.com/hnpulse/hnpulse/internal/cache"
	"github.com/hnpulse/hnpulse/internal/config"
	"github.com/hnpulse/hnpulse/internal/hn"
	"github.com/hnpulse/hnpulse/internal/ratelimit"
	"github.com/hnpulse/hnpulse/internal/stories"
	"github.com/hnpulse/hnpulse/internal/store"
)

func main() {
	cfg := config.Load()

	// Initialize user store
	sqliteStore, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer sqliteStore.Close()

	// Initialize cache store
	cacheStore, err := openCache(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheStore.Close()

	// Initialize the story engine
	breaker := hn.NewBreaker(cfg.BreakerThreshold, cfg.BreakerOpenFor)
	client := hn.NewClient(breaker, hn.Options{
		Timeout: cfg.AttemptTimeout,
		Retries: cfg.Retries,
	})
	fetcher := stories.NewFetcher(client, cacheStore, cfg.UpstreamBaseURL,
		int64(cfg.FanoutConcurrency), cfg.IDListTTL, cfg.ItemTTL)
	warmer := stories.NewWarmer(fetcher, cacheStore, stories.WarmerOptions{
		MaxStories:      cfg.MaxStories,
		CacheDuration:   cfg.CacheDuration,
		RefreshInterval: cfg.RefreshInterval,
		StartupDelay:    cfg.StartupDelay,
		ErrorBackoff:    cfg.ErrorBackoff,
	})
	reader := stories.NewReader(cacheStore, warmer, cfg.MaxStories, cfg.CacheDuration)

	// Initialize services
	limiter := ratelimit.NewMemoryLimiter()
	limiter.StartCleanup(5 * time.Minute)
	defer limiter.Stop()

	authService := auth.NewService(sqliteStore, cfg.TokenTTL)

	// Initialize handlers
	apiHandler := api.NewHandler(reader, warmer, authService, limiter, cfg)

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Public API routes
	mux.HandleFunc("GET /api/stories/top", apiHandler.TopStories)
	mux.HandleFunc("POST /api/auth/register", apiHandler.Register)
	mux.HandleFunc("POST /api/auth/login", apiHandler.Login)

	// Protected API routes
	mux.HandleFunc("POST /api/admin/refresh", apiHandler.RequireAuth(apiHandler.Refresh))

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.Printf("Starting hnpulse on %s", addr)

	// Wrap with logging middleware
	handler := api.LogRequests(mux)

	// Create server with timeouts
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the periodic warmup under a cancellable context
	runCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		warmer.Run(runCtx)
	}()

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Stop the warmup loop and wait for it to exit
	cancel()
	wg.Wait()

	// Give outstanding requests 30 seconds to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func openCache(cfg *config.Config) (cache.Store, error) {
	if cfg.CachePath != "" {
		return cache.NewSQLite(cfg.CachePath)
	}
	mem := cache.NewMemory()
	mem.StartCleanup(time.Minute)
	return mem, nil
}
