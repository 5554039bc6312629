package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthchat-relay/internal/config"
	"healthchat-relay/internal/database"
	"healthchat-relay/internal/handlers"
	"healthchat-relay/internal/history"
	"healthchat-relay/internal/router"
	"healthchat-relay/internal/services"
	"healthchat-relay/internal/worker"
)

func main() {
	log.Println("🚀 Starting Health Chat Relay...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	logger := newLogger(cfg.Env)
	slog.SetDefault(logger)

	// ──── Step 2: Initialize History Store ────
	var store history.Store
	switch cfg.HistoryBackend {
	case config.BackendRedis:
		redisClient, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClient.Close()

		store = history.NewRedisStore(redisClient, history.RedisOptions{
			MaxTurns: cfg.HistoryMaxTurns,
			TTL:      cfg.HistoryTTL,
			LockTTL:  cfg.ModelTimeout + 30*time.Second,
		})
		log.Println("✓ Redis history store connected")
	default:
		store = history.NewMemoryStore(cfg.HistoryMaxTurns)
		log.Println("✓ In-memory history store initialized")
	}

	// ──── Step 3: Initialize Token Counter ────
	counter, err := history.NewTiktokenCounter()
	if err != nil {
		log.Fatalf("✗ Tokenizer initialization failed: %v", err)
	}
	log.Printf("✓ Context window capped at %d tokens", cfg.HistoryMaxTokens)

	// ──── Step 4: Initialize Model Client ────
	apiKey := cfg.GeminiAPIKey
	if cfg.ModelProvider == config.ProviderAnthropic {
		apiKey = cfg.AnthropicAPIKey
	}
	model, err := services.NewModelClient(cfg.ModelProvider, cfg.ModelName, apiKey)
	if err != nil {
		log.Fatalf("✗ Model client initialization failed: %v", err)
	}
	defer model.Close()
	log.Printf("✓ Model client initialized (%s/%s)", cfg.ModelProvider, cfg.ModelName)

	// ──── Initialize Services ────
	chatService := services.NewChatService(model, store, services.ChatOptions{
		Persona:            cfg.Persona,
		Window:             history.Window{MaxTokens: cfg.HistoryMaxTokens, Counter: counter},
		ConcurrentRequests: cfg.ModelConcurrentReqs,
		Timeout:            cfg.ModelTimeout,
		Logger:             logger,
	})

	// ──── Initialize Handlers ────
	chatHandler := handlers.NewChatHandler(chatService)

	// ──── Step 5: Start History Janitor ────
	var janitor *worker.Janitor
	if sweeper, ok := store.(history.Sweeper); ok && cfg.HistoryTTL > 0 {
		janitor = worker.NewJanitor(sweeper, cfg.HistoryTTL, logger)
		janitor.Start()
		log.Printf("✓ History janitor started (every %s)", janitor.Interval())
	}

	// ──── Step 6: Start HTTP Server ────
	r := router.New(chatHandler, cfg.CORSOrigin)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Leave room for a full model call before the write deadline.
		WriteTimeout: cfg.ModelTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		log.Fatalf("✗ Listen on %s failed: %v", server.Addr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("✓ Health Chat Relay ready on http://localhost:%s", cfg.Port)
	log.Printf("  Chat: POST http://localhost:%s/chat", cfg.Port)

	// In-flight requests may be waiting on a full model call.
	drain := cfg.ModelTimeout + 15*time.Second
	err = serve(ctx, server, ln, drain, func() {
		if janitor != nil {
			janitor.Stop()
		}
	})
	if err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}

// serve runs server on ln until ctx is done, then shuts it down and waits up
// to drain for in-flight requests before returning.
func serve(ctx context.Context, server *http.Server, ln net.Listener, drain time.Duration, beforeShutdown func()) error {
	shutdownDone := make(chan error, 1)
	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		if beforeShutdown != nil {
			beforeShutdown()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
		defer cancel()
		shutdownDone <- server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(ln); err != http.ErrServerClosed {
		return err
	}
	return <-shutdownDone
}

func newLogger(env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
