package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kavinb/docshorts/internal/api"
	"github.com/kavinb/docshorts/internal/config"
	"github.com/kavinb/docshorts/internal/db"
	"github.com/kavinb/docshorts/internal/queue"
	"github.com/kavinb/docshorts/internal/services"
	"github.com/kavinb/docshorts/internal/worker"
)

func main() {
	log.Println("Starting Docshorts API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Create API handler
	handler := api.NewHandler(database, q, cfg.OutputDir)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCtx context.Context
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		// Initialize services
		extractSvc := services.NewExtractService()
		openaiSvc := services.NewOpenAIService(cfg.OpenAIKey)
		geminiSvc := services.NewGeminiService(cfg.GeminiKey)
		agentSvc := services.NewAgentService(cfg.GeminiKey)
		ffmpegSvc := services.NewFFmpegService(cfg.WatermarkPath, cfg.SubtitleAnchor)
		manimSvc := services.NewManimService(cfg.ManimBin, time.Duration(cfg.RenderTimeoutSeconds)*time.Second)

		// Initialize TTS provider — Deepgram preferred, ElevenLabs as alternative
		var ttsSvc services.TTSService
		if cfg.DeepgramKey != "" {
			ttsSvc = services.NewDeepgramService(cfg.DeepgramKey, cfg.DeepgramVoice)
			log.Printf("TTS provider: Deepgram (voice: %s)", cfg.DeepgramVoice)
		} else {
			ttsSvc = services.NewElevenLabsService(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
			log.Printf("TTS provider: ElevenLabs (voice: %s)", cfg.ElevenLabsVoiceID)
		}

		// Create worker
		w := worker.New(database, q, extractSvc, openaiSvc, geminiSvc, agentSvc, ttsSvc, ffmpegSvc, manimSvc, cfg.WorkDir, cfg.OutputDir)

		// Start worker in background
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
