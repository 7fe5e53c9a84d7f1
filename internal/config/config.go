package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// OpenAI (script generation)
	OpenAIKey string

	// Gemini (image generation + Manim code agents)
	GeminiKey string

	// TTS — Deepgram preferred, ElevenLabs as alternative
	DeepgramKey       string
	DeepgramVoice     string
	ElevenLabsKey     string
	ElevenLabsVoiceID string

	// Rendering
	WorkDir              string // per-job workspaces are created under this directory
	OutputDir            string // finished videos land here
	WatermarkPath        string // composited when the file exists (empty = no watermark)
	SubtitleAnchor       string // top, center, or bottom
	ManimBin             string // animation renderer binary
	RenderTimeoutSeconds int    // wall-clock bound per render subprocess

	// Worker
	MaxConcurrentJobs int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:              getEnv("API_PORT", "8080"),
		WorkerEnabled:        getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:        getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379"),
		OpenAIKey:            getEnv("OPENAI_API_KEY", ""),
		GeminiKey:            getEnv("GEMINI_API_KEY", ""),
		DeepgramKey:          getEnv("DEEPGRAM_API_KEY", ""),
		DeepgramVoice:        getEnv("DEEPGRAM_VOICE", "aura-luna-en"),
		ElevenLabsKey:        getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:    getEnv("ELEVENLABS_VOICE_ID", ""),
		WorkDir:              getEnv("WORK_DIR", "/tmp/docshorts"),
		OutputDir:            getEnv("OUTPUT_DIR", "videos"),
		WatermarkPath:        getEnv("WATERMARK_PATH", ""),
		SubtitleAnchor:       getEnv("SUBTITLE_ANCHOR", "bottom"),
		ManimBin:             getEnv("MANIM_BIN", "manim"),
		RenderTimeoutSeconds: getEnvInt("RENDER_TIMEOUT_SECONDS", 60),
		MaxConcurrentJobs:    getEnvInt("MAX_CONCURRENT_JOBS", 2),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	if cfg.GeminiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	// At least one TTS provider must be configured
	if cfg.DeepgramKey == "" && cfg.ElevenLabsKey == "" {
		return nil, fmt.Errorf("either DEEPGRAM_API_KEY or ELEVENLABS_API_KEY is required for TTS")
	}

	// An unrecognized anchor is a configuration error, not a silent fallback
	switch cfg.SubtitleAnchor {
	case "top", "center", "bottom":
	default:
		return nil, fmt.Errorf("SUBTITLE_ANCHOR must be top, center, or bottom (got %q)", cfg.SubtitleAnchor)
	}

	if cfg.RenderTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("RENDER_TIMEOUT_SECONDS must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
