package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Backend modes.
const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

// Analyzers used by the local backend.
const (
	AnalyzerHeuristic = "heuristic"
	AnalyzerClaude    = "claude"
)

type Config struct {
	Port string

	// Auth
	ResumeditAPIKey string

	// Resume backend
	BackendMode    string
	BackendURL     string
	BackendAPIKey  string
	BackendTimeout time.Duration

	// Local backend analysis
	Analyzer           string
	AnthropicAPIKey    string
	AnthropicModel     string
	AnalyzeBatchTokens int
	MaxConcurrentCalls int

	// Editing
	DefaultMode string
	SessionTTL  time.Duration

	// Upload limits
	MaxUploadBytes int64

	// PDF
	PDFFallbackPdftotext bool
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present; variables already set
// in the environment win.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8091"),

		ResumeditAPIKey: os.Getenv("RESUMEDIT_API_KEY"),

		BackendMode:    envOr("BACKEND_MODE", BackendRemote),
		BackendURL:     envOr("BACKEND_URL", "http://localhost:8080/api"),
		BackendAPIKey:  os.Getenv("BACKEND_API_KEY"),
		BackendTimeout: envDuration("BACKEND_TIMEOUT", 30*time.Second),

		Analyzer:           envOr("ANALYZER", AnalyzerHeuristic),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:     envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		AnalyzeBatchTokens: envInt("ANALYZE_BATCH_TOKENS", 1500),
		MaxConcurrentCalls: envInt("MAX_CONCURRENT_ANALYZE", 3),

		DefaultMode: envOr("DEFAULT_MODE", "plain"),
		SessionTTL:  envDuration("SESSION_TTL", 2*time.Hour),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10485760), // 10MB

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.BackendTimeout <= 0 {
		cfg.BackendTimeout = 30 * time.Second
	}
	if cfg.AnalyzeBatchTokens <= 0 {
		cfg.AnalyzeBatchTokens = 1500
	}
	if cfg.MaxConcurrentCalls <= 0 {
		cfg.MaxConcurrentCalls = 3
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10485760
	}

	return cfg
}

func (c Config) Validate() error {
	if c.ResumeditAPIKey == "" {
		return fmt.Errorf("RESUMEDIT_API_KEY is required")
	}
	switch c.BackendMode {
	case BackendRemote:
		if c.BackendURL == "" {
			return fmt.Errorf("BACKEND_URL is required when BACKEND_MODE=%s", BackendRemote)
		}
	case BackendLocal:
		switch c.Analyzer {
		case AnalyzerHeuristic:
		case AnalyzerClaude:
			if c.AnthropicAPIKey == "" {
				return fmt.Errorf("ANTHROPIC_API_KEY is required when ANALYZER=%s", AnalyzerClaude)
			}
		default:
			return fmt.Errorf("ANALYZER must be %q or %q, got %q", AnalyzerHeuristic, AnalyzerClaude, c.Analyzer)
		}
	default:
		return fmt.Errorf("BACKEND_MODE must be %q or %q, got %q", BackendRemote, BackendLocal, c.BackendMode)
	}
	if c.DefaultMode != "plain" && c.DefaultMode != "markdown" {
		return fmt.Errorf("DEFAULT_MODE must be plain or markdown, got %q", c.DefaultMode)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
