// Package config builds the gateway configuration from the
// environment. Load once at startup, validate, then treat as
// read-only.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds global settings for the gateway. Every field can be set
// via environment variables; .env is loaded before this in main.
type Config struct {
	// === Serving ===
	ListenAddr string // HTTP listen address (default ":8080")

	// === Storage ===
	DatabaseURL string // Postgres DSN (required)
	RedisAddr   string // Redis address for rate limiting; empty falls back to Postgres counters

	// === LLM Provider ===
	LLMProvider string // "openrouter", "groq", "ollama", "custom"
	LLMAPIKey   string // API key for cloud providers
	LLMModel    string // chat model for analysis, classification and responses
	LLMBaseURL  string // override for self-hosted or custom providers

	// === Embeddings (knowledge base) ===
	EmbeddingBaseURL string // OpenAI-compatible embeddings endpoint; empty disables vector search
	EmbeddingModel   string

	// === Pipeline tuning ===
	HistoryLimit    int           // turns loaded per message (default 20)
	ContextTurns    int           // turns the scorer reads (default 10)
	RateLimit       int           // actions per user per window (default 10)
	RateWindow      time.Duration // rate limit window (default 1m)
	AnalysisTimeout time.Duration // remote prompt analysis budget (default 30s)

	// === Delivery ===
	TransportEndpoint string // front-end send endpoint; empty disables push delivery
	OperatorChatID    int64  // chat for failure alerts; 0 disables them

	// === Files ===
	AuditLogPath string // JSONL audit log (default "audit_events.jsonl")
	VocabPath    string // optional YAML vocabulary override
}

// New reads the configuration from the environment.
func New() *Config {
	return &Config{
		ListenAddr: GetEnv("BASTION_LISTEN_ADDR", ":8080"),

		DatabaseURL: GetEnv("BASTION_DATABASE_URL", os.Getenv("DATABASE_URL")),
		RedisAddr:   GetEnv("BASTION_REDIS_ADDR", ""),

		LLMProvider: GetEnv("BASTION_LLM_PROVIDER", "openrouter"),
		LLMAPIKey:   GetEnv("BASTION_LLM_API_KEY", os.Getenv("OPENROUTER_API_KEY")),
		LLMModel:    GetEnv("BASTION_LLM_MODEL", "qwen/qwen-2.5-72b-instruct"),
		LLMBaseURL:  GetEnv("BASTION_LLM_BASE_URL", ""),

		EmbeddingBaseURL: GetEnv("BASTION_EMBEDDING_BASE_URL", ""),
		EmbeddingModel:   GetEnv("BASTION_EMBEDDING_MODEL", ""),

		HistoryLimit:    clampInt(GetEnvInt("BASTION_HISTORY_LIMIT", 20), 1, 200),
		ContextTurns:    clampInt(GetEnvInt("BASTION_CONTEXT_TURNS", 10), 1, 100),
		RateLimit:       clampInt(GetEnvInt("BASTION_RATE_LIMIT", 10), 1, 1000),
		RateWindow:      time.Duration(GetEnvInt("BASTION_RATE_WINDOW_SECONDS", 60)) * time.Second,
		AnalysisTimeout: time.Duration(GetEnvInt("BASTION_ANALYSIS_TIMEOUT_MS", 30000)) * time.Millisecond,

		TransportEndpoint: GetEnv("BASTION_TRANSPORT_ENDPOINT", ""),
		OperatorChatID:    int64(GetEnvInt("BASTION_OPERATOR_CHAT_ID", 0)),

		AuditLogPath: GetEnv("BASTION_AUDIT_LOG", "audit_events.jsonl"),
		VocabPath:    GetEnv("BASTION_VOCAB_PATH", ""),
	}
}

// Validate checks that the configuration can actually run the gateway.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "BASTION_DATABASE_URL (Postgres DSN)")
	}
	if needsAPIKey(c.LLMProvider) && c.LLMAPIKey == "" {
		missing = append(missing, "BASTION_LLM_API_KEY (required for provider "+c.LLMProvider+")")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.LLMProvider == "custom" && c.LLMBaseURL == "" {
		return fmt.Errorf("BASTION_LLM_BASE_URL is required for the custom provider")
	}
	if c.EmbeddingBaseURL != "" && c.EmbeddingModel == "" {
		return fmt.Errorf("BASTION_EMBEDDING_MODEL is required when embeddings are enabled")
	}
	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: configuration validation failed: %v", err)
	}
	log.Println("[STARTUP] Configuration validated successfully")
}

func needsAPIKey(provider string) bool {
	switch provider {
	case "ollama", "custom":
		return false
	}
	return true
}

// clampInt ensures a value is within bounds
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
