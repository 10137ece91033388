package config

import (
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.HistoryLimit != 20 {
		t.Errorf("HistoryLimit = %d, want 20", cfg.HistoryLimit)
	}
	if cfg.ContextTurns != 10 {
		t.Errorf("ContextTurns = %d, want 10", cfg.ContextTurns)
	}
	if cfg.RateLimit != 10 || cfg.RateWindow != time.Minute {
		t.Errorf("rate limit = %d per %s, want 10 per 1m", cfg.RateLimit, cfg.RateWindow)
	}
	if cfg.AnalysisTimeout != 30*time.Second {
		t.Errorf("AnalysisTimeout = %s, want 30s", cfg.AnalysisTimeout)
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv("BASTION_LISTEN_ADDR", ":9090")
	t.Setenv("BASTION_HISTORY_LIMIT", "40")
	t.Setenv("BASTION_RATE_WINDOW_SECONDS", "120")

	cfg := New()
	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.HistoryLimit != 40 {
		t.Errorf("HistoryLimit = %d", cfg.HistoryLimit)
	}
	if cfg.RateWindow != 2*time.Minute {
		t.Errorf("RateWindow = %s", cfg.RateWindow)
	}
}

func TestNew_ClampsPipelineBounds(t *testing.T) {
	t.Setenv("BASTION_HISTORY_LIMIT", "0")
	t.Setenv("BASTION_CONTEXT_TURNS", "100000")

	cfg := New()
	if cfg.HistoryLimit != 1 {
		t.Errorf("HistoryLimit = %d, want clamped to 1", cfg.HistoryLimit)
	}
	if cfg.ContextTurns != 100 {
		t.Errorf("ContextTurns = %d, want clamped to 100", cfg.ContextTurns)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Complete", func(c *Config) {}, false},
		{"Missing database", func(c *Config) { c.DatabaseURL = "" }, true},
		{"Missing key for cloud provider", func(c *Config) { c.LLMAPIKey = "" }, true},
		{"Ollama needs no key", func(c *Config) { c.LLMProvider = "ollama"; c.LLMAPIKey = "" }, false},
		{"Custom needs base URL", func(c *Config) { c.LLMProvider = "custom"; c.LLMAPIKey = ""; c.LLMBaseURL = "" }, true},
		{"Embeddings need a model", func(c *Config) { c.EmbeddingBaseURL = "http://localhost:11434/v1"; c.EmbeddingModel = "" }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{
				DatabaseURL: "postgres://localhost/bastion",
				LLMProvider: "openrouter",
				LLMAPIKey:   "sk-test",
			}
			tc.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("BASTION_TEST_STR", "value")
	t.Setenv("BASTION_TEST_INT", "42")
	t.Setenv("BASTION_TEST_BOOL", "true")
	t.Setenv("BASTION_TEST_FLOAT", "1.5")
	t.Setenv("BASTION_TEST_BAD_INT", "not-a-number")

	if got := GetEnv("BASTION_TEST_STR", "d"); got != "value" {
		t.Errorf("GetEnv = %q", got)
	}
	if got := GetEnv("BASTION_TEST_UNSET", "d"); got != "d" {
		t.Errorf("GetEnv default = %q", got)
	}
	if got := GetEnvInt("BASTION_TEST_INT", 0); got != 42 {
		t.Errorf("GetEnvInt = %d", got)
	}
	if got := GetEnvInt("BASTION_TEST_BAD_INT", 7); got != 7 {
		t.Errorf("GetEnvInt on garbage = %d, want default", got)
	}
	if got := GetEnvBool("BASTION_TEST_BOOL", false); !got {
		t.Error("GetEnvBool = false")
	}
	if got := GetEnvFloat("BASTION_TEST_FLOAT", 0); got != 1.5 {
		t.Errorf("GetEnvFloat = %v", got)
	}
}
