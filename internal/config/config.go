// Package config provides application configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	AllowedOrigins []string
	GRPCHealthAddr string // empty disables the gRPC health server

	Superset  SupersetConfig
	LLM       LLMConfig
	Session   SessionConfig
	Catalog   CatalogConfig
	RateLimit RateLimitConfig

	// DatabaseURL points at the analytics platform's metadata database,
	// used to link charts to dashboards.
	DatabaseURL string

	// UnverifiedFallback selects the dataset view for callers whose claim
	// failed verification: "none" (no datasets) or "admin" (full catalog).
	UnverifiedFallback string
}

// SupersetConfig holds analytics platform credentials and addresses.
type SupersetConfig struct {
	URL         string
	ExternalURL string
	Username    string
	Password    string
	Timeout     time.Duration
}

// LLMConfig holds language model endpoint settings.
type LLMConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	SkipTLSVerify     bool
	Timeout           time.Duration
	ProposalMaxTokens int
	PlanMaxTokens     int
	PromptTokenLimit  int // 0 = send full history
}

// SessionConfig controls conversation lifetime.
type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// CatalogConfig controls dataset catalog refresh.
type CatalogConfig struct {
	RefreshInterval time.Duration
	StartupAttempts int
	StartupDelay    time.Duration
}

// RateLimitConfig controls per-session message throttling.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "9000"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		GRPCHealthAddr: getEnv("GRPC_HEALTH_ADDR", ""),
		Superset: SupersetConfig{
			URL:         strings.TrimRight(getEnv("SUPERSET_URL", "http://superset:8088"), "/"),
			ExternalURL: strings.TrimRight(getEnv("SUPERSET_EXTERNAL_URL", "http://localhost:9088"), "/"),
			Username:    getEnv("SUPERSET_ADMIN_USER", "admin"),
			Password:    getEnv("SUPERSET_ADMIN_PASSWORD", "admin"),
			Timeout:     getEnvDuration("SUPERSET_TIMEOUT", 30*time.Second),
		},
		LLM: LLMConfig{
			BaseURL:           strings.TrimRight(getEnv("LITELLM_URL", ""), "/"),
			APIKey:            getEnv("LITELLM_API_KEY", ""),
			Model:             getEnv("LLM_MODEL", "claude-haiku-4-5@20251001"),
			SkipTLSVerify:     getEnvBool("LLM_SKIP_TLS_VERIFY", false),
			Timeout:           getEnvDuration("LLM_TIMEOUT", 120*time.Second),
			ProposalMaxTokens: getEnvInt("LLM_PROPOSAL_MAX_TOKENS", 512),
			PlanMaxTokens:     getEnvInt("LLM_PLAN_MAX_TOKENS", 1024),
			PromptTokenLimit:  getEnvInt("LLM_PROMPT_TOKEN_LIMIT", 0),
		},
		Session: SessionConfig{
			IdleTimeout:   getEnvDuration("SESSION_TIMEOUT", 30*time.Minute),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		},
		Catalog: CatalogConfig{
			RefreshInterval: getEnvDuration("CATALOG_REFRESH_INTERVAL", 30*time.Second),
			StartupAttempts: getEnvInt("CATALOG_STARTUP_ATTEMPTS", 15),
			StartupDelay:    getEnvDuration("CATALOG_STARTUP_DELAY", 10*time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		DatabaseURL:        getEnv("DATABASE_URL", "postgresql://superset:superset@db:5432/superset"),
		UnverifiedFallback: strings.ToLower(getEnv("UNVERIFIED_FALLBACK", "admin")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if _, err := url.ParseRequestURI(c.Superset.URL); err != nil {
		return fmt.Errorf("SUPERSET_URL is not a valid URL: %w", err)
	}
	if _, err := url.ParseRequestURI(c.Superset.ExternalURL); err != nil {
		return fmt.Errorf("SUPERSET_EXTERNAL_URL is not a valid URL: %w", err)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL cannot be empty")
	}
	if c.LLM.ProposalMaxTokens <= 0 || c.LLM.PlanMaxTokens <= 0 {
		return fmt.Errorf("LLM token budgets must be > 0")
	}
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be > 0")
	}
	if c.Catalog.RefreshInterval <= 0 {
		return fmt.Errorf("CATALOG_REFRESH_INTERVAL must be > 0")
	}
	if c.Catalog.StartupAttempts <= 0 {
		return fmt.Errorf("CATALOG_STARTUP_ATTEMPTS must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	switch c.UnverifiedFallback {
	case "none", "admin":
	default:
		return fmt.Errorf("UNVERIFIED_FALLBACK must be \"none\" or \"admin\", got %q", c.UnverifiedFallback)
	}
	return nil
}

// LLMEnabled returns true if a language model endpoint is configured.
func (c *Config) LLMEnabled() bool {
	return c.LLM.BaseURL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("30s") or bare seconds ("1800").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
