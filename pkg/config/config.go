// Package config loads the orchestrator's process-wide configuration from
// the environment (plus an optional .env file), following the teacher's
// env-sourced, validate-once-at-startup pattern.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the umbrella, read-only-after-startup configuration object
// passed to every component at construction time (§4.7, §6 env key table).
type Config struct {
	APIHost string
	APIPort int
	Debug   bool

	CORSOrigins []string

	LLMEndpoint     string
	LLMModel        string
	LLMTemperature  float64
	LLMMaxTokens    int

	MemoryServiceURL string
	ActionExecutorURL string

	EnableSandbox bool
	DryRunMode    bool

	MaxConcurrentActions int
	ActionTimeout        time.Duration
	RequestTimeout       time.Duration

	AllowedActions []string

	PolicyFile string

	DatabaseURL     string
	AuditLogEnabled bool

	SessionMaxInflight    int
	ShutdownGraceSeconds  int

	LogLevel string
}

// Load reads Config from the process environment, applying the defaults
// named in §6. It returns a *ValidationError when a numeric setting does not
// parse (wrapping the parse error) or when MAX_CONCURRENT_ACTIONS is below 1
// (wrapping ErrInvalidValue) — Configuration taxonomy entry, §7, fatal,
// causes a startup exit. A boolean setting that does not parse falls back
// to its default instead.
func Load() (*Config, error) {
	cfg := &Config{
		APIHost:            getEnv("API_HOST", "0.0.0.0"),
		Debug:              getBoolEnv("DEBUG", false),
		CORSOrigins:        getListEnv("CORS_ORIGINS", []string{"*"}),
		LLMEndpoint:        getEnv("LLM_ENDPOINT", "http://localhost:8000"),
		LLMModel:           getEnv("LLM_MODEL", "default"),
		MemoryServiceURL:   getEnv("MEMORY_SERVICE_URL", "http://localhost:8001"),
		ActionExecutorURL:  getEnv("ACTION_EXECUTOR_URL", "http://localhost:8002"),
		EnableSandbox:      getBoolEnv("ENABLE_SANDBOX", true),
		DryRunMode:         getBoolEnv("DRY_RUN_MODE", false),
		AllowedActions:     getListEnv("ALLOWED_ACTIONS", []string{}),
		PolicyFile:         getEnv("POLICY_FILE", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		AuditLogEnabled:    getBoolEnv("AUDIT_LOG_ENABLED", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ShutdownGraceSeconds: 10,
	}

	var err error
	if cfg.APIPort, err = getIntEnv("API_PORT", 8080); err != nil {
		return nil, NewValidationError("config", "API_PORT", "", err)
	}
	if cfg.LLMTemperature, err = getFloatEnv("LLM_TEMPERATURE", 0.7); err != nil {
		return nil, NewValidationError("config", "LLM_TEMPERATURE", "", err)
	}
	if cfg.LLMMaxTokens, err = getIntEnv("LLM_MAX_TOKENS", 1024); err != nil {
		return nil, NewValidationError("config", "LLM_MAX_TOKENS", "", err)
	}
	if cfg.MaxConcurrentActions, err = getIntEnv("MAX_CONCURRENT_ACTIONS", 5); err != nil {
		return nil, NewValidationError("config", "MAX_CONCURRENT_ACTIONS", "", err)
	}
	actionTimeoutS, err := getIntEnv("ACTION_TIMEOUT", 30)
	if err != nil {
		return nil, NewValidationError("config", "ACTION_TIMEOUT", "", err)
	}
	cfg.ActionTimeout = time.Duration(actionTimeoutS) * time.Second
	requestTimeoutS, err := getIntEnv("REQUEST_TIMEOUT", 120)
	if err != nil {
		return nil, NewValidationError("config", "REQUEST_TIMEOUT", "", err)
	}
	cfg.RequestTimeout = time.Duration(requestTimeoutS) * time.Second
	if cfg.SessionMaxInflight, err = getIntEnv("SESSION_MAX_INFLIGHT", cfg.MaxConcurrentActions); err != nil {
		return nil, NewValidationError("config", "SESSION_MAX_INFLIGHT", "", err)
	}
	if cfg.ShutdownGraceSeconds, err = getIntEnv("SHUTDOWN_GRACE_SECONDS", 10); err != nil {
		return nil, NewValidationError("config", "SHUTDOWN_GRACE_SECONDS", "", err)
	}

	if cfg.MaxConcurrentActions < 1 {
		return nil, NewValidationError("config", "MAX_CONCURRENT_ACTIONS", "", ErrInvalidValue)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getListEnv(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
