// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Response parser names accepted by REVBOT_RESPONSE_PARSER.
const (
	ParserLines    = "lines"
	ParserMarkdown = "markdown"
)

// DefaultDBPath is the run ledger location when REVBOT_DB_PATH is unset.
const DefaultDBPath = "revbot.db"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// WebhookSecret must equal the Authorization header of every delivery.
	WebhookSecret string
	GiteaBaseURL  string // Always ends with "/".
	GiteaToken    string

	AIBaseURL string
	AIKey     string
	AIModel   string

	ListenAddr           string
	DBPath               string
	MaxConcurrentReviews int
	ResponseParser       string
	LogLevel             slog.Level
}

// Load reads configuration from environment variables and returns a validated Config.
// Required: GITEA_AUTHORIZATION, GITEA_BASE_URL, GITEA_TOKEN, AI_BASE_URL, AI_KEY, AI_MODEL.
// Optional variables with defaults: REVBOT_LISTEN_ADDR (0.0.0.0:6651),
// REVBOT_DB_PATH (revbot.db), REVBOT_MAX_CONCURRENT_REVIEWS (4),
// REVBOT_RESPONSE_PARSER (lines), REVBOT_LOG_LEVEL (info).
func Load() (*Config, error) {
	required := map[string]string{}
	for _, key := range []string{
		"GITEA_AUTHORIZATION",
		"GITEA_BASE_URL",
		"GITEA_TOKEN",
		"AI_BASE_URL",
		"AI_KEY",
		"AI_MODEL",
	} {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil, fmt.Errorf("%s is required", key)
		}
		required[key] = v
	}

	baseURL := required["GITEA_BASE_URL"]
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	listenAddr := "0.0.0.0:6651"
	if v, ok := os.LookupEnv("REVBOT_LISTEN_ADDR"); ok && v != "" {
		listenAddr = v
	}

	maxConcurrent := 4
	if v, ok := os.LookupEnv("REVBOT_MAX_CONCURRENT_REVIEWS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("REVBOT_MAX_CONCURRENT_REVIEWS must be a positive integer, got %q", v)
		}
		maxConcurrent = n
	}

	parser := ParserLines
	if v, ok := os.LookupEnv("REVBOT_RESPONSE_PARSER"); ok && v != "" {
		switch v {
		case ParserLines, ParserMarkdown:
			parser = v
		default:
			return nil, fmt.Errorf("REVBOT_RESPONSE_PARSER must be %q or %q, got %q", ParserLines, ParserMarkdown, v)
		}
	}

	level := slog.LevelInfo
	if v, ok := os.LookupEnv("REVBOT_LOG_LEVEL"); ok && v != "" {
		if err := level.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("REVBOT_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	return &Config{
		WebhookSecret:        required["GITEA_AUTHORIZATION"],
		GiteaBaseURL:         baseURL,
		GiteaToken:           required["GITEA_TOKEN"],
		AIBaseURL:            required["AI_BASE_URL"],
		AIKey:                required["AI_KEY"],
		AIModel:              required["AI_MODEL"],
		ListenAddr:           listenAddr,
		DBPath:               DBPath(),
		MaxConcurrentReviews: maxConcurrent,
		ResponseParser:       parser,
		LogLevel:             level,
	}, nil
}

// DBPath returns REVBOT_DB_PATH or DefaultDBPath. Commands that only read the
// run ledger use it without requiring the full service configuration.
func DBPath() string {
	if v, ok := os.LookupEnv("REVBOT_DB_PATH"); ok && v != "" {
		return v
	}
	return DefaultDBPath
}
