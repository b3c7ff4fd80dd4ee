// Package config reads service settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port            int
	NatsURL         string
	NatsToken       string
	DatabaseURL     string
	LogLevel        string
	LLMProvider     string
	GeminiAPIKey    string
	GeminiModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	SlackBotToken   string
	SlackChannel    string
	APIToken        string

	MaxUploadBytes     int64
	MaxAnalyzeMessages int
	DateOrder          string
	ValidateImages     bool
	WorkDir            string
	// RetentionDays purges older extracts at startup; 0 keeps everything.
	RetentionDays int
}

func Load() Config {
	return Config{
		Port:            envInt("CHATREPORT_PORT", 8760),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		LLMProvider:     strings.ToLower(envStr("LLM_PROVIDER", "gemini")),
		GeminiAPIKey:    envStr("GEMINI_API_KEY", ""),
		GeminiModel:     envStr("GEMINI_MODEL", "gemini-2.5-flash-lite"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		SlackBotToken:   envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:    envStr("SLACK_CHANNEL", ""),
		APIToken:        envStr("CHATREPORT_API_TOKEN", ""),

		MaxUploadBytes:     envInt64("MAX_UPLOAD_BYTES", 50<<20),
		MaxAnalyzeMessages: envInt("MAX_ANALYZE_MESSAGES", 200),
		DateOrder:          strings.ToLower(envStr("DATE_ORDER", "dmy")),
		ValidateImages:     envBool("VALIDATE_IMAGES", true),
		WorkDir:            envStr("WORK_DIR", os.TempDir()),
		RetentionDays:      envInt("RETENTION_DAYS", 0),
	}
}

func envStr(key, fallback string) string {
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
