package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr     string
	LogLevel string

	// Extraction gateway.
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	Model          string
	ExtractTimeout time.Duration

	// Session lifecycle.
	SessionTTL time.Duration

	// Upload limits.
	MaxUploadBytes int64
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("KYOGISHO_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return Server{
		Addr:           addr,
		LogLevel:       os.Getenv("LOG_LEVEL"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		Model:          os.Getenv("KYOGISHO_MODEL"),
		ExtractTimeout: durationEnv("KYOGISHO_EXTRACT_TIMEOUT", 60*time.Second),
		SessionTTL:     durationEnv("KYOGISHO_SESSION_TTL", 30*time.Minute),
		MaxUploadBytes: int64Env("KYOGISHO_MAX_UPLOAD_BYTES", 10<<20),
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func int64Env(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
